package domain

import (
	"cmp"
	"slices"
	"strings"
)

// SortDefinitions orders definitions oldest first, breaking ties by ID.
func SortDefinitions(defs []*Definition) {
	slices.SortFunc(defs, func(a, b *Definition) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), strings.Compare(a.ID, b.ID))
	})
}

// SortInstances orders instances oldest first, breaking ties by ID.
func SortInstances(insts []*Instance) {
	slices.SortFunc(insts, func(a, b *Instance) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), strings.Compare(a.ID, b.ID))
	})
}
