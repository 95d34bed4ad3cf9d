package validator

import (
	"strings"

	"github.com/aretw0/stateflow/pkg/domain"
)

// ValidateDefinition checks a workflow definition for structural consistency.
// It never fails: every violated rule is collected into the returned result.
func ValidateDefinition(def *domain.Definition) domain.ValidationResult {
	result := domain.NewValidationResult()
	if def == nil {
		result.Addf("Workflow definition must have at least one state")
		result.Addf("Workflow definition must have exactly one initial state")
		return result
	}

	if len(def.States) == 0 {
		result.Addf("Workflow definition must have at least one state")
	}

	stateIDs := make([]string, 0, len(def.States))
	known := make(map[string]struct{}, len(def.States))
	initials := 0
	for _, s := range def.States {
		stateIDs = append(stateIDs, s.ID)
		known[s.ID] = struct{}{}
		if s.IsInitial {
			initials++
		}
	}

	if dups := duplicates(stateIDs); len(dups) > 0 {
		result.Addf("Duplicate state IDs found: %s", strings.Join(dups, ", "))
	}

	switch {
	case initials == 0:
		result.Addf("Workflow definition must have exactly one initial state")
	case initials > 1:
		result.Addf("Workflow definition cannot have more than one initial state")
	}

	actionIDs := make([]string, 0, len(def.Actions))
	for _, a := range def.Actions {
		actionIDs = append(actionIDs, a.ID)
	}
	if dups := duplicates(actionIDs); len(dups) > 0 {
		result.Addf("Duplicate action IDs found: %s", strings.Join(dups, ", "))
	}

	for _, a := range def.Actions {
		for _, from := range a.FromStates {
			if _, ok := known[from]; !ok {
				result.Addf("Action '%s' references unknown fromState '%s'", a.ID, from)
			}
		}
		if _, ok := known[a.ToState]; !ok {
			result.Addf("Action '%s' references unknown toState '%s'", a.ID, a.ToState)
		}
		if len(a.FromStates) == 0 {
			result.Addf("Action '%s' must have at least one fromState", a.ID)
		}
	}

	return result
}

// duplicates returns every ID that occurs more than once, in order of first occurrence.
func duplicates(ids []string) []string {
	counts := make(map[string]int, len(ids))
	var order []string
	for _, id := range ids {
		if counts[id] == 0 {
			order = append(order, id)
		}
		counts[id]++
	}

	var dups []string
	for _, id := range order {
		if counts[id] > 1 {
			dups = append(dups, id)
		}
	}
	return dups
}
