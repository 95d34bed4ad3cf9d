package service

import (
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/stateflow/pkg/domain"
)

var (
	// DefaultMaxSelectorSize bounds action selectors in bytes.
	DefaultMaxSelectorSize = 256
	// EnvMaxSelectorSize overrides DefaultMaxSelectorSize.
	EnvMaxSelectorSize = "STATEFLOW_MAX_SELECTOR_SIZE"
)

// sanitizeSelector rejects oversized or non-UTF-8 action selectors and strips control
// characters, so client input can neither poison logs nor corrupt terminals.
func sanitizeSelector(selector string) (string, error) {
	if limit := maxSelectorSize(); len(selector) > limit {
		result := domain.NewValidationResult()
		result.Addf("Action selector exceeds maximum allowed size (%d > %d bytes)", len(selector), limit)
		return "", &domain.ValidationError{Result: result}
	}
	if !utf8.ValidString(selector) {
		result := domain.NewValidationResult()
		result.Addf("Action selector contains invalid UTF-8 sequences")
		return "", &domain.ValidationError{Result: result}
	}

	if strings.IndexFunc(selector, unicode.IsControl) < 0 {
		return selector, nil
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, selector), nil
}

func maxSelectorSize() int {
	if val := os.Getenv(EnvMaxSelectorSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxSelectorSize
}
