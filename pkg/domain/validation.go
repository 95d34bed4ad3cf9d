package domain

import "fmt"

// ValidationResult aggregates every rule violated during a validation pass.
type ValidationResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// NewValidationResult returns a valid, empty result.
func NewValidationResult() ValidationResult {
	return ValidationResult{IsValid: true, Errors: []string{}}
}

// Addf records a formatted error and marks the result invalid.
func (r *ValidationResult) Addf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.IsValid = false
}
