// Package validation wraps go-playground/validator with a shared instance and
// the custom rules used by curation inputs.
//
// Failures are reported as *Errors, which match services.ErrValidation under
// errors.Is so callers can treat them as safe to skip.
package validation
