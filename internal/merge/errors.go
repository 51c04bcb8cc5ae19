package merge

import (
	"errors"
	"fmt"

	"jarsmith/internal/mapping"
)

var (
	// ErrMappingInconsistency indicates a cross reference that could not be resolved while merging.
	ErrMappingInconsistency = errors.New("mapping inconsistency")

	// ErrMissingNamespace indicates a namespace required by the merge is absent from an input.
	ErrMissingNamespace = errors.New("missing namespace")
)

// InconsistencyError describes the record that could not be reconciled.
type InconsistencyError struct {
	Token  mapping.Token
	Reason string
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Token.Kind(), e.Token, e.Reason)
}

func (e *InconsistencyError) Unwrap() error {
	return ErrMappingInconsistency
}

func inconsistency(tok mapping.Token, format string, args ...any) error {
	return &InconsistencyError{Token: tok, Reason: fmt.Sprintf(format, args...)}
}
