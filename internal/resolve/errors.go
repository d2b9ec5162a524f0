package resolve

import (
	"errors"
	"fmt"
)

// ErrUnresolved is matched by every ResolutionError.
var ErrUnresolved = errors.New("unresolved specifier")

// ResolutionError reports a specifier that could not be mapped to a module.
type ResolutionError struct {
	Specifier string
	From      string
	Reason    string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %q from %s: %s", e.Specifier, e.From, e.Reason)
}

func (e *ResolutionError) Unwrap() error { return ErrUnresolved }

func unresolved(specifier, from, format string, args ...any) error {
	return &ResolutionError{Specifier: specifier, From: from, Reason: fmt.Sprintf(format, args...)}
}
