package valuation

import (
	"errors"
	"fmt"
)

// Kind classifies a valuation provider failure.
type Kind string

// Valuation failure kinds.
const (
	// KindUnavailable means no usable token could be obtained.
	KindUnavailable Kind = "unavailable"
	// KindUpstream means the provider rejected or failed a call.
	KindUpstream Kind = "upstream"
)

// Sentinel kinds for this package; ValuationError matches them with errors.Is.
var (
	ErrUnavailable = errors.New("valuation provider unavailable")
	ErrUpstream    = errors.New("valuation provider failed")
)

// ValuationError is returned by the Client and Session methods.
type ValuationError struct {
	Kind   Kind
	Op     string // "login", "avm" or "bros"
	Status int    // HTTP status when the provider answered, 0 otherwise
	Err    error
}

func (e *ValuationError) Error() string {
	msg := fmt.Sprintf("valuation %s: %s", e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValuationError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrUnavailable) and errors.Is(err, ErrUpstream) work.
func (e *ValuationError) Is(target error) bool {
	switch target {
	case ErrUnavailable:
		return e.Kind == KindUnavailable
	case ErrUpstream:
		return e.Kind == KindUpstream
	}
	return false
}
