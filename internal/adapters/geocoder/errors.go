package geocoder

import (
	"errors"
	"fmt"
)

// Kind classifies a geocoding failure.
type Kind string

// Geocoding failure kinds.
const (
	KindNotFound Kind = "not_found"
	KindUpstream Kind = "upstream"
)

// Sentinel kinds for this package; GeocodeError matches them with errors.Is.
var (
	ErrNotFound = errors.New("address not found")
	ErrUpstream = errors.New("geocoding provider failed")
)

// GeocodeError is returned by Client.Geocode.
type GeocodeError struct {
	Kind    Kind
	Address string
	Status  int // HTTP status when the provider answered, 0 otherwise
	Err     error
}

func (e *GeocodeError) Error() string {
	msg := fmt.Sprintf("geocode %q: %s", e.Address, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GeocodeError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrNotFound) and errors.Is(err, ErrUpstream) work.
func (e *GeocodeError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrUpstream:
		return e.Kind == KindUpstream
	}
	return false
}
