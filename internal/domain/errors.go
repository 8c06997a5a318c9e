package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks fatal configuration problems; the run must not start.
	ErrConfiguration = errors.New("configuration error")

	// ErrTransport marks a recoverable per-candidate fetch failure.
	ErrTransport = errors.New("transport error")

	// ErrStructuring marks content that could not be turned into a StructuredEntry.
	// It is handled like ErrTransport.
	ErrStructuring = errors.New("structuring error")

	// ErrUnknownSection is returned for section codes outside the known enumeration.
	ErrUnknownSection = errors.New("unknown section")

	// ErrAmbiguousRuleSet is returned when rows of the same rule set disagree on metadata.
	ErrAmbiguousRuleSet = errors.New("ambiguous rule set")
)

// ConfigError describes an invalid or missing configuration field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}

// TransportKind classifies fetch failures.
type TransportKind string

const (
	TransportTimeout        TransportKind = "timeout"
	TransportConnectFailure TransportKind = "connect_failure"
	TransportBadStatus      TransportKind = "bad_status"
	TransportOther          TransportKind = "other"
)

// TransportError is the failure side of a fetch result.
type TransportError struct {
	Kind   TransportKind
	URL    string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	switch {
	case e.Kind == TransportBadStatus:
		return fmt.Sprintf("transport %s: %s returned status %d", e.Kind, e.URL, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("transport %s: %s: %v", e.Kind, e.URL, e.Err)
	default:
		return fmt.Sprintf("transport %s: %s", e.Kind, e.URL)
	}
}

// Is lets errors.Is(err, ErrTransport) match any TransportError.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
