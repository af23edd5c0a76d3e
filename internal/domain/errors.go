package domain

import "fmt"

// FetchError reports a failed feed retrieval: either a transport/timeout
// failure (Err set) or a non-2xx response (Status set).
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DecodeError reports a structurally invalid feed payload. Individual
// malformed records do not produce a DecodeError; they are dropped and
// counted by the decoder.
type DecodeError struct {
	Kind Kind
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s feed: %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ReferenceUnavailableError reports that a person/sensor reference entity
// has no known location right now. It aborts the cycle; the resolver never
// substitutes a cached or zero coordinate, which would silently corrupt
// distance filtering.
type ReferenceUnavailableError struct {
	EntityID string
	Err      error
}

func (e *ReferenceUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("reference entity %s unavailable: %v", e.EntityID, e.Err)
	}
	return fmt.Sprintf("reference entity %s has no known location", e.EntityID)
}

func (e *ReferenceUnavailableError) Unwrap() error { return e.Err }
