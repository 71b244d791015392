package scrape

import (
	"errors"
	"fmt"
)

type FetchErrorKind string

const (
	FetchTimeout          FetchErrorKind = "timeout"
	FetchConnectionFailed FetchErrorKind = "connection_failed"
	FetchHTTPStatus       FetchErrorKind = "http_status"
)

// FetchError classifies a failed fetch. StatusCode is set for http_status
// failures only.
type FetchError struct {
	Kind       FetchErrorKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == FetchHTTPStatus {
		return fmt.Sprintf("fetch failed: HTTP %d", e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch failed (%s)", e.Kind)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ErrStructureNotFound means the listing region the rule points at is absent
// from the page. This signals a source layout change and is surfaced for
// operator attention; an empty region is not an error.
var ErrStructureNotFound = errors.New("listing region not found")

// ErrInvalidCandidate means a candidate's article URL is missing or
// unparseable after normalization.
var ErrInvalidCandidate = errors.New("invalid candidate")
