package fetcher

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMissingData is wrapped when a 2xx body has no data array.
var ErrMissingData = errors.New("response has no data array")

// Reason classifies why a page fetch failed.
type Reason int

const (
	// ReasonTerminal means the failure is not worth retrying: a non-retriable
	// status, an undecodable body, a transport error or cancellation.
	ReasonTerminal Reason = iota + 1

	// ReasonExhausted means every allowed attempt hit a retriable status.
	ReasonExhausted
)

func (r Reason) String() string {
	switch r {
	case ReasonTerminal:
		return "terminal"
	case ReasonExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// FetchError is returned by FetchPage and recorded in RunState.Err.
type FetchError struct {
	Page   int
	Reason Reason

	// Status is the HTTP status of the last attempt, or 0 when no response
	// was received.
	Status int

	// Attempts is the number of HTTP requests made for the page.
	Attempts int

	Err error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch page %d: %s after %d attempt(s)", e.Page, e.Reason, e.Attempts)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retriable reports whether an HTTP status is worth retrying.
func Retriable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable:
		return true
	}
	return false
}
