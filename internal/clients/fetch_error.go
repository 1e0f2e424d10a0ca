package clients

import (
	"errors"
	"fmt"
)

type FetchReason string

const (
	ReasonNetwork      FetchReason = "network"
	ReasonRateLimited  FetchReason = "rate_limited"
	ReasonUnauthorized FetchReason = "unauthorized"
	ReasonMalformed    FetchReason = "malformed"
	ReasonEmpty        FetchReason = "empty"
	ReasonAPIError     FetchReason = "api_error"
	ReasonStatus       FetchReason = "status"
)

// FetchError is returned by every platform adapter call that did not yield a
// usable payload.
type FetchError struct {
	Source     string
	Reason     FetchReason
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("[%s] fetch failed: %s", e.Source, e.Reason)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// FetchReasonOf reports the reason of the first FetchError in err's chain.
func FetchReasonOf(err error) (FetchReason, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Reason, true
	}
	return "", false
}
