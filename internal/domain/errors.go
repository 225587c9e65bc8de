package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotApproved = errors.New("user is not approved for bidding")
	ErrUserNotFound    = errors.New("user not found")
	ErrLotNotFound     = errors.New("lot not found")
	ErrInvalidEmail    = errors.New("invalid email")
	ErrInvalidPhone    = errors.New("invalid phone number")
	ErrMissingIdentity = errors.New("telegram id required")
	ErrBidDeclined     = errors.New("bid declined by auction service")
	ErrUnknownAction   = errors.New("unknown rate limited action")
)

// RateLimitError is returned when an identity has used up its quota for an action.
type RateLimitError struct {
	Action            string
	RetryAfterSeconds int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many %s attempts, retry in %d seconds", e.Action, e.RetryAfterSeconds)
}

// ServerRateLimitError is an HTTP 429 from the remote auction service.
type ServerRateLimitError struct {
	RetryAfterSeconds int
}

func (e *ServerRateLimitError) Error() string {
	return fmt.Sprintf("remote rate limit reached, retry in %d seconds", e.RetryAfterSeconds)
}

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("remote api returned status %d: %s", e.StatusCode, e.Message)
}

// BidRejectedError carries a failed client-side validation.
type BidRejectedError struct {
	Outcome ValidationOutcome
	Message string
}

func (e *BidRejectedError) Error() string {
	return "bid rejected: " + e.Message
}

// RetryAfter extracts the wait time from either rate limit error kind.
func RetryAfter(err error) (int, bool) {
	var local *RateLimitError
	if errors.As(err, &local) {
		return local.RetryAfterSeconds, true
	}
	var remote *ServerRateLimitError
	if errors.As(err, &remote) {
		return remote.RetryAfterSeconds, true
	}
	return 0, false
}
