package domain

import (
	"context"
	"errors"
)

// ErrRateLimited is returned when a client exceeded its submissions for the current window.
var ErrRateLimited = errors.New("too many contact submissions")

// ContactRequest is the raw JSON body of a contact form submission.
// Fields are untyped so that non-string values can be normalized to empty.
type ContactRequest struct {
	Name    any `json:"name"`
	Email   any `json:"email"`
	Message any `json:"message"`
}

// ContactSubmission is a request that passed validation.
type ContactSubmission struct {
	Name    string
	Email   string // lowercased
	Message string
}

// ValidationError names the first field that failed validation and a client-safe reason.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// ContactUsecase defines the interface for contact form operations
type ContactUsecase interface {
	// Submit validates req, applies the per-client rate limit and relays the message.
	Submit(ctx context.Context, clientID string, req *ContactRequest) error
}
