package sharing

import (
	"errors"
	"fmt"
)

// Kind classifies a lifecycle failure. The HTTP layer maps kinds to status codes.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindGone
	KindUnauthorized
	KindForbidden
	KindLimitExceeded
	KindAllocation
	KindUpstream
	KindRateLimited
)

var kindNames = map[Kind]string{
	KindValidation:    "validation",
	KindNotFound:      "not found",
	KindGone:          "gone",
	KindUnauthorized:  "unauthorized",
	KindForbidden:     "forbidden",
	KindLimitExceeded: "limit exceeded",
	KindAllocation:    "allocation",
	KindUpstream:      "upstream",
	KindRateLimited:   "rate limited",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a classified lifecycle error. Message is safe to show to clients;
// Err holds the underlying cause, if any, and is never shown.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so callers can write
// errors.Is(err, sharing.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation    = &Error{Kind: KindValidation, Message: "invalid request"}
	ErrNotFound      = &Error{Kind: KindNotFound, Message: "Share not found"}
	ErrGone          = &Error{Kind: KindGone, Message: "Share has expired"}
	ErrUnauthorized  = &Error{Kind: KindUnauthorized, Message: "Invalid password"}
	ErrForbidden     = &Error{Kind: KindForbidden, Message: "Not authorized"}
	ErrLimitExceeded = &Error{Kind: KindLimitExceeded, Message: "File limit reached"}
	ErrAllocation    = &Error{Kind: KindAllocation, Message: "Failed to allocate share link"}
	ErrUpstream      = &Error{Kind: KindUpstream, Message: "Internal server error"}
	ErrRateLimited   = &Error{Kind: KindRateLimited, Message: "Too many requests. Please try again later."}
)

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func validationError(message string) *Error {
	return newError(KindValidation, message, nil)
}

func upstreamError(cause error) *Error {
	return newError(KindUpstream, ErrUpstream.Message, cause)
}

// KindOf returns the kind of a lifecycle error, or 0 if err is not one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
