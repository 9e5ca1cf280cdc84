package challenge

import (
	"errors"
	"fmt"
)

// Kind classifies an engine failure so callers can map it to a response.
type Kind int

const (
	KindUnknown Kind = iota
	ValidationFailed
	NotFound
	Forbidden
	Conflict
	StateConflict
	QuotaExceeded
	ChallengeExpired
)

var kindNames = map[Kind]string{
	KindUnknown:      "unknown",
	ValidationFailed: "validation failed",
	NotFound:         "not found",
	Forbidden:        "forbidden",
	Conflict:         "conflict",
	StateConflict:    "state conflict",
	QuotaExceeded:    "quota exceeded",
	ChallengeExpired: "challenge expired",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// Reasons. Match with errors.Is against any error returned by the Engine.
var (
	ErrInvalidAmount       = errors.New("amount must be positive with at most two decimal places")
	ErrInvalidDeadline     = errors.New("deadline must be in the future")
	ErrInvalidTitle        = errors.New("title must be between 1 and 200 characters")
	ErrInvalidDescription  = errors.New("description must be at most 1000 characters")
	ErrInvalidCategory     = errors.New("category must be at most 50 characters")
	ErrInvalidCapacity     = errors.New("max participants must be between 2 and 50 and not below the current member count")
	ErrInvalidRewardPoints = errors.New("reward points cannot be negative")
	ErrInvalidNote         = errors.New("note must be at most 255 characters")

	ErrChallengeNotFound   = errors.New("challenge not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrStreakNotFound      = errors.New("streak not found")
	ErrParticipantNotFound = errors.New("participant not found")

	ErrNotCreator         = errors.New("only the creator can modify this challenge")
	ErrNotAParticipant    = errors.New("user is not an active participant of this challenge")
	ErrCreatorCannotLeave = errors.New("the creator cannot leave their own challenge")

	ErrAlreadyJoined = errors.New("user has already joined this challenge")
	ErrChallengeFull = errors.New("challenge has reached its participant limit")

	ErrChallengeNotActive    = errors.New("challenge is not active")
	ErrChallengeNotCompleted = errors.New("challenge is not completed")
	ErrNotMutable            = errors.New("challenge can only be changed while active")

	ErrQuotaExceeded    = errors.New("active challenge quota reached for the user's plan")
	ErrChallengeExpired = errors.New("challenge deadline has passed")
)

// Error is returned by every Engine operation that fails for a reason the
// caller can act on. Reason is one of the sentinels above; Err carries any
// underlying detail.
type Error struct {
	Kind   Kind
	Reason error
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Reason != nil {
		msg += ": " + e.Reason.Error()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	var errs []error
	if e.Reason != nil {
		errs = append(errs, e.Reason)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func newError(kind Kind, reason error) *Error {
	return &Error{Kind: kind, Reason: reason}
}

func invalid(reason error, format string, args ...any) *Error {
	return &Error{Kind: ValidationFailed, Reason: reason, Err: fmt.Errorf(format, args...)}
}
