package apperrors

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrInvalidDuration  = errors.New("invalid duration")
	ErrValidation       = errors.New("validation failed")
	ErrTransientStorage = errors.New("transient storage failure")

	ErrInvalidState     = errors.New("operation not allowed in current state")
	ErrCommitInFlight   = errors.New("commit already in flight")
	ErrPendingCommit    = errors.New("an uncommitted session result is pending")
	ErrNoPendingCommit  = errors.New("no pending commit")
	ErrControllerClosed = errors.New("controller closed")
)

// IsFatal reports whether err ends the current run instead of leaving it retryable.
func IsFatal(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation)
}
