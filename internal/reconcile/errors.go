package reconcile

import (
	"errors"
	"fmt"
)

// SyncError is a failure at the boundary between the local log and the
// remote store. It never escapes the Reconciler as a Go error; its text is
// carried in the result structs instead.
type SyncError struct {
	// Code identifies the error category.
	Code SyncErrorCode

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// SyncErrorCode categorizes sync errors.
type SyncErrorCode string

const (
	// ErrCodeDuplicateWrite indicates the remote already holds the event.
	// It is treated as success and only appears in logs.
	ErrCodeDuplicateWrite SyncErrorCode = "DUPLICATE_WRITE"

	// ErrCodeRemoteRetryable indicates any other remote rejection. The event
	// stays pending and is retried on the next sync.
	ErrCodeRemoteRetryable SyncErrorCode = "REMOTE_RETRYABLE"

	// ErrCodeSyncUnavailable indicates there is no remote or no signed-in
	// user. Nothing is mutated.
	ErrCodeSyncUnavailable SyncErrorCode = "SYNC_UNAVAILABLE"

	// ErrCodePullFailed indicates the remote query failed. The local log is
	// left untouched.
	ErrCodePullFailed SyncErrorCode = "PULL_FAILED"
)

// Error implements the error interface.
func (e *SyncError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *SyncError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code SyncErrorCode) bool {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsDuplicateWrite reports whether err is a duplicate write.
func IsDuplicateWrite(err error) bool { return hasCode(err, ErrCodeDuplicateWrite) }

// IsRetryable reports whether err leaves the event pending for retry.
func IsRetryable(err error) bool { return hasCode(err, ErrCodeRemoteRetryable) }

// IsUnavailable reports whether err means sync is not possible right now.
func IsUnavailable(err error) bool { return hasCode(err, ErrCodeSyncUnavailable) }

// IsPullFailure reports whether err came from a failed pull.
func IsPullFailure(err error) bool { return hasCode(err, ErrCodePullFailed) }

func unavailable(msg string, err error) *SyncError {
	return &SyncError{Code: ErrCodeSyncUnavailable, Message: msg, Err: err}
}
