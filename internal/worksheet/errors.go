package worksheet

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccessDenied       = errors.New("access denied")
	ErrWorksheetInactive  = errors.New("worksheet closed for submissions")
	ErrAttemptsExhausted  = errors.New("no attempts left")
	ErrInvalidStep        = errors.New("step position out of range")
	ErrInvalidAnswer      = errors.New("invalid answer")
	ErrIncompleteAttempt  = errors.New("attempt has ungraded steps")
)

// OracleError wraps a grading-oracle failure. The submission that hit it
// left no trace in the store, so the client may retry.
type OracleError struct {
	Err error
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("grading oracle failed: %v", e.Err)
}

func (e *OracleError) Unwrap() error { return e.Err }
