package model

import (
	"fmt"

	"github.com/m-mizutani/goerr/v2"
)

var (
	// ErrValidation is returned when a required field is missing before any I/O
	ErrValidation = goerr.New("validation error")
	// ErrPersistence is returned when the local store rejects a write
	ErrPersistence = goerr.New("persistence error")
	// ErrFormat is returned for malformed JSON or plan shape on import or remote read
	ErrFormat = goerr.New("format error")
	// ErrRemoteUnavailable is returned when a remote call fails or returns an unexpected payload
	ErrRemoteUnavailable = goerr.New("remote unavailable")
	// ErrAuthNotReady is returned when a remote action is attempted without a signed-in session
	ErrAuthNotReady = goerr.New("auth not ready")
	// ErrBusy is returned when another operation is in flight against the same store
	ErrBusy = goerr.New("store is busy")
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = goerr.New("not found")
)

// Mark attaches a sentinel kind to err so that errors.Is matches both
func Mark(kind, err error) error {
	return fmt.Errorf("%w: %w", kind, err)
}
