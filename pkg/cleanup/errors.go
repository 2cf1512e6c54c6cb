package cleanup

import (
	"errors"
	"strings"
)

var (
	// ErrAuthenticationFailed is returned by Executor.Run when the data
	// manager has no credentials and the fallback login is rejected.
	ErrAuthenticationFailed = errors.New("cleanup: authentication failed")

	// ErrCleanupInProgress is returned by Executor.TryRun when another run
	// for the same identifier has not finished.
	ErrCleanupInProgress = errors.New("cleanup: already in progress")

	// ErrNoDataManager is returned when cleanup is requested without a data
	// manager to perform the deletes.
	ErrNoDataManager = errors.New("cleanup: no data manager")
)

// notFounder is implemented by API errors that know their HTTP status.
type notFounder interface {
	IsNotFound() bool
}

// IsNotFound reports whether err means the remote entity no longer exists.
// Typed API errors are asked directly; otherwise the message is checked for
// "404" or "not found".
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var nf notFounder
	if errors.As(err, &nf) {
		return nf.IsNotFound()
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "404") || strings.Contains(msg, "not found")
}

// EntityError records a failed delete.
type EntityError struct {
	Entity Entity
	Err    error
}

func (e EntityError) Error() string {
	return e.Entity.String() + ": " + e.Err.Error()
}

func (e EntityError) Unwrap() error {
	return e.Err
}
