package client

import "errors"

var (
	// ErrDaemonNotRunning is returned when the daemon is not running
	ErrDaemonNotRunning = errors.New("daemon not running")

	// ErrPermissionDenied is returned when the user does not have permission to perform the requested action
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when 404 is returned from the daemon
	ErrNotFound = errors.New("404 not found")

	// ErrConflict is returned when the daemon refuses a request because of
	// the state of the running task (409).
	ErrConflict = errors.New("409 conflict")

	// ErrPreconditionFailed is returned when the daemon has no display model
	// for the request (412).
	ErrPreconditionFailed = errors.New("412 precondition failed")
)
