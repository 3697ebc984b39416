package controller

import "errors"

var (
	// ErrTaskInProgress is returned when a task is started while another
	// one holds the controller.
	ErrTaskInProgress = errors.New("a measurement task is already in progress")
	// ErrNotWaiting is returned by Resume when no task waits for a start signal.
	ErrNotWaiting = errors.New("no task is waiting for a start signal")
	// ErrNotRunning is returned by Stop when the controller is idle.
	ErrNotRunning = errors.New("no measurement task is running")
	// ErrNoDeviceModel is returned when an evaluation is requested before a
	// display model was published.
	ErrNoDeviceModel = errors.New("no display model has been published")
	// ErrNoTargets is returned when a task is given no target colors.
	ErrNoTargets = errors.New("no target colors given")
	// ErrUnknownChannel is returned when a gamma run names a channel the
	// target does not drive.
	ErrUnknownChannel = errors.New("channel is not a primary of the target")
)
