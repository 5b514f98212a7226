package account

import "errors"

var (
	// ErrTopology wraps any failure of the one-time location graph build.
	// The failure is cached; every caller receives it.
	ErrTopology = errors.New("account: failed to build location graph")

	// ErrCameraNotFound is returned for ids not in the retained graph
	ErrCameraNotFound = errors.New("account: camera not found")

	// ErrClosed is returned once the account has been closed
	ErrClosed = errors.New("account: closed")
)
