package eventmodels

import "errors"

var (
	// ErrNotConnected is the precondition failure returned before any live
	// gateway call is attempted on a disconnected session.
	ErrNotConnected = errors.New("not connected to brokerage gateway")

	// ErrFutureTimeout reports that a future's first value did not arrive
	// within the bounded wait.
	ErrFutureTimeout = errors.New("future: timed out waiting for first value")
)
