package domain

import "errors"

// Error kinds the HTTP layer maps to status codes. Wrap them with
// fmt.Errorf("...: %w", ErrX) so errors.Is works through call chains.
var (
	// ErrInvalidArgument: malformed identifier, malformed date, missing
	// required field. Maps to 400.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound: a well-formed identifier naming nothing, on paths that do
	// not tolerate absence. Maps to 404.
	ErrNotFound = errors.New("not found")

	// ErrUpstream: persistence or remote-model failure. Maps to 500.
	ErrUpstream = errors.New("upstream failure")

	// ErrDispatch: the function-dispatch loop failed terminally, e.g. the
	// hop limit was exceeded. Individual function failures are not this:
	// they are fed back to the model as function-response errors instead.
	ErrDispatch = errors.New("dispatch failure")
)
