// Package errs defines the error kinds shared by the block and table layers.
//
// Every error returned from this module wraps exactly one of these sentinels,
// so callers can classify failures with errors.Is.
package errs

import "errors"

var (
	// ErrInvalidArgument indicates a caller supplied an unusable key or value,
	// such as an empty key or a key that does not sort after its predecessor
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrCapacityExceeded indicates an entry can never fit the configured block
	// budget, or a table grew beyond what its offsets can address
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrInvalidState indicates an operation was called on an empty or already
	// finalized builder
	ErrInvalidState = errors.New("invalid state")
	// ErrOutOfBounds indicates a read addressed bytes outside a buffer or store
	ErrOutOfBounds = errors.New("out of bounds")
	// ErrCorrupt indicates encoded data is internally inconsistent
	ErrCorrupt = errors.New("corrupt data")
)
