package depthsort

import "errors"

var (
	// ErrNotPowerOfTwo rejects a radix the sorting network cannot handle.
	ErrNotPowerOfTwo = errors.New("depthsort: radix must be a power of two")
	// ErrSizeMismatch reports buffers or seeds whose dimensions disagree.
	ErrSizeMismatch = errors.New("depthsort: size mismatch")
	// ErrInvalidPass rejects pass parameters that are not part of the network.
	ErrInvalidPass = errors.New("depthsort: invalid pass parameters")
	// ErrReleased is returned by any operation on a released engine or grid.
	ErrReleased = errors.New("depthsort: used after release")
)
