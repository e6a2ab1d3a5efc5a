package sand

import "errors"

// Domain errors for engine configuration and particle creation.
var (
	// ErrInvalidProperties indicates a material with out-of-range values.
	ErrInvalidProperties = errors.New("sand: invalid material properties")

	// ErrInvalidSettings indicates global tunables outside their valid range.
	ErrInvalidSettings = errors.New("sand: invalid engine settings")

	// ErrInvalidWorld indicates degenerate bounds, gravity or cell size.
	ErrInvalidWorld = errors.New("sand: invalid world")

	// ErrNonFinite indicates a NaN or Inf position or velocity.
	ErrNonFinite = errors.New("sand: non-finite particle state")

	// ErrUnknownCategory indicates a category outside the built-in set.
	ErrUnknownCategory = errors.New("sand: unknown category")

	// ErrUnknownParam indicates a tunable name the engine does not expose.
	ErrUnknownParam = errors.New("sand: unknown parameter")

	// ErrBadHandle indicates a particle handle that was never issued or was
	// invalidated by ClearParticles.
	ErrBadHandle = errors.New("sand: bad particle handle")
)
