package dynamo

import "errors"

// Domain errors for store and link operations.
var (
	// ErrUnknownAnchor indicates a target key with no corresponding anchor.
	ErrUnknownAnchor = errors.New("dynamo: unknown anchor key")

	// ErrDuplicateAnchor indicates a second anchor with an existing key.
	ErrDuplicateAnchor = errors.New("dynamo: duplicate anchor key")

	// ErrEmptyKey indicates an anchor created without a control key.
	ErrEmptyKey = errors.New("dynamo: empty anchor key")

	// ErrUnknownLink indicates a link id outside the table.
	ErrUnknownLink = errors.New("dynamo: unknown link id")

	// ErrParameterBounds indicates a link parameter outside its valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrNonFinite indicates a particle update produced NaN or Inf.
	ErrNonFinite = errors.New("dynamo: non-finite particle state")
)

// InstabilityError records a rejected non-finite update.
type InstabilityError struct {
	Step     int
	Particle ParticleID
	Wrapped  error
}

func (e *InstabilityError) Error() string {
	return e.Wrapped.Error()
}

func (e *InstabilityError) Unwrap() error {
	return e.Wrapped
}
