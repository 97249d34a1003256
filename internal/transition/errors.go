package transition

import (
	"errors"
	"fmt"

	"github.com/san-kum/clusterflow/internal/dynamo"
)

var (
	// ErrCanceled wraps every error a canceled transition resolves with.
	ErrCanceled = errors.New("transition: canceled")

	// ErrBusy is returned by Start while a transition is in progress.
	ErrBusy = errors.New("transition: already running")

	// ErrInvalidPhase indicates a phase with missing or out-of-range fields.
	ErrInvalidPhase = errors.New("transition: invalid phase")
)

// ConfigError reports a phase that cannot be planned.
type ConfigError struct {
	Phase string
	Link  dynamo.LinkID
	Key   string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("transition: phase %q: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("transition: phase %q link %d -> %q: %v", e.Phase, e.Link, e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
