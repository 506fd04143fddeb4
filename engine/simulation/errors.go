package simulation

import (
	"errors"
	"fmt"
)

var (
	// ErrSurfaceLost is returned by a presenter whose surface is gone. The caller reconfigures before the next frame.
	ErrSurfaceLost = errors.New("simulation: presentation surface lost")
	// ErrSurfaceOutdated is returned by a presenter whose surface no longer matches the window.
	ErrSurfaceOutdated = errors.New("simulation: presentation surface outdated")
	// ErrNoCamera is returned by NewSimulation without a camera.
	ErrNoCamera = errors.New("simulation: camera is required")
	// ErrNoStage is returned by NewSimulation without a compute stage.
	ErrNoStage = errors.New("simulation: compute stage is required")
)

// StageError reports the stage that failed during a frame. Err is whatever the collaborator returned.
type StageError struct {
	Stage Stage
	Frame uint64
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("simulation: frame %d: %s stage: %v", e.Frame, e.Stage, e.Err)
}

// Unwrap returns the collaborator's error.
func (e *StageError) Unwrap() error {
	return e.Err
}

// IsRecoverable reports whether err is a presentation failure that clears after the surface is reconfigured.
//
// Parameters:
//   - err: an error returned by Frame
//
// Returns:
//   - bool: true for ErrSurfaceLost and ErrSurfaceOutdated
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrSurfaceLost) || errors.Is(err, ErrSurfaceOutdated)
}
