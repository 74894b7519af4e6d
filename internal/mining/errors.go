package mining

import (
	"errors"
	"fmt"
)

// ErrRunInProgress is returned when a pipeline run is requested while
// another run is still in flight. Only one run may execute at a time
// because all runs write the same artifact files.
var ErrRunInProgress = errors.New("mining pipeline run already in progress")

// LaunchError means the external process could not be started at all
// (missing interpreter or script).
type LaunchError struct {
	Script string
	Err    error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Script, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// ProcessFailure means the external process exited non-zero. Stderr
// carries the diagnostic stream content for investigation.
type ProcessFailure struct {
	Script   string
	ExitCode int
	Stderr   string
}

func (e *ProcessFailure) Error() string {
	return fmt.Sprintf("%s exited with code %d: %s", e.Script, e.ExitCode, e.Stderr)
}

// ProtocolError means the external process exited successfully but its
// output could not be parsed as a response.
type ProtocolError struct {
	Script string
	Output string
	Err    error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("invalid response from %s: %v", e.Script, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// StageError means a pipeline stage failed. It aborts the run; artifacts
// written by completed stages stay on disk.
type StageError struct {
	Stage  Stage
	Stderr string
	Err    error
}

func (e *StageError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("stage %s failed: %v (stderr: %s)", e.Stage, e.Err, e.Stderr)
	}
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
