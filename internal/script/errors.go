package script

import "errors"

// Errors for script execution.
var (
	// ErrRunnerClosed is returned when operating on a closed runner.
	ErrRunnerClosed = errors.New("script runner is closed")

	// ErrExecutionTimeout is returned when a script runs past its deadline.
	ErrExecutionTimeout = errors.New("script execution timeout")
)
