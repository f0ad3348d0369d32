package cli

// ExitCodeRunFailures is returned with --fail-on-error when any item failed
// or the run was cancelled.
const ExitCodeRunFailures = 2

// ExitError carries a process exit code from a command to main.
type ExitError struct {
	ExitCode int
	Reason   string
}

func (e *ExitError) Error() string {
	return e.Reason
}
