package cli

import "fmt"

// Process exit statuses besides 0 and cobra's generic 1.
const (
	exitUsage    = 2 // bad flags, arguments or format
	exitNotFound = 3 // unknown tool
	exitFailed   = 4 // the operation ran and failed
)

// ExitError selects the status main exits with. Err keeps the underlying
// failure reachable through errors.As, e.g. a *toolerr.ConfigError.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: exitUsage, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(format string, args ...any) *ExitError {
	return &ExitError{Code: exitNotFound, Message: fmt.Sprintf(format, args...)}
}

// failedError prefixes err with what was being done.
func failedError(err error, doing string) *ExitError {
	return &ExitError{Code: exitFailed, Message: doing + ": " + err.Error(), Err: err}
}
