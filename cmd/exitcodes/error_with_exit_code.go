package exitcodes

// ErrorWithExitCode is an `error` type that wraps an existing error and exit code, providing exit codes
// for a given error if they are bubbled up to the top-level.
type ErrorWithExitCode struct {
	err      error
	exitCode int

	// handled indicates the error was already reported to the user and should not be printed again.
	handled bool
}

// NewErrorWithExitCode creates a new error (ErrorWithExitCode) with the provided internal error and exit code.
func NewErrorWithExitCode(err error, exitCode int) *ErrorWithExitCode {
	return &ErrorWithExitCode{
		err:      err,
		exitCode: exitCode,
	}
}

// NewHandledErrorWithExitCode creates a new error (ErrorWithExitCode) for an error which was already logged. Only its
// exit code is reported at the top-level.
func NewHandledErrorWithExitCode(err error, exitCode int) *ErrorWithExitCode {
	return &ErrorWithExitCode{
		err:      err,
		exitCode: exitCode,
		handled:  true,
	}
}

// Error returns the error message string, implementing the `error` interface.
func (e *ErrorWithExitCode) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

// Unwrap returns the inner error.
func (e *ErrorWithExitCode) Unwrap() error {
	return e.err
}

// GetInnerErrorAndExitCode checks the given exit code that the application should exit with, if this error is bubbled
// to the top-level. This will be 0 for a nil error, ExitCodeFuzzerError for a generic error, or arbitrary if the error
// is of type ErrorWithExitCode.
// Returns the error which still needs to be reported (nil if there is none or it was already handled), along with the
// exit code associated with the error.
func GetInnerErrorAndExitCode(err error) (error, int) {
	if err == nil {
		return nil, ExitCodeSuccess
	} else if unwrappedErr, ok := err.(*ErrorWithExitCode); ok {
		if unwrappedErr.handled {
			return nil, unwrappedErr.exitCode
		}
		return unwrappedErr.err, unwrappedErr.exitCode
	} else {
		return err, ExitCodeFuzzerError
	}
}
