package harness

import (
	"fmt"
	"strings"

	"github.com/thpani/fuzz-pb25/compilation/abiutils"
)

// QueryFailedError describes a read-only query against the contract under test which did not succeed. It is returned
// as a value so callers can inspect it, but it indicates the contract or harness is in an unexpected state and
// campaigns treat it as fatal.
type QueryFailedError struct {
	// Method is the name of the queried contract function.
	Method string
	// Args are the arguments the function was queried with.
	Args []any
	// Reason describes why the query failed, such as a decoded revert.
	Reason string
	// Err is the underlying error, if the query failed before execution.
	Err error
}

// Error returns the error message representing this error.
func (e *QueryFailedError) Error() string {
	rendered := make([]string, len(e.Args))
	for i, arg := range e.Args {
		rendered[i] = abiutils.FormatValue(arg)
	}
	call := fmt.Sprintf("%s(%s)", e.Method, strings.Join(rendered, ", "))
	if e.Err != nil {
		return fmt.Sprintf("query %s failed: %v", call, e.Err)
	}
	return fmt.Sprintf("query %s failed: %s", call, e.Reason)
}

// Unwrap returns the underlying error, if any.
func (e *QueryFailedError) Unwrap() error {
	return e.Err
}
