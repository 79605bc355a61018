package exitcodes

const (
	// ================================
	// Platform-universal exit codes
	// ================================

	// ExitCodeSuccess indicates the campaign completed, or was interrupted, without finding a violation.
	ExitCodeSuccess = 0

	// ================================
	// Application-specific exit codes
	// ================================

	// ExitCodeInvariantViolation indicates a conservation invariant of the contract under test was violated.
	ExitCodeInvariantViolation = 1

	// Note: Despite not being standardized, exit codes 2-5 are often used for common use cases, so we avoid them.

	// ExitCodeFuzzerError indicates that there was an error during the setup or execution of a campaign, such as an
	// unreadable configuration, a failed deployment or a failed query.
	ExitCodeFuzzerError = 6
)
