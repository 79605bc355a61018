package logging

// These constants are used to identify the various services that may do some logging
const (
	// COMPILATION_SERVICE is the constant used to identify the compilation package
	COMPILATION_SERVICE = "compilation"
	// FUZZING_SERVICE is the constant used to identify the fuzzing package
	FUZZING_SERVICE = "fuzzing"
	// HARNESS_SERVICE is the constant used to identify the execution harness
	HARNESS_SERVICE = "harness"
	// CLI_SERVICE is the constant used to identify the cmd package
	CLI_SERVICE = "cli"
)
