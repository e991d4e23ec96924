package ir

// Version constants for the program representation and runtime.
const (
	// IRVersion is the program representation schema version.
	IRVersion = "1"

	// RuntimeVersion is the janus runtime version.
	RuntimeVersion = "0.1.0"
)
