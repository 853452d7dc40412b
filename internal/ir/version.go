package ir

// Version constants for the storage encoding and engine.
const (
	// IRVersion is the tagged value encoding version.
	IRVersion = "1"

	// EngineVersion is the liveresults engine version.
	EngineVersion = "0.1.0"
)
