package ir

// Version constants for the canonical record format and the tool.
const (
	// IRVersion is the canonical record schema version.
	IRVersion = "1"

	// ToolVersion is the stepnorm version.
	ToolVersion = "0.1.0"
)
