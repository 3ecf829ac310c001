package engine

// Config holds configuration for the engine.
type Config struct {
	// DefaultModel is sent upstream for every request.
	DefaultModel string

	// SystemPrompt is prepended to the conversation when non-empty.
	SystemPrompt string
}
