package provider

import (
	"context"

	"github.com/rhuss/chatrelay/pkg/api"
	"github.com/rhuss/chatrelay/pkg/tools"
)

// Provider opens streaming completions against an upstream model API.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Provider interface {
	// Stream sends req upstream and returns the response as a ChunkSource.
	// Errors that occur before the first chunk is available are returned
	// here, typically as *api.APIError.
	Stream(ctx context.Context, req *Request) (ChunkSource, error)
}

// ChunkSource is a lazy, ordered sequence of completion chunks. It is owned
// by the caller of Provider.Stream, who must call Close exactly once.
type ChunkSource interface {
	// Next blocks until the next chunk arrives. It returns io.EOF after the
	// last chunk.
	Next(ctx context.Context) (Chunk, error)

	// Close releases the upstream connection without draining it.
	Close() error
}

// Request is a streaming completion request.
type Request struct {
	Model string

	// SystemPrompt is prepended to Messages when non-empty.
	SystemPrompt string

	Messages []api.ClientMessage

	// Tools are advertised to the model.
	Tools []tools.Definition
}
