package openai

import (
	"context"
	"errors"
	"io"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/rhuss/chatrelay/pkg/debug"
	"github.com/rhuss/chatrelay/pkg/observability"
	"github.com/rhuss/chatrelay/pkg/provider"
)

// chunkSource adapts a go-openai stream to provider.ChunkSource.
type chunkSource struct {
	stream *openai.ChatCompletionStream
	model  string

	closeOnce sync.Once
	closeErr  error
}

func (s *chunkSource) Next(ctx context.Context) (provider.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return provider.Chunk{}, err
	}

	resp, err := s.stream.Recv()
	if errors.Is(err, io.EOF) {
		return provider.Chunk{}, io.EOF
	}
	if err != nil {
		// A canceled request surfaces as a read error on the body.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return provider.Chunk{}, ctxErr
		}
		return provider.Chunk{}, mapError(err)
	}

	chunk := convertChunk(resp)
	if chunk.Usage != nil {
		observability.ProviderTokensTotal.WithLabelValues(s.model, "input").Add(float64(chunk.Usage.PromptTokens))
		observability.ProviderTokensTotal.WithLabelValues(s.model, "output").Add(float64(chunk.Usage.CompletionTokens))
	}
	if debug.TraceEnabled("provider") {
		debug.Trace("provider", "chunk", "choices", len(chunk.Choices), "usage", chunk.Usage != nil)
	}
	return chunk, nil
}

// Close closes the response body. It is safe to call more than once.
func (s *chunkSource) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.stream.Close()
	})
	return s.closeErr
}
