package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/rhuss/chatrelay/pkg/provider"
	"github.com/rhuss/chatrelay/pkg/tools"
)

// sliceSource replays chunks and then returns err (io.EOF when nil).
type sliceSource struct {
	chunks []provider.Chunk
	err    error
	pos    int
}

func newSource(chunks ...provider.Chunk) *sliceSource {
	return &sliceSource{chunks: chunks}
}

func (s *sliceSource) Next(ctx context.Context) (provider.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return provider.Chunk{}, err
	}
	if s.pos >= len(s.chunks) {
		if s.err != nil {
			return provider.Chunk{}, s.err
		}
		return provider.Chunk{}, io.EOF
	}
	c := s.chunks[s.pos]
	s.pos++
	return c, nil
}

func (s *sliceSource) Close() error { return nil }

func content(text string) provider.Chunk {
	return provider.Chunk{Choices: []provider.Choice{provider.NewChoice(0, "", text, nil)}}
}

func stop() provider.Chunk {
	return provider.Chunk{Choices: []provider.Choice{provider.NewChoice(0, provider.FinishReasonStop, "", nil)}}
}

func startCall(id, name, args string) provider.Chunk {
	return provider.Chunk{Choices: []provider.Choice{
		provider.NewChoice(0, "", "", []provider.ToolCallDelta{{ID: id, Name: name, Arguments: args}}),
	}}
}

func continueCall(args string) provider.Chunk {
	return provider.Chunk{Choices: []provider.Choice{
		provider.NewChoice(0, "", "", []provider.ToolCallDelta{{Arguments: args}}),
	}}
}

func finishToolCalls() provider.Chunk {
	return provider.Chunk{Choices: []provider.Choice{provider.NewChoice(0, provider.FinishReasonToolCalls, "", nil)}}
}

func usage(prompt, completion int) provider.Chunk {
	return provider.Chunk{Usage: &provider.Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}}
}

type invocation struct {
	name string
	args string
}

// fakeInvoker resolves tools from a map of canned results.
type fakeInvoker struct {
	results map[string]any
	errs    map[string]error
	calls   []invocation
}

func (f *fakeInvoker) Invoke(_ context.Context, name, args string) (any, error) {
	f.calls = append(f.calls, invocation{name: name, args: args})
	if err, ok := f.errs[name]; ok {
		return nil, err
	}
	result, ok := f.results[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", tools.ErrToolNotFound, name)
	}
	return result, nil
}

type weatherResult struct {
	Location    string  `json:"location"`
	Temperature float64 `json:"temperature"`
	Unit        string  `json:"unit"`
}

func weatherInvoker() *fakeInvoker {
	return &fakeInvoker{results: map[string]any{
		"get_current_weather": weatherResult{Location: "Paris", Temperature: 22, Unit: "celsius"},
	}}
}

// collect drains seq. Collection stops at the first error.
func collect(seq iter.Seq2[string, error]) ([]string, error) {
	var out []string
	for v, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

var errUpstream = errors.New("connection reset by peer")
