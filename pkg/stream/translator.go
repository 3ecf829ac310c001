package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/rhuss/chatrelay/pkg/debug"
	"github.com/rhuss/chatrelay/pkg/observability"
	"github.com/rhuss/chatrelay/pkg/provider"
)

// ErrOrphanToolCallDelta is returned when the upstream sends a tool call
// continuation fragment before any call was started.
var ErrOrphanToolCallDelta = errors.New("tool call delta without an open tool call")

// Invoker executes a tool call by name with JSON encoded arguments.
type Invoker interface {
	Invoke(ctx context.Context, name, args string) (any, error)
}

// Text yields the content deltas of src in arrival order. The first choice
// with finish reason "stop" ends the sequence; no further chunk is read.
// Tool call fragments are ignored. src is not closed.
func Text(ctx context.Context, src provider.ChunkSource) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		frames := observability.FramesTotal.WithLabelValues("text", "text")
		for {
			chunk, err := src.Next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", fmt.Errorf("reading upstream stream: %w", err))
				return
			}

			for _, choice := range chunk.Choices {
				if choice.FinishReason == provider.FinishReasonStop {
					debug.Log("stream", "text stream stopped", "finish_reason", choice.FinishReason)
					return
				}
				if choice.Kind != provider.ChoiceContent {
					continue
				}
				frames.Inc()
				if !yield(choice.Content, nil) {
					return
				}
			}
		}
	}
}

// Data yields data stream frames for src, executing tool calls through inv
// as soon as the upstream reports them finished.
//
// Frames are produced in the order their triggering chunks arrive. Every
// tool call id is executed and answered with an a: frame at most once. A
// choice-less chunk carrying usage yields the d: frame and ends the
// sequence. Failures (upstream errors, ErrOrphanToolCallDelta, tool errors)
// are yielded once and end the sequence. src is not closed.
func Data(ctx context.Context, src provider.ChunkSource, inv Invoker) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		t := &dataTranslator{inv: inv, drafts: newDrafts(), yield: yield}
		for {
			chunk, err := src.Next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				t.fail(fmt.Errorf("reading upstream stream: %w", err))
				return
			}

			for _, choice := range chunk.Choices {
				if !t.handle(ctx, choice) {
					return
				}
			}

			if chunk.IsTerminal() {
				frame, err := FinishFrame(provider.FinishReasonStop, *chunk.Usage)
				if err != nil {
					t.fail(err)
					return
				}
				t.emit("finish", frame)
				return
			}
		}
	}
}

type dataTranslator struct {
	inv    Invoker
	drafts *drafts
	yield  func(string, error) bool
}

// handle processes one choice. It returns false when the sequence must end,
// because the consumer stopped or an error was yielded.
func (t *dataTranslator) handle(ctx context.Context, choice provider.Choice) bool {
	switch choice.Kind {
	case provider.ChoiceToolCallsFinished:
		return t.resolve(ctx)

	case provider.ChoiceToolCallDelta:
		for _, delta := range choice.ToolCalls {
			if delta.Starts() {
				t.drafts.start(delta.ID, delta.Name, delta.Arguments)
				debug.Log("stream", "tool call started", "id", delta.ID, "tool", delta.Name)
				continue
			}
			if !t.drafts.extend(delta.Arguments) {
				return t.fail(ErrOrphanToolCallDelta)
			}
		}
		return true

	case provider.ChoiceContent:
		frame, err := TextDeltaFrame(choice.Content)
		if err != nil {
			return t.fail(err)
		}
		return t.emit("text", frame)

	case provider.ChoiceEmpty:
		return true

	default:
		return t.fail(fmt.Errorf("unknown choice kind %d", choice.Kind))
	}
}

// resolve executes the currently open tool call and emits its 9: and a:
// frames. An already processed or missing call is skipped.
func (t *dataTranslator) resolve(ctx context.Context) bool {
	call, ok := t.drafts.pending()
	if !ok {
		return true
	}

	args, err := rawArguments(call.Arguments())
	if err != nil {
		return t.fail(fmt.Errorf("tool call %s (%s): %w", call.ID, call.Name, err))
	}

	frame, err := ToolCallFrame(call.ID, call.Name, args)
	if err != nil {
		return t.fail(err)
	}
	if !t.emit("tool_call", frame) {
		return false
	}

	result, err := t.inv.Invoke(ctx, call.Name, string(args))
	if err != nil {
		return t.fail(fmt.Errorf("tool call %s: %w", call.ID, err))
	}

	frame, err = ToolResultFrame(call.ID, call.Name, args, result)
	if err != nil {
		return t.fail(fmt.Errorf("tool call %s: %w", call.ID, err))
	}
	t.drafts.markProcessed(call.ID)
	return t.emit("tool_result", frame)
}

func (t *dataTranslator) emit(kind, frame string) bool {
	observability.FramesTotal.WithLabelValues("data", kind).Inc()
	debug.Trace("stream", "frame", "kind", kind, "frame", debug.Truncate(frame, 500))
	return t.yield(frame, nil)
}

// fail yields err and reports that the sequence must end.
func (t *dataTranslator) fail(err error) bool {
	t.yield("", err)
	return false
}
