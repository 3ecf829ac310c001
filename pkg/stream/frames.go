package stream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rhuss/chatrelay/pkg/provider"
	"github.com/rhuss/chatrelay/pkg/tools"
)

// Frame prefixes of the data stream protocol.
const (
	PrefixText       = "0:"
	PrefixToolCall   = "9:"
	PrefixToolResult = "a:"
	PrefixFinish     = "d:"
)

type toolCallPayload struct {
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Args       json.RawMessage `json:"args"`
}

type toolResultPayload struct {
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Args       json.RawMessage `json:"args"`
	Result     any             `json:"result"`
}

type finishPayload struct {
	FinishReason string       `json:"finishReason"`
	Usage        usagePayload `json:"usage"`
}

type usagePayload struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
}

// TextDeltaFrame returns the 0: frame for a content delta.
func TextDeltaFrame(text string) (string, error) {
	return encodeFrame(PrefixText, text)
}

// ToolCallFrame returns the 9: frame announcing a tool call. args must be a
// valid JSON value.
func ToolCallFrame(id, name string, args json.RawMessage) (string, error) {
	return encodeFrame(PrefixToolCall, toolCallPayload{ToolCallID: id, ToolName: name, Args: args})
}

// ToolResultFrame returns the a: frame carrying the result of a tool call.
func ToolResultFrame(id, name string, args json.RawMessage, result any) (string, error) {
	return encodeFrame(PrefixToolResult, toolResultPayload{ToolCallID: id, ToolName: name, Args: args, Result: result})
}

// FinishFrame returns the d: frame that ends a data stream.
func FinishFrame(reason string, usage provider.Usage) (string, error) {
	return encodeFrame(PrefixFinish, finishPayload{
		FinishReason: reason,
		Usage: usagePayload{
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
		},
	})
}

// encodeFrame writes prefix followed by the JSON encoding of v. The encoder
// terminates the frame with a newline and compacts raw JSON values, so a
// frame never spans lines.
func encodeFrame(prefix string, v any) (string, error) {
	var b strings.Builder
	b.WriteString(prefix)
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encoding %s frame: %w", strings.TrimSuffix(prefix, ":"), err)
	}
	return b.String(), nil
}

// rawArguments turns accumulated argument text into a raw JSON value that
// can be embedded in a frame. Empty arguments become an empty object.
func rawArguments(args string) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace([]byte(args))
	if len(trimmed) == 0 {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("%w: %s", tools.ErrInvalidArguments, truncate(args, 120))
	}
	return json.RawMessage(trimmed), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
