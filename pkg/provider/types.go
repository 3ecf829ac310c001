package provider

// Finish reasons reported on a choice.
const (
	FinishReasonNone      = ""
	FinishReasonStop      = "stop"
	FinishReasonToolCalls = "tool_calls"
	FinishReasonLength    = "length"
)

// ChoiceKind discriminates the state a Choice represents.
type ChoiceKind int

const (
	// ChoiceEmpty carries nothing actionable (role-only deltas, a bare
	// "stop" without content).
	ChoiceEmpty ChoiceKind = iota

	// ChoiceContent carries a non-empty text delta in Content.
	ChoiceContent

	// ChoiceToolCallDelta carries one or more tool call fragments in ToolCalls.
	ChoiceToolCallDelta

	// ChoiceToolCallsFinished marks the currently open tool call as complete
	// (finish reason "tool_calls").
	ChoiceToolCallsFinished
)

func (k ChoiceKind) String() string {
	switch k {
	case ChoiceContent:
		return "content"
	case ChoiceToolCallDelta:
		return "tool_call_delta"
	case ChoiceToolCallsFinished:
		return "tool_calls_finished"
	default:
		return "empty"
	}
}

// Chunk is one streamed unit of a completion. A chunk with no choices and a
// non-nil Usage is the terminal chunk.
type Chunk struct {
	Choices []Choice
	Usage   *Usage
}

// IsTerminal reports whether c is the usage-bearing end-of-stream chunk.
func (c Chunk) IsTerminal() bool {
	return len(c.Choices) == 0 && c.Usage != nil
}

// Choice is one choice of a chunk. Only the fields belonging to Kind are
// meaningful; FinishReason is always set to the raw upstream value.
type Choice struct {
	Index        int
	Kind         ChoiceKind
	FinishReason string
	Content      string
	ToolCalls    []ToolCallDelta
}

// NewChoice classifies the raw parts of an upstream choice. The precedence
// finish "tool_calls" > tool call deltas > content > empty decides the kind
// when several parts are present.
func NewChoice(index int, finishReason, content string, toolCalls []ToolCallDelta) Choice {
	c := Choice{Index: index, FinishReason: finishReason}
	switch {
	case finishReason == FinishReasonToolCalls:
		c.Kind = ChoiceToolCallsFinished
	case len(toolCalls) > 0:
		c.Kind = ChoiceToolCallDelta
		c.ToolCalls = toolCalls
	case content != "":
		c.Kind = ChoiceContent
		c.Content = content
	default:
		c.Kind = ChoiceEmpty
	}
	return c
}

// ToolCallDelta is a fragment of one tool call. ID and Name are set only on
// the fragment that starts a call; Arguments is a piece of the JSON encoded
// argument object to be concatenated in arrival order.
type ToolCallDelta struct {
	ID        string
	Name      string
	Arguments string
}

// Starts reports whether d opens a new tool call.
func (d ToolCallDelta) Starts() bool {
	return d.ID != ""
}

// Usage reports token counts for the whole completion.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
