package provider

import "testing"

func TestNewChoice(t *testing.T) {
	delta := []ToolCallDelta{{ID: "call_1", Name: "get_current_weather"}}

	tests := []struct {
		name      string
		finish    string
		content   string
		toolCalls []ToolCallDelta
		want      ChoiceKind
	}{
		{"empty", "", "", nil, ChoiceEmpty},
		{"content", "", "Hel", nil, ChoiceContent},
		{"tool delta", "", "", delta, ChoiceToolCallDelta},
		{"tool delta wins over content", "", "x", delta, ChoiceToolCallDelta},
		{"finish tool_calls wins", FinishReasonToolCalls, "x", delta, ChoiceToolCallsFinished},
		{"bare stop", FinishReasonStop, "", nil, ChoiceEmpty},
		{"stop with content", FinishReasonStop, "bye", nil, ChoiceContent},
		{"length", FinishReasonLength, "", nil, ChoiceEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChoice(0, tt.finish, tt.content, tt.toolCalls)
			if c.Kind != tt.want {
				t.Errorf("Kind = %v, want %v", c.Kind, tt.want)
			}
			if c.FinishReason != tt.finish {
				t.Errorf("FinishReason = %q, want %q", c.FinishReason, tt.finish)
			}
			if c.Kind != ChoiceContent && c.Content != "" {
				t.Errorf("Content should only be set for content choices, got %q", c.Content)
			}
		})
	}
}

func TestChunkIsTerminal(t *testing.T) {
	if (Chunk{}).IsTerminal() {
		t.Error("empty chunk without usage is not terminal")
	}
	if !(Chunk{Usage: &Usage{}}).IsTerminal() {
		t.Error("choice-less chunk with usage is terminal")
	}
	if (Chunk{Choices: []Choice{{}}, Usage: &Usage{}}).IsTerminal() {
		t.Error("chunk with choices is not terminal")
	}
}

func TestToolCallDeltaStarts(t *testing.T) {
	if !(ToolCallDelta{ID: "call_1"}).Starts() {
		t.Error("delta with id starts a call")
	}
	if (ToolCallDelta{Arguments: `"x"`}).Starts() {
		t.Error("delta without id continues a call")
	}
}
