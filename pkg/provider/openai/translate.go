package openai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/rhuss/chatrelay/pkg/api"
	"github.com/rhuss/chatrelay/pkg/provider"
	"github.com/rhuss/chatrelay/pkg/tools"
)

// buildRequest assembles the streaming Chat Completions request.
func buildRequest(model string, req *provider.Request) (openai.ChatCompletionRequest, error) {
	var messages []openai.ChatCompletionMessage
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}

	converted, err := ConvertMessages(req.Messages)
	if err != nil {
		return openai.ChatCompletionRequest{}, err
	}
	messages = append(messages, converted...)

	return openai.ChatCompletionRequest{
		Model:         model,
		Messages:      messages,
		Stream:        true,
		StreamOptions: &openai.StreamOptions{IncludeUsage: true},
		Tools:         convertTools(req.Tools),
	}, nil
}

// ConvertMessages maps client messages to Chat Completions messages.
//
// A plain message becomes a multi-part message: one text part for its
// content, an image_url part per image attachment and a text part carrying
// the URL per text attachment. A message with tool invocations becomes an
// assistant message with the tool calls, followed by one tool message per
// invocation carrying its JSON result; its own content is not forwarded.
func ConvertMessages(msgs []api.ClientMessage) ([]openai.ChatCompletionMessage, error) {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for i, msg := range msgs {
		if len(msg.ToolInvocations) > 0 {
			replay, err := convertInvocations(msg.ToolInvocations)
			if err != nil {
				return nil, api.NewInvalidRequestError(fmt.Sprintf("messages[%d].toolInvocations", i), err.Error())
			}
			out = append(out, replay...)
			continue
		}

		parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: msg.Content}}
		for _, att := range msg.ExperimentalAttachments {
			switch {
			case strings.HasPrefix(att.ContentType, "image"):
				parts = append(parts, openai.ChatMessagePart{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: att.URL},
				})
			case strings.HasPrefix(att.ContentType, "text"):
				parts = append(parts, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeText,
					Text: att.URL,
				})
			}
		}

		out = append(out, openai.ChatCompletionMessage{
			Role:         msg.Role,
			MultiContent: parts,
		})
	}
	return out, nil
}

func convertInvocations(invs []api.ToolInvocation) ([]openai.ChatCompletionMessage, error) {
	calls := make([]openai.ToolCall, 0, len(invs))
	results := make([]openai.ChatCompletionMessage, 0, len(invs))

	for _, inv := range invs {
		args, err := compactJSON(inv.Args, "{}")
		if err != nil {
			return nil, fmt.Errorf("args of %s: %w", inv.ToolCallID, err)
		}
		result, err := compactJSON(inv.Result, "null")
		if err != nil {
			return nil, fmt.Errorf("result of %s: %w", inv.ToolCallID, err)
		}

		calls = append(calls, openai.ToolCall{
			ID:   inv.ToolCallID,
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      inv.ToolName,
				Arguments: args,
			},
		})
		results = append(results, openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    result,
			ToolCallID: inv.ToolCallID,
		})
	}

	assistant := openai.ChatCompletionMessage{
		Role:      openai.ChatMessageRoleAssistant,
		ToolCalls: calls,
	}
	return append([]openai.ChatCompletionMessage{assistant}, results...), nil
}

func compactJSON(raw json.RawMessage, empty string) (string, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return empty, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// emptyParameters is advertised for tools without a parameter schema.
var emptyParameters = json.RawMessage(`{"type":"object","properties":{}}`)

func convertTools(defs []tools.Definition) []openai.Tool {
	if len(defs) == 0 {
		return nil
	}
	out := make([]openai.Tool, 0, len(defs))
	for _, d := range defs {
		var params any = emptyParameters
		if d.Parameters != nil {
			params = d.Parameters
		}
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  params,
			},
		})
	}
	return out
}

// convertChunk classifies each streamed choice into a provider.Choice.
func convertChunk(resp openai.ChatCompletionStreamResponse) provider.Chunk {
	chunk := provider.Chunk{Choices: make([]provider.Choice, 0, len(resp.Choices))}
	for _, c := range resp.Choices {
		var deltas []provider.ToolCallDelta
		for _, tc := range c.Delta.ToolCalls {
			deltas = append(deltas, provider.ToolCallDelta{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
		chunk.Choices = append(chunk.Choices, provider.NewChoice(c.Index, string(c.FinishReason), c.Delta.Content, deltas))
	}
	if resp.Usage != nil {
		chunk.Usage = &provider.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return chunk
}
