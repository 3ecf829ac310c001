package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const weatherTool = "get_current_weather"

// --- Request types ---

type chatRequest struct {
	Model         string         `json:"model"`
	Messages      []chatMessage  `json:"messages"`
	Tools         []chatTool     `json:"tools,omitempty"`
	Stream        bool           `json:"stream"`
	StreamOptions *streamOptions `json:"stream_options,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type chatTool struct {
	Type     string `json:"type"`
	Function struct {
		Name string `json:"name"`
	} `json:"function"`
}

type chatMessage struct {
	Role       string `json:"role"`
	Content    any    `json:"content"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// text returns the string content or the concatenated text parts.
func (m chatMessage) text() string {
	switch v := m.Content.(type) {
	case string:
		return v
	case []any:
		var sb strings.Builder
		for _, part := range v {
			p, ok := part.(map[string]any)
			if !ok || p["type"] != "text" {
				continue
			}
			if s, ok := p["text"].(string); ok {
				sb.WriteString(s)
			}
		}
		return sb.String()
	}
	return ""
}

func (m chatMessage) hasImage() bool {
	parts, ok := m.Content.([]any)
	if !ok {
		return false
	}
	for _, part := range parts {
		if p, ok := part.(map[string]any); ok && p["type"] == "image_url" {
			return true
		}
	}
	return false
}

// --- Handler ---

func handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if !req.Stream {
		writeError(w, http.StatusBadRequest, "mock backend only supports stream=true")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages must not be empty")
		return
	}

	model := req.Model
	if model == "" {
		model = "mock-model"
	}
	s, err := newChunkStream(w, model)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	last := req.Messages[len(req.Messages)-1]
	var completion int
	switch {
	case last.Role == "tool":
		completion = s.text(tokenize("The weather lookup returned: " + last.text()))
	case advertises(&req, weatherTool) && strings.Contains(strings.ToLower(last.text()), "weather"):
		completion = s.toolCall(weatherTool, fmt.Sprintf(`{"location":%q}`, cityOf(last.text())))
	case last.hasImage():
		completion = s.text(tokenize("I can see the image you shared."))
	case strings.Contains(strings.ToLower(last.text()), "count from 1 to 5"):
		completion = s.text([]string{"1", ", ", "2", ", ", "3", ", ", "4", ", ", "5"})
	default:
		completion = s.text([]string{"Hello", ", ", "nice", " ", "day", "!"})
	}

	if req.StreamOptions != nil && req.StreamOptions.IncludeUsage {
		s.usage(promptTokens(&req), completion)
	}
	s.done()
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"message": msg, "type": "invalid_request_error"},
	})
}

func advertises(req *chatRequest, name string) bool {
	for _, t := range req.Tools {
		if t.Function.Name == name {
			return true
		}
	}
	return false
}

// cityOf extracts the place after the last " in " of a question.
func cityOf(question string) string {
	i := strings.LastIndex(strings.ToLower(question), " in ")
	if i < 0 {
		return "Berlin"
	}
	city := strings.TrimRight(strings.TrimSpace(question[i+4:]), "?!. ")
	if city == "" {
		return "Berlin"
	}
	return city
}

// tokenize splits s into word tokens that keep their leading space.
func tokenize(s string) []string {
	var out []string
	for i, w := range strings.Fields(s) {
		if i > 0 {
			w = " " + w
		}
		out = append(out, w)
	}
	return out
}

func promptTokens(req *chatRequest) int {
	n := 0
	for _, m := range req.Messages {
		n += len(strings.Fields(m.text()))
	}
	return n
}

// --- Streaming ---

type chunkStream struct {
	w     http.ResponseWriter
	rc    *http.ResponseController
	id    string
	model string
}

func newChunkStream(w http.ResponseWriter, model string) (*chunkStream, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("generating completion id: %w", err)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	return &chunkStream{
		w:     w,
		rc:    http.NewResponseController(w),
		id:    "chatcmpl-" + id,
		model: model,
	}, nil
}

func (s *chunkStream) send(choices []any, usage map[string]int) {
	chunk := map[string]any{
		"id":      s.id,
		"object":  "chat.completion.chunk",
		"model":   s.model,
		"choices": choices,
	}
	if usage != nil {
		chunk["usage"] = usage
	}
	data, _ := json.Marshal(chunk)
	fmt.Fprintf(s.w, "data: %s\n\n", data)
	s.rc.Flush()
}

func (s *chunkStream) delta(delta map[string]any, finish any) {
	s.send([]any{map[string]any{
		"index":         0,
		"delta":         delta,
		"finish_reason": finish,
	}}, nil)
}

// text streams tokens followed by a "stop" finish and returns the token count.
func (s *chunkStream) text(tokens []string) int {
	s.delta(map[string]any{"role": "assistant", "content": ""}, nil)
	for _, tok := range tokens {
		s.delta(map[string]any{"content": tok}, nil)
	}
	s.delta(map[string]any{}, "stop")
	return len(tokens)
}

// toolCall streams one tool call whose arguments are split over three
// fragments, followed by a "tool_calls" finish.
func (s *chunkStream) toolCall(name, args string) int {
	id, _ := gonanoid.Generate("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789", 24)

	s.delta(map[string]any{"role": "assistant", "tool_calls": []any{map[string]any{
		"index": 0,
		"id":    "call_" + id,
		"type":  "function",
		"function": map[string]any{
			"name":      name,
			"arguments": "",
		},
	}}}, nil)

	third := len(args) / 3
	for _, frag := range []string{args[:third], args[third : 2*third], args[2*third:]} {
		s.delta(map[string]any{"tool_calls": []any{map[string]any{
			"index":    0,
			"function": map[string]any{"arguments": frag},
		}}}, nil)
	}

	s.delta(map[string]any{}, "tool_calls")
	return 3
}

func (s *chunkStream) usage(prompt, completion int) {
	s.send([]any{}, map[string]int{
		"prompt_tokens":     prompt,
		"completion_tokens": completion,
		"total_tokens":      prompt + completion,
	})
}

func (s *chunkStream) done() {
	fmt.Fprint(s.w, "data: [DONE]\n\n")
	s.rc.Flush()
}

// --- Models endpoint ---

func handleModels(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"object": "list",
		"data": []map[string]any{
			{"id": "mock-model", "object": "model", "owned_by": "chatrelay-mock"},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
