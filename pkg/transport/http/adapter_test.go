package http

import (
	"context"
	"encoding/json"
	"io"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rhuss/chatrelay/pkg/api"
	"github.com/rhuss/chatrelay/pkg/engine"
	"github.com/rhuss/chatrelay/pkg/provider"
	"github.com/rhuss/chatrelay/pkg/tools"
	"github.com/rhuss/chatrelay/pkg/transport"
)

// mockStreamer is a configurable ChatStreamer for testing.
type mockStreamer struct {
	outputs []string
	// failAt yields failErr in place of outputs[failAt] when non-negative.
	failAt  int
	failErr error
	openErr error

	calls    int
	gotProto api.Protocol
	gotReq   *api.ChatRequest
	gotID    string
}

func newMockStreamer(outputs ...string) *mockStreamer {
	return &mockStreamer{outputs: outputs, failAt: -1}
}

func (m *mockStreamer) Stream(ctx context.Context, req *api.ChatRequest, proto api.Protocol) (iter.Seq2[string, error], error) {
	m.calls++
	m.gotProto = proto
	m.gotReq = req
	m.gotID = transport.RequestIDFromContext(ctx)
	if m.openErr != nil {
		return nil, m.openErr
	}
	return func(yield func(string, error) bool) {
		for i, s := range m.outputs {
			if i == m.failAt {
				yield("", m.failErr)
				return
			}
			if !yield(s, nil) {
				return
			}
		}
		if m.failAt == len(m.outputs) {
			yield("", m.failErr)
		}
	}, nil
}

const helloBody = `{"messages":[{"role":"user","content":"Hello"}]}`

func newTestAdapter(s transport.ChatStreamer) http.Handler {
	return NewAdapter(s, DefaultConfig()).Handler()
}

func postChat(t *testing.T, h http.Handler, query, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, ChatPath+query, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *api.APIError {
	t.Helper()
	var resp api.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if resp.Error == nil {
		t.Fatal("error body has no error")
	}
	return resp.Error
}

func TestRootAndHealth(t *testing.T) {
	h := newTestAdapter(newMockStreamer())

	tests := []struct {
		path string
		want map[string]string
	}{
		{"/", map[string]string{"message": "Hello World"}},
		{"/health", map[string]string{"status": "Healthy!"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			var got map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatal(err)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestUnknownPathIsNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestAdapter(newMockStreamer()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestChat_StreamsFramesWithHeaders(t *testing.T) {
	s := newMockStreamer("0:\"Hel\"\n", "0:\"lo\"\n", `d:{"finishReason":"stop","usage":{"promptTokens":1,"completionTokens":2}}`+"\n")
	rec := postChat(t, newTestAdapter(s), "?protocol=data", helloBody)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get(DataStreamHeader); got != "v1" {
		t.Errorf("%s = %q, want v1", DataStreamHeader, got)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/plain; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	want := strings.Join(s.outputs, "")
	if rec.Body.String() != want {
		t.Errorf("body = %q, want %q", rec.Body.String(), want)
	}
	if !rec.Flushed {
		t.Error("expected frames to be flushed")
	}
	if s.gotProto != api.ProtocolData {
		t.Errorf("protocol = %q", s.gotProto)
	}
	if len(s.gotReq.Messages) != 1 || s.gotReq.Messages[0].Content != "Hello" {
		t.Errorf("request = %+v", s.gotReq)
	}
}

func TestChat_ProtocolSelection(t *testing.T) {
	tests := []struct {
		query string
		want  api.Protocol
	}{
		{"", api.ProtocolData},
		{"?protocol=data", api.ProtocolData},
		{"?protocol=text", api.ProtocolText},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			s := newMockStreamer("x")
			rec := postChat(t, newTestAdapter(s), tt.query, helloBody)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if s.gotProto != tt.want {
				t.Errorf("protocol = %q, want %q", s.gotProto, tt.want)
			}
			if rec.Header().Get(DataStreamHeader) != "v1" {
				t.Error("data stream header missing")
			}
		})
	}
}

func TestChat_EmptyStreamStillCommitsHeaders(t *testing.T) {
	rec := postChat(t, newTestAdapter(newMockStreamer()), "?protocol=text", helloBody)
	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Errorf("status = %d, body = %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(DataStreamHeader) != "v1" {
		t.Error("data stream header missing")
	}
}

func TestChat_RejectedRequests(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		contentType string
		body        string
		wantStatus  int
		wantParam   string
	}{
		{"unsupported protocol", "?protocol=sse", "application/json", helloBody, http.StatusBadRequest, "protocol"},
		{"empty messages", "", "application/json", `{"messages":[]}`, http.StatusBadRequest, "messages"},
		{"missing messages", "", "application/json", `{}`, http.StatusBadRequest, "messages"},
		{"invalid json", "", "application/json", `{"messages":`, http.StatusBadRequest, "body"},
		{"bad role", "", "application/json", `{"messages":[{"role":"robot","content":"x"}]}`, http.StatusBadRequest, "messages[0].role"},
		{"wrong content type", "", "text/plain", helloBody, http.StatusUnsupportedMediaType, "content_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newMockStreamer("never")
			req := httptest.NewRequest(http.MethodPost, ChatPath+tt.query, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := httptest.NewRecorder()
			newTestAdapter(s).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if apiErr := decodeError(t, rec); apiErr.Param != tt.wantParam {
				t.Errorf("param = %q, want %q", apiErr.Param, tt.wantParam)
			}
			if s.calls != 0 {
				t.Errorf("streamer called %d times for a rejected request", s.calls)
			}
		})
	}
}

func TestChat_ContentTypeWithCharset(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, ChatPath, strings.NewReader(helloBody))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec := httptest.NewRecorder()
	newTestAdapter(newMockStreamer("x")).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestChat_BodyTooLarge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBodySize = 16
	h := NewAdapter(newMockStreamer(), cfg).Handler()

	rec := postChat(t, h, "", helloBody)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestChat_OpenErrorWritesJSON(t *testing.T) {
	s := newMockStreamer()
	s.openErr = api.NewUpstreamError("connection refused")

	rec := postChat(t, newTestAdapter(s), "", helloBody)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Header().Get(DataStreamHeader) != "" {
		t.Error("data stream header must not be set on an error response")
	}
	if apiErr := decodeError(t, rec); apiErr.Type != api.ErrorTypeUpstreamError {
		t.Errorf("type = %q", apiErr.Type)
	}
}

func TestChat_ErrorBeforeFirstFrameWritesJSON(t *testing.T) {
	s := newMockStreamer("never")
	s.failAt = 0
	s.failErr = tools.ErrToolNotFound

	rec := postChat(t, newTestAdapter(s), "", helloBody)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	apiErr := decodeError(t, rec)
	if apiErr.Type != api.ErrorTypeToolError || apiErr.Code != transport.CodeToolNotFound {
		t.Errorf("error = %+v", apiErr)
	}
}

func TestChat_ErrorAfterFramesTruncates(t *testing.T) {
	s := newMockStreamer(`9:{"toolCallId":"call_1","toolName":"launch_rockets","args":{}}`+"\n", "unreached")
	s.failAt = 1
	s.failErr = tools.ErrToolNotFound

	rec := postChat(t, newTestAdapter(s), "", helloBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != s.outputs[0] {
		t.Errorf("body = %q, want only the first frame", rec.Body.String())
	}
}

func TestChat_RequestID(t *testing.T) {
	s := newMockStreamer("x")

	req := httptest.NewRequest(http.MethodPost, ChatPath, strings.NewReader(helloBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(transport.RequestIDHeader, "client-123")
	rec := httptest.NewRecorder()
	newTestAdapter(s).ServeHTTP(rec, req)

	if got := rec.Header().Get(transport.RequestIDHeader); got != "client-123" {
		t.Errorf("response request ID = %q", got)
	}
	if s.gotID != "client-123" {
		t.Errorf("context request ID = %q", s.gotID)
	}

	rec = postChat(t, newTestAdapter(s), "", helloBody)
	if got := rec.Header().Get(transport.RequestIDHeader); got == "" || got != s.gotID {
		t.Errorf("generated request ID = %q, context had %q", got, s.gotID)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestAdapter(newMockStreamer("x"))
	postChat(t, h, "", helloBody)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "chatrelay_requests_total") {
		t.Error("metrics output missing chatrelay_requests_total")
	}
}

func TestMetricsEndpointDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MetricsPath = ""
	h := NewAdapter(newMockStreamer(), cfg).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// scriptedSource replays chunks for the end-to-end test.
type scriptedSource struct {
	chunks []provider.Chunk
	closed bool
}

func (s *scriptedSource) Next(ctx context.Context) (provider.Chunk, error) {
	if len(s.chunks) == 0 {
		return provider.Chunk{}, io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return c, nil
}

func (s *scriptedSource) Close() error {
	s.closed = true
	return nil
}

type scriptedProvider struct{ src *scriptedSource }

func (p scriptedProvider) Stream(context.Context, *provider.Request) (provider.ChunkSource, error) {
	return p.src, nil
}

func TestChat_EndToEndToolCall(t *testing.T) {
	reg := tools.NewRegistry()
	if err := reg.Register(tools.Tool{
		Definition: tools.Definition{Name: "get_current_weather"},
		Handler: func(_ context.Context, args json.RawMessage) (any, error) {
			return map[string]any{"temperature": 22, "unit": "celsius"}, nil
		},
	}); err != nil {
		t.Fatal(err)
	}

	src := &scriptedSource{chunks: []provider.Chunk{
		{Choices: []provider.Choice{provider.NewChoice(0, "", "", []provider.ToolCallDelta{
			{ID: "call_1", Name: "get_current_weather", Arguments: `{"location":`},
		})}},
		{Choices: []provider.Choice{provider.NewChoice(0, "", "", []provider.ToolCallDelta{
			{Arguments: `"Paris"}`},
		})}},
		{Choices: []provider.Choice{provider.NewChoice(0, provider.FinishReasonToolCalls, "", nil)}},
		{Usage: &provider.Usage{PromptTokens: 10, CompletionTokens: 3}},
	}}
	eng, err := engine.New(scriptedProvider{src: src}, reg, engine.Config{DefaultModel: "gpt-4o"})
	if err != nil {
		t.Fatal(err)
	}

	srv := NewServer(eng)
	rec := postChat(t, srv.Handler(), "?protocol=data", helloBody)

	want := `9:{"toolCallId":"call_1","toolName":"get_current_weather","args":{"location":"Paris"}}` + "\n" +
		`a:{"toolCallId":"call_1","toolName":"get_current_weather","args":{"location":"Paris"},"result":{"temperature":22,"unit":"celsius"}}` + "\n" +
		`d:{"finishReason":"stop","usage":{"promptTokens":10,"completionTokens":3}}` + "\n"
	if rec.Body.String() != want {
		t.Errorf("body:\n got %q\nwant %q", rec.Body.String(), want)
	}
	if !src.closed {
		t.Error("upstream source was not closed")
	}
}
