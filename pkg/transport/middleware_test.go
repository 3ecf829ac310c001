package transport

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/rhuss/chatrelay/pkg/api"
)

func seqOf(items ...string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, s := range items {
			if !yield(s, nil) {
				return
			}
		}
	}
}

func streamerOf(items ...string) ChatStreamer {
	return ChatStreamerFunc(func(context.Context, *api.ChatRequest, api.Protocol) (iter.Seq2[string, error], error) {
		return seqOf(items...), nil
	})
}

func drain(t *testing.T, seq iter.Seq2[string, error]) ([]string, error) {
	t.Helper()
	var out []string
	for s, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, s)
	}
	return out, nil
}

var chatReq = &api.ChatRequest{Messages: []api.ClientMessage{{Role: "user", Content: "hi"}}}

func TestChainAppliesMiddlewareInOrder(t *testing.T) {
	var order []string

	mw := func(name string) Middleware {
		return func(next ChatStreamer) ChatStreamer {
			return ChatStreamerFunc(func(ctx context.Context, req *api.ChatRequest, proto api.Protocol) (iter.Seq2[string, error], error) {
				order = append(order, name+":before")
				seq, err := next.Stream(ctx, req, proto)
				order = append(order, name+":after")
				return seq, err
			})
		}
	}

	handler := ChatStreamerFunc(func(context.Context, *api.ChatRequest, api.Protocol) (iter.Seq2[string, error], error) {
		order = append(order, "handler")
		return seqOf(), nil
	})

	wrapped := Chain(mw("first"), mw("second"), mw("third"))(handler)
	if _, err := wrapped.Stream(context.Background(), chatReq, api.ProtocolData); err != nil {
		t.Fatal(err)
	}

	expected := []string{
		"first:before", "second:before", "third:before",
		"handler",
		"third:after", "second:after", "first:after",
	}
	if !slices.Equal(order, expected) {
		t.Errorf("order = %v, want %v", order, expected)
	}
}

func TestRequestIDGeneratesWhenMissing(t *testing.T) {
	var seen string
	handler := ChatStreamerFunc(func(ctx context.Context, _ *api.ChatRequest, _ api.Protocol) (iter.Seq2[string, error], error) {
		seen = RequestIDFromContext(ctx)
		return seqOf(), nil
	})

	RequestID()(handler).Stream(context.Background(), chatReq, api.ProtocolData)
	if len(seen) != 36 || strings.Count(seen, "-") != 4 {
		t.Errorf("expected a UUID request ID, got %q", seen)
	}
}

func TestRequestIDKeepsExisting(t *testing.T) {
	var seen string
	handler := ChatStreamerFunc(func(ctx context.Context, _ *api.ChatRequest, _ api.Protocol) (iter.Seq2[string, error], error) {
		seen = RequestIDFromContext(ctx)
		return seqOf(), nil
	})

	ctx := ContextWithRequestID(context.Background(), "client-id")
	RequestID()(handler).Stream(ctx, chatReq, api.ProtocolData)
	if seen != "client-id" {
		t.Errorf("request ID = %q, want client-id", seen)
	}
}

func TestRecoveryOnOpen(t *testing.T) {
	handler := ChatStreamerFunc(func(context.Context, *api.ChatRequest, api.Protocol) (iter.Seq2[string, error], error) {
		panic("open exploded")
	})

	seq, err := Recovery()(handler).Stream(context.Background(), chatReq, api.ProtocolData)
	if seq != nil {
		t.Error("expected nil sequence after panic")
	}
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.Type != api.ErrorTypeServerError {
		t.Fatalf("expected server error, got %v", err)
	}
	if !strings.Contains(apiErr.Message, "open exploded") {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestRecoveryDuringIteration(t *testing.T) {
	handler := ChatStreamerFunc(func(context.Context, *api.ChatRequest, api.Protocol) (iter.Seq2[string, error], error) {
		return func(yield func(string, error) bool) {
			if !yield("0:\"a\"\n", nil) {
				return
			}
			panic("mid-stream")
		}, nil
	})

	seq, err := Recovery()(handler).Stream(context.Background(), chatReq, api.ProtocolData)
	if err != nil {
		t.Fatal(err)
	}
	out, err := drain(t, seq)
	if !slices.Equal(out, []string{"0:\"a\"\n"}) {
		t.Errorf("outputs = %q", out)
	}
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || !strings.Contains(apiErr.Message, "mid-stream") {
		t.Errorf("expected recovered server error, got %v", err)
	}
}

func TestRecoveryDoesNotSwallowConsumerPanic(t *testing.T) {
	seq, err := Recovery()(streamerOf("a", "b")).Stream(context.Background(), chatReq, api.ProtocolData)
	if err != nil {
		t.Fatal(err)
	}

	defer func() {
		if r := recover(); r != "consumer" {
			t.Errorf("recovered %v, want consumer panic", r)
		}
	}()
	for range seq {
		panic("consumer")
	}
}

func TestLoggingCompleted(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := ContextWithRequestID(context.Background(), "req-1")
	seq, err := Logging(logger)(streamerOf("a", "b")).Stream(ctx, chatReq, api.ProtocolText)
	if err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("nothing should be logged before iteration, got %q", buf.String())
	}
	if _, err := drain(t, seq); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{"stream completed", "request_id=req-1", "protocol=text", "messages=1", "outputs=2"} {
		if !strings.Contains(out, want) {
			t.Errorf("log %q missing %q", out, want)
		}
	}
}

func TestLoggingOpenFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := ChatStreamerFunc(func(context.Context, *api.ChatRequest, api.Protocol) (iter.Seq2[string, error], error) {
		return nil, api.NewUpstreamError("refused")
	})
	if _, err := Logging(logger)(handler).Stream(context.Background(), chatReq, api.ProtocolData); err == nil {
		t.Fatal("expected error")
	}
	if out := buf.String(); !strings.Contains(out, "stream failed to open") || !strings.Contains(out, "level=ERROR") {
		t.Errorf("log = %q", out)
	}
}

func TestLoggingStoppedByClient(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	seq, _ := Logging(logger)(streamerOf("a", "b", "c")).Stream(context.Background(), chatReq, api.ProtocolData)
	for range seq {
		break
	}
	if out := buf.String(); !strings.Contains(out, "stream stopped by client") || !strings.Contains(out, "outputs=1") {
		t.Errorf("log = %q", out)
	}
}
