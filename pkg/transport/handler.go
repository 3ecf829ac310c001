package transport

import (
	"context"
	"iter"

	"github.com/rhuss/chatrelay/pkg/api"
)

// ChatStreamer opens a chat stream. Errors returned by Stream occur before
// any output is produced; errors yielded by the sequence end it.
type ChatStreamer interface {
	Stream(ctx context.Context, req *api.ChatRequest, proto api.Protocol) (iter.Seq2[string, error], error)
}

// ChatStreamerFunc is an adapter that allows using an ordinary function
// as a ChatStreamer.
type ChatStreamerFunc func(ctx context.Context, req *api.ChatRequest, proto api.Protocol) (iter.Seq2[string, error], error)

// Stream calls f(ctx, req, proto).
func (f ChatStreamerFunc) Stream(ctx context.Context, req *api.ChatRequest, proto api.Protocol) (iter.Seq2[string, error], error) {
	return f(ctx, req, proto)
}
