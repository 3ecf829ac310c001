package transport

import (
	"context"
	"iter"

	"github.com/google/uuid"

	"github.com/rhuss/chatrelay/pkg/api"
)

// RequestIDHeader carries the request ID in requests and responses.
const RequestIDHeader = "X-Request-ID"

// RequestID returns middleware that makes sure every stream runs with a
// request ID in its context. An ID already present (set by the HTTP
// adapter from the X-Request-ID header) is kept.
func RequestID() Middleware {
	return func(next ChatStreamer) ChatStreamer {
		return ChatStreamerFunc(func(ctx context.Context, req *api.ChatRequest, proto api.Protocol) (iter.Seq2[string, error], error) {
			if RequestIDFromContext(ctx) == "" {
				ctx = ContextWithRequestID(ctx, NewRequestID())
			}
			return next.Stream(ctx, req, proto)
		})
	}
}

// NewRequestID returns a random UUID string.
func NewRequestID() string {
	return uuid.NewString()
}
