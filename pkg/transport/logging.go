package transport

import (
	"context"
	"iter"
	"log/slog"
	"slices"
	"time"

	"github.com/rhuss/chatrelay/pkg/api"
)

// Logging returns middleware that emits one structured log entry per
// stream. The entry is written when the stream fails to open or, for an
// opened stream, when iteration ends. It includes the request ID, the
// protocol, the number of messages and outputs, and the duration.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next ChatStreamer) ChatStreamer {
		return ChatStreamerFunc(func(ctx context.Context, req *api.ChatRequest, proto api.Protocol) (iter.Seq2[string, error], error) {
			start := time.Now()
			attrs := []slog.Attr{
				slog.String("request_id", RequestIDFromContext(ctx)),
				slog.String("protocol", string(proto)),
				slog.Int("messages", len(req.Messages)),
			}

			seq, err := next.Stream(ctx, req, proto)
			if err != nil {
				attrs = append(attrs,
					slog.Duration("duration", time.Since(start)),
					slog.String("error", err.Error()),
				)
				logger.LogAttrs(ctx, slog.LevelError, "stream failed to open", attrs...)
				return nil, err
			}

			return func(yield func(string, error) bool) {
				outputs := 0
				var streamErr error
				stopped := false
				for out, err := range seq {
					if err != nil {
						streamErr = err
					} else {
						outputs++
					}
					if !yield(out, err) {
						stopped = true
						break
					}
				}

				attrs := append(slices.Clip(attrs),
					slog.Int("outputs", outputs),
					slog.Duration("duration", time.Since(start)),
				)
				switch {
				case streamErr != nil:
					attrs = append(attrs, slog.String("error", streamErr.Error()))
					logger.LogAttrs(ctx, slog.LevelError, "stream failed", attrs...)
				case stopped:
					logger.LogAttrs(ctx, slog.LevelWarn, "stream stopped by client", attrs...)
				default:
					logger.LogAttrs(ctx, slog.LevelInfo, "stream completed", attrs...)
				}
			}, nil
		})
	}
}
