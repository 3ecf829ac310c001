package transport

import (
	"context"
	"fmt"
	"iter"

	"github.com/rhuss/chatrelay/pkg/api"
)

// Recovery returns middleware that converts panics into server errors.
// A panic while opening the stream is returned as the error; a panic
// during iteration is yielded as the final element. Panics raised by the
// consumer's loop body are not intercepted.
func Recovery() Middleware {
	return func(next ChatStreamer) ChatStreamer {
		return ChatStreamerFunc(func(ctx context.Context, req *api.ChatRequest, proto api.Protocol) (seq iter.Seq2[string, error], retErr error) {
			defer func() {
				if r := recover(); r != nil {
					seq = nil
					retErr = api.NewServerError(fmt.Sprintf("internal server error: %v", r))
				}
			}()

			inner, err := next.Stream(ctx, req, proto)
			if err != nil {
				return nil, err
			}
			return recoverSeq(inner), nil
		})
	}
}

func recoverSeq(seq iter.Seq2[string, error]) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		inYield := false
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if inYield {
				panic(r)
			}
			yield("", api.NewServerError(fmt.Sprintf("internal server error: %v", r)))
		}()

		for out, err := range seq {
			inYield = true
			cont := yield(out, err)
			inYield = false
			if !cont {
				return
			}
		}
	}
}
