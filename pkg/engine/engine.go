package engine

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/rhuss/chatrelay/pkg/api"
	"github.com/rhuss/chatrelay/pkg/debug"
	"github.com/rhuss/chatrelay/pkg/provider"
	"github.com/rhuss/chatrelay/pkg/stream"
	"github.com/rhuss/chatrelay/pkg/tools"
)

// ErrStreamConsumed is yielded when a sequence returned by Stream is ranged
// over a second time.
var ErrStreamConsumed = errors.New("engine: stream already consumed")

// Engine relays chat requests to the provider.
type Engine struct {
	provider provider.Provider
	registry *tools.Registry
	cfg      Config
}

// New creates an Engine. The provider must not be nil. A nil registry
// advertises no tools.
func New(p provider.Provider, reg *tools.Registry, cfg Config) (*Engine, error) {
	if p == nil {
		return nil, fmt.Errorf("engine: provider must not be nil")
	}
	if reg == nil {
		reg = tools.NewRegistry()
	}
	return &Engine{
		provider: p,
		registry: reg,
		cfg:      cfg,
	}, nil
}

// Registry returns the tool registry used for data mode.
func (e *Engine) Registry() *tools.Registry {
	return e.registry
}

// Stream opens the upstream completion for req and returns its output in
// the given protocol. Errors opening the stream are returned directly, so
// nothing has been written when they occur.
//
// The upstream connection is released when iteration ends, when the
// consumer stops early, or when ctx is done, whichever happens first. The
// sequence can be ranged over once.
func (e *Engine) Stream(ctx context.Context, req *api.ChatRequest, proto api.Protocol) (iter.Seq2[string, error], error) {
	if req == nil {
		return nil, api.NewInvalidRequestError("", "request body is required")
	}

	src, err := e.provider.Stream(ctx, &provider.Request{
		Model:        e.cfg.DefaultModel,
		SystemPrompt: e.cfg.SystemPrompt,
		Messages:     req.Messages,
		Tools:        e.registry.Definitions(),
	})
	if err != nil {
		return nil, err
	}

	var closeOnce sync.Once
	release := func() {
		closeOnce.Do(func() {
			if err := src.Close(); err != nil {
				debug.Log("provider", "closing upstream stream", "error", err)
			}
		})
	}
	stop := context.AfterFunc(ctx, release)

	var seq iter.Seq2[string, error]
	switch proto {
	case api.ProtocolText:
		seq = stream.Text(ctx, src)
	default:
		seq = stream.Data(ctx, src, e.registry)
	}

	var used atomic.Bool
	return func(yield func(string, error) bool) {
		if used.Swap(true) {
			yield("", ErrStreamConsumed)
			return
		}
		defer func() {
			stop()
			release()
		}()

		n := 0
		for out, err := range seq {
			if err == nil {
				n++
			}
			if !yield(out, err) {
				debug.Log("stream", "consumer stopped", "protocol", proto, "outputs", n)
				return
			}
		}
		debug.Log("stream", "stream complete", "protocol", proto, "outputs", n)
	}, nil
}
