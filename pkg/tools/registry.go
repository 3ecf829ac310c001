package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/rhuss/chatrelay/pkg/debug"
	"github.com/rhuss/chatrelay/pkg/observability"
)

// Registry maps tool names to tools. It is built once at startup and shared
// by all requests; reads are safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*entry
}

type entry struct {
	tool   Tool
	schema *jsonschema.Resolved
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*entry)}
}

// Register adds a tool. It fails for an empty name, a nil handler, a name
// that is already registered, or a parameter schema that does not resolve.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return errors.New("tool name is required")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %q: handler is required", t.Name)
	}

	schema := t.Parameters
	if schema == nil {
		schema = &jsonschema.Schema{Type: "object"}
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("tool %q: resolving parameter schema: %w", t.Name, err)
	}
	if t.Source == "" {
		t.Source = "builtin"
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.tools[t.Name]; ok {
		return fmt.Errorf("tool %q already registered by %s", t.Name, existing.tool.Source)
	}
	r.tools[t.Name] = &entry{tool: t, schema: resolved}

	slog.Info("registered tool", "tool", t.Name, "source", t.Source)
	return nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	if !ok {
		return Tool{}, false
	}
	return e.tool, true
}

// Has reports whether a tool is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Definitions returns the definitions of all tools sorted by name, for
// advertising to the model.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.tools))
	for _, e := range r.tools {
		defs = append(defs, e.tool.Definition)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Invoke runs the named tool with JSON-encoded arguments and returns its
// result. Empty arguments are treated as an empty object. Errors wrap
// ErrToolNotFound, ErrInvalidArguments or ErrToolFailed. A panicking
// handler is recovered and reported as ErrToolFailed.
func (r *Registry) Invoke(ctx context.Context, name, args string) (result any, err error) {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		observability.ToolExecutionsTotal.WithLabelValues(name, "not_found").Inc()
		return nil, fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}

	raw, err := decodeArguments(args)
	if err != nil {
		observability.ToolExecutionsTotal.WithLabelValues(name, "invalid_arguments").Inc()
		return nil, fmt.Errorf("tool %q: %w", name, err)
	}

	var instance map[string]any
	if err := json.Unmarshal(raw, &instance); err != nil {
		observability.ToolExecutionsTotal.WithLabelValues(name, "invalid_arguments").Inc()
		return nil, fmt.Errorf("tool %q: %w: %w", name, ErrInvalidArguments, err)
	}
	if err := e.schema.Validate(instance); err != nil {
		observability.ToolExecutionsTotal.WithLabelValues(name, "invalid_arguments").Inc()
		return nil, fmt.Errorf("tool %q: %w: %w", name, ErrInvalidArguments, err)
	}

	debug.Log("tools", "invoking tool", "tool", name, "source", e.tool.Source, "args", debug.Truncate(args, 200))
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("tool handler panicked", "tool", name, "panic", rec)
			result = nil
			err = fmt.Errorf("%w: tool %q panicked: %v", ErrToolFailed, name, rec)
			observability.ToolExecutionsTotal.WithLabelValues(name, "panic").Inc()
			observability.ToolDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		}
	}()

	result, err = e.tool.Handler(ctx, raw)
	duration := time.Since(start)
	observability.ToolDuration.WithLabelValues(name).Observe(duration.Seconds())

	switch {
	case err == nil:
		observability.ToolExecutionsTotal.WithLabelValues(name, "success").Inc()
		slog.Debug("tool executed", "tool", name, "duration", duration)
	case errors.Is(err, ErrInvalidArguments):
		observability.ToolExecutionsTotal.WithLabelValues(name, "invalid_arguments").Inc()
		err = fmt.Errorf("tool %q: %w", name, err)
	default:
		observability.ToolExecutionsTotal.WithLabelValues(name, "error").Inc()
		slog.Warn("tool execution failed", "tool", name, "duration", duration, "error", err)
		err = fmt.Errorf("%w: tool %q: %w", ErrToolFailed, name, err)
	}
	return result, err
}

// decodeArguments checks that args is a single JSON object and returns it
// compacted.
func decodeArguments(args string) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace([]byte(args))
	if len(trimmed) == 0 {
		return json.RawMessage("{}"), nil
	}
	if trimmed[0] != '{' || !json.Valid(trimmed) {
		return nil, fmt.Errorf("%w: arguments must be a JSON object", ErrInvalidArguments)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArguments, err)
	}
	return buf.Bytes(), nil
}
