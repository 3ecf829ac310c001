package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

var (
	// ErrToolNotFound is returned when no tool is registered under a name.
	ErrToolNotFound = errors.New("tool not found")

	// ErrInvalidArguments is returned when call arguments are not a JSON
	// object or do not satisfy the tool's parameter schema.
	ErrInvalidArguments = errors.New("invalid tool arguments")

	// ErrToolFailed wraps errors and panics raised by a tool handler.
	ErrToolFailed = errors.New("tool execution failed")
)

// Definition describes a tool to the model.
type Definition struct {
	Name        string
	Description string

	// Parameters is the JSON schema of the argument object. A nil schema
	// accepts any object.
	Parameters *jsonschema.Schema
}

// Handler executes a tool call. args is a JSON object that has already been
// validated against the tool's parameter schema. The returned value must be
// JSON serializable.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Tool pairs a definition with its handler.
type Tool struct {
	Definition

	Handler Handler

	// Source names where the tool comes from ("builtin", "mcp:<server>").
	Source string
}

// Typed adapts a handler that takes a decoded argument struct.
func Typed[T any](fn func(ctx context.Context, args T) (any, error)) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args T
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArguments, err)
		}
		return fn(ctx, args)
	}
}

// ObjectSchema is a shorthand for an object schema with the given
// properties and required keys.
func ObjectSchema(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}
