// Package transport defines the handler interface and middleware chain
// between the HTTP adapter and the chat engine.
//
// # Handler Interface
//
// ChatStreamer opens a chat stream for a request and returns its output as
// a lazy sequence of strings in the selected protocol. The engine
// implements it; the HTTP adapter in transport/http consumes it and writes
// every string to the client as soon as it is produced.
//
// # Middleware
//
// The middleware chain wraps ChatStreamer with cross-cutting concerns.
// Built-in middleware provides panic recovery (for both the open call and
// the iteration), request ID assignment and structured logging via
// log/slog. Because a stream is consumed after the handler returns,
// middleware that needs to observe the end of a stream wraps the returned
// sequence.
//
// # Errors
//
// Errors are converted to api.APIError with AsAPIError and written as
// {"error":{...}} with the status from HTTPStatusFromError.
package transport
