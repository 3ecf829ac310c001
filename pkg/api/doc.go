// Package api defines the client-facing types of the chatrelay service.
//
// It covers the chat request body sent by the client (messages, attachments
// and previously resolved tool invocations), the stream protocol selector,
// request validation and the structured error type returned on failures.
//
// Core types:
//   - [ChatRequest]: POST /api/chat request body
//   - [ClientMessage]: one conversation turn as seen by the client
//   - [Protocol]: output framing selector ("text" or "data")
//   - [APIError]: structured error with type, code, param, and message
//
// The package performs no I/O.
package api
