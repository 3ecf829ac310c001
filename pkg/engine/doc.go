// Package engine wires a chat request through the completion provider and
// the stream translators. It builds the provider request, opens the
// upstream stream and hands back a lazy sequence of output strings in the
// selected protocol. Tool calls in data mode are executed through the tool
// registry.
package engine
