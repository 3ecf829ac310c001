// Package stream translates a provider.ChunkSource into the output wire
// formats served to chat clients.
//
// Text mode yields raw content fragments. Data mode yields newline
// terminated frames:
//
//	0:"text delta"
//	9:{"toolCallId":"call_1","toolName":"get_current_weather","args":{...}}
//	a:{"toolCallId":"call_1","toolName":"get_current_weather","args":{...},"result":...}
//	d:{"finishReason":"stop","usage":{"promptTokens":10,"completionTokens":3}}
//
// Both translators are lazy iter.Seq2 sequences: a chunk is pulled from the
// source only when the consumer asks for the next element, and tool calls
// run synchronously inside the iteration. All translation state is local to
// one call.
package stream
