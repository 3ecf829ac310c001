// Package provider defines the boundary between chatrelay and the upstream
// completion API. A Provider opens a streaming completion and returns a
// ChunkSource, an ordered pull iterator of Chunks. Each Choice inside a
// chunk is classified into exactly one ChoiceKind so consumers can switch
// over it exhaustively without inspecting optional fields.
package provider
