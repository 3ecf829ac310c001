// Package openai implements provider.Provider on top of the OpenAI Chat
// Completions streaming API, using github.com/sashabaranov/go-openai.
// A configurable base URL allows any compatible server, including the
// chatrelay mock backend, to stand in for the OpenAI API.
package openai
