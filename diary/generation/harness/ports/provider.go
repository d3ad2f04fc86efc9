package harnessports

import (
	"context"
)

// PromptMessage represents a single chat message sent to the provider.
type PromptMessage struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// PromptInput aggregates everything the provider needs to produce a completion.
type PromptInput struct {
	System   string            // fixed diary template instructions
	Messages []PromptMessage   // the wrapped user summary
	Meta     map[string]string // lightweight metadata for tracing
}

// Options controls sampling, limits and the credential for one call.
type Options struct {
	Model        string
	MaxNewTokens int
	Temperature  float32
	// Credentials is the caller's API key. Providers must not log it.
	Credentials string
}

// Usage captures token accounting for telemetry.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completion is the provider's non-streaming response.
type Completion struct {
	Text  string
	Usage *Usage // optional usage information
}

// Provider is the capability behind every text-generation backend.
// Complete performs exactly one attempt; deadlines come from ctx.
type Provider interface {
	Complete(ctx context.Context, in PromptInput, opts Options) (Completion, error)
}
