package llm

import "context"

// Request is a single-turn structured-output request: a system prompt, a
// user prompt, and a JSON schema the model is asked to conform to.
type Request struct {
	System    string
	Prompt    string
	Schema    map[string]any // JSON Schema for the expected reply
	MaxTokens int
}

type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}
