package llm

import "context"

// Provider is a chat completion backend
type Provider interface {
	Name() string
	Generate(ctx context.Context, systemPrompt, prompt string) (string, error)
	Ping(ctx context.Context) error
}
