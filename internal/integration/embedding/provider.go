package embedding

import "context"

// Provider is one remote (or fake) embedding backend.
// Embed returns one vector per text in input order.
type Provider interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Ping(ctx context.Context) error
}
