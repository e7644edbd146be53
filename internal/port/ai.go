package port

import "context"

// AIProvider abstracts the embedding and generation backend. Implementations
// classify failures onto the sentinel error kinds (ErrRateLimited,
// ErrProvider, ErrTimeout) so callers never inspect error text.
type AIProvider interface {
	// ModelName returns the identifier of the generation model in use.
	ModelName() string

	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Generate sends a system instruction plus a user message and returns a
	// single text payload expected to parse as a JSON object.
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
