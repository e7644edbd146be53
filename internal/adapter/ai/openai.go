package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sfohq/sop-assistant/internal/port"
)

// Provider implements port.AIProvider against the OpenAI API.
type Provider struct {
	client     *openai.Client
	embedModel string
	chatModel  string
}

// NewProvider creates an OpenAI-backed provider. A missing API key is a
// configuration error, surfaced before any request is made.
func NewProvider(apiKey, embedModel, chatModel string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is missing", port.ErrInvalidConfig)
	}
	return &Provider{
		client:     openai.NewClient(apiKey),
		embedModel: embedModel,
		chatModel:  chatModel,
	}, nil
}

// ModelName returns the generation model identifier.
func (p *Provider) ModelName() string { return p.chatModel }

// EmbedBatch embeds all texts in a single request. The response is placed by
// the provider-reported index so vector i always corresponds to text i.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.embedModel),
		Input: texts,
	})
	if err != nil {
		return nil, classify("embeddings", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", port.ErrProvider, len(resp.Data), len(texts))
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", port.ErrProvider, d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// Generate asks the chat model for a JSON object. Temperature is kept low
// because the output drives compliance actions.
func (p *Provider) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.chatModel,
		Temperature: 0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", classify("chat", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: chat returned no choices", port.ErrProvider)
	}
	return resp.Choices[0].Message.Content, nil
}

// classify maps SDK errors onto the port error kinds using the HTTP status
// code reported by the SDK, never the error text.
func classify(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", port.ErrTimeout, op, err)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s: %v", port.ErrRateLimited, op, err)
	}
	return fmt.Errorf("%w: %s: %v", port.ErrProvider, op, err)
}
