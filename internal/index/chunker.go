package index

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/sfohq/sop-assistant/internal/domain"
)

// Token counts govern chunk boundaries, so the tokenization must be
// reproducible across runs. The offline loader keeps the BPE ranks embedded
// instead of fetching them at startup.
const encodingName = "cl100k_base"

// Chunker splits a document into overlapping token-bounded windows.
type Chunker struct {
	maxTokens     int
	overlapTokens int
	enc           *tiktoken.Tiktoken
}

// NewChunker validates the window configuration up front: an overlap at or
// above the window size would make the stride non-positive and loop forever.
func NewChunker(maxTokens, overlapTokens int) (*Chunker, error) {
	if maxTokens <= 0 {
		return nil, fmt.Errorf("%w: max_tokens must be positive, got %d", domain.ErrInvalidConfig, maxTokens)
	}
	if overlapTokens < 0 || overlapTokens >= maxTokens {
		return nil, fmt.Errorf("%w: overlap_tokens must be in [0, max_tokens), got %d", domain.ErrInvalidConfig, overlapTokens)
	}
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("load %s encoding: %w", encodingName, err)
	}
	return &Chunker{maxTokens: maxTokens, overlapTokens: overlapTokens, enc: enc}, nil
}

// Chunk slides a window of maxTokens tokens across the document with stride
// maxTokens-overlapTokens and decodes each window back to text. A document
// shorter than one window yields exactly one chunk.
func (c *Chunker) Chunk(sourceName, text string) ([]domain.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("document %q is empty", sourceName)
	}
	tokens := c.enc.Encode(text, nil, nil)
	stride := c.maxTokens - c.overlapTokens

	var chunks []domain.Chunk
	for i := 0; i < len(tokens); i += stride {
		end := min(i+c.maxTokens, len(tokens))
		seq := len(chunks)
		chunks = append(chunks, domain.Chunk{
			ID:            fmt.Sprintf("%s_%d", slugify(sourceName), seq),
			SourceName:    sourceName,
			SequenceIndex: seq,
			Text:          c.enc.Decode(tokens[i:end]),
		})
	}
	return chunks, nil
}

func slugify(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}
