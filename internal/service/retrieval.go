package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sfohq/sop-assistant/internal/domain"
	"github.com/sfohq/sop-assistant/internal/port"
)

// RetrievalService embeds a query and searches the current snapshot,
// joining index positions back to chunk metadata.
type RetrievalService struct {
	store    port.SnapshotStore
	embedder *Embedder
}

// NewRetrievalService creates a retrieval service over the given snapshot
// store.
func NewRetrievalService(store port.SnapshotStore, embedder *Embedder) *RetrievalService {
	return &RetrievalService{store: store, embedder: embedder}
}

// Search returns the topK nearest chunks for the query, best first. It fails
// with ErrNotIngested when no snapshot has been published yet; a topK larger
// than the corpus degrades to all available matches.
func (s *RetrievalService) Search(ctx context.Context, query string, topK int) (domain.RetrievalResult, error) {
	var result domain.RetrievalResult
	if topK <= 0 {
		return result, fmt.Errorf("top_k must be positive, got %d", topK)
	}

	snap, err := s.store.Load(ctx)
	if err != nil {
		return result, err
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return result, fmt.Errorf("embed query: %w", err)
	}

	hits, err := snap.Index.Search(vectors[0], topK)
	if err != nil {
		return result, fmt.Errorf("search index: %w", err)
	}

	matches := make([]domain.Match, 0, len(hits))
	for _, h := range hits {
		if h.Position < 0 {
			continue // unfilled slot, index smaller than topK
		}
		ch := snap.Chunks[h.Position]
		matches = append(matches, domain.Match{
			SourceName:    ch.SourceName,
			SequenceIndex: ch.SequenceIndex,
			Score:         h.Score,
			Text:          ch.Text,
		})
	}

	slog.Info("sop search", "top_k", topK, "matches", len(matches), "snapshot", snap.Version)
	return domain.RetrievalResult{Query: query, TopK: topK, Matches: matches}, nil
}
