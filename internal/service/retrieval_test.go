package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfohq/sop-assistant/internal/index"
	"github.com/sfohq/sop-assistant/internal/port"
)

// ingestFixture builds the full pipeline over an in-memory store and ingests
// the given document.
func ingestFixture(t *testing.T, doc string) (*fakeProvider, *memStore, *RetrievalService) {
	t.Helper()

	provider := &fakeProvider{}
	store := &memStore{}
	embedder := NewEmbedder(provider, 16, 5, time.Millisecond, time.Second)

	chunker, err := index.NewChunker(50, 10)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "expenses_sop.txt")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	ingest := NewIngestService(chunker, embedder, store, "memory", "fake-embed-model", "SFO EXPENSES SOP")
	report, err := ingest.Ingest(context.Background(), path)
	require.NoError(t, err)
	require.Greater(t, report.Chunks, 0)

	return provider, store, NewRetrievalService(store, embedder)
}

func TestRetrieval_NotIngested(t *testing.T) {
	provider := &fakeProvider{}
	embedder := NewEmbedder(provider, 16, 5, time.Millisecond, time.Second)
	retrieval := NewRetrievalService(&memStore{}, embedder)

	_, err := retrieval.Search(context.Background(), "which card?", 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, port.ErrNotIngested), "retrieval before ingestion must be a distinct error, not an empty result")
}

func TestRetrieval_RoundTripTopMatch(t *testing.T) {
	_, store, retrieval := ingestFixture(t, "Use only the SFO card for purchases. All invoices go to the shared drive. Personal cards are never allowed for company items.")

	snap, err := store.Load(context.Background())
	require.NoError(t, err)

	result, err := retrieval.Search(context.Background(), snap.Chunks[0].Text, 4)
	require.NoError(t, err)
	require.NotEmpty(t, result.Matches)

	assert.Equal(t, 0, result.Matches[0].SequenceIndex)
	assert.InDelta(t, 1.0, float64(result.Matches[0].Score), 1e-3)
}

func TestRetrieval_TopKLargerThanCorpusDegradesGracefully(t *testing.T) {
	_, store, retrieval := ingestFixture(t, "Use only the SFO card for purchases.")

	snap, err := store.Load(context.Background())
	require.NoError(t, err)

	result, err := retrieval.Search(context.Background(), "card", 10)
	require.NoError(t, err)
	assert.Len(t, result.Matches, len(snap.Chunks), "sentinel slots must be dropped, not surfaced")
}

func TestRetrieval_OrderedByDescendingScore(t *testing.T) {
	_, _, retrieval := ingestFixture(t, longRetrievalDoc())

	result, err := retrieval.Search(context.Background(), "tax invoice upload", 4)
	require.NoError(t, err)
	require.Greater(t, len(result.Matches), 1)

	for i := 1; i < len(result.Matches); i++ {
		assert.GreaterOrEqual(t, result.Matches[i-1].Score, result.Matches[i].Score)
	}
}

func TestRetrieval_RejectsNonPositiveTopK(t *testing.T) {
	_, _, retrieval := ingestFixture(t, "Use only the SFO card for purchases.")

	_, err := retrieval.Search(context.Background(), "card", 0)
	require.Error(t, err)
}

func TestReingest_ReplacesSnapshot(t *testing.T) {
	provider := &fakeProvider{}
	store := &memStore{}
	embedder := NewEmbedder(provider, 16, 5, time.Millisecond, time.Second)
	chunker, err := index.NewChunker(50, 10)
	require.NoError(t, err)
	ingest := NewIngestService(chunker, embedder, store, "memory", "fake-embed-model", "SFO EXPENSES SOP")

	dir := t.TempDir()
	path := filepath.Join(dir, "sop.txt")

	require.NoError(t, os.WriteFile(path, []byte("Old policy text."), 0o644))
	_, err = ingest.Ingest(context.Background(), path)
	require.NoError(t, err)
	first, err := store.Load(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("New policy text with entirely different rules."), 0o644))
	_, err = ingest.Ingest(context.Background(), path)
	require.NoError(t, err)
	second, err := store.Load(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.Version, second.Version)
	assert.Equal(t, second.Index.Len(), len(second.Chunks))
	assert.Contains(t, second.Chunks[0].Text, "New policy")
}

func TestIngest_RejectsMissingOrEmptySource(t *testing.T) {
	provider := &fakeProvider{}
	embedder := NewEmbedder(provider, 16, 5, time.Millisecond, time.Second)
	chunker, err := index.NewChunker(50, 10)
	require.NoError(t, err)
	ingest := NewIngestService(chunker, embedder, &memStore{}, "memory", "fake-embed-model", "SFO EXPENSES SOP")

	t.Run("missing file", func(t *testing.T) {
		_, err := ingest.Ingest(context.Background(), filepath.Join(t.TempDir(), "nope.txt"))
		require.Error(t, err)
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.txt")
		require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o644))
		_, err := ingest.Ingest(context.Background(), path)
		require.Error(t, err)
	})
}

func longRetrievalDoc() string {
	return "Every purchase requires a valid tax invoice. " +
		"The tax invoice must show the seller, the buyer and the amount. " +
		"Upload each invoice to the shared purchases drive after payment. " +
		"Subscriptions renew monthly and follow the same invoice upload rule. " +
		"Travel bookings require approval from the chief of staff before payment. " +
		"Hardware purchases above the limit need a second approval step. " +
		"Never mix personal and company items in one order. " +
		"The company card is the only allowed payment method for purchases."
}
