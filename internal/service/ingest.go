package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sfohq/sop-assistant/internal/index"
	"github.com/sfohq/sop-assistant/internal/port"
)

// IngestReport summarizes a completed ingestion.
type IngestReport struct {
	Chunks    int    `json:"chunks"`
	Store     string `json:"store"`
	IndexFile string `json:"index_file"`
	MetaFile  string `json:"meta_file"`
}

// IngestService builds a fresh snapshot from the SOP source document:
// chunk, embed, index, then publish atomically through the snapshot store.
// Re-ingestion fully replaces the previous snapshot.
type IngestService struct {
	chunker    *index.Chunker
	embedder   *Embedder
	store      port.SnapshotStore
	storeName  string
	embedModel string
	sourceName string
}

// NewIngestService creates an ingestion pipeline. sourceName is the
// human-readable document name recorded on every chunk; storeName labels the
// backend in reports.
func NewIngestService(chunker *index.Chunker, embedder *Embedder, store port.SnapshotStore, storeName, embedModel, sourceName string) *IngestService {
	return &IngestService{
		chunker:    chunker,
		embedder:   embedder,
		store:      store,
		storeName:  storeName,
		embedModel: embedModel,
		sourceName: sourceName,
	}
}

// Ingest reads the document at sourcePath and publishes a new snapshot.
func (s *IngestService) Ingest(ctx context.Context, sourcePath string) (*IngestReport, error) {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("SOP file not found at %s: %w", sourcePath, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, fmt.Errorf("SOP file at %s is empty", sourcePath)
	}

	chunks, err := s.chunker.Chunk(s.sourceName, text)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}

	idx := index.NewFlat(len(vectors[0]))
	if err := idx.Add(vectors); err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	snap := &port.Snapshot{
		Version:   strconv.FormatInt(time.Now().UnixNano(), 10),
		Model:     s.embedModel,
		Index:     idx,
		Chunks:    chunks,
		CreatedAt: time.Now().UTC(),
	}
	locs, err := s.store.Save(ctx, snap)
	if err != nil {
		return nil, fmt.Errorf("publish snapshot: %w", err)
	}

	slog.Info("sop ingested", "chunks", len(chunks), "dimension", idx.Dimension, "snapshot", snap.Version)
	return &IngestReport{
		Chunks:    len(chunks),
		Store:     s.storeName,
		IndexFile: locs.Index,
		MetaFile:  locs.Metadata,
	}, nil
}
