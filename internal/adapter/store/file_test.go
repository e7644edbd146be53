package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfohq/sop-assistant/internal/domain"
	"github.com/sfohq/sop-assistant/internal/index"
	"github.com/sfohq/sop-assistant/internal/port"
)

func testSnapshot(t *testing.T, version string) *port.Snapshot {
	t.Helper()

	idx := index.NewFlat(3)
	require.NoError(t, idx.Add([][]float32{
		{1, 0, 0},
		{0, 1, 0},
	}))

	return &port.Snapshot{
		Version: version,
		Model:   "text-embedding-3-small",
		Index:   idx,
		Chunks: []domain.Chunk{
			{ID: "sop_0", SourceName: "SFO EXPENSES SOP", SequenceIndex: 0, Text: "Use only the SFO card."},
			{ID: "sop_1", SourceName: "SFO EXPENSES SOP", SequenceIndex: 1, Text: "Upload every invoice."},
		},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestFileStore_SaveLoadRoundTrip(t *testing.T) {
	s := NewFileStore(t.TempDir())
	snap := testSnapshot(t, "v1")

	locs, err := s.Save(context.Background(), snap)
	require.NoError(t, err)
	assert.FileExists(t, locs.Index)
	assert.FileExists(t, locs.Metadata)

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, snap.Version, got.Version)
	assert.Equal(t, snap.Model, got.Model)
	assert.Equal(t, snap.Chunks, got.Chunks)
	assert.Equal(t, snap.Index.Dimension, got.Index.Dimension)
	assert.Equal(t, snap.Index.Vectors, got.Index.Vectors)
	assert.True(t, snap.CreatedAt.Equal(got.CreatedAt))
}

func TestFileStore_LoadBeforeAnySave(t *testing.T) {
	s := NewFileStore(t.TempDir())

	_, err := s.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, port.ErrNotIngested))
}

func TestFileStore_MissingArtifactIsNotIngested(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)

	locs, err := s.Save(context.Background(), testSnapshot(t, "v1"))
	require.NoError(t, err)
	require.NoError(t, os.Remove(locs.Index))

	_, err = s.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, port.ErrNotIngested))
}

func TestFileStore_CorruptManifestIsNotIngested(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)

	_, err := s.Save(context.Background(), testSnapshot(t, "v1"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifestName), []byte("{truncated"), 0o644))

	_, err = s.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, port.ErrNotIngested))
}

func TestFileStore_CorruptIndexArtifactIsNotIngested(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)

	locs, err := s.Save(context.Background(), testSnapshot(t, "v1"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(locs.Index, []byte("not gob"), 0o644))

	_, err = s.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, port.ErrNotIngested))
}

func TestFileStore_ResaveReplacesPreviousVersion(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)

	first, err := s.Save(context.Background(), testSnapshot(t, "v1"))
	require.NoError(t, err)
	second, err := s.Save(context.Background(), testSnapshot(t, "v2"))
	require.NoError(t, err)

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Version)

	assert.NoFileExists(t, first.Index)
	assert.NoFileExists(t, first.Metadata)
	assert.FileExists(t, second.Index)
	assert.FileExists(t, second.Metadata)
}

func TestFileStore_RejectsTornSnapshot(t *testing.T) {
	s := NewFileStore(t.TempDir())
	snap := testSnapshot(t, "v1")
	snap.Chunks = snap.Chunks[:1]

	_, err := s.Save(context.Background(), snap)
	require.Error(t, err)
}
