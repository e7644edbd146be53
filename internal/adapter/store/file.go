package store

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sfohq/sop-assistant/internal/domain"
	"github.com/sfohq/sop-assistant/internal/index"
	"github.com/sfohq/sop-assistant/internal/port"
)

const manifestName = "manifest.json"

// manifest commits a snapshot. It is written last, via rename, so a reader
// either sees the previous complete snapshot or the new one, never a torn
// index/metadata pair.
type manifest struct {
	Version    string    `json:"version"`
	Model      string    `json:"model"`
	Dimension  int       `json:"dimension"`
	EntryCount int       `json:"entry_count"`
	IndexFile  string    `json:"index_file"`
	MetaFile   string    `json:"meta_file"`
	CreatedAt  time.Time `json:"created_at"`
}

// FileStore persists snapshots as a gob index artifact plus a JSON metadata
// sidecar under a single directory, committed by a manifest rename.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir. The directory is created on
// first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Save writes the index and metadata under version-unique names, then
// publishes them by renaming the manifest into place. Files referenced by
// the previous manifest are removed best-effort afterwards.
func (s *FileStore) Save(_ context.Context, snap *port.Snapshot) (port.SnapshotLocations, error) {
	var locs port.SnapshotLocations
	if snap.Index.Len() != len(snap.Chunks) {
		return locs, fmt.Errorf("index holds %d vectors but metadata lists %d chunks", snap.Index.Len(), len(snap.Chunks))
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return locs, fmt.Errorf("create store dir: %w", err)
	}

	prev, _ := s.readManifest()

	indexFile := fmt.Sprintf("sops-%s.index", snap.Version)
	metaFile := fmt.Sprintf("sops-%s.meta.json", snap.Version)

	if err := s.writeIndex(indexFile, snap.Index); err != nil {
		return locs, err
	}
	if err := s.writeMeta(metaFile, snap.Chunks); err != nil {
		return locs, err
	}

	m := manifest{
		Version:    snap.Version,
		Model:      snap.Model,
		Dimension:  snap.Index.Dimension,
		EntryCount: snap.Index.Len(),
		IndexFile:  indexFile,
		MetaFile:   metaFile,
		CreatedAt:  snap.CreatedAt,
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return locs, fmt.Errorf("encode manifest: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(s.dir, manifestName), data); err != nil {
		return locs, fmt.Errorf("publish manifest: %w", err)
	}

	// The new snapshot is live; the old artifacts are unreachable now.
	if prev != nil && prev.Version != snap.Version {
		_ = os.Remove(filepath.Join(s.dir, prev.IndexFile))
		_ = os.Remove(filepath.Join(s.dir, prev.MetaFile))
	}

	locs.Index = filepath.Join(s.dir, indexFile)
	locs.Metadata = filepath.Join(s.dir, metaFile)
	return locs, nil
}

// Load reads the manifest and the pair of artifacts it references. Any
// missing or inconsistent piece surfaces as ErrNotIngested rather than a
// crash or a silent empty result.
func (s *FileStore) Load(_ context.Context) (*port.Snapshot, error) {
	m, err := s.readManifest()
	if err != nil {
		return nil, err
	}

	idx := &index.Flat{}
	f, err := os.Open(filepath.Join(s.dir, m.IndexFile))
	if err != nil {
		return nil, fmt.Errorf("%w: index artifact unreadable: %v", port.ErrNotIngested, err)
	}
	defer f.Close()
	if err := gob.NewDecoder(f).Decode(idx); err != nil {
		return nil, fmt.Errorf("%w: index artifact corrupt: %v", port.ErrNotIngested, err)
	}

	metaData, err := os.ReadFile(filepath.Join(s.dir, m.MetaFile))
	if err != nil {
		return nil, fmt.Errorf("%w: metadata sidecar unreadable: %v", port.ErrNotIngested, err)
	}
	var chunks []domain.Chunk
	if err := json.Unmarshal(metaData, &chunks); err != nil {
		return nil, fmt.Errorf("%w: metadata sidecar corrupt: %v", port.ErrNotIngested, err)
	}

	if idx.Len() != m.EntryCount || len(chunks) != m.EntryCount {
		return nil, fmt.Errorf("%w: snapshot inconsistent: manifest lists %d entries, index has %d, metadata has %d",
			port.ErrNotIngested, m.EntryCount, idx.Len(), len(chunks))
	}

	return &port.Snapshot{
		Version:   m.Version,
		Model:     m.Model,
		Index:     idx,
		Chunks:    chunks,
		CreatedAt: m.CreatedAt,
	}, nil
}

func (s *FileStore) readManifest() (*manifest, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, manifestName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, port.ErrNotIngested
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: manifest corrupt: %v", port.ErrNotIngested, err)
	}
	return &m, nil
}

func (s *FileStore) writeIndex(name string, idx *index.Flat) error {
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("write index artifact: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := gob.NewEncoder(tmp).Encode(idx); err != nil {
		tmp.Close()
		return fmt.Errorf("encode index artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write index artifact: %w", err)
	}
	return os.Rename(tmp.Name(), filepath.Join(s.dir, name))
}

func (s *FileStore) writeMeta(name string, chunks []domain.Chunk) error {
	data, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata sidecar: %w", err)
	}
	return writeFileAtomic(filepath.Join(s.dir, name), data)
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
