package port

import (
	"context"
	"time"

	"github.com/sfohq/sop-assistant/internal/domain"
	"github.com/sfohq/sop-assistant/internal/index"
)

// Snapshot is one ingested corpus version: the vector index plus its ordered
// chunk metadata. Within a snapshot the index length always equals the
// metadata length; the position in the index is the join key.
type Snapshot struct {
	Version   string
	Model     string
	Index     *index.Flat
	Chunks    []domain.Chunk
	CreatedAt time.Time
}

// SnapshotLocations names where the index artifact and metadata sidecar were
// persisted (file paths or table references).
type SnapshotLocations struct {
	Index    string `json:"index_file"`
	Metadata string `json:"meta_file"`
}

// SnapshotStore persists snapshots. Save publishes atomically: a concurrent
// Load observes either the previous complete snapshot or the new one, never
// a half-written pair. Load returns ErrNotIngested when no complete snapshot
// exists.
type SnapshotStore interface {
	Save(ctx context.Context, snap *Snapshot) (SnapshotLocations, error)
	Load(ctx context.Context) (*Snapshot, error)
}
