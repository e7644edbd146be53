package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sfohq/sop-assistant/internal/domain"
	"github.com/sfohq/sop-assistant/internal/index"
	"github.com/sfohq/sop-assistant/internal/port"
)

// PostgresStore persists snapshots in a single table. Publishing happens in
// one transaction that replaces the previous row, so a concurrent Load sees
// either the old snapshot or the new one.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects and ensures the snapshot table exists.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &PostgresStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sop_snapshots (
			version     TEXT PRIMARY KEY,
			model       TEXT NOT NULL,
			dimension   INT NOT NULL,
			entry_count INT NOT NULL,
			index_data  BYTEA NOT NULL,
			meta_data   JSONB NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("migrate sop_snapshots: %w", err)
	}
	return nil
}

// Save replaces the stored snapshot in a single transaction.
func (s *PostgresStore) Save(ctx context.Context, snap *port.Snapshot) (port.SnapshotLocations, error) {
	var locs port.SnapshotLocations
	if snap.Index.Len() != len(snap.Chunks) {
		return locs, fmt.Errorf("index holds %d vectors but metadata lists %d chunks", snap.Index.Len(), len(snap.Chunks))
	}

	var indexData bytes.Buffer
	if err := gob.NewEncoder(&indexData).Encode(snap.Index); err != nil {
		return locs, fmt.Errorf("encode index artifact: %w", err)
	}
	metaData, err := json.Marshal(snap.Chunks)
	if err != nil {
		return locs, fmt.Errorf("encode metadata sidecar: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return locs, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sop_snapshots`); err != nil {
		return locs, fmt.Errorf("drop previous snapshot: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sop_snapshots (version, model, dimension, entry_count, index_data, meta_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		snap.Version, snap.Model, snap.Index.Dimension, snap.Index.Len(),
		indexData.Bytes(), metaData, snap.CreatedAt,
	)
	if err != nil {
		return locs, fmt.Errorf("insert snapshot: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return locs, fmt.Errorf("commit snapshot: %w", err)
	}

	locs.Index = "sop_snapshots/" + snap.Version + "/index_data"
	locs.Metadata = "sop_snapshots/" + snap.Version + "/meta_data"
	return locs, nil
}

// Load reads the latest committed snapshot. An empty table is the
// not-ingested condition, not an error of the store itself.
func (s *PostgresStore) Load(ctx context.Context) (*port.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT version, model, entry_count, index_data, meta_data, created_at
		FROM sop_snapshots
		ORDER BY created_at DESC
		LIMIT 1`)

	var (
		version, model string
		entryCount     int
		indexData      []byte
		metaData       []byte
		createdAt      time.Time
	)
	if err := row.Scan(&version, &model, &entryCount, &indexData, &metaData, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, port.ErrNotIngested
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	idx := &index.Flat{}
	if err := gob.NewDecoder(bytes.NewReader(indexData)).Decode(idx); err != nil {
		return nil, fmt.Errorf("%w: index artifact corrupt: %v", port.ErrNotIngested, err)
	}
	var chunks []domain.Chunk
	if err := json.Unmarshal(metaData, &chunks); err != nil {
		return nil, fmt.Errorf("%w: metadata sidecar corrupt: %v", port.ErrNotIngested, err)
	}
	if idx.Len() != entryCount || len(chunks) != entryCount {
		return nil, fmt.Errorf("%w: snapshot inconsistent: row lists %d entries, index has %d, metadata has %d",
			port.ErrNotIngested, entryCount, idx.Len(), len(chunks))
	}

	return &port.Snapshot{
		Version:   version,
		Model:     model,
		Index:     idx,
		Chunks:    chunks,
		CreatedAt: createdAt,
	}, nil
}
