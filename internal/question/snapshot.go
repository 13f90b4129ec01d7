package question

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/maraichr/notebook/internal/mbql"
	minioclient "github.com/maraichr/notebook/internal/store/minio"
)

const snapshotVersion = 1

// Snapshot is the exported form of a question.
type Snapshot struct {
	Version     int          `json:"version"`
	SourceID    uuid.UUID    `json:"source_id"`
	Name        string       `json:"name"`
	Description *string      `json:"description,omitempty"`
	Dataset     mbql.Dataset `json:"dataset_query"`
	ExportedAt  time.Time    `json:"exported_at"`
}

// Export writes the question to object storage and returns the object key.
func (s *Service) Export(ctx context.Context, id uuid.UUID) (string, error) {
	if s.snapshots == nil {
		return "", ErrSnapshotsDisabled
	}
	q, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}

	at := s.now()
	data, err := json.Marshal(Snapshot{
		Version:     snapshotVersion,
		SourceID:    q.ID,
		Name:        q.Name,
		Description: q.Description,
		Dataset:     q.Dataset,
		ExportedAt:  at.UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	key := minioclient.SnapshotKey(q.ID, at)
	if err := s.snapshots.PutSnapshot(ctx, key, data); err != nil {
		return "", err
	}
	return key, nil
}

// Import reads a snapshot and saves it as a new question.
func (s *Service) Import(ctx context.Context, key string) (Question, error) {
	if s.snapshots == nil {
		return Question{}, ErrSnapshotsDisabled
	}
	data, err := s.snapshots.GetSnapshot(ctx, key)
	if err != nil {
		return Question{}, err
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Question{}, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	if snap.Version != snapshotVersion {
		return Question{}, fmt.Errorf("snapshot %s: unsupported version %d", key, snap.Version)
	}
	return s.Create(ctx, snap.Name, snap.Description, snap.Dataset)
}
