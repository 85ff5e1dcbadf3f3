package database

import (
	"context"

	"github.com/ZanzyTHEbar/similar-dev-search/internal/activity"
	"github.com/ZanzyTHEbar/similar-dev-search/internal/monitoring"
	"github.com/ZanzyTHEbar/similar-dev-search/internal/privacy"
	"github.com/ZanzyTHEbar/similar-dev-search/internal/similarity"
)

// LatestSnapshotID selects the most recently stored snapshot
const LatestSnapshotID = "latest"

// SnapshotService stores activity documents and ranks against them
type SnapshotService struct {
	repo       *Repository
	logger     *monitoring.Logger
	anonymizer *privacy.Anonymizer
}

// NewSnapshotService creates a new snapshot service
func NewSnapshotService(repo *Repository, logger *monitoring.Logger) *SnapshotService {
	return &SnapshotService{repo: repo, logger: logger}
}

// WithAnonymizer makes Store record hashed source addresses
func (s *SnapshotService) WithAnonymizer(a *privacy.Anonymizer) *SnapshotService {
	s.anonymizer = a
	return s
}

// Store validates an activity document and persists it
func (s *SnapshotService) Store(ctx context.Context, document []byte, sourceIP string) (*Snapshot, error) {
	act, err := activity.Decode(document)
	if err != nil {
		return nil, err
	}

	if s.anonymizer != nil {
		sourceIP = s.anonymizer.AnonymizeData(sourceIP)
	}

	snapshot := NewSnapshot(document, len(act), sourceIP)
	if err := s.repo.SaveSnapshot(ctx, snapshot); err != nil {
		s.logger.StoreLogger("save", snapshot.ID, 0, err)
		return nil, err
	}

	s.logger.StoreLogger("save", snapshot.ID, snapshot.Developers, nil)
	return snapshot, nil
}

// Load fetches a snapshot by ID, or the newest one for LatestSnapshotID
func (s *SnapshotService) Load(ctx context.Context, id string) (*Snapshot, error) {
	var (
		snapshot *Snapshot
		err      error
	)
	if id == LatestSnapshotID || id == "" {
		snapshot, err = s.repo.LatestSnapshot(ctx)
	} else {
		snapshot, err = s.repo.GetSnapshot(ctx, id)
	}
	if err != nil {
		s.logger.StoreLogger("load", id, 0, err)
		return nil, err
	}
	return snapshot, nil
}

// Rank finds the developers most similar to query within a stored snapshot
func (s *SnapshotService) Rank(ctx context.Context, id, query string) (similarity.Result, *Snapshot, error) {
	snapshot, err := s.Load(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	act, err := snapshot.Activity()
	if err != nil {
		return nil, snapshot, err
	}

	result, err := similarity.FindSimilarDevelopers(query, act)
	if err != nil {
		return nil, snapshot, err
	}
	return result, snapshot, nil
}

// List returns recent snapshot metadata
func (s *SnapshotService) List(ctx context.Context, limit int) ([]Snapshot, error) {
	return s.repo.ListSnapshots(ctx, limit)
}

// Delete removes a stored snapshot
func (s *SnapshotService) Delete(ctx context.Context, id string) error {
	err := s.repo.DeleteSnapshot(ctx, id)
	s.logger.StoreLogger("delete", id, 0, err)
	return err
}

// Count returns the number of stored snapshots
func (s *SnapshotService) Count(ctx context.Context) (int, error) {
	return s.repo.CountSnapshots(ctx)
}
