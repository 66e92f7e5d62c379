// Package snapshot pkg/snapshot/memory_store.go
package snapshot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/carverauto/downtimeradar/pkg/models"
)

// MemoryStore implements Store without persistence, for tests and demo runs.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[int]*models.WeeklySnapshot
	now       func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[int]*models.WeeklySnapshot),
		now:       time.Now,
	}
}

func (s *MemoryStore) Save(_ context.Context, snap *models.WeeklySnapshot) (bool, error) {
	if err := validate(snap); err != nil {
		return false, err
	}

	if len(snap.Events) == 0 {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[snap.Week] = prepare(snap, s.now)

	return true, nil
}

func (s *MemoryStore) Get(_ context.Context, week int) (*models.WeeklySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[week]
	if !ok {
		return nil, fmt.Errorf("%w: week %d", ErrSnapshotNotFound, week)
	}

	return snap.Clone(), nil
}

func (s *MemoryStore) LoadRecent(_ context.Context, maxCount int) (*models.SnapshotSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	weeks := make([]int, 0, len(s.snapshots))
	for w := range s.snapshots {
		weeks = append(weeks, w)
	}

	set := &models.SnapshotSet{Snapshots: []models.WeeklySnapshot{}}
	for _, w := range recentWeeks(weeks, maxCount) {
		set.Snapshots = append(set.Snapshots, *s.snapshots[w].Clone())
	}

	return set, nil
}

func (s *MemoryStore) ClearAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots = make(map[int]*models.WeeklySnapshot)

	return nil
}

func (*MemoryStore) Close() error {
	return nil
}
