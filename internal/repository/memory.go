package repository

import (
	"context"
	"github.com/ZertGraf/userboard/internal/domain"
	"sync"
	"time"
)

// MemorySnapshotRepo keeps the latest snapshot in process memory.
type MemorySnapshotRepo struct {
	mu       sync.RWMutex
	snapshot *domain.Snapshot
	now      func() time.Time
}

func NewMemorySnapshotRepo() *MemorySnapshotRepo {
	return &MemorySnapshotRepo{now: time.Now}
}

func (r *MemorySnapshotRepo) Save(_ context.Context, users []domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.snapshot = &domain.Snapshot{
		Users:     append([]domain.User{}, users...),
		FetchedAt: r.now().UTC(),
	}
	return nil
}

func (r *MemorySnapshotRepo) Latest(_ context.Context) (*domain.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.snapshot == nil {
		return nil, domain.ErrSnapshotNotFound
	}
	out := *r.snapshot
	out.Users = append([]domain.User{}, r.snapshot.Users...)
	return &out, nil
}
