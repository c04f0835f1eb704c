package repository

import (
	"context"
	"github.com/ZertGraf/userboard/internal/domain"
)

// SnapshotRepository archives the last successfully fetched user set.
type SnapshotRepository interface {
	Save(ctx context.Context, users []domain.User) error
	Latest(ctx context.Context) (*domain.Snapshot, error)
}
