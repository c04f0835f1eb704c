package repository

import (
	"context"
	"errors"
	"fmt"
	"github.com/ZertGraf/userboard/internal/domain"
	"github.com/ZertGraf/userboard/internal/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserSnapshotRepo struct {
	db     *pgxpool.Pool
	logger *logger.Logger
}

func NewUserSnapshotRepo(db *pgxpool.Pool, logger *logger.Logger) *UserSnapshotRepo {
	return &UserSnapshotRepo{
		db:     db,
		logger: logger.Component("repository/postgres"),
	}
}

// Save replaces the archived users with users and records the snapshot time.
// The whole replacement runs in one transaction.
func (r *UserSnapshotRepo) Save(ctx context.Context, users []domain.User) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM users`); err != nil {
			return fmt.Errorf("clear users: %w", err)
		}

		rows := make([][]any, 0, len(users))
		for _, u := range users {
			rows = append(rows, []any{u.ID, u.Name, u.Email, u.Phone})
		}
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"users"},
			[]string{"id", "name", "email", "phone"},
			pgx.CopyFromRows(rows),
		); err != nil {
			return fmt.Errorf("insert users: %w", err)
		}

		if _, err := tx.Exec(ctx, `INSERT INTO snapshots (user_count) VALUES ($1)`, len(users)); err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}

		r.logger.Debug("users snapshot saved", "count", len(users))
		return nil
	})
}

func (r *UserSnapshotRepo) Latest(ctx context.Context) (*domain.Snapshot, error) {
	var snapshot domain.Snapshot
	err := r.db.QueryRow(ctx, `
		SELECT fetched_at
		FROM snapshots
		ORDER BY fetched_at DESC, id DESC
		LIMIT 1
	`).Scan(&snapshot.FetchedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, name, email, phone
		FROM users
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	snapshot.Users = []domain.User{}
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.Phone); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		snapshot.Users = append(snapshot.Users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return &snapshot, nil
}

func (r *UserSnapshotRepo) withTx(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				r.logger.Error("failed to rollback transaction",
					"error", rbErr,
					"original_error", err,
				)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
