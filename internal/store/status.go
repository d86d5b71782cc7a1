package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TaskStatus is the persisted progress slot for one phase of a running
// background task, queryable by (task id, scope).
type TaskStatus struct {
	TaskID        uuid.UUID
	Scope         string
	Progress      float64 // 0-100
	LogLikelihood *float64
}

// UpsertTaskStatus writes the latest progress for one task phase.
func (s *Store) UpsertTaskStatus(ctx context.Context, taskID uuid.UUID, scope string, progress float64, loglik *float64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO task_status (task_id, scope, progress, loglik, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (task_id, scope)
		DO UPDATE SET progress = $3, loglik = $4, updated_at = now()`,
		taskID, scope, progress, loglik,
	)
	if err != nil {
		return fmt.Errorf("upsert task status: %w", err)
	}
	return nil
}

// TaskStatusByScope fetches the progress slot for one phase of a task.
func (s *Store) TaskStatusByScope(ctx context.Context, taskID uuid.UUID, scope string) (*TaskStatus, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT task_id, scope, progress, loglik
		FROM task_status
		WHERE task_id = $1 AND scope = $2`,
		taskID, scope,
	)

	var st TaskStatus
	if err := row.Scan(&st.TaskID, &st.Scope, &st.Progress, &st.LogLikelihood); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select task status: %w", err)
	}
	return &st, nil
}
