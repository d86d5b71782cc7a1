package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// InsertSession persists one session and its action memberships in a
// single transaction.
func (s *Store) InsertSession(ctx context.Context, analysisID uuid.UUID, uid string, actionIDs []uuid.UUID) (uuid.UUID, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	id := uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO sessions (id, analysis_id, uid)
		VALUES ($1, $2, $3)`,
		id, analysisID, uid,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert session: %w", err)
	}

	for _, actionID := range actionIDs {
		_, err := tx.Exec(ctx, `
			INSERT INTO session_actions (session_id, action_id)
			VALUES ($1, $2)`,
			id, actionID,
		)
		if err != nil {
			return uuid.Nil, fmt.Errorf("insert session action: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// AssignSessionRole records the sampler's role assignment for a session.
// This is the only mutation a session ever receives.
func (s *Store) AssignSessionRole(ctx context.Context, sessionID, roleID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE sessions SET role_id = $1 WHERE id = $2`, roleID, sessionID)
	if err != nil {
		return fmt.Errorf("assign session role: %w", err)
	}
	return nil
}

// CountSessionsByAnalysis returns how many sessions an analysis produced.
func (s *Store) CountSessionsByAnalysis(ctx context.Context, analysisID uuid.UUID) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM sessions WHERE analysis_id = $1`, analysisID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}
