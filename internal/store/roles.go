package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// InsertRole persists one inferred role at its sampler position.
func (s *Store) InsertRole(ctx context.Context, analysisID uuid.UUID, position int) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO roles (id, analysis_id, position)
		VALUES ($1, $2, $3)`,
		id, analysisID, position,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert role: %w", err)
	}
	return id, nil
}

// InsertActionWeights persists a role's per-action-type probability vector.
// weights is indexed by the dense action-type index.
func (s *Store) InsertActionWeights(ctx context.Context, roleID uuid.UUID, weights []float64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for typeID, w := range weights {
		_, err := tx.Exec(ctx, `
			INSERT INTO action_weights (role_id, type_id, weight)
			VALUES ($1, $2, $3)`,
			roleID, typeID, w,
		)
		if err != nil {
			return fmt.Errorf("insert action weight: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// UpsertRoleProportion records how much of a user's activity the sampler
// attributes to a role.
func (s *Store) UpsertRoleProportion(ctx context.Context, analysisID uuid.UUID, uid string, roleID uuid.UUID, weight float64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO role_proportions (analysis_id, uid, role_id, weight)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (analysis_id, uid, role_id)
		DO UPDATE SET weight = $4`,
		analysisID, uid, roleID, weight,
	)
	if err != nil {
		return fmt.Errorf("upsert role proportion: %w", err)
	}
	return nil
}
