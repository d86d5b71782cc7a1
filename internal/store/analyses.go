package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Analysis struct {
	ID                  uuid.UUID
	CrawlID             uuid.UUID
	SessionGap          float64 // hours
	RoleCount           int
	MaxIterations       int
	ProportionSmoothing float64
	RoleSmoothing       float64
	Finished            bool
	TaskID              uuid.UUID
}

// CreateAnalysis inserts a new unfinished analysis for a crawl.
func (s *Store) CreateAnalysis(ctx context.Context, a *Analysis) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO analyses (id, crawl_id, session_gap, role_count, max_iterations,
			proportion_smoothing, role_smoothing, finished, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, now())`,
		id, a.CrawlID, a.SessionGap, a.RoleCount, a.MaxIterations,
		a.ProportionSmoothing, a.RoleSmoothing,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert analysis: %w", err)
	}
	return id, nil
}

func (s *Store) AnalysisByID(ctx context.Context, id uuid.UUID) (*Analysis, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, crawl_id, session_gap, role_count, max_iterations,
			proportion_smoothing, role_smoothing, finished,
			COALESCE(task_id, '00000000-0000-0000-0000-000000000000')
		FROM analyses
		WHERE id = $1`,
		id,
	)

	var a Analysis
	err := row.Scan(&a.ID, &a.CrawlID, &a.SessionGap, &a.RoleCount, &a.MaxIterations,
		&a.ProportionSmoothing, &a.RoleSmoothing, &a.Finished, &a.TaskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select analysis: %w", err)
	}
	return &a, nil
}

// SetAnalysisTask records the background task handle driving an analysis.
func (s *Store) SetAnalysisTask(ctx context.Context, analysisID, taskID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE analyses SET task_id = $1 WHERE id = $2`, taskID, analysisID)
	if err != nil {
		return fmt.Errorf("set analysis task: %w", err)
	}
	return nil
}

func (s *Store) FinishAnalysis(ctx context.Context, analysisID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE analyses SET finished = true WHERE id = $1`, analysisID)
	if err != nil {
		return fmt.Errorf("finish analysis: %w", err)
	}
	return nil
}
