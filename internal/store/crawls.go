package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Crawl states. A crawl is created running and transitions exactly once.
const (
	CrawlRunning  = "running"
	CrawlFinished = "finished"
	CrawlAborted  = "aborted"
)

type Crawl struct {
	ID        uuid.UUID
	NetworkID string
	State     string
	TaskID    uuid.UUID
}

// ErrNotFound is returned when a looked-up entity does not exist.
var ErrNotFound = errors.New("not found")

// CreateCrawl inserts a new running crawl for a network.
func (s *Store) CreateCrawl(ctx context.Context, networkID string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO crawls (id, network_id, state, created_at)
		VALUES ($1, $2, $3, now())`,
		id, networkID, CrawlRunning,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert crawl: %w", err)
	}
	return id, nil
}

// CrawlByNetwork fetches the single crawl for a network, if any.
func (s *Store) CrawlByNetwork(ctx context.Context, networkID string) (*Crawl, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, network_id, state, COALESCE(task_id, '00000000-0000-0000-0000-000000000000')
		FROM crawls
		WHERE network_id = $1`,
		networkID,
	)

	var c Crawl
	if err := row.Scan(&c.ID, &c.NetworkID, &c.State, &c.TaskID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select crawl: %w", err)
	}
	return &c, nil
}

// SetCrawlTask records the background task handle driving a crawl.
func (s *Store) SetCrawlTask(ctx context.Context, crawlID, taskID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE crawls SET task_id = $1 WHERE id = $2`, taskID, crawlID)
	if err != nil {
		return fmt.Errorf("set crawl task: %w", err)
	}
	return nil
}

// SetCrawlState transitions a crawl to a terminal state.
func (s *Store) SetCrawlState(ctx context.Context, crawlID uuid.UUID, state string) error {
	_, err := s.pool.Exec(ctx, `UPDATE crawls SET state = $1 WHERE id = $2`, state, crawlID)
	if err != nil {
		return fmt.Errorf("set crawl state: %w", err)
	}
	return nil
}

// DeleteCrawlForNetwork removes the network's crawl and everything hanging
// off it. Deletion order is explicit, children before parents: role data
// and sessions under each analysis, then analyses, then the crawl's errors
// and actions, then the crawl row itself. No ORM cascade graph to lean on.
func (s *Store) DeleteCrawlForNetwork(ctx context.Context, networkID string) error {
	crawl, err := s.CrawlByNetwork(ctx, networkID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, q := range []string{
		`DELETE FROM role_proportions WHERE analysis_id IN (SELECT id FROM analyses WHERE crawl_id = $1)`,
		`DELETE FROM action_weights WHERE role_id IN (SELECT id FROM roles WHERE analysis_id IN (SELECT id FROM analyses WHERE crawl_id = $1))`,
		`DELETE FROM session_actions WHERE session_id IN (SELECT id FROM sessions WHERE analysis_id IN (SELECT id FROM analyses WHERE crawl_id = $1))`,
		`DELETE FROM sessions WHERE analysis_id IN (SELECT id FROM analyses WHERE crawl_id = $1)`,
		`DELETE FROM roles WHERE analysis_id IN (SELECT id FROM analyses WHERE crawl_id = $1)`,
		`DELETE FROM analyses WHERE crawl_id = $1`,
		`DELETE FROM crawl_errors WHERE crawl_id = $1`,
		`DELETE FROM actions WHERE crawl_id = $1`,
		`DELETE FROM crawls WHERE id = $1`,
	} {
		if _, err := tx.Exec(ctx, q, crawl.ID); err != nil {
			return fmt.Errorf("delete crawl cascade: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// AddCrawlError records one non-fatal failure against a crawl.
func (s *Store) AddCrawlError(ctx context.Context, crawlID uuid.UUID, message string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO crawl_errors (id, crawl_id, message, created_at)
		VALUES ($1, $2, $3, now())`,
		uuid.New(), crawlID, message,
	)
	if err != nil {
		return fmt.Errorf("insert crawl error: %w", err)
	}
	return nil
}

// CrawlErrors returns the recorded error messages for a crawl in insertion order.
func (s *Store) CrawlErrors(ctx context.Context, crawlID uuid.UUID) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT message FROM crawl_errors WHERE crawl_id = $1 ORDER BY created_at`,
		crawlID,
	)
	if err != nil {
		return nil, fmt.Errorf("select crawl errors: %w", err)
	}
	defer rows.Close()

	var msgs []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan crawl error: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
