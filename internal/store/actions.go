package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/quarrylabs/quarry/internal/taxonomy"
)

// Action is one classified, timestamped user event produced by a crawl.
// Actions are created once by the walker and never mutated; they are
// removed only when their owning crawl is deleted.
type Action struct {
	ID      uuid.UUID
	CrawlID uuid.UUID
	UID     string
	Type    taxonomy.ActionType
	Time    time.Time
	Content string
}

// InsertActions persists one post's worth of actions in a single
// transaction, so a crash loses at most one post's work.
func (s *Store) InsertActions(ctx context.Context, actions []Action) error {
	if len(actions) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, a := range actions {
		_, err := tx.Exec(ctx, `
			INSERT INTO actions (id, crawl_id, uid, type_id, time, content)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			a.ID, a.CrawlID, a.UID, taxonomy.Index(a.Type), a.Time, a.Content,
		)
		if err != nil {
			return fmt.Errorf("insert action: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ActionsByCrawl returns a crawl's actions ordered by (uid, time), the
// order the session segmenter requires. Content is large and not needed
// for segmentation, so it is not loaded here.
func (s *Store) ActionsByCrawl(ctx context.Context, crawlID uuid.UUID) ([]Action, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, crawl_id, uid, type_id, time
		FROM actions
		WHERE crawl_id = $1
		ORDER BY uid, time, id`,
		crawlID,
	)
	if err != nil {
		return nil, fmt.Errorf("select actions: %w", err)
	}
	defer rows.Close()

	var actions []Action
	for rows.Next() {
		var a Action
		var typeID int
		if err := rows.Scan(&a.ID, &a.CrawlID, &a.UID, &typeID, &a.Time); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		a.Type = taxonomy.ActionType(typeID)
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// ActionContent lazily loads the concatenated subject+body text of one action.
func (s *Store) ActionContent(ctx context.Context, actionID uuid.UUID) (string, error) {
	var content string
	err := s.pool.QueryRow(ctx, `SELECT content FROM actions WHERE id = $1`, actionID).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("select action content: %w", err)
	}
	return content, nil
}

// CountActionsByCrawl returns how many actions a crawl produced.
func (s *Store) CountActionsByCrawl(ctx context.Context, crawlID uuid.UUID) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM actions WHERE crawl_id = $1`, crawlID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count actions: %w", err)
	}
	return n, nil
}
