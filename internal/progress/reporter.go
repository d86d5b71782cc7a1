package progress

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Publisher fans an event out to live observers.
type Publisher interface {
	Publish(subject string, data any) error
}

// StatusStore persists the latest progress for a task phase so it stays
// queryable by id.
type StatusStore interface {
	UpsertTaskStatus(ctx context.Context, taskID uuid.UUID, scope string, progress float64, loglik *float64) error
}

// Event is the progress payload observers receive.
type Event struct {
	Scope         string   `json:"scope"` // "crawl" | "sessions" | "sampling"
	ID            string   `json:"id"`    // owning entity id
	Progress      float64  `json:"progress"`
	LogLikelihood *float64 `json:"loglik,omitempty"`
}

// Reporter throttles and fans out progress for one running task phase.
// One Reporter per task: the throttle window is instance state, so
// concurrent tasks never share a timer. Callers force the first and the
// 100% emission so observers always see start and completion.
type Reporter struct {
	bus      Publisher
	store    StatusStore
	scope    string
	subject  string
	entityID uuid.UUID
	taskID   uuid.UUID
	interval time.Duration
	logger   *slog.Logger

	last time.Time
	now  func() time.Time
}

func New(bus Publisher, store StatusStore, scope, subject string, entityID, taskID uuid.UUID, interval time.Duration, logger *slog.Logger) *Reporter {
	return &Reporter{
		bus:      bus,
		store:    store,
		scope:    scope,
		subject:  subject,
		entityID: entityID,
		taskID:   taskID,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Report emits fraction (0..1) as a percentage. Unforced calls inside the
// throttle window are dropped. The persisted status write is load-bearing
// and its failure propagates; the bus publish is best-effort.
func (r *Reporter) Report(ctx context.Context, fraction float64, force bool) error {
	return r.report(ctx, fraction, nil, force)
}

// ReportWithLikelihood additionally carries the sampler's log-likelihood.
func (r *Reporter) ReportWithLikelihood(ctx context.Context, fraction, loglik float64, force bool) error {
	return r.report(ctx, fraction, &loglik, force)
}

func (r *Reporter) report(ctx context.Context, fraction float64, loglik *float64, force bool) error {
	now := r.now()
	if !force && now.Sub(r.last) < r.interval {
		return nil
	}
	r.last = now

	pct := fraction * 100

	if err := r.store.UpsertTaskStatus(ctx, r.taskID, r.scope, pct, loglik); err != nil {
		return fmt.Errorf("persist progress: %w", err)
	}

	evt := Event{
		Scope:         r.scope,
		ID:            r.entityID.String(),
		Progress:      pct,
		LogLikelihood: loglik,
	}
	subject := fmt.Sprintf("%s.%s", r.subject, r.entityID)
	if err := r.bus.Publish(subject, evt); err != nil {
		r.logger.Warn("progress publish failed", "subject", subject, "error", err)
	}
	return nil
}
