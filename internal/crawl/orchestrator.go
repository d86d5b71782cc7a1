package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/quarrylabs/quarry/internal/bus"
	"github.com/quarrylabs/quarry/internal/forum"
	"github.com/quarrylabs/quarry/internal/progress"
	"github.com/quarrylabs/quarry/internal/store"
	"github.com/quarrylabs/quarry/internal/walker"
)

// feedLimit bounds the single listing call. True pagination is not
// implemented upstream; courses stay far below this.
const feedLimit = 5000

// Store is the persistence surface the orchestrator needs.
type Store interface {
	DeleteCrawlForNetwork(ctx context.Context, networkID string) error
	CreateCrawl(ctx context.Context, networkID string) (uuid.UUID, error)
	SetCrawlTask(ctx context.Context, crawlID, taskID uuid.UUID) error
	SetCrawlState(ctx context.Context, crawlID uuid.UUID, state string) error
	InsertActions(ctx context.Context, actions []store.Action) error
	AddCrawlError(ctx context.Context, crawlID uuid.UUID, message string) error
	UpsertTaskStatus(ctx context.Context, taskID uuid.UUID, scope string, p float64, loglik *float64) error
}

// Forum is the remote forum surface the orchestrator consumes.
type Forum interface {
	Feed(ctx context.Context, networkID string, limit, offset int) ([]forum.FeedItem, error)
	Post(ctx context.Context, networkID, postID string) (*forum.RawPost, error)
}

// Orchestrator drives one network's fetch-classify-persist loop. Crawls
// for different networks may run concurrently; within a crawl the loop is
// strictly sequential so the per-post delay actually rate-limits the
// remote service.
type Orchestrator struct {
	store            Store
	forum            Forum
	bus              progress.Publisher
	baseDelay        time.Duration
	progressInterval time.Duration
	logger           *slog.Logger
}

func New(s Store, f Forum, b progress.Publisher, baseDelay, progressInterval time.Duration, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		store:            s,
		forum:            f,
		bus:              b,
		baseDelay:        baseDelay,
		progressInterval: progressInterval,
		logger:           logger,
	}
}

// Run executes one full crawl of a network. Any previous crawl for the
// network is discarded first, actions and errors included: there is at
// most one live crawl per network, last write wins. A failure on a single
// post is recorded and skipped; only infrastructure failures abort.
func (o *Orchestrator) Run(ctx context.Context, networkID string) error {
	if err := o.store.DeleteCrawlForNetwork(ctx, networkID); err != nil {
		return fmt.Errorf("discard previous crawl: %w", err)
	}

	crawlID, err := o.store.CreateCrawl(ctx, networkID)
	if err != nil {
		return fmt.Errorf("create crawl: %w", err)
	}
	taskID := uuid.New()
	if err := o.store.SetCrawlTask(ctx, crawlID, taskID); err != nil {
		return fmt.Errorf("set crawl task: %w", err)
	}

	o.logger.Info("crawl started", "network", networkID, "crawl_id", crawlID)

	rep := progress.New(o.bus, o.store, "crawl", bus.SubjectCrawlProgress, crawlID, taskID, o.progressInterval, o.logger)

	items, err := o.forum.Feed(ctx, networkID, feedLimit, 0)
	if err != nil {
		o.abort(ctx, crawlID)
		return fmt.Errorf("fetch feed: %w", err)
	}

	if err := rep.Report(ctx, 0, true); err != nil {
		o.abort(ctx, crawlID)
		return err
	}

	total := len(items)
	for i, item := range items {
		if ctx.Err() != nil {
			o.logger.Info("crawl cancelled", "network", networkID, "completed", i, "total", total)
			o.abort(ctx, crawlID)
			return ctx.Err()
		}

		if err := o.pause(ctx); err != nil {
			o.abort(ctx, crawlID)
			return err
		}

		if err := o.processPost(ctx, crawlID, networkID, item.ID); err != nil {
			o.abort(ctx, crawlID)
			return err
		}

		if err := rep.Report(ctx, float64(i+1)/float64(total), false); err != nil {
			o.abort(ctx, crawlID)
			return err
		}
	}

	if err := rep.Report(ctx, 1, true); err != nil {
		o.abort(ctx, crawlID)
		return err
	}
	if err := o.store.SetCrawlState(ctx, crawlID, store.CrawlFinished); err != nil {
		return fmt.Errorf("finish crawl: %w", err)
	}

	o.logger.Info("crawl finished", "network", networkID, "posts", total)
	return nil
}

// processPost fetches, classifies and persists one post. Fetch and
// classification failures are recorded as crawl errors and swallowed so
// the loop continues; a persistence failure propagates.
func (o *Orchestrator) processPost(ctx context.Context, crawlID uuid.UUID, networkID, postID string) error {
	post, err := o.forum.Post(ctx, networkID, postID)
	if err != nil {
		// A fetch cut short by cancellation is not a crawl error; let
		// the caller abort without leaving a spurious error row.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o.logger.Warn("post fetch failed", "post", postID, "error", err)
		return o.recordError(ctx, crawlID, fmt.Sprintf("fetch %s: %v", postID, err))
	}

	actions, err := walker.Walk(crawlID, post)
	if err != nil {
		o.logger.Warn("post classification failed", "post", postID, "error", err)
		return o.recordError(ctx, crawlID, fmt.Sprintf("classify %s: %v", postID, err))
	}

	if err := o.store.InsertActions(ctx, actions); err != nil {
		return fmt.Errorf("persist actions for %s: %w", postID, err)
	}
	return nil
}

// recordError attaches one non-fatal failure to the crawl. Failing to
// record is itself an infrastructure failure.
func (o *Orchestrator) recordError(ctx context.Context, crawlID uuid.UUID, msg string) error {
	if err := o.store.AddCrawlError(ctx, crawlID, msg); err != nil {
		return fmt.Errorf("record crawl error: %w", err)
	}
	return nil
}

// pause sleeps a jittered delay, uniform between 0.5x and 1.5x the base
// interval, preemptible by cancellation.
func (o *Orchestrator) pause(ctx context.Context) error {
	if o.baseDelay <= 0 {
		return nil
	}
	d := o.baseDelay/2 + time.Duration(rand.Float64()*float64(o.baseDelay))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// abort transitions the crawl to its aborted state. The write uses a
// detached context so it survives the cancellation that triggered it.
func (o *Orchestrator) abort(ctx context.Context, crawlID uuid.UUID) {
	if err := o.store.SetCrawlState(context.WithoutCancel(ctx), crawlID, store.CrawlAborted); err != nil {
		o.logger.Error("failed to mark crawl aborted", "crawl_id", crawlID, "error", err)
	}
}
