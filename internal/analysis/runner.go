package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/quarrylabs/quarry/internal/bus"
	"github.com/quarrylabs/quarry/internal/progress"
	"github.com/quarrylabs/quarry/internal/sampler"
	"github.com/quarrylabs/quarry/internal/sessions"
	"github.com/quarrylabs/quarry/internal/store"
	"github.com/quarrylabs/quarry/internal/taxonomy"
)

// Store is the persistence surface the runner needs.
type Store interface {
	AnalysisByID(ctx context.Context, id uuid.UUID) (*store.Analysis, error)
	SetAnalysisTask(ctx context.Context, analysisID, taskID uuid.UUID) error
	ActionsByCrawl(ctx context.Context, crawlID uuid.UUID) ([]store.Action, error)
	InsertSession(ctx context.Context, analysisID uuid.UUID, uid string, actionIDs []uuid.UUID) (uuid.UUID, error)
	InsertRole(ctx context.Context, analysisID uuid.UUID, position int) (uuid.UUID, error)
	InsertActionWeights(ctx context.Context, roleID uuid.UUID, weights []float64) error
	UpsertRoleProportion(ctx context.Context, analysisID uuid.UUID, uid string, roleID uuid.UUID, weight float64) error
	AssignSessionRole(ctx context.Context, sessionID, roleID uuid.UUID) error
	FinishAnalysis(ctx context.Context, analysisID uuid.UUID) error
	UpsertTaskStatus(ctx context.Context, taskID uuid.UUID, scope string, p float64, loglik *float64) error
}

// Sampler runs one role-inference fit over session histograms.
type Sampler interface {
	Fit(ctx context.Context, req sampler.Request) (*sampler.Result, error)
}

// Runner executes one analysis end to end: segment the crawl's action
// log into sessions, hand their histograms to the sampler, and persist
// the inferred roles, proportions and assignments.
type Runner struct {
	store            Store
	sampler          Sampler
	bus              progress.Publisher
	progressInterval time.Duration
	logger           *slog.Logger
}

func NewRunner(s Store, smp Sampler, b progress.Publisher, progressInterval time.Duration, logger *slog.Logger) *Runner {
	return &Runner{
		store:            s,
		sampler:          smp,
		bus:              b,
		progressInterval: progressInterval,
		logger:           logger,
	}
}

// Run drives the analysis with the given id. The analysis row and its
// parameters must already exist; parameters were validated at creation
// so the runner trusts them.
func (r *Runner) Run(ctx context.Context, analysisID uuid.UUID) error {
	a, err := r.store.AnalysisByID(ctx, analysisID)
	if err != nil {
		return fmt.Errorf("load analysis: %w", err)
	}

	taskID := uuid.New()
	if err := r.store.SetAnalysisTask(ctx, analysisID, taskID); err != nil {
		return fmt.Errorf("set analysis task: %w", err)
	}

	r.logger.Info("analysis started", "analysis_id", analysisID, "crawl_id", a.CrawlID, "roles", a.RoleCount)

	actions, err := r.store.ActionsByCrawl(ctx, a.CrawlID)
	if err != nil {
		return fmt.Errorf("load actions: %w", err)
	}

	segRep := progress.New(r.bus, r.store, "sessions", bus.SubjectAnalysisProgress, analysisID, taskID, r.progressInterval, r.logger)
	if err := segRep.Report(ctx, 0, true); err != nil {
		return err
	}

	gap := time.Duration(a.SessionGap * float64(time.Hour))
	segmented, err := sessions.Segment(ctx, actions, gap, segRep)
	if err != nil {
		return fmt.Errorf("segment actions: %w", err)
	}
	if err := segRep.Report(ctx, 1, true); err != nil {
		return err
	}

	sessionIDs, err := r.persistSessions(ctx, analysisID, segmented)
	if err != nil {
		return err
	}

	users := groupByUser(segmented)

	r.logger.Info("sessions segmented", "analysis_id", analysisID, "sessions", len(segmented), "users", len(users))

	smpRep := progress.New(r.bus, r.store, "sampling", bus.SubjectAnalysisProgress, analysisID, taskID, r.progressInterval, r.logger)
	if err := smpRep.Report(ctx, 0, true); err != nil {
		return err
	}

	result, err := r.sampler.Fit(ctx, sampler.Request{
		Users:               users,
		ActionTypes:         taxonomy.Count(),
		Roles:               a.RoleCount,
		MaxIterations:       a.MaxIterations,
		ProportionSmoothing: a.ProportionSmoothing,
		RoleSmoothing:       a.RoleSmoothing,
		Seed:                rand.Uint64(),
	})
	if err != nil {
		return fmt.Errorf("sampler fit: %w", err)
	}

	if err := r.persistResult(ctx, analysisID, sessionIDs, users, result); err != nil {
		return err
	}

	if err := smpRep.ReportWithLikelihood(ctx, 1, result.LogLikelihood, true); err != nil {
		return err
	}
	if err := r.store.FinishAnalysis(ctx, analysisID); err != nil {
		return fmt.Errorf("finish analysis: %w", err)
	}

	r.logger.Info("analysis finished", "analysis_id", analysisID, "log_likelihood", result.LogLikelihood)
	return nil
}

// persistSessions writes every session and returns their ids in segment
// order. This order matches the sampler's flat assignment indexing.
func (r *Runner) persistSessions(ctx context.Context, analysisID uuid.UUID, segmented []sessions.Session) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(segmented))
	for _, sess := range segmented {
		actionIDs := make([]uuid.UUID, len(sess.Actions))
		for i, a := range sess.Actions {
			actionIDs[i] = a.ID
		}
		id, err := r.store.InsertSession(ctx, analysisID, sess.UID, actionIDs)
		if err != nil {
			return nil, fmt.Errorf("persist session: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// persistResult writes roles with their action-weight vectors, per-user
// role proportions, and the per-session role assignments.
func (r *Runner) persistResult(ctx context.Context, analysisID uuid.UUID, sessionIDs []uuid.UUID, users []sampler.UserSessions, result *sampler.Result) error {
	roleIDs := make([]uuid.UUID, len(result.RoleWeights))
	for pos, weights := range result.RoleWeights {
		roleID, err := r.store.InsertRole(ctx, analysisID, pos)
		if err != nil {
			return fmt.Errorf("persist role %d: %w", pos, err)
		}
		if err := r.store.InsertActionWeights(ctx, roleID, weights); err != nil {
			return fmt.Errorf("persist action weights for role %d: %w", pos, err)
		}
		roleIDs[pos] = roleID
	}

	for _, p := range result.Proportions {
		for pos, w := range p.Weights {
			if pos >= len(roleIDs) {
				return fmt.Errorf("proportion vector for %s has %d entries, expected %d", p.UID, len(p.Weights), len(roleIDs))
			}
			if err := r.store.UpsertRoleProportion(ctx, analysisID, p.UID, roleIDs[pos], w); err != nil {
				return fmt.Errorf("persist role proportion: %w", err)
			}
		}
	}

	if len(result.Assignments) != len(sessionIDs) {
		return fmt.Errorf("sampler returned %d assignments, expected %d", len(result.Assignments), len(sessionIDs))
	}
	for i, role := range result.Assignments {
		if role < 0 || role >= len(roleIDs) {
			return fmt.Errorf("assignment %d names role %d, only %d roles", i, role, len(roleIDs))
		}
		if err := r.store.AssignSessionRole(ctx, sessionIDs[i], roleIDs[role]); err != nil {
			return fmt.Errorf("assign session role: %w", err)
		}
	}
	return nil
}

// groupByUser folds uid-ordered sessions into per-user histogram blocks.
// Segment emits sessions uid-major, so one pass collecting consecutive
// equal uids covers each user exactly once, and the flattened session
// order is preserved for assignment indexing.
func groupByUser(segmented []sessions.Session) []sampler.UserSessions {
	var users []sampler.UserSessions
	for _, sess := range segmented {
		if len(users) == 0 || users[len(users)-1].UID != sess.UID {
			users = append(users, sampler.UserSessions{UID: sess.UID})
		}
		u := &users[len(users)-1]
		u.Sessions = append(u.Sessions, histogram(sess))
	}
	return users
}

// histogram counts the session's actions per dense taxonomy index,
// emitting entries in ascending index order.
func histogram(sess sessions.Session) []sampler.HistogramEntry {
	counts := make([]int, taxonomy.Count())
	for _, a := range sess.Actions {
		counts[taxonomy.Index(a.Type)]++
	}
	var out []sampler.HistogramEntry
	for idx, n := range counts {
		if n > 0 {
			out = append(out, sampler.HistogramEntry{TypeIndex: idx, Count: n})
		}
	}
	return out
}
