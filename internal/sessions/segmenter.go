package sessions

import (
	"context"
	"sort"
	"time"

	"github.com/quarrylabs/quarry/internal/progress"
	"github.com/quarrylabs/quarry/internal/store"
)

// Session is a contiguous run of one user's actions bounded by
// inactivity gaps. All actions share the session's uid and their
// timestamps are non-decreasing.
type Session struct {
	UID     string
	Actions []store.Action
}

// Segment partitions an action log into sessions in a single forward
// scan over the log sorted by (uid, time). A new session starts when the
// uid changes or when the gap since the previous action strictly exceeds
// gap. Re-running on the same input and threshold yields identical
// boundaries. The reporter may be nil.
func Segment(ctx context.Context, actions []store.Action, gap time.Duration, rep *progress.Reporter) ([]Session, error) {
	if len(actions) == 0 {
		return nil, nil
	}

	// Establish the required order without mutating the caller's slice.
	// The sort is stable so equal (uid, time) pairs keep their input
	// order and boundaries stay reproducible.
	sorted := make([]store.Action, len(actions))
	copy(sorted, actions)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].UID != sorted[j].UID {
			return sorted[i].UID < sorted[j].UID
		}
		return sorted[i].Time.Before(sorted[j].Time)
	})

	var out []Session
	current := Session{UID: sorted[0].UID, Actions: []store.Action{sorted[0]}}
	total := len(sorted)

	for i := 1; i < total; i++ {
		a := sorted[i]
		prev := current.Actions[len(current.Actions)-1]

		if a.UID != current.UID || a.Time.Sub(prev.Time) > gap {
			out = append(out, current)
			current = Session{UID: a.UID, Actions: []store.Action{a}}
		} else {
			current.Actions = append(current.Actions, a)
		}

		if rep != nil {
			if err := rep.Report(ctx, float64(i+1)/float64(total), false); err != nil {
				return nil, err
			}
		}
	}

	// Commit the final open session.
	out = append(out, current)
	return out, nil
}
