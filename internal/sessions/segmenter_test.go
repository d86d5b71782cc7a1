package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/quarrylabs/quarry/internal/store"
)

func action(uid string, hour float64) store.Action {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return store.Action{
		ID:   uuid.New(),
		UID:  uid,
		Time: base.Add(time.Duration(hour * float64(time.Hour))),
	}
}

func boundaries(sessions []Session) [][2]interface{} {
	var out [][2]interface{}
	for _, s := range sessions {
		out = append(out, [2]interface{}{s.UID, len(s.Actions)})
	}
	return out
}

func TestSegment_SplitsOnUIDAndGap(t *testing.T) {
	gap := time.Duration(1.5 * float64(time.Hour))
	actions := []store.Action{
		action("alice", 0),
		action("alice", 1),
		action("alice", 2),
		action("bob", 3),
		action("alice", 10),
	}

	got, err := Segment(context.Background(), actions, gap, nil)
	if err != nil {
		t.Fatalf("Segment returned error: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(got))
	}
	// Input re-sorts to alice(0,1,2,10), bob(3): alice's 10 splits off by
	// gap, bob splits off by uid change.
	if got[0].UID != "alice" || len(got[0].Actions) != 3 {
		t.Errorf("first session should be alice x3, got %s x%d", got[0].UID, len(got[0].Actions))
	}
	if got[1].UID != "alice" || len(got[1].Actions) != 1 {
		t.Errorf("second session should be alice x1, got %s x%d", got[1].UID, len(got[1].Actions))
	}
	if got[2].UID != "bob" || len(got[2].Actions) != 1 {
		t.Errorf("third session should be bob x1, got %s x%d", got[2].UID, len(got[2].Actions))
	}
}

func TestSegment_GapExactlyAtThresholdStaysTogether(t *testing.T) {
	// The split requires strictly exceeding the gap.
	actions := []store.Action{
		action("alice", 0),
		action("alice", 2),
	}

	got, err := Segment(context.Background(), actions, 2*time.Hour, nil)
	if err != nil {
		t.Fatalf("Segment returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 session for gap == threshold, got %d", len(got))
	}
}

func TestSegment_SessionInvariants(t *testing.T) {
	actions := []store.Action{
		action("carol", 5),
		action("alice", 0),
		action("bob", 1),
		action("alice", 0.5),
		action("bob", 9),
	}

	got, err := Segment(context.Background(), actions, time.Hour, nil)
	if err != nil {
		t.Fatalf("Segment returned error: %v", err)
	}

	for _, s := range got {
		for i, a := range s.Actions {
			if a.UID != s.UID {
				t.Errorf("session %s contains action by %s", s.UID, a.UID)
			}
			if i > 0 && a.Time.Before(s.Actions[i-1].Time) {
				t.Errorf("session %s has decreasing timestamps", s.UID)
			}
		}
	}
}

func TestSegment_Idempotent(t *testing.T) {
	actions := []store.Action{
		action("bob", 3),
		action("alice", 0),
		action("alice", 1),
		action("alice", 7),
		action("bob", 3.2),
	}
	gap := 90 * time.Minute

	first, err := Segment(context.Background(), actions, gap, nil)
	if err != nil {
		t.Fatalf("Segment returned error: %v", err)
	}
	second, err := Segment(context.Background(), actions, gap, nil)
	if err != nil {
		t.Fatalf("Segment returned error: %v", err)
	}

	a, b := boundaries(first), boundaries(second)
	if len(a) != len(b) {
		t.Fatalf("boundary counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("boundary %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestSegment_Empty(t *testing.T) {
	got, err := Segment(context.Background(), nil, time.Hour, nil)
	if err != nil {
		t.Fatalf("Segment returned error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
}

func TestSegment_DoesNotMutateInput(t *testing.T) {
	actions := []store.Action{
		action("bob", 1),
		action("alice", 0),
	}

	if _, err := Segment(context.Background(), actions, time.Hour, nil); err != nil {
		t.Fatalf("Segment returned error: %v", err)
	}
	if actions[0].UID != "bob" {
		t.Error("input slice was reordered")
	}
}
