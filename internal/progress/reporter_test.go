package progress

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeBus struct {
	events   []Event
	subjects []string
}

func (f *fakeBus) Publish(subject string, data any) error {
	f.subjects = append(f.subjects, subject)
	f.events = append(f.events, data.(Event))
	return nil
}

type fakeStatus struct {
	writes []float64
}

func (f *fakeStatus) UpsertTaskStatus(_ context.Context, _ uuid.UUID, _ string, progress float64, _ *float64) error {
	f.writes = append(f.writes, progress)
	return nil
}

func newTestReporter(bus *fakeBus, status *fakeStatus) (*Reporter, *time.Time) {
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r := New(bus, status, "crawl", "quarry.crawl.progress", uuid.New(), uuid.New(), time.Second, slog.Default())
	r.now = func() time.Time { return clock }
	return r, &clock
}

func TestReport_ThrottlesUnforcedCalls(t *testing.T) {
	bus := &fakeBus{}
	status := &fakeStatus{}
	r, clock := newTestReporter(bus, status)
	ctx := context.Background()

	// First call forced, as callers do at phase start.
	if err := r.Report(ctx, 0, true); err != nil {
		t.Fatalf("Report returned error: %v", err)
	}

	// A storm of unforced calls inside the window collapses to nothing.
	for i := 1; i <= 5; i++ {
		*clock = clock.Add(100 * time.Millisecond)
		if err := r.Report(ctx, float64(i)/10, false); err != nil {
			t.Fatalf("Report returned error: %v", err)
		}
	}
	if len(bus.events) != 1 {
		t.Fatalf("expected 1 emission inside throttle window, got %d", len(bus.events))
	}

	// Once the window passes, the next unforced call emits.
	*clock = clock.Add(time.Second)
	if err := r.Report(ctx, 0.6, false); err != nil {
		t.Fatalf("Report returned error: %v", err)
	}
	if len(bus.events) != 2 {
		t.Fatalf("expected 2 emissions after window elapsed, got %d", len(bus.events))
	}
	if bus.events[1].Progress != 60 {
		t.Errorf("expected 60%%, got %f", bus.events[1].Progress)
	}
}

func TestReport_ForcedAlwaysEmits(t *testing.T) {
	bus := &fakeBus{}
	status := &fakeStatus{}
	r, _ := newTestReporter(bus, status)
	ctx := context.Background()

	r.Report(ctx, 0, true)
	r.Report(ctx, 0.5, true)
	r.Report(ctx, 1, true)

	if len(bus.events) != 3 {
		t.Fatalf("expected 3 forced emissions, got %d", len(bus.events))
	}
	if bus.events[2].Progress != 100 {
		t.Errorf("final emission should be 100, got %f", bus.events[2].Progress)
	}
	if len(status.writes) != 3 {
		t.Errorf("every emission should persist, got %d writes", len(status.writes))
	}
}

func TestReport_SubjectCarriesEntityID(t *testing.T) {
	bus := &fakeBus{}
	r, _ := newTestReporter(bus, &fakeStatus{})

	r.Report(context.Background(), 0.25, true)

	want := "quarry.crawl.progress." + bus.events[0].ID
	if bus.subjects[0] != want {
		t.Errorf("expected subject %q, got %q", want, bus.subjects[0])
	}
}

func TestReportWithLikelihood(t *testing.T) {
	bus := &fakeBus{}
	r, _ := newTestReporter(bus, &fakeStatus{})

	r.ReportWithLikelihood(context.Background(), 1, -12345.6, true)

	if bus.events[0].LogLikelihood == nil || *bus.events[0].LogLikelihood != -12345.6 {
		t.Errorf("expected log-likelihood carried through, got %v", bus.events[0].LogLikelihood)
	}
}

func TestReporters_DoNotShareThrottleState(t *testing.T) {
	bus := &fakeBus{}
	status := &fakeStatus{}
	a, _ := newTestReporter(bus, status)
	b, _ := newTestReporter(bus, status)
	ctx := context.Background()

	a.Report(ctx, 0.1, true)
	// b's window is its own; its first unforced call still emits because
	// its last-emission time is zero.
	b.Report(ctx, 0.2, false)

	if len(bus.events) != 2 {
		t.Fatalf("expected independent throttle state, got %d emissions", len(bus.events))
	}
}
