package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/user/linkalert/internal/model"
	"github.com/user/linkalert/internal/notify"
)

type fakeSource struct {
	mu        sync.Mutex
	snapshots []model.SensorSnapshot
	err       error
}

func (f *fakeSource) Name() string { return "test-source" }

func (f *fakeSource) FetchSnapshots(ctx context.Context) ([]model.SensorSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.snapshots, nil
}

func (f *fakeSource) set(snapshots []model.SensorSnapshot, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots = snapshots
	f.err = err
}

type fakeRules struct {
	rules map[string][]model.AlertRule
}

func (f *fakeRules) ListEnabledRulesForSensor(sensorID string) ([]model.AlertRule, error) {
	return f.rules[sensorID], nil
}

type fakeRecorder struct {
	mu          sync.Mutex
	transitions []model.StatusTransition
	firings     []model.AlertFiringRecord
	events      []model.EventLogEntry
	failWrites  bool
}

func (f *fakeRecorder) SaveStatusChange(tr model.StatusTransition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errors.New("store unavailable")
	}
	f.transitions = append(f.transitions, tr)
	return nil
}

func (f *fakeRecorder) SaveAlertFiring(rec model.AlertFiringRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errors.New("store unavailable")
	}
	f.firings = append(f.firings, rec)
	return nil
}

func (f *fakeRecorder) LogEvent(entry model.EventLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, entry)
	return nil
}

func (f *fakeRecorder) firingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.firings)
}

type fakeChannel struct {
	mu    sync.Mutex
	name  string
	err   error
	sends []string
}

func (c *fakeChannel) Name() string { return c.name }

func (c *fakeChannel) Send(ctx context.Context, recipients []string, subject, body string, priority model.Priority) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sends = append(c.sends, subject)
	return nil
}

func (c *fakeChannel) sent() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sends)
}

func newTestEngine(src *fakeSource, rules *fakeRules, rec *fakeRecorder, ch *fakeChannel) *Engine {
	registry := notify.NewRegistry()
	if ch != nil {
		registry.Register(ch)
	}
	dispatcher := notify.NewDispatcher(registry, time.Second)
	health := NewHealthMonitor(HealthMonitorConfig{FailureThreshold: 1, AlertCooldown: 30 * time.Minute})

	return New(Config{
		WorkerLimit:    2,
		StateTTL:       time.Hour,
		HealthChannels: []string{"chat"},
	}, src, rules, rec, NewMemoryStore(), health, dispatcher)
}

func TestCycleFiresAlertOnTransition(t *testing.T) {
	ch := &fakeChannel{name: "chat"}
	src := &fakeSource{}
	rules := &fakeRules{rules: map[string][]model.AlertRule{
		"s1": {{
			ID:              "r1",
			Name:            "link down",
			SensorID:        "s1",
			Condition:       model.CondDown,
			Channels:        []string{"chat"},
			Recipients:      []string{"ops"},
			CooldownSeconds: 600,
			Priority:        model.PriorityHigh,
			Enabled:         true,
		}},
	}}
	rec := &fakeRecorder{}
	eng := newTestEngine(src, rules, rec, ch)

	// Cycle 1: baseline, sensor up. No alert.
	src.set([]model.SensorSnapshot{snap("s1", model.StatusUp, 0)}, nil)
	if err := eng.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if ch.sent() != 0 {
		t.Fatalf("baseline cycle must not alert, got %d sends", ch.sent())
	}

	// Cycle 2: sensor down. One alert, one persisted transition.
	src.set([]model.SensorSnapshot{snap("s1", model.StatusDown, 300)}, nil)
	if err := eng.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if ch.sent() != 1 {
		t.Fatalf("expected 1 alert send, got %d", ch.sent())
	}
	if len(rec.transitions) != 1 {
		t.Fatalf("expected 1 persisted transition, got %d", len(rec.transitions))
	}
	if rec.firingCount() != 1 {
		t.Fatalf("expected 1 persisted firing, got %d", rec.firingCount())
	}
	if !rec.firings[0].OverallSuccess {
		t.Error("firing record must be marked successful")
	}

	// Cycle 3: still down, inside cooldown. Condition holds but no re-fire.
	src.set([]model.SensorSnapshot{snap("s1", model.StatusDown, 600)}, nil)
	if err := eng.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if ch.sent() != 1 {
		t.Errorf("cooldown must suppress the repeat alert, got %d sends", ch.sent())
	}
}

func TestCyclePersistenceFailureDoesNotAbort(t *testing.T) {
	ch := &fakeChannel{name: "chat"}
	src := &fakeSource{}
	rules := &fakeRules{rules: map[string][]model.AlertRule{
		"s1": {{
			ID:        "r1",
			SensorID:  "s1",
			Condition: model.CondDown,
			Channels:  []string{"chat"},
			Priority:  model.PriorityHigh,
			Enabled:   true,
		}},
	}}
	rec := &fakeRecorder{failWrites: true}
	eng := newTestEngine(src, rules, rec, ch)

	src.set([]model.SensorSnapshot{snap("s1", model.StatusUp, 0)}, nil)
	eng.RunCycle(context.Background())
	src.set([]model.SensorSnapshot{snap("s1", model.StatusDown, 300)}, nil)
	if err := eng.RunCycle(context.Background()); err != nil {
		t.Fatalf("persistence failures must not surface: %v", err)
	}
	if ch.sent() != 1 {
		t.Errorf("alert must still be sent when persistence fails, got %d", ch.sent())
	}
}

func TestCycleSourceFailureFeedsHealthMonitor(t *testing.T) {
	ch := &fakeChannel{name: "chat"}
	src := &fakeSource{}
	rec := &fakeRecorder{}
	eng := newTestEngine(src, &fakeRules{}, rec, ch)

	src.set(nil, errors.New("connection refused"))
	if err := eng.RunCycle(context.Background()); err != nil {
		t.Fatalf("fetch failure must not fail the cycle: %v", err)
	}

	states := eng.HealthStates()
	st, ok := states["test-source"]
	if !ok {
		t.Fatal("expected health state for test-source")
	}
	if !st.IsDown {
		t.Error("source must be marked down")
	}
	if ch.sent() != 1 {
		t.Errorf("expected 1 source-down alert, got %d", ch.sent())
	}

	// Still failing, inside the reminder cooldown: no second alert.
	eng.RunCycle(context.Background())
	if ch.sent() != 1 {
		t.Errorf("reminder cooldown must suppress re-fires, got %d", ch.sent())
	}

	// Recovery fires exactly once.
	src.set([]model.SensorSnapshot{}, nil)
	eng.RunCycle(context.Background())
	if ch.sent() != 2 {
		t.Errorf("expected recovery alert, got %d sends", ch.sent())
	}
	eng.RunCycle(context.Background())
	if ch.sent() != 2 {
		t.Errorf("recovery must fire only once, got %d sends", ch.sent())
	}
}

func TestSweepEvictsStaleEntries(t *testing.T) {
	store := NewMemoryStore()
	eng := New(Config{StateTTL: time.Hour}, &fakeSource{}, &fakeRules{}, &fakeRecorder{},
		store, NewHealthMonitor(HealthMonitorConfig{}), notify.NewDispatcher(notify.NewRegistry(), time.Second))

	past := time.Now().Add(-2 * time.Hour)
	store.now = func() time.Time { return past }
	store.SetTrackedState("old", model.TrackedState{StatusRaw: 3})
	store.SetLastFired("r1", "old", past.Unix())

	store.now = time.Now
	store.SetTrackedState("fresh", model.TrackedState{StatusRaw: 3})

	if removed := eng.Sweep(); removed != 2 {
		t.Errorf("expected 2 evictions, got %d", removed)
	}
	if _, ok := store.TrackedState("old"); ok {
		t.Error("stale entry must be evicted")
	}
	if _, ok := store.TrackedState("fresh"); !ok {
		t.Error("fresh entry must survive the sweep")
	}
}
