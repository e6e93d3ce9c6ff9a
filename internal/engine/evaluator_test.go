package engine

import (
	"testing"

	"github.com/user/linkalert/internal/model"
)

func trafficSnap(id string, value string, ts int64) model.SensorSnapshot {
	s := snap(id, model.StatusUp, ts)
	s.LastValue = value
	return s
}

func rule(cond model.Condition, threshold float64) model.AlertRule {
	return model.AlertRule{
		ID:        "r1",
		Name:      "test rule",
		SensorID:  "s1",
		Condition: cond,
		Threshold: threshold,
		Enabled:   true,
	}
}

func TestEvaluateStatusConditions(t *testing.T) {
	ev := NewEvaluator(NewMemoryStore())

	tests := []struct {
		name      string
		cond      model.Condition
		statusRaw int
		status    string
		want      bool
	}{
		{"down on raw 5", model.CondDown, 5, "Down", true},
		{"down on raw 3", model.CondDown, 3, "Up", false},
		{"down text fallback", model.CondDown, 0, "Link down", true},
		{"warning on raw 4", model.CondWarning, 4, "Warning", true},
		{"warning on raw 5", model.CondWarning, 5, "Down", false},
		{"unusual on raw 4", model.CondUnusual, 4, "Warning", true},
		{"unusual on raw 13", model.CondUnusual, 13, "Down (Acknowledged)", true},
		{"unusual on raw 3", model.CondUnusual, 3, "Up", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := snap("s1", tt.statusRaw, 0)
			s.Status = tt.status
			if got := ev.Evaluate(rule(tt.cond, 0), s); got != tt.want {
				t.Errorf("Evaluate(%s, raw=%d) = %v, want %v", tt.cond, tt.statusRaw, got, tt.want)
			}
		})
	}
}

func TestEvaluateThresholdConditions(t *testing.T) {
	ev := NewEvaluator(NewMemoryStore())

	// slow: value above max threshold
	if !ev.Evaluate(rule(model.CondSlow, 100), trafficSnap("s1", "150 mbit/s", 0)) {
		t.Error("slow: 150 > 100 must evaluate true")
	}
	if ev.Evaluate(rule(model.CondSlow, 100), trafficSnap("s1", "50 mbit/s", 0)) {
		t.Error("slow: 50 > 100 must evaluate false")
	}

	// trafficLow: value below min threshold
	if !ev.Evaluate(rule(model.CondTrafficLow, 100), trafficSnap("s1", "50 mbit/s", 0)) {
		t.Error("trafficLow: 50 < 100 must evaluate true")
	}
	if ev.Evaluate(rule(model.CondTrafficLow, 100), trafficSnap("s1", "150 mbit/s", 0)) {
		t.Error("trafficLow: 150 < 100 must evaluate false")
	}
}

func TestEvaluateUnparseableValueIsFalse(t *testing.T) {
	ev := NewEvaluator(NewMemoryStore())

	for _, cond := range []model.Condition{
		model.CondSlow, model.CondTrafficLow, model.CondTrafficSpike, model.CondTrafficDrop,
	} {
		if ev.Evaluate(rule(cond, 10), trafficSnap("s1", "garbage", 0)) {
			t.Errorf("%s: unparseable value must evaluate false", cond)
		}
	}
}

func TestSpikeDropSymmetry(t *testing.T) {
	store := NewMemoryStore()
	ev := NewEvaluator(store)

	// Previous observed value: 1000 Mbit/s, threshold 50%.
	store.SetLastTraffic("s1", 1000, 0)

	tests := []struct {
		value string
		spike bool
		drop  bool
	}{
		{"1.600 mbit/s", true, false},
		{"400 mbit/s", false, true},
		{"1.100 mbit/s", false, false},
	}

	for _, tt := range tests {
		s := trafficSnap("s1", tt.value, 60)
		if got := ev.Evaluate(rule(model.CondTrafficSpike, 50), s); got != tt.spike {
			t.Errorf("trafficSpike(%s) = %v, want %v", tt.value, got, tt.spike)
		}
		if got := ev.Evaluate(rule(model.CondTrafficDrop, 50), s); got != tt.drop {
			t.Errorf("trafficDrop(%s) = %v, want %v", tt.value, got, tt.drop)
		}
	}
}

func TestSpikeWithoutPreviousValueIsFalse(t *testing.T) {
	ev := NewEvaluator(NewMemoryStore())

	s := trafficSnap("s1", "1.600 mbit/s", 0)
	if ev.Evaluate(rule(model.CondTrafficSpike, 50), s) {
		t.Error("trafficSpike without a previous value must evaluate false")
	}
	if ev.Evaluate(rule(model.CondTrafficDrop, 50), s) {
		t.Error("trafficDrop without a previous value must evaluate false")
	}
}

func TestCommitTrafficMovesPreviousValueForward(t *testing.T) {
	store := NewMemoryStore()
	ev := NewEvaluator(store)

	ev.CommitTraffic(trafficSnap("s1", "1.000 mbit/s", 0))

	// The committed value is now the comparison baseline.
	if !ev.Evaluate(rule(model.CondTrafficSpike, 50), trafficSnap("s1", "1.600 mbit/s", 60)) {
		t.Error("expected spike against committed previous value")
	}

	// Unparseable values leave the baseline untouched.
	ev.CommitTraffic(trafficSnap("s1", "garbage", 120))
	if prev, ok := store.LastTraffic("s1"); !ok || prev != 1000 {
		t.Errorf("baseline changed after unparseable commit: %v %v", prev, ok)
	}
}
