package engine

import (
	"testing"
	"time"
)

func TestHealthSingleFirePerEpisode(t *testing.T) {
	h := NewHealthMonitor(HealthMonitorConfig{
		FailureThreshold: 1,
		AlertCooldown:    30 * time.Minute,
	})

	base := time.Unix(0, 0)

	events := []HealthEvent{
		h.ReportFailure("src", base),
		h.ReportFailure("src", base.Add(5*time.Minute)),
		h.ReportFailure("src", base.Add(10*time.Minute)),
	}

	downs := 0
	for _, ev := range events {
		if ev == HealthDown {
			downs++
		} else if ev != HealthNone {
			t.Errorf("unexpected event %v before reminder cooldown elapsed", ev)
		}
	}
	if downs != 1 {
		t.Fatalf("three consecutive failures must fire exactly one down alert, got %d", downs)
	}

	if ev := h.ReportSuccess("src", base.Add(15*time.Minute)); ev != HealthRecovered {
		t.Fatalf("first success after down must fire recovery, got %v", ev)
	}
	if ev := h.ReportSuccess("src", base.Add(20*time.Minute)); ev != HealthNone {
		t.Errorf("second success must not re-fire recovery, got %v", ev)
	}
}

func TestHealthReminderAfterCooldown(t *testing.T) {
	h := NewHealthMonitor(HealthMonitorConfig{
		FailureThreshold: 1,
		AlertCooldown:    30 * time.Minute,
	})

	base := time.Unix(0, 0)

	if ev := h.ReportFailure("src", base); ev != HealthDown {
		t.Fatalf("expected down, got %v", ev)
	}
	if ev := h.ReportFailure("src", base.Add(29*time.Minute)); ev != HealthNone {
		t.Errorf("reminder before cooldown elapsed, got %v", ev)
	}
	if ev := h.ReportFailure("src", base.Add(31*time.Minute)); ev != HealthReminder {
		t.Errorf("expected reminder after cooldown, got %v", ev)
	}
	// Reminder refreshes the alert time.
	if ev := h.ReportFailure("src", base.Add(40*time.Minute)); ev != HealthNone {
		t.Errorf("reminder cooldown must restart after each reminder, got %v", ev)
	}
}

func TestHealthFailureThreshold(t *testing.T) {
	h := NewHealthMonitor(HealthMonitorConfig{
		FailureThreshold: 3,
		AlertCooldown:    30 * time.Minute,
	})

	base := time.Unix(0, 0)

	if ev := h.ReportFailure("src", base); ev != HealthNone {
		t.Errorf("failure 1 of 3 must not alert, got %v", ev)
	}
	if ev := h.ReportFailure("src", base.Add(time.Minute)); ev != HealthNone {
		t.Errorf("failure 2 of 3 must not alert, got %v", ev)
	}
	if ev := h.ReportFailure("src", base.Add(2*time.Minute)); ev != HealthDown {
		t.Errorf("failure 3 of 3 must alert, got %v", ev)
	}
}

func TestHealthSuccessResetsCounter(t *testing.T) {
	h := NewHealthMonitor(HealthMonitorConfig{
		FailureThreshold: 2,
		AlertCooldown:    30 * time.Minute,
	})

	base := time.Unix(0, 0)

	h.ReportFailure("src", base)
	h.ReportSuccess("src", base.Add(time.Minute))
	if ev := h.ReportFailure("src", base.Add(2*time.Minute)); ev != HealthNone {
		t.Errorf("counter must reset on success, got %v", ev)
	}

	st, ok := h.State("src")
	if !ok {
		t.Fatal("expected state for src")
	}
	if st.IsDown {
		t.Error("source must not be down")
	}
}

func TestHealthSourcesAreIndependent(t *testing.T) {
	h := NewHealthMonitor(HealthMonitorConfig{FailureThreshold: 2})

	base := time.Unix(0, 0)

	h.ReportFailure("a", base)
	if ev := h.ReportFailure("b", base); ev != HealthNone {
		t.Errorf("sources must not share failure counters, got %v", ev)
	}
	if ev := h.ReportFailure("a", base.Add(time.Minute)); ev != HealthDown {
		t.Errorf("expected down for source a, got %v", ev)
	}

	if st, _ := h.State("b"); st.IsDown {
		t.Error("source b must still be healthy")
	}
}
