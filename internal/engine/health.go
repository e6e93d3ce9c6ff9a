package engine

import (
	"sync"
	"time"

	"github.com/user/linkalert/internal/model"
)

// HealthEvent is what a poll report asks the caller to do.
type HealthEvent int

const (
	// HealthNone means no alert is due.
	HealthNone HealthEvent = iota
	// HealthDown means the source just became unreachable.
	HealthDown
	// HealthReminder means the source is still unreachable and the
	// reminder cooldown has elapsed.
	HealthReminder
	// HealthRecovered means the source just became reachable again.
	HealthRecovered
)

// HealthMonitorConfig controls when source alerts fire.
type HealthMonitorConfig struct {
	// FailureThreshold is how many consecutive failures it takes to go Down.
	FailureThreshold int
	// AlertCooldown is the spacing between reminder alerts while Down.
	AlertCooldown time.Duration
}

// HealthMonitor is a two-state machine per monitored source tracking
// whether the upstream polling source itself is reachable. It is
// independent of any individual sensor: an unreachable source is a
// standing incident that re-reminds on a cooldown rather than being
// deduplicated like sensor alerts.
type HealthMonitor struct {
	mu     sync.Mutex
	cfg    HealthMonitorConfig
	states map[string]*model.SourceHealthState
}

// NewHealthMonitor creates a monitor with the given thresholds. A zero
// FailureThreshold is treated as 1; a zero AlertCooldown defaults to 30m.
func NewHealthMonitor(cfg HealthMonitorConfig) *HealthMonitor {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 1
	}
	if cfg.AlertCooldown <= 0 {
		cfg.AlertCooldown = 30 * time.Minute
	}
	return &HealthMonitor{
		cfg:    cfg,
		states: make(map[string]*model.SourceHealthState),
	}
}

func (h *HealthMonitor) state(source string) *model.SourceHealthState {
	st, ok := h.states[source]
	if !ok {
		st = &model.SourceHealthState{}
		h.states[source] = st
	}
	return st
}

// ReportFailure records a failed poll attempt and returns the alert due,
// if any. Sources do not share failure counters.
func (h *HealthMonitor) ReportFailure(source string, now time.Time) HealthEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	st := h.state(source)
	st.ConsecutiveFailures++
	st.LastCheckTime = now

	if !st.IsDown {
		if st.ConsecutiveFailures >= h.cfg.FailureThreshold {
			st.IsDown = true
			st.LastAlertTime = now
			return HealthDown
		}
		return HealthNone
	}

	if now.Sub(st.LastAlertTime) >= h.cfg.AlertCooldown {
		st.LastAlertTime = now
		return HealthReminder
	}
	return HealthNone
}

// ReportSuccess records a successful poll attempt. The first success after
// a Down episode returns a one-time recovery alert.
func (h *HealthMonitor) ReportSuccess(source string, now time.Time) HealthEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	st := h.state(source)
	st.LastCheckTime = now
	st.ConsecutiveFailures = 0

	if st.IsDown {
		st.IsDown = false
		return HealthRecovered
	}
	return HealthNone
}

// State returns a copy of one source's health state.
func (h *HealthMonitor) State(source string) (model.SourceHealthState, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	st, ok := h.states[source]
	if !ok {
		return model.SourceHealthState{}, false
	}
	return *st, true
}

// States returns a copy of all source health states.
func (h *HealthMonitor) States() map[string]model.SourceHealthState {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]model.SourceHealthState, len(h.states))
	for name, st := range h.states {
		out[name] = *st
	}
	return out
}
