package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/user/linkalert/internal/logger"
	"github.com/user/linkalert/internal/metrics"
	"github.com/user/linkalert/internal/model"
	"github.com/user/linkalert/internal/notify"
)

// SnapshotSource fetches one batch of sensor snapshots per poll cycle.
// A fetch error is what feeds the source health monitor.
type SnapshotSource interface {
	Name() string
	FetchSnapshots(ctx context.Context) ([]model.SensorSnapshot, error)
}

// RuleSource exposes enabled alert rules matching a sensor.
type RuleSource interface {
	ListEnabledRulesForSensor(sensorID string) ([]model.AlertRule, error)
}

// Recorder persists engine output. Failures are logged and swallowed; a
// persistence problem must never abort evaluation or dispatch.
type Recorder interface {
	SaveStatusChange(tr model.StatusTransition) error
	SaveAlertFiring(rec model.AlertFiringRecord) error
	LogEvent(entry model.EventLogEntry) error
}

// Config holds the engine's tunables.
type Config struct {
	// WorkerLimit bounds how many sensors are evaluated concurrently.
	WorkerLimit int
	// StateTTL controls the staleness sweep of tracked state.
	StateTTL time.Duration
	// HealthChannels and HealthRecipients route source health alerts.
	HealthChannels   []string
	HealthRecipients []string
}

// Engine runs the evaluation pipeline for each poll cycle: observe
// snapshots, detect transitions, match rules, evaluate conditions, gate
// on cooldowns, dispatch notifications, and record outcomes.
type Engine struct {
	cfg        Config
	source     SnapshotSource
	rules      RuleSource
	recorder   Recorder
	store      StateStore
	tracker    *Tracker
	evaluator  *Evaluator
	cooldown   *Cooldown
	health     *HealthMonitor
	dispatcher *notify.Dispatcher
	log        zerolog.Logger
	now        func() time.Time

	// mu guards the check-cooldown / record sequence so overlapping
	// cycles cannot both decide to fire the same rule.
	mu sync.Mutex
}

// New wires an engine from its collaborators.
func New(cfg Config, source SnapshotSource, rules RuleSource, recorder Recorder,
	store StateStore, health *HealthMonitor, dispatcher *notify.Dispatcher) *Engine {
	if cfg.WorkerLimit <= 0 {
		cfg.WorkerLimit = 4
	}
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = time.Hour
	}
	return &Engine{
		cfg:        cfg,
		source:     source,
		rules:      rules,
		recorder:   recorder,
		store:      store,
		tracker:    NewTracker(store),
		evaluator:  NewEvaluator(store),
		cooldown:   NewCooldown(store),
		health:     health,
		dispatcher: dispatcher,
		log:        logger.WithComponent("engine"),
		now:        time.Now,
	}
}

// RunCycle runs one poll cycle. It returns nil even when individual
// sensors or channels failed: a fetch failure is routed into the health
// monitor and retried naturally on the next cycle.
func (e *Engine) RunCycle(ctx context.Context) error {
	start := e.now()
	defer func() {
		metrics.PollCycleDuration.Observe(time.Since(start).Seconds())
	}()

	snapshots, err := e.source.FetchSnapshots(ctx)
	if err != nil {
		metrics.PollCyclesTotal.WithLabelValues("fetch_failed").Inc()
		metrics.SourceFailures.WithLabelValues(e.source.Name()).Inc()
		metrics.SourceUp.WithLabelValues(e.source.Name()).Set(0)
		e.log.Error().Err(err).Str("source", e.source.Name()).Msg("snapshot fetch failed")
		e.logEvent("error", "source", "snapshot fetch failed: "+err.Error())

		ev := e.health.ReportFailure(e.source.Name(), e.now())
		e.dispatchHealthEvent(ctx, ev)
		return nil
	}

	metrics.PollCyclesTotal.WithLabelValues("ok").Inc()
	metrics.SourceUp.WithLabelValues(e.source.Name()).Set(1)

	ev := e.health.ReportSuccess(e.source.Name(), e.now())
	e.dispatchHealthEvent(ctx, ev)

	sem := make(chan struct{}, e.cfg.WorkerLimit)
	var wg sync.WaitGroup
	for _, snap := range snapshots {
		wg.Add(1)
		sem <- struct{}{}
		go func(snap model.SensorSnapshot) {
			defer wg.Done()
			defer func() { <-sem }()
			e.processSnapshot(ctx, snap)
		}(snap)
	}
	wg.Wait()

	e.log.Info().
		Int("sensors", len(snapshots)).
		Dur("elapsed", time.Since(start)).
		Msg("poll cycle complete")
	return nil
}

func (e *Engine) processSnapshot(ctx context.Context, snap model.SensorSnapshot) {
	metrics.SnapshotsObserved.Inc()
	log := logger.WithSensor(snap.SensorID)

	e.mu.Lock()
	tr, changed := e.tracker.Observe(snap)
	e.mu.Unlock()

	if changed {
		metrics.TransitionsDetected.Inc()
		log.Info().
			Str("old", tr.OldStatus).
			Str("new", tr.NewStatus).
			Int64("duration_s", tr.DurationSeconds).
			Msg("status transition")
		if err := e.recorder.SaveStatusChange(*tr); err != nil {
			log.Error().Err(err).Msg("failed to persist status change")
		}
	}

	rules, err := e.rules.ListEnabledRulesForSensor(snap.SensorID)
	if err != nil {
		log.Error().Err(err).Msg("rule lookup failed")
		e.evaluator.CommitTraffic(snap)
		return
	}

	for _, rule := range rules {
		if !e.evaluator.Evaluate(rule, snap) {
			continue
		}

		now := e.now().Unix()
		e.mu.Lock()
		fire := e.cooldown.ShouldFire(rule.ID, snap.SensorID, rule.CooldownSeconds, now)
		if fire {
			e.cooldown.Record(rule.ID, snap.SensorID, now)
		}
		e.mu.Unlock()

		if !fire {
			metrics.AlertsSuppressed.Inc()
			log.Debug().Str("rule_id", rule.ID).Msg("alert suppressed by cooldown")
			continue
		}

		subject, body := notify.FormatAlert(rule, snap, tr)
		rec := e.dispatcher.Dispatch(ctx, notify.Alert{
			Rule:       rule,
			SensorID:   snap.SensorID,
			SensorName: snap.Name,
			Status:     snap.Status,
			Message:    snap.Message,
			Subject:    subject,
			Body:       body,
		})

		metrics.AlertsFired.WithLabelValues(string(rule.Condition), string(rule.Priority)).Inc()
		if err := e.recorder.SaveAlertFiring(rec); err != nil {
			log.Error().Err(err).Str("rule_id", rule.ID).Msg("failed to persist alert firing")
		}
	}

	// The previous traffic value moves forward only after every rule for
	// this snapshot has been evaluated against it.
	e.evaluator.CommitTraffic(snap)
}

func (e *Engine) dispatchHealthEvent(ctx context.Context, ev HealthEvent) {
	if ev == HealthNone {
		return
	}

	source := e.source.Name()
	st, _ := e.health.State(source)

	var subject, body string
	switch ev {
	case HealthDown:
		subject, body = notify.FormatSourceDown(source, st, false)
	case HealthReminder:
		subject, body = notify.FormatSourceDown(source, st, true)
	case HealthRecovered:
		subject, body = notify.FormatSourceRecovered(source, st)
	}

	rule := model.AlertRule{
		ID:         "source-health",
		Name:       "source health",
		SensorID:   source,
		Channels:   e.cfg.HealthChannels,
		Recipients: e.cfg.HealthRecipients,
		Priority:   model.PriorityCritical,
	}
	if ev == HealthRecovered {
		rule.Priority = model.PriorityLow
	}

	rec := e.dispatcher.Dispatch(ctx, notify.Alert{
		Rule:       rule,
		SensorID:   source,
		SensorName: source,
		Status:     subject,
		Subject:    subject,
		Body:       body,
	})
	if err := e.recorder.SaveAlertFiring(rec); err != nil {
		e.log.Error().Err(err).Str("source", source).Msg("failed to persist source health alert")
	}
	e.logEvent("warn", "source_health", subject)
}

// Sweep evicts state entries older than the configured TTL. Run it
// periodically from the scheduler to bound memory.
func (e *Engine) Sweep() int {
	cutoff := e.now().Add(-e.cfg.StateTTL)
	removed := e.store.Sweep(cutoff)
	if removed > 0 {
		metrics.StateEntriesSwept.Add(float64(removed))
		e.log.Debug().Int("removed", removed).Msg("swept stale state entries")
	}
	return removed
}

// HealthStates returns the current source health states for introspection.
func (e *Engine) HealthStates() map[string]model.SourceHealthState {
	return e.health.States()
}

// Cooldowns returns the current cooldown entries for introspection.
func (e *Engine) Cooldowns() []model.CooldownEntry {
	return e.store.Cooldowns()
}

func (e *Engine) logEvent(level, category, message string) {
	entry := model.EventLogEntry{
		Level:     level,
		Category:  category,
		Message:   message,
		Timestamp: e.now(),
	}
	// A failing log write is itself only logged.
	if err := e.recorder.LogEvent(entry); err != nil {
		e.log.Warn().Err(err).Msg("failed to persist event log entry")
	}
}
