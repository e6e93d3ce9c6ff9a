package engine

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/user/linkalert/internal/logger"
	"github.com/user/linkalert/internal/metrics"
	"github.com/user/linkalert/internal/model"
)

// conditionFunc decides whether a rule's condition holds for a snapshot.
type conditionFunc func(e *Evaluator, rule model.AlertRule, snap model.SensorSnapshot) bool

// Adding a condition kind means adding an entry here, not growing a branch.
var conditionTable = map[model.Condition]conditionFunc{
	model.CondDown: func(_ *Evaluator, _ model.AlertRule, snap model.SensorSnapshot) bool {
		// Status text fallback covers inconsistent upstream labels.
		return snap.StatusRaw == model.StatusDown ||
			strings.Contains(strings.ToLower(snap.Status), "down")
	},
	model.CondWarning: func(_ *Evaluator, _ model.AlertRule, snap model.SensorSnapshot) bool {
		return snap.StatusRaw == model.StatusWarning
	},
	model.CondUnusual: func(_ *Evaluator, _ model.AlertRule, snap model.SensorSnapshot) bool {
		return snap.StatusRaw != model.StatusUp
	},
	model.CondSlow: func(e *Evaluator, rule model.AlertRule, snap model.SensorSnapshot) bool {
		value, ok := e.trafficValue(snap)
		return ok && value > rule.Threshold
	},
	model.CondTrafficLow: func(e *Evaluator, rule model.AlertRule, snap model.SensorSnapshot) bool {
		value, ok := e.trafficValue(snap)
		return ok && value < rule.Threshold
	},
	model.CondTrafficSpike: func(e *Evaluator, rule model.AlertRule, snap model.SensorSnapshot) bool {
		value, ok := e.trafficValue(snap)
		if !ok {
			return false
		}
		prev, ok := e.store.LastTraffic(snap.SensorID)
		if !ok {
			return false
		}
		return value >= prev*(1+rule.Threshold/100)
	},
	model.CondTrafficDrop: func(e *Evaluator, rule model.AlertRule, snap model.SensorSnapshot) bool {
		value, ok := e.trafficValue(snap)
		if !ok {
			return false
		}
		prev, ok := e.store.LastTraffic(snap.SensorID)
		if !ok {
			return false
		}
		return value <= prev*(1-rule.Threshold/100)
	},
}

// Evaluator decides whether an alert rule's condition holds for a snapshot.
type Evaluator struct {
	store StateStore
	log   zerolog.Logger
}

// NewEvaluator creates an evaluator backed by the given state store.
func NewEvaluator(store StateStore) *Evaluator {
	return &Evaluator{
		store: store,
		log:   logger.WithComponent("evaluator"),
	}
}

// Evaluate reports whether the rule's condition holds. Reads the previous
// traffic value for spike/drop conditions but never mutates state; call
// CommitTraffic once per snapshot after all rules have been evaluated.
func (e *Evaluator) Evaluate(rule model.AlertRule, snap model.SensorSnapshot) bool {
	fn, ok := conditionTable[rule.Condition]
	if !ok {
		e.log.Warn().
			Str("rule_id", rule.ID).
			Str("condition", string(rule.Condition)).
			Msg("unknown rule condition")
		return false
	}
	return fn(e, rule, snap)
}

// CommitTraffic records the snapshot's parsed traffic value as the new
// previous value for its sensor. Unparseable values leave the previous
// value untouched.
func (e *Evaluator) CommitTraffic(snap model.SensorSnapshot) {
	value, ok := ParseTrafficValue(snap.LastValue)
	if !ok {
		return
	}
	e.store.SetLastTraffic(snap.SensorID, value, snap.Timestamp)
}

func (e *Evaluator) trafficValue(snap model.SensorSnapshot) (float64, bool) {
	value, ok := ParseTrafficValue(snap.LastValue)
	if !ok {
		metrics.ParseFailures.Inc()
		e.log.Warn().
			Str("sensor_id", snap.SensorID).
			Str("last_value", snap.LastValue).
			Msg("could not parse traffic value")
	}
	return value, ok
}
