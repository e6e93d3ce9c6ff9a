// Package engine implements alert evaluation and dispatch for sensor snapshots.
package engine

import (
	"sync"
	"time"

	"github.com/user/linkalert/internal/model"
)

// StateStore holds the engine's mutable state: last tracked status per
// sensor, last parsed traffic value per sensor, and last-fired times per
// (rule, sensor) pair. Implementations must be safe for concurrent use.
//
// The storage choice is injected rather than baked into the evaluation
// logic: a long-lived daemon uses the in-memory store, while cron-style
// invocations should use a persistent store so change detection and
// cooldown suppression survive process restarts.
type StateStore interface {
	TrackedState(sensorID string) (model.TrackedState, bool)
	SetTrackedState(sensorID string, st model.TrackedState)

	LastTraffic(sensorID string) (float64, bool)
	SetLastTraffic(sensorID string, mbit float64, ts int64)

	LastFired(ruleID, sensorID string) (int64, bool)
	SetLastFired(ruleID, sensorID string, ts int64)
	Cooldowns() []model.CooldownEntry

	// Sweep evicts entries last touched before the cutoff and returns
	// how many were removed.
	Sweep(cutoff time.Time) int
}

type trafficEntry struct {
	mbit float64
	ts   int64
}

type cooldownEntry struct {
	lastFired int64
	touched   time.Time
}

type trackedEntry struct {
	state   model.TrackedState
	touched time.Time
}

// MemoryStore is the in-process StateStore used by the long-lived daemon.
type MemoryStore struct {
	mu        sync.RWMutex
	tracked   map[string]trackedEntry
	traffic   map[string]trafficEntry
	cooldowns map[string]cooldownEntry
	now       func() time.Time
}

// NewMemoryStore creates an empty in-memory state store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tracked:   make(map[string]trackedEntry),
		traffic:   make(map[string]trafficEntry),
		cooldowns: make(map[string]cooldownEntry),
		now:       time.Now,
	}
}

func cooldownKey(ruleID, sensorID string) string {
	return ruleID + "/" + sensorID
}

// TrackedState returns the last observed state for a sensor.
func (s *MemoryStore) TrackedState(sensorID string) (model.TrackedState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.tracked[sensorID]
	return e.state, ok
}

// SetTrackedState replaces the tracked state for a sensor.
func (s *MemoryStore) SetTrackedState(sensorID string, st model.TrackedState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracked[sensorID] = trackedEntry{state: st, touched: s.now()}
}

// LastTraffic returns the last successfully parsed traffic value in Mbit/s.
func (s *MemoryStore) LastTraffic(sensorID string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.traffic[sensorID]
	return e.mbit, ok
}

// SetLastTraffic stores the last parsed traffic value for a sensor.
func (s *MemoryStore) SetLastTraffic(sensorID string, mbit float64, ts int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.traffic[sensorID] = trafficEntry{mbit: mbit, ts: ts}
}

// LastFired returns when a rule last fired for a sensor.
func (s *MemoryStore) LastFired(ruleID, sensorID string) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.cooldowns[cooldownKey(ruleID, sensorID)]
	return e.lastFired, ok
}

// SetLastFired records a firing time for a (rule, sensor) pair.
func (s *MemoryStore) SetLastFired(ruleID, sensorID string, ts int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cooldowns[cooldownKey(ruleID, sensorID)] = cooldownEntry{lastFired: ts, touched: s.now()}
}

// Cooldowns returns all current cooldown entries for introspection.
func (s *MemoryStore) Cooldowns() []model.CooldownEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]model.CooldownEntry, 0, len(s.cooldowns))
	for key, e := range s.cooldowns {
		ruleID, sensorID := splitCooldownKey(key)
		entries = append(entries, model.CooldownEntry{
			RuleID:    ruleID,
			SensorID:  sensorID,
			LastFired: e.lastFired,
		})
	}
	return entries
}

func splitCooldownKey(key string) (string, string) {
	for i := 0; i < len(key); i++ {
		if key[i] == '/' {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}

// Sweep evicts entries last touched before the cutoff to bound memory.
func (s *MemoryStore) Sweep(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.tracked {
		if e.touched.Before(cutoff) {
			delete(s.tracked, id)
			removed++
		}
	}
	for id, e := range s.traffic {
		if time.Unix(e.ts, 0).Before(cutoff) {
			delete(s.traffic, id)
			removed++
		}
	}
	for key, e := range s.cooldowns {
		if e.touched.Before(cutoff) {
			delete(s.cooldowns, key)
			removed++
		}
	}
	return removed
}
