package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/user/linkalert/internal/logger"
	"github.com/user/linkalert/internal/model"
)

// SQLiteStateStore implements engine.StateStore on the same SQLite
// database as the history tables. Use it instead of the in-memory store
// when the process does not persist between poll cycles (cron-style
// invocation): otherwise every cycle looks like a first observation and
// cooldown suppression silently resets.
type SQLiteStateStore struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSQLiteStateStore creates a state store sharing the SQLite handle.
func NewSQLiteStateStore(s *SQLiteStore) *SQLiteStateStore {
	return &SQLiteStateStore{
		db:  s.DB(),
		log: logger.WithComponent("state"),
	}
}

// TrackedState returns the last observed state for a sensor.
func (s *SQLiteStateStore) TrackedState(sensorID string) (model.TrackedState, bool) {
	var st model.TrackedState
	err := s.db.QueryRow(`
		SELECT status, status_raw, timestamp FROM tracked_state WHERE sensor_id = ?`,
		sensorID).Scan(&st.Status, &st.StatusRaw, &st.Timestamp)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.log.Error().Err(err).Str("sensor_id", sensorID).Msg("failed to read tracked state")
		}
		return model.TrackedState{}, false
	}
	return st, true
}

// SetTrackedState replaces the tracked state for a sensor. A failed write
// is logged: losing it means the next cycle treats the sensor as a first
// observation.
func (s *SQLiteStateStore) SetTrackedState(sensorID string, st model.TrackedState) {
	_, err := s.db.Exec(`
		INSERT INTO tracked_state (sensor_id, status, status_raw, timestamp, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(sensor_id) DO UPDATE SET
			status = excluded.status,
			status_raw = excluded.status_raw,
			timestamp = excluded.timestamp,
			updated_at = excluded.updated_at`,
		sensorID, st.Status, st.StatusRaw, st.Timestamp, time.Now().Unix())
	if err != nil {
		s.log.Error().Err(err).Str("sensor_id", sensorID).Msg("failed to persist tracked state")
	}
}

// LastTraffic returns the last successfully parsed traffic value.
func (s *SQLiteStateStore) LastTraffic(sensorID string) (float64, bool) {
	var mbit float64
	err := s.db.QueryRow(`
		SELECT mbit FROM last_traffic WHERE sensor_id = ?`, sensorID).Scan(&mbit)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.log.Error().Err(err).Str("sensor_id", sensorID).Msg("failed to read last traffic value")
		}
		return 0, false
	}
	return mbit, true
}

// SetLastTraffic stores the last parsed traffic value for a sensor.
func (s *SQLiteStateStore) SetLastTraffic(sensorID string, mbit float64, ts int64) {
	_, err := s.db.Exec(`
		INSERT INTO last_traffic (sensor_id, mbit, timestamp)
		VALUES (?, ?, ?)
		ON CONFLICT(sensor_id) DO UPDATE SET
			mbit = excluded.mbit,
			timestamp = excluded.timestamp`,
		sensorID, mbit, ts)
	if err != nil {
		s.log.Error().Err(err).Str("sensor_id", sensorID).Msg("failed to persist traffic value")
	}
}

// LastFired returns when a rule last fired for a sensor.
func (s *SQLiteStateStore) LastFired(ruleID, sensorID string) (int64, bool) {
	var ts int64
	err := s.db.QueryRow(`
		SELECT last_fired FROM cooldowns WHERE rule_id = ? AND sensor_id = ?`,
		ruleID, sensorID).Scan(&ts)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.log.Error().Err(err).Str("rule_id", ruleID).Str("sensor_id", sensorID).Msg("failed to read cooldown")
		}
		return 0, false
	}
	return ts, true
}

// SetLastFired records a firing time for a (rule, sensor) pair. A failed
// write is logged: losing it resets cooldown suppression for the pair.
func (s *SQLiteStateStore) SetLastFired(ruleID, sensorID string, ts int64) {
	_, err := s.db.Exec(`
		INSERT INTO cooldowns (rule_id, sensor_id, last_fired)
		VALUES (?, ?, ?)
		ON CONFLICT(rule_id, sensor_id) DO UPDATE SET last_fired = excluded.last_fired`,
		ruleID, sensorID, ts)
	if err != nil {
		s.log.Error().Err(err).Str("rule_id", ruleID).Str("sensor_id", sensorID).Msg("failed to persist cooldown")
	}
}

// Cooldowns returns all current cooldown entries.
func (s *SQLiteStateStore) Cooldowns() []model.CooldownEntry {
	rows, err := s.db.Query(`SELECT rule_id, sensor_id, last_fired FROM cooldowns`)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to list cooldowns")
		return nil
	}
	defer rows.Close()

	var entries []model.CooldownEntry
	for rows.Next() {
		var e model.CooldownEntry
		if err := rows.Scan(&e.RuleID, &e.SensorID, &e.LastFired); err != nil {
			s.log.Warn().Err(err).Msg("failed to scan cooldown row")
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

// Sweep evicts entries last touched before the cutoff.
func (s *SQLiteStateStore) Sweep(cutoff time.Time) int {
	unix := cutoff.Unix()
	removed := 0
	for _, stmt := range []string{
		`DELETE FROM tracked_state WHERE updated_at < ?`,
		`DELETE FROM last_traffic WHERE timestamp < ?`,
		`DELETE FROM cooldowns WHERE last_fired < ?`,
	} {
		res, err := s.db.Exec(stmt, unix)
		if err != nil {
			s.log.Warn().Err(err).Msg("state sweep delete failed")
			continue
		}
		if n, err := res.RowsAffected(); err == nil {
			removed += int(n)
		}
	}
	return removed
}
