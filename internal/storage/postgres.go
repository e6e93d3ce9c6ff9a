package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/user/linkalert/internal/model"
)

// PostgresStore implements Store on PostgreSQL for deployments where the
// engine runs next to an existing relational database.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects to PostgreSQL and migrates the schema.
func OpenPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) createTables() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS alert_rules (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			sensor_id TEXT NOT NULL,
			condition TEXT NOT NULL,
			threshold DOUBLE PRECISION NOT NULL DEFAULT 0,
			channels TEXT NOT NULL DEFAULT '',
			recipients TEXT NOT NULL DEFAULT '',
			cooldown_seconds BIGINT NOT NULL DEFAULT 0,
			priority TEXT NOT NULL DEFAULT 'medium',
			enabled BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alert_rules_sensor ON alert_rules(sensor_id)`,

		`CREATE TABLE IF NOT EXISTS status_changes (
			id BIGSERIAL PRIMARY KEY,
			sensor_id TEXT NOT NULL,
			sensor_name TEXT,
			old_status TEXT,
			new_status TEXT,
			old_status_raw INTEGER,
			new_status_raw INTEGER,
			duration_seconds BIGINT,
			timestamp BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_status_changes_sensor ON status_changes(sensor_id)`,
		`CREATE INDEX IF NOT EXISTS idx_status_changes_ts ON status_changes(timestamp)`,

		`CREATE TABLE IF NOT EXISTS alert_firings (
			id TEXT PRIMARY KEY,
			rule_id TEXT NOT NULL,
			sensor_id TEXT NOT NULL,
			sensor_name TEXT,
			status TEXT,
			message TEXT,
			channels_succeeded TEXT NOT NULL DEFAULT '',
			recipients TEXT NOT NULL DEFAULT '',
			overall_success BOOLEAN NOT NULL DEFAULT FALSE,
			error_summary TEXT,
			timestamp TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alert_firings_ts ON alert_firings(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_alert_firings_rule ON alert_firings(rule_id)`,

		`CREATE TABLE IF NOT EXISTS event_log (
			id BIGSERIAL PRIMARY KEY,
			level TEXT NOT NULL,
			category TEXT NOT NULL,
			message TEXT NOT NULL,
			metadata JSONB,
			timestamp TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_event_log_ts ON event_log(timestamp)`,
	}

	for _, table := range tables {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to execute: %s: %w", table, err)
		}
	}
	return nil
}

// SaveStatusChange appends one transition to the history table.
func (s *PostgresStore) SaveStatusChange(tr model.StatusTransition) error {
	_, err := s.db.Exec(`
		INSERT INTO status_changes
			(sensor_id, sensor_name, old_status, new_status, old_status_raw, new_status_raw, duration_seconds, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tr.SensorID, tr.SensorName, tr.OldStatus, tr.NewStatus,
		tr.OldStatusRaw, tr.NewStatusRaw, tr.DurationSeconds, tr.Timestamp)
	return err
}

// SaveAlertFiring appends one alert firing record.
func (s *PostgresStore) SaveAlertFiring(rec model.AlertFiringRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO alert_firings
			(id, rule_id, sensor_id, sensor_name, status, message, channels_succeeded, recipients, overall_success, error_summary, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.ID, rec.RuleID, rec.SensorID, rec.SensorName, rec.Status, rec.Message,
		joinList(rec.ChannelsSucceeded), joinList(rec.Recipients),
		rec.OverallSuccess, rec.ErrorSummary, rec.Timestamp.UTC())
	return err
}

// LogEvent appends one structured log entry.
func (s *PostgresStore) LogEvent(entry model.EventLogEntry) error {
	var metadata interface{}
	if entry.Metadata != nil {
		data, err := json.Marshal(entry.Metadata)
		if err == nil {
			metadata = data
		}
	}
	_, err := s.db.Exec(`
		INSERT INTO event_log (level, category, message, metadata, timestamp)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.Level, entry.Category, entry.Message, metadata, entry.Timestamp.UTC())
	return err
}

// ListEnabledRulesForSensor returns the enabled rules matching a sensor.
func (s *PostgresStore) ListEnabledRulesForSensor(sensorID string) ([]model.AlertRule, error) {
	rows, err := s.db.Query(`
		SELECT id, name, sensor_id, condition, threshold, channels, recipients, cooldown_seconds, priority, enabled
		FROM alert_rules
		WHERE sensor_id = $1 AND enabled`, sensorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

// ListRules returns every rule, enabled or not.
func (s *PostgresStore) ListRules() ([]model.AlertRule, error) {
	rows, err := s.db.Query(`
		SELECT id, name, sensor_id, condition, threshold, channels, recipients, cooldown_seconds, priority, enabled
		FROM alert_rules
		ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

// InsertRule stores one rule.
func (s *PostgresStore) InsertRule(rule model.AlertRule) error {
	_, err := s.db.Exec(`
		INSERT INTO alert_rules
			(id, name, sensor_id, condition, threshold, channels, recipients, cooldown_seconds, priority, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rule.ID, rule.Name, rule.SensorID, string(rule.Condition), rule.Threshold,
		joinList(rule.Channels), joinList(rule.Recipients),
		rule.CooldownSeconds, string(rule.Priority), rule.Enabled)
	return err
}

// SetRuleEnabled flips a rule's enabled flag.
func (s *PostgresStore) SetRuleEnabled(ruleID string, enabled bool) error {
	_, err := s.db.Exec(`UPDATE alert_rules SET enabled = $1 WHERE id = $2`, enabled, ruleID)
	return err
}

// RecentAlerts returns the latest alert firings, newest first.
func (s *PostgresStore) RecentAlerts(limit int) ([]model.AlertFiringRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, rule_id, sensor_id, sensor_name, status, message, channels_succeeded, recipients, overall_success, error_summary, timestamp
		FROM alert_firings
		ORDER BY timestamp DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.AlertFiringRecord
	for rows.Next() {
		var rec model.AlertFiringRecord
		var channels, recipients string
		var errorSummary sql.NullString
		var ts time.Time
		if err := rows.Scan(&rec.ID, &rec.RuleID, &rec.SensorID, &rec.SensorName,
			&rec.Status, &rec.Message, &channels, &recipients,
			&rec.OverallSuccess, &errorSummary, &ts); err != nil {
			return nil, err
		}
		rec.ChannelsSucceeded = splitList(channels)
		rec.Recipients = splitList(recipients)
		rec.ErrorSummary = errorSummary.String
		rec.Timestamp = ts
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RecentStatusChanges returns the latest transitions, newest first.
func (s *PostgresStore) RecentStatusChanges(limit int) ([]model.StatusTransition, error) {
	rows, err := s.db.Query(`
		SELECT sensor_id, sensor_name, old_status, new_status, old_status_raw, new_status_raw, duration_seconds, timestamp
		FROM status_changes
		ORDER BY timestamp DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transitions []model.StatusTransition
	for rows.Next() {
		var tr model.StatusTransition
		if err := rows.Scan(&tr.SensorID, &tr.SensorName, &tr.OldStatus, &tr.NewStatus,
			&tr.OldStatusRaw, &tr.NewStatusRaw, &tr.DurationSeconds, &tr.Timestamp); err != nil {
			return nil, err
		}
		transitions = append(transitions, tr)
	}
	return transitions, rows.Err()
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
