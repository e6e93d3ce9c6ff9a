package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/user/linkalert/internal/model"
)

// SQLiteStore implements Store on an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) the SQLite database under dataDir.
func OpenSQLite(dataDir string) (*SQLiteStore, error) {
	dbPath := filepath.Join(dataDir, "linkalert.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createTables() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS alert_rules (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			sensor_id TEXT NOT NULL,
			condition TEXT NOT NULL,
			threshold REAL NOT NULL DEFAULT 0,
			channels TEXT NOT NULL DEFAULT '',
			recipients TEXT NOT NULL DEFAULT '',
			cooldown_seconds INTEGER NOT NULL DEFAULT 0,
			priority TEXT NOT NULL DEFAULT 'medium',
			enabled INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alert_rules_sensor ON alert_rules(sensor_id)`,

		`CREATE TABLE IF NOT EXISTS status_changes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sensor_id TEXT NOT NULL,
			sensor_name TEXT,
			old_status TEXT,
			new_status TEXT,
			old_status_raw INTEGER,
			new_status_raw INTEGER,
			duration_seconds INTEGER,
			timestamp INTEGER NOT NULL
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
			overall_success INTEGER NOT NULL DEFAULT 0,
			error_summary TEXT,
			timestamp DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alert_firings_ts ON alert_firings(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_alert_firings_rule ON alert_firings(rule_id)`,

		`CREATE TABLE IF NOT EXISTS event_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			level TEXT NOT NULL,
			category TEXT NOT NULL,
			message TEXT NOT NULL,
			metadata TEXT,
			timestamp DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_event_log_ts ON event_log(timestamp)`,

		`CREATE TABLE IF NOT EXISTS tracked_state (
			sensor_id TEXT PRIMARY KEY,
			status TEXT,
			status_raw INTEGER NOT NULL,
			timestamp INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS last_traffic (
			sensor_id TEXT PRIMARY KEY,
			mbit REAL NOT NULL,
			timestamp INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS cooldowns (
			rule_id TEXT NOT NULL,
			sensor_id TEXT NOT NULL,
			last_fired INTEGER NOT NULL,
			PRIMARY KEY (rule_id, sensor_id)
		)`,
	}

	for _, table := range tables {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to execute: %s: %w", table, err)
		}
	}
	return nil
}

// DB exposes the underlying handle so the SQLite state store can share it.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// SaveStatusChange appends one transition to the history table.
func (s *SQLiteStore) SaveStatusChange(tr model.StatusTransition) error {
	_, err := s.db.Exec(`
		INSERT INTO status_changes
			(sensor_id, sensor_name, old_status, new_status, old_status_raw, new_status_raw, duration_seconds, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tr.SensorID, tr.SensorName, tr.OldStatus, tr.NewStatus,
		tr.OldStatusRaw, tr.NewStatusRaw, tr.DurationSeconds, tr.Timestamp)
	return err
}

// SaveAlertFiring appends one alert firing record.
func (s *SQLiteStore) SaveAlertFiring(rec model.AlertFiringRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO alert_firings
			(id, rule_id, sensor_id, sensor_name, status, message, channels_succeeded, recipients, overall_success, error_summary, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.RuleID, rec.SensorID, rec.SensorName, rec.Status, rec.Message,
		joinList(rec.ChannelsSucceeded), joinList(rec.Recipients),
		rec.OverallSuccess, rec.ErrorSummary, rec.Timestamp.UTC())
	return err
}

// LogEvent appends one structured log entry.
func (s *SQLiteStore) LogEvent(entry model.EventLogEntry) error {
	var metadata []byte
	if entry.Metadata != nil {
		metadata, _ = json.Marshal(entry.Metadata)
	}
	_, err := s.db.Exec(`
		INSERT INTO event_log (level, category, message, metadata, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		entry.Level, entry.Category, entry.Message, string(metadata), entry.Timestamp.UTC())
	return err
}

// ListEnabledRulesForSensor returns the enabled rules matching a sensor.
func (s *SQLiteStore) ListEnabledRulesForSensor(sensorID string) ([]model.AlertRule, error) {
	rows, err := s.db.Query(`
		SELECT id, name, sensor_id, condition, threshold, channels, recipients, cooldown_seconds, priority, enabled
		FROM alert_rules
		WHERE sensor_id = ? AND enabled = 1`, sensorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

// ListRules returns every rule, enabled or not.
func (s *SQLiteStore) ListRules() ([]model.AlertRule, error) {
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
func (s *SQLiteStore) InsertRule(rule model.AlertRule) error {
	_, err := s.db.Exec(`
		INSERT INTO alert_rules
			(id, name, sensor_id, condition, threshold, channels, recipients, cooldown_seconds, priority, enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.Name, rule.SensorID, string(rule.Condition), rule.Threshold,
		joinList(rule.Channels), joinList(rule.Recipients),
		rule.CooldownSeconds, string(rule.Priority), rule.Enabled)
	return err
}

// SetRuleEnabled flips a rule's enabled flag.
func (s *SQLiteStore) SetRuleEnabled(ruleID string, enabled bool) error {
	_, err := s.db.Exec(`UPDATE alert_rules SET enabled = ? WHERE id = ?`, enabled, ruleID)
	return err
}

// RecentAlerts returns the latest alert firings, newest first.
func (s *SQLiteStore) RecentAlerts(limit int) ([]model.AlertFiringRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, rule_id, sensor_id, sensor_name, status, message, channels_succeeded, recipients, overall_success, error_summary, timestamp
		FROM alert_firings
		ORDER BY timestamp DESC
		LIMIT ?`, limit)
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
func (s *SQLiteStore) RecentStatusChanges(limit int) ([]model.StatusTransition, error) {
	rows, err := s.db.Query(`
		SELECT sensor_id, sensor_name, old_status, new_status, old_status_raw, new_status_raw, duration_seconds, timestamp
		FROM status_changes
		ORDER BY timestamp DESC
		LIMIT ?`, limit)
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
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanRules(rows *sql.Rows) ([]model.AlertRule, error) {
	var rules []model.AlertRule
	for rows.Next() {
		var rule model.AlertRule
		var condition, priority, channels, recipients string
		if err := rows.Scan(&rule.ID, &rule.Name, &rule.SensorID, &condition, &rule.Threshold,
			&channels, &recipients, &rule.CooldownSeconds, &priority, &rule.Enabled); err != nil {
			return nil, err
		}
		rule.Condition = model.Condition(condition)
		rule.Priority = model.Priority(priority)
		rule.Channels = splitList(channels)
		rule.Recipients = splitList(recipients)
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}
