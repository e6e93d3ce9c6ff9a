// Package model defines core data structures for linkalert.
package model

import "time"

// Raw status codes reported by the monitoring backend.
const (
	StatusUp      = 3
	StatusWarning = 4
	StatusDown    = 5
	StatusDownAck = 13
)

// SensorSnapshot represents one observed reading of a monitored sensor.
// Snapshots are immutable once created.
type SensorSnapshot struct {
	SensorID  string `json:"sensor_id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	StatusRaw int    `json:"status_raw"`
	Message   string `json:"message"`
	LastValue string `json:"last_value"`
	Timestamp int64  `json:"timestamp"`
}

// TrackedState is the most recently observed state for a sensor.
type TrackedState struct {
	Status    string `json:"status"`
	StatusRaw int    `json:"status_raw"`
	Timestamp int64  `json:"timestamp"`
}

// StatusTransition represents a detected change in a sensor's status
// between two consecutive snapshots.
type StatusTransition struct {
	SensorID        string `json:"sensor_id"`
	SensorName      string `json:"sensor_name"`
	OldStatus       string `json:"old_status"`
	NewStatus       string `json:"new_status"`
	OldStatusRaw    int    `json:"old_status_raw"`
	NewStatusRaw    int    `json:"new_status_raw"`
	DurationSeconds int64  `json:"duration_seconds"`
	Timestamp       int64  `json:"timestamp"`
}

// Condition is the predicate type an alert rule evaluates.
type Condition string

const (
	CondDown         Condition = "down"
	CondWarning      Condition = "warning"
	CondUnusual      Condition = "unusual"
	CondSlow         Condition = "slow"
	CondTrafficLow   Condition = "trafficLow"
	CondTrafficSpike Condition = "trafficSpike"
	CondTrafficDrop  Condition = "trafficDrop"
)

// Priority indicates how urgent an alert is.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// AlertRule describes when and where to alert for a sensor.
type AlertRule struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	SensorID        string    `json:"sensor_id"`
	Condition       Condition `json:"condition"`
	Threshold       float64   `json:"threshold"`
	Channels        []string  `json:"channels"`
	Recipients      []string  `json:"recipients"`
	CooldownSeconds int64     `json:"cooldown_seconds"`
	Priority        Priority  `json:"priority"`
	Enabled         bool      `json:"enabled"`
}

// CooldownEntry records when a rule last fired for a sensor.
type CooldownEntry struct {
	RuleID    string `json:"rule_id"`
	SensorID  string `json:"sensor_id"`
	LastFired int64  `json:"last_fired"`
}

// NotificationOutcome is the result of one channel's send attempt.
type NotificationOutcome struct {
	Channel string `json:"channel"`
	Success bool   `json:"success"`
	Err     string `json:"error,omitempty"`
}

// AlertFiringRecord is the persisted outcome of dispatching one alert.
type AlertFiringRecord struct {
	ID                string    `json:"id"`
	RuleID            string    `json:"rule_id"`
	SensorID          string    `json:"sensor_id"`
	SensorName        string    `json:"sensor_name"`
	Status            string    `json:"status"`
	Message           string    `json:"message"`
	ChannelsSucceeded []string  `json:"channels_succeeded"`
	Recipients        []string  `json:"recipients"`
	OverallSuccess    bool      `json:"overall_success"`
	ErrorSummary      string    `json:"error_summary,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// SourceHealthState tracks reachability of one monitored source.
type SourceHealthState struct {
	IsDown              bool      `json:"is_down"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastCheckTime       time.Time `json:"last_check_time"`
	LastAlertTime       time.Time `json:"last_alert_time"`
}

// EventLogEntry is a structured log record persisted alongside history.
type EventLogEntry struct {
	Level     string            `json:"level"`
	Category  string            `json:"category"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// StatusName maps a raw status code to its canonical label.
func StatusName(raw int) string {
	switch raw {
	case StatusUp:
		return "Up"
	case StatusWarning:
		return "Warning"
	case StatusDown:
		return "Down"
	case StatusDownAck:
		return "Down (Acknowledged)"
	default:
		return "Unknown"
	}
}
