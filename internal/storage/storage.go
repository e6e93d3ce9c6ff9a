// Package storage provides persistence for rules, history, and alerts.
package storage

import (
	"fmt"
	"strings"

	"github.com/user/linkalert/internal/model"
)

// Store is the persistence collaborator: append-only history writes plus
// the rule lookups the engine consumes. Write failures are surfaced as
// errors; the engine logs and swallows them.
type Store interface {
	SaveStatusChange(tr model.StatusTransition) error
	SaveAlertFiring(rec model.AlertFiringRecord) error
	LogEvent(entry model.EventLogEntry) error

	ListEnabledRulesForSensor(sensorID string) ([]model.AlertRule, error)
	ListRules() ([]model.AlertRule, error)
	InsertRule(rule model.AlertRule) error
	SetRuleEnabled(ruleID string, enabled bool) error

	RecentAlerts(limit int) ([]model.AlertFiringRecord, error)
	RecentStatusChanges(limit int) ([]model.StatusTransition, error)

	Close() error
}

// Options selects and configures a storage backend.
type Options struct {
	Backend     string // sqlite or postgres
	DataDir     string // sqlite database directory
	PostgresDSN string
}

// Open creates the configured Store backend.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "sqlite", "":
		return OpenSQLite(opts.DataDir)
	case "postgres":
		return OpenPostgres(opts.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}

// joinList and splitList store string slices as comma-separated TEXT
// columns. Channel names and addresses never contain commas.
func joinList(items []string) string {
	return strings.Join(items, ",")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
