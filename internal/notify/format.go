package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/user/linkalert/internal/model"
)

// Formatting is pure data: the same inputs always produce the same
// subject and body.

func priorityTag(p model.Priority) string {
	return "[" + strings.ToUpper(string(p)) + "]"
}

// FormatAlert renders a sensor alert for dispatch.
func FormatAlert(rule model.AlertRule, snap model.SensorSnapshot, tr *model.StatusTransition) (string, string) {
	subject := fmt.Sprintf("%s %s: %s is %s", priorityTag(rule.Priority), rule.Name, snap.Name, snap.Status)

	var b strings.Builder
	fmt.Fprintf(&b, "Sensor: %s (%s)\n", snap.Name, snap.SensorID)
	fmt.Fprintf(&b, "Rule: %s (%s)\n", rule.Name, rule.Condition)
	if tr != nil {
		fmt.Fprintf(&b, "Status: %s -> %s\n", tr.OldStatus, tr.NewStatus)
		fmt.Fprintf(&b, "Was %s for %s\n", tr.OldStatus, formatDuration(tr.DurationSeconds))
	} else {
		fmt.Fprintf(&b, "Status: %s\n", snap.Status)
	}
	if snap.LastValue != "" {
		fmt.Fprintf(&b, "Last value: %s\n", snap.LastValue)
	}
	if snap.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", snap.Message)
	}
	fmt.Fprintf(&b, "Time: %s\n", time.Unix(snap.Timestamp, 0).UTC().Format(time.RFC3339))

	return subject, b.String()
}

// FormatSourceDown renders the standing "source unreachable" alert.
func FormatSourceDown(source string, st model.SourceHealthState, reminder bool) (string, string) {
	subject := fmt.Sprintf("[CRITICAL] monitoring source %q is unreachable", source)
	if reminder {
		subject += " (reminder)"
	}
	body := fmt.Sprintf("Source: %s\nConsecutive failures: %d\nLast check: %s\n",
		source,
		st.ConsecutiveFailures,
		st.LastCheckTime.UTC().Format(time.RFC3339))
	return subject, body
}

// FormatSourceRecovered renders the one-time recovery alert.
func FormatSourceRecovered(source string, st model.SourceHealthState) (string, string) {
	subject := fmt.Sprintf("[INFO] monitoring source %q recovered", source)
	body := fmt.Sprintf("Source: %s\nRecovered at: %s\n",
		source,
		st.LastCheckTime.UTC().Format(time.RFC3339))
	return subject, body
}

func formatDuration(seconds int64) string {
	d := time.Duration(seconds) * time.Second
	if d < time.Minute {
		return fmt.Sprintf("%ds", seconds)
	}
	return d.String()
}
