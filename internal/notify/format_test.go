package notify

import (
	"strings"
	"testing"

	"github.com/user/linkalert/internal/model"
)

func TestFormatAlertIsDeterministic(t *testing.T) {
	rule := model.AlertRule{Name: "link down", Condition: model.CondDown, Priority: model.PriorityHigh}
	snap := model.SensorSnapshot{
		SensorID:  "1234",
		Name:      "uplink-berlin",
		Status:    "Down",
		StatusRaw: model.StatusDown,
		LastValue: "0 kbit/s",
		Message:   "No response",
		Timestamp: 1700000000,
	}
	tr := &model.StatusTransition{
		SensorID:        "1234",
		OldStatus:       "Up",
		NewStatus:       "Down",
		DurationSeconds: 3600,
	}

	subject1, body1 := FormatAlert(rule, snap, tr)
	subject2, body2 := FormatAlert(rule, snap, tr)
	if subject1 != subject2 || body1 != body2 {
		t.Fatal("identical inputs must render identically")
	}

	if want := "[HIGH] link down: uplink-berlin is Down"; subject1 != want {
		t.Errorf("subject = %q, want %q", subject1, want)
	}
	for _, want := range []string{
		"Sensor: uplink-berlin (1234)",
		"Status: Up -> Down",
		"Was Up for 1h0m0s",
		"Last value: 0 kbit/s",
		"Message: No response",
		"Time: 2023-11-14T22:13:20Z",
	} {
		if !strings.Contains(body1, want) {
			t.Errorf("body missing %q:\n%s", want, body1)
		}
	}
}

func TestFormatAlertWithoutTransition(t *testing.T) {
	rule := model.AlertRule{Name: "low traffic", Condition: model.CondTrafficLow, Priority: model.PriorityLow}
	snap := model.SensorSnapshot{SensorID: "9", Name: "core", Status: "Up", Timestamp: 1700000000}

	_, body := FormatAlert(rule, snap, nil)
	if !strings.Contains(body, "Status: Up\n") {
		t.Errorf("body must fall back to the current status:\n%s", body)
	}
	if strings.Contains(body, "->") {
		t.Errorf("no transition line expected:\n%s", body)
	}
}
