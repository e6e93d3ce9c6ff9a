package storage

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/user/linkalert/internal/logger"
	"github.com/user/linkalert/internal/model"
)

// captureLogs routes the package logger into a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := logger.Logger
	logger.Logger = zerolog.New(&buf)
	t.Cleanup(func() { logger.Logger = prev })
	return &buf
}

func TestStateWriteFailuresAreLogged(t *testing.T) {
	buf := captureLogs(t)

	s, err := OpenSQLite(t.TempDir())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	st := NewSQLiteStateStore(s)
	s.Close()

	st.SetTrackedState("s1", model.TrackedState{Status: "Up", StatusRaw: 3, Timestamp: 100})
	st.SetLastTraffic("s1", 250, 100)
	st.SetLastFired("r1", "s1", 100)

	out := buf.String()
	for _, want := range []string{
		"failed to persist tracked state",
		"failed to persist traffic value",
		"failed to persist cooldown",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing log line %q in output:\n%s", want, out)
		}
	}
}

func TestStateReadAndSweepFailuresAreLogged(t *testing.T) {
	buf := captureLogs(t)

	s, err := OpenSQLite(t.TempDir())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	st := NewSQLiteStateStore(s)
	s.Close()

	if _, ok := st.TrackedState("s1"); ok {
		t.Error("read on a closed database must report not-found")
	}
	if entries := st.Cooldowns(); entries != nil {
		t.Errorf("cooldown listing on a closed database must be empty, got %v", entries)
	}
	if removed := st.Sweep(time.Now()); removed != 0 {
		t.Errorf("sweep on a closed database must remove nothing, got %d", removed)
	}

	out := buf.String()
	for _, want := range []string{
		"failed to read tracked state",
		"failed to list cooldowns",
		"state sweep delete failed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing log line %q in output:\n%s", want, out)
		}
	}
}
