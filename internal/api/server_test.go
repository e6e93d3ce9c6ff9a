package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type stubJobs struct {
	triggered []string
}

func (s *stubJobs) TriggerJob(name string) bool {
	if name != "poll_cycle" {
		return false
	}
	s.triggered = append(s.triggered, name)
	return true
}

func TestTriggerJobRoute(t *testing.T) {
	jobs := &stubJobs{}
	r := New(nil, nil, jobs, 0).Router()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/jobs/poll_cycle/trigger", nil))
	if w.Code != http.StatusAccepted {
		t.Fatalf("known job: status = %d, want %d", w.Code, http.StatusAccepted)
	}
	if len(jobs.triggered) != 1 || jobs.triggered[0] != "poll_cycle" {
		t.Errorf("triggered = %v, want [poll_cycle]", jobs.triggered)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/jobs/no_such_job/trigger", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown job: status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if !strings.Contains(w.Body.String(), "no_such_job") {
		t.Errorf("error body must name the job, got %q", w.Body.String())
	}
}

func TestTriggerJobWithoutScheduler(t *testing.T) {
	r := New(nil, nil, nil, 0).Router()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/jobs/poll_cycle/trigger", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("nil trigger: status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHealthzRoute(t *testing.T) {
	r := New(nil, nil, nil, 0).Router()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Errorf("healthz: status = %d, want %d", w.Code, http.StatusOK)
	}
}
