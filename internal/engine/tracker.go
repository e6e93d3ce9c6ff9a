package engine

import (
	"github.com/user/linkalert/internal/model"
)

// Tracker detects status transitions between consecutive snapshots of a
// sensor. State lives in the injected StateStore.
type Tracker struct {
	store StateStore
}

// NewTracker creates a tracker backed by the given state store.
func NewTracker(store StateStore) *Tracker {
	return &Tracker{store: store}
}

// Observe compares a snapshot against the tracked state for its sensor.
// The first observation for a sensor is a baseline: it is stored and no
// transition is emitted. A change in the raw status code emits a
// transition carrying the time spent in the old state; the free-text
// status is not compared because its labels vary cosmetically upstream.
func (t *Tracker) Observe(snap model.SensorSnapshot) (*model.StatusTransition, bool) {
	prev, ok := t.store.TrackedState(snap.SensorID)
	if !ok {
		t.store.SetTrackedState(snap.SensorID, model.TrackedState{
			Status:    snap.Status,
			StatusRaw: snap.StatusRaw,
			Timestamp: snap.Timestamp,
		})
		return nil, false
	}

	if prev.StatusRaw == snap.StatusRaw {
		// Same state: refresh the touch time so live sensors survive sweeps.
		t.store.SetTrackedState(snap.SensorID, prev)
		return nil, false
	}

	duration := snap.Timestamp - prev.Timestamp
	if duration < 0 {
		duration = 0
	}

	tr := &model.StatusTransition{
		SensorID:        snap.SensorID,
		SensorName:      snap.Name,
		OldStatus:       prev.Status,
		NewStatus:       snap.Status,
		OldStatusRaw:    prev.StatusRaw,
		NewStatusRaw:    snap.StatusRaw,
		DurationSeconds: duration,
		Timestamp:       snap.Timestamp,
	}

	t.store.SetTrackedState(snap.SensorID, model.TrackedState{
		Status:    snap.Status,
		StatusRaw: snap.StatusRaw,
		Timestamp: snap.Timestamp,
	})

	return tr, true
}
