package engine

// Cooldown suppresses re-firing of a rule for the same sensor within the
// rule's cooldown window. The key granularity is exactly (rule, sensor):
// a rule fires independently for different sensors but not twice for the
// same sensor within the window.
//
// This is advisory in-process state, not a distributed lock. ShouldFire
// and Record must be called under the engine's lock so that overlapping
// cycles cannot both decide to fire.
type Cooldown struct {
	store StateStore
}

// NewCooldown creates a cooldown gatekeeper backed by the state store.
func NewCooldown(store StateStore) *Cooldown {
	return &Cooldown{store: store}
}

// ShouldFire reports whether the rule may fire for the sensor at the given
// time. A cooldown of zero means no suppression.
func (c *Cooldown) ShouldFire(ruleID, sensorID string, cooldownSeconds, now int64) bool {
	if cooldownSeconds <= 0 {
		return true
	}
	last, ok := c.store.LastFired(ruleID, sensorID)
	if !ok {
		return true
	}
	return now-last >= cooldownSeconds
}

// Record marks the rule as having fired for the sensor at the given time.
func (c *Cooldown) Record(ruleID, sensorID string, now int64) {
	c.store.SetLastFired(ruleID, sensorID, now)
}
