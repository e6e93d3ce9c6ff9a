package engine

import "testing"

func TestCooldownWindow(t *testing.T) {
	cd := NewCooldown(NewMemoryStore())

	if !cd.ShouldFire("r1", "s1", 300, 0) {
		t.Fatal("no prior firing: must fire")
	}
	cd.Record("r1", "s1", 0)

	for _, now := range []int64{1, 150, 299} {
		if cd.ShouldFire("r1", "s1", 300, now) {
			t.Errorf("t=%d: inside window, must not fire", now)
		}
	}

	for _, now := range []int64{300, 301, 1000} {
		if !cd.ShouldFire("r1", "s1", 300, now) {
			t.Errorf("t=%d: window elapsed, must fire", now)
		}
	}
}

func TestCooldownZeroMeansNoSuppression(t *testing.T) {
	cd := NewCooldown(NewMemoryStore())

	cd.Record("r1", "s1", 100)
	if !cd.ShouldFire("r1", "s1", 0, 101) {
		t.Error("cooldown 0 must always fire")
	}
}

func TestCooldownKeyGranularity(t *testing.T) {
	cd := NewCooldown(NewMemoryStore())

	cd.Record("r1", "s1", 0)

	// Same rule, different sensor: fires independently.
	if !cd.ShouldFire("r1", "s2", 300, 10) {
		t.Error("same rule on a different sensor must not be suppressed")
	}
	// Different rule, same sensor: fires independently.
	if !cd.ShouldFire("r2", "s1", 300, 10) {
		t.Error("a different rule on the same sensor must not be suppressed")
	}
	// Same pair: suppressed.
	if cd.ShouldFire("r1", "s1", 300, 10) {
		t.Error("same (rule, sensor) pair inside the window must be suppressed")
	}
}
