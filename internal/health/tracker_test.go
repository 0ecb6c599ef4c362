package health

import "testing"

func record(t *Tracker, successes, failures int) {
	for i := 0; i < successes; i++ {
		t.Record(true)
	}
	for i := 0; i < failures; i++ {
		t.Record(false)
	}
}

func TestTracker_Starting(t *testing.T) {
	tr := NewTracker()
	record(tr, 2, 1)
	if got := tr.State(); got != Starting {
		t.Fatalf("State() = %v, want Starting", got)
	}
}

func TestTracker_FiveSamplesZeroFailures_Healthy(t *testing.T) {
	tr := NewTracker()
	record(tr, 5, 0)
	if got := tr.State(); got != Healthy {
		t.Fatalf("State() = %v, want Healthy", got)
	}
}

func TestTracker_TwoOfFive_Degraded(t *testing.T) {
	tr := NewTracker()
	record(tr, 3, 2)
	if got := tr.State(); got != Degraded {
		t.Fatalf("State() = %v, want Degraded", got)
	}
}

func TestTracker_FourOfFive_Unhealthy(t *testing.T) {
	tr := NewTracker()
	record(tr, 1, 4)
	if got := tr.State(); got != Unhealthy {
		t.Fatalf("State() = %v, want Unhealthy", got)
	}
}

func TestTracker_SlidingWindowEvictsOldest(t *testing.T) {
	tr := NewTracker()
	// 20 failures fills the window unhealthy...
	record(tr, 0, 20)
	if got := tr.State(); got != Unhealthy {
		t.Fatalf("State() = %v, want Unhealthy", got)
	}
	// ...then 20 successes should fully displace them.
	record(tr, 20, 0)
	if got := tr.State(); got != Healthy {
		t.Fatalf("State() after eviction = %v, want Healthy", got)
	}
	if got := tr.Samples(); got != 20 {
		t.Fatalf("Samples() = %d, want 20", got)
	}
}

func TestTracker_NotResetOnReconnect(t *testing.T) {
	// History is not reset on reconnect: a flapping provider that
	// briefly recovers stays quarantined until enough fresh successes
	// displace the failures already in the window.
	tr := NewTracker()
	record(tr, 0, 11)
	record(tr, 9, 0)
	if got := tr.State(); got != Unhealthy {
		t.Fatalf("State() = %v, want Unhealthy (11 of 20 failures still in window)", got)
	}
}
