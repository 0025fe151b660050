package motion

import (
	"math"
	"testing"
)

func TestPositionArithmetic(t *testing.T) {
	a := Position{X: 1, Y: 2, Z: 3, E: 4}
	b := Position{X: 0.5, Y: 0.5, Z: 0.5, E: 0.5}
	sum := a.Add(b)
	if sum != (Position{X: 1.5, Y: 2.5, Z: 3.5, E: 4.5}) {
		t.Fatalf("unexpected sum: %+v", sum)
	}
	diff := a.Sub(b)
	if diff != (Position{X: 0.5, Y: 1.5, Z: 2.5, E: 3.5}) {
		t.Fatalf("unexpected diff: %+v", diff)
	}
	scaled := a.Scale(2)
	if scaled != (Position{X: 2, Y: 4, Z: 6, E: 8}) {
		t.Fatalf("unexpected scale: %+v", scaled)
	}
}

func TestNewSegmentUnitDirection(t *testing.T) {
	start := Position{X: 0, Y: 0, Z: 0, E: 0}
	end := Position{X: 3, Y: 4, Z: 0, E: 0}
	seg := NewSegment(1, Move{Target: end, FeedRate: 50}, start, end)
	if math.Abs(seg.LengthMM-5) > 1e-9 {
		t.Fatalf("expected length 5, got %v", seg.LengthMM)
	}
	if math.Abs(seg.UnitDir.X-0.6) > 1e-9 || math.Abs(seg.UnitDir.Y-0.8) > 1e-9 {
		t.Fatalf("unexpected unit direction: %+v", seg.UnitDir)
	}
}

func TestNewSegmentExtrudeOnlyRunsAlongE(t *testing.T) {
	p := Position{X: 1, Y: 1, Z: 1, E: 0}
	end := Position{X: 1, Y: 1, Z: 1, E: 5}
	seg := NewSegment(2, Move{Target: end, IsExtrudeOnly: true}, p, end)
	if seg.LengthMM != 5 {
		t.Fatalf("expected the 5mm of filament as the extrude-only move's length, got %v", seg.LengthMM)
	}
	if seg.UnitDir != (Position{E: 1}) {
		t.Fatalf("expected a unit direction along E, got %+v", seg.UnitDir)
	}
}

func TestQueueStateString(t *testing.T) {
	cases := map[QueueState]string{
		Idle: "Idle", Running: "Running", Paused: "Paused",
		Cancelled: "Cancelled", EmergencyStopped: "EmergencyStopped",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("state %d: got %q want %q", state, got, want)
		}
	}
}
