package planner

import (
	"math"
	"testing"

	"motioncore/mcerr"
	"motioncore/motion"
)

func testLimits() motion.PerAxis {
	return motion.PerAxis{Global: motion.KinematicLimits{
		VMax: 200, AMax: 3000, JMax: 100000, SMax: 5e6, CMax: 2e8, JunctionDeviation: 0.05,
	}}
}

func TestFlushSealsStraightLine(t *testing.T) {
	p := NewPlanner(testLimits(), motion.Position{}, 1, nil)
	p.QueueMove(motion.Move{Target: motion.Position{X: 10}, FeedRate: 100})
	p.QueueMove(motion.Move{Target: motion.Position{X: 30}, FeedRate: 100})

	segs, err := p.FlushAll()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segs) != 2 {
		t.Fatalf("expected 2 sealed segments, got %d", len(segs))
	}
	for _, seg := range segs {
		if seg.Profile == nil {
			t.Fatalf("segment %d has no solved profile", seg.SeqID)
		}
		if !seg.IsFinalPass {
			t.Errorf("segment %d not marked final pass", seg.SeqID)
		}
	}
	// Collinear continuation: the junction between them shouldn't force a
	// full stop.
	if segs[0].VExit == 0 {
		t.Errorf("expected nonzero junction velocity for a collinear corner")
	}
}

func TestFlushForcesStopAtSharpReversal(t *testing.T) {
	p := NewPlanner(testLimits(), motion.Position{}, 1, nil)
	p.QueueMove(motion.Move{Target: motion.Position{X: 10}, FeedRate: 100})
	p.QueueMove(motion.Move{Target: motion.Position{X: 0}, FeedRate: 100}) // reverses direction

	segs, err := p.FlushAll()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(segs[0].VExit) > 1e-9 {
		t.Errorf("expected near-zero junction velocity at a reversal, got %v", segs[0].VExit)
	}
}

func TestFlushEmptyIsNoop(t *testing.T) {
	p := NewPlanner(testLimits(), motion.Position{}, 1, nil)
	segs, err := p.Flush()
	if err != nil || segs != nil {
		t.Fatalf("expected (nil, nil) for an empty flush, got (%v, %v)", segs, err)
	}
}

func TestFlushHoldsBackLookaheadWindow(t *testing.T) {
	p := NewPlanner(testLimits(), motion.Position{}, 2, nil)
	p.QueueMove(motion.Move{Target: motion.Position{X: 10}, FeedRate: 100})
	p.QueueMove(motion.Move{Target: motion.Position{X: 20}, FeedRate: 100})
	p.QueueMove(motion.Move{Target: motion.Position{X: 30}, FeedRate: 100})

	segs, err := p.Flush()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segs) != 1 {
		t.Fatalf("expected only the segment older than the lookahead window sealed, got %d", len(segs))
	}
	if p.PendingCount() != 2 {
		t.Fatalf("expected the 2-segment window still pending, got %d", p.PendingCount())
	}

	rest, err := p.FlushAll()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rest) != 2 {
		t.Fatalf("expected FlushAll to seal the remaining window, got %d", len(rest))
	}
	if p.PendingCount() != 0 {
		t.Fatalf("expected empty queue after FlushAll, got %d pending", p.PendingCount())
	}
}

func TestFlushClampsCruiseVelocityToFeedRate(t *testing.T) {
	// testLimits' VMax is 200mm/s; a move that asks for a much lower
	// feedrate must never cruise faster than it asked for (spec §3
	// v_nominal, invariant I2), even though the axis limit would allow it.
	p := NewPlanner(testLimits(), motion.Position{}, 1, nil)
	p.QueueMove(motion.Move{Target: motion.Position{X: 500}, FeedRate: 20})
	p.QueueMove(motion.Move{Target: motion.Position{X: 1000}, FeedRate: 20})

	segs, err := p.FlushAll()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, seg := range segs {
		if seg.VPeak() > 20+1e-6 {
			t.Errorf("segment %d peaked at %v, exceeding its 20mm/s feedrate", seg.SeqID, seg.VPeak())
		}
	}
}

func TestClearQueueDropsPending(t *testing.T) {
	p := NewPlanner(testLimits(), motion.Position{}, 1, nil)
	p.QueueMove(motion.Move{Target: motion.Position{X: 10}})
	p.ClearQueue()
	if p.PendingCount() != 0 {
		t.Fatalf("expected empty queue after ClearQueue, got %d pending", p.PendingCount())
	}
}

func TestExtrudeOnlyJunctionDoesNotForceStop(t *testing.T) {
	p := NewPlanner(testLimits(), motion.Position{}, 1, nil)
	p.QueueMove(motion.Move{Target: motion.Position{X: 10}, FeedRate: 100})
	p.QueueMove(motion.Move{Target: motion.Position{X: 10, E: 5}, FeedRate: 100, IsExtrudeOnly: true})

	segs, err := p.FlushAll()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The pure-E move points along E, a 90° corner from the X move; the
	// cornering model slows the junction but should not force it to zero.
	if segs[0].VExit == 0 {
		t.Errorf("expected extrude-only junction to leave nonzero velocity")
	}
}

func TestSealConvergesOrReportsDivergence(t *testing.T) {
	// A very tight limits set forces several seal retries; it must either
	// converge or fail with PlannerDivergence, never silently succeed with
	// an infeasible profile.
	p := NewPlanner(motion.PerAxis{Global: motion.KinematicLimits{
		VMax: 5, AMax: 50, JMax: 500, SMax: 5000, CMax: 50000, JunctionDeviation: 0.01,
	}}, motion.Position{}, 1, nil)
	p.QueueMove(motion.Move{Target: motion.Position{X: 1}, FeedRate: 5})
	p.QueueMove(motion.Move{Target: motion.Position{X: 2, Y: 1}, FeedRate: 5})
	_, err := p.FlushAll()
	if err != nil && !mcerr.Is(err, mcerr.PlannerDivergence) {
		t.Fatalf("expected nil or PlannerDivergence, got %v", err)
	}
}
