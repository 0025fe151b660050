// Package planner implements the lookahead move queue (spec §4.4): it turns
// a stream of motion.Move requests into sealed motion.Segment values, each
// carrying a solved profile.Profile, by running reverse and forward
// junction-velocity passes before handing every segment to profile.Solve.
// Flush holds back its most recently queued lookaheadDepth segments (spec
// §6 "lookahead_depth") since their exit velocities aren't yet stable;
// FlushAll seals the whole window, including that tail, once the caller
// knows no further moves are coming.
package planner

import (
	"math"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"motioncore/mcerr"
	"motioncore/motion"
	"motioncore/profile"
)

// maxSealRetries bounds how many times Seal will retry a segment whose
// profile comes back ProfileInfeasible after lowering an endpoint velocity,
// before giving up with PlannerDivergence (spec §4.4 "Sealing").
const maxSealRetries = 8

// DefaultLookaheadDepth is used when a Planner is built with a non-positive
// lookaheadDepth (e.g. by a caller that doesn't go through config.Load).
const DefaultLookaheadDepth = 4

// Planner holds the in-flight lookahead window: every queued segment not
// yet sealed with a solved profile.
type Planner struct {
	limits         motion.PerAxis
	position       motion.Position
	pending        []*motion.Segment
	nextSeq        int64
	lookaheadDepth int
	logger         *zap.Logger
}

// NewPlanner builds an empty Planner starting at the given position.
// lookaheadDepth (spec §6 "lookahead_depth") is how many of the most
// recently queued segments Flush holds back rather than sealing
// immediately, since their exit velocities aren't yet stable (spec §4.4).
func NewPlanner(limits motion.PerAxis, start motion.Position, lookaheadDepth int, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lookaheadDepth <= 0 {
		lookaheadDepth = DefaultLookaheadDepth
	}
	return &Planner{limits: limits, position: start, lookaheadDepth: lookaheadDepth, logger: logger}
}

// QueueMove appends a move to the lookahead window, extending from the
// queue's current tail position (not yet the machine's actual position
// until the matching segment has been sealed and executed).
func (p *Planner) QueueMove(move motion.Move) *motion.Segment {
	start := p.tailPosition()
	seg := motion.NewSegment(p.nextSeq, move, start, move.Target)
	p.nextSeq++
	p.pending = append(p.pending, seg)
	return seg
}

func (p *Planner) tailPosition() motion.Position {
	if len(p.pending) == 0 {
		return p.position
	}
	return p.pending[len(p.pending)-1].End
}

// PendingCount reports how many segments are queued but not yet sealed.
func (p *Planner) PendingCount() int { return len(p.pending) }

// Flush runs the reverse and forward lookahead passes across every pending
// segment but only seals the oldest ones: it holds back the most recently
// queued lookaheadDepth segments, since their exit velocities could still
// be lowered by a junction to a move that hasn't arrived yet (spec §4.4,
// §6 "lookahead_depth"). Held-back segments stay in the pending window and
// are reconsidered, alongside whatever arrives next, on the following
// Flush. Use FlushAll once no further moves are coming, so the tail of the
// queue isn't stranded behind the window forever.
func (p *Planner) Flush() ([]*motion.Segment, error) {
	return p.flush(false)
}

// FlushAll seals every pending segment, including the lookahead window
// Flush normally holds back, treating the final one as exit-to-rest. Callers
// use this once the move stream has genuinely ended (idle drain, shutdown).
func (p *Planner) FlushAll() ([]*motion.Segment, error) {
	return p.flush(true)
}

func (p *Planner) flush(all bool) ([]*motion.Segment, error) {
	segs := p.pending
	if len(segs) == 0 {
		return nil, nil
	}

	sealCount := len(segs)
	if !all {
		sealCount = len(segs) - p.lookaheadDepth
		if sealCount <= 0 {
			return nil, nil
		}
	}

	// v_nominal (spec §3) is the tighter of the commanded feedrate and the
	// axis-projected machine limit; a move that asks for less than v_max must
	// never be accelerated up past its own feedrate (invariant I2).
	limitsFor := func(seg *motion.Segment) motion.KinematicLimits {
		lim := p.axisLimits(seg)
		if seg.Move.FeedRate > 0 && seg.Move.FeedRate < lim.VMax {
			lim.VMax = seg.Move.FeedRate
		}
		return lim
	}

	// Reverse pass: from tail to head, bound v_exit(i) by what the junction
	// to segment i+1 allows and by how quickly segment i+1 could decelerate
	// to its own v_exit across its own length. The window's own tail is
	// always treated pessimistically as exit-to-rest; if it isn't actually
	// the last move, the next Flush recomputes it once the window extends.
	vExit := make([]float64, len(segs))
	for i := len(segs) - 1; i >= 0; i-- {
		lim := limitsFor(segs[i])
		if i == len(segs)-1 {
			vExit[i] = 0
			continue
		}
		junction := junctionVelocity(segs[i], segs[i+1], lim)
		reachableFromNext := reachableVelocity(vExit[i+1], segs[i+1].LengthMM, lim.AMax)
		vExit[i] = math.Min(junction, reachableFromNext)
		vExit[i] = math.Min(vExit[i], lim.VMax)
	}

	// Forward pass: from head to tail, bound v_entry(i) by v_exit(i-1) and
	// by how quickly segment i-1 could accelerate across its own length.
	vEntry := make([]float64, len(segs))
	vEntry[0] = 0
	for i := 1; i < len(segs); i++ {
		lim := limitsFor(segs[i])
		reachableFromPrev := reachableVelocity(vEntry[i-1], segs[i-1].LengthMM, lim.AMax)
		vEntry[i] = math.Min(vExit[i-1], reachableFromPrev)
		vEntry[i] = math.Min(vEntry[i], lim.VMax)
	}

	for i := 0; i < sealCount; i++ {
		seg := segs[i]
		seg.VEntry = vEntry[i]
		seg.VExit = vExit[i]
		if err := p.seal(seg, limitsFor(seg)); err != nil {
			return nil, err
		}
	}

	sealed := segs[:sealCount]
	p.pending = segs[sealCount:]
	if len(p.pending) == 0 {
		p.position = segs[len(segs)-1].End
	}
	return sealed, nil
}

// seal repeatedly lowers the harder-to-hit endpoint velocity when
// profile.Solve reports ProfileInfeasible, recording each retry as a new
// Pass, until it either succeeds or exhausts maxSealRetries.
func (p *Planner) seal(seg *motion.Segment, lim motion.KinematicLimits) error {
	vEntry, vExit := seg.VEntry, seg.VExit
	limits := profile.Limits{VMax: lim.VMax, AMax: lim.AMax, JMax: lim.JMax, SMax: lim.SMax, CMax: lim.CMax}

	var attempts error
	for attempt := 0; attempt < maxSealRetries; attempt++ {
		prof, err := profile.Solve(vEntry, vExit, seg.LengthMM, limits)
		if err == nil {
			seg.Profile = prof
			seg.VEntry, seg.VExit = vEntry, vExit
			seg.Pass = attempt
			seg.IsFinalPass = true
			return nil
		}
		if !mcerr.Is(err, mcerr.ProfileInfeasible) {
			return err
		}
		attempts = multierr.Append(attempts, err)
		p.logger.Debug("profile infeasible, backing off junction velocities",
			zap.Int64("seq_id", seg.SeqID), zap.Int("attempt", attempt))
		if vEntry >= vExit {
			vEntry *= 0.5
		} else {
			vExit *= 0.5
		}
	}
	return mcerr.Wrap(mcerr.PlannerDivergence, attempts, "seq_id=%d: profile solver did not converge within %d retries", seg.SeqID, maxSealRetries)
}

// axisLimits projects the global/per-axis KinematicLimits onto the
// direction a segment actually travels, taking the tightest bound across
// every axis with a nonzero component (spec §4.5 per-axis projection).
func (p *Planner) axisLimits(seg *motion.Segment) motion.KinematicLimits {
	lim := p.limits.Global
	if len(p.limits.Axes) == 0 {
		return lim
	}
	components := map[motion.Axis]float64{
		motion.AxisX: seg.UnitDir.X, motion.AxisY: seg.UnitDir.Y,
		motion.AxisZ: seg.UnitDir.Z, motion.AxisE: seg.UnitDir.E,
	}
	for axis, comp := range components {
		if comp == 0 {
			continue
		}
		if axisLim, ok := p.limits.Axes[axis]; ok {
			lim = tighter(lim, axisLim)
		}
	}
	return lim
}

func tighter(a, b motion.KinematicLimits) motion.KinematicLimits {
	return motion.KinematicLimits{
		VMax:              math.Min(a.VMax, b.VMax),
		AMax:              math.Min(a.AMax, b.AMax),
		JMax:              math.Min(a.JMax, b.JMax),
		SMax:              math.Min(a.SMax, b.SMax),
		CMax:              math.Min(a.CMax, b.CMax),
		JunctionDeviation: math.Min(a.JunctionDeviation, b.JunctionDeviation),
	}
}

// ClearQueue discards every pending (unsealed) segment without solving it.
func (p *Planner) ClearQueue() {
	p.pending = nil
}

// CurrentPosition returns the queue's logical tail position, including
// pending (unsealed) segments.
func (p *Planner) CurrentPosition() motion.Position {
	return p.tailPosition()
}

// SetPosition forcibly resets the queue's position (spec §4.6); it must
// only be called with an empty pending queue.
func (p *Planner) SetPosition(pos motion.Position) {
	p.position = pos
}
