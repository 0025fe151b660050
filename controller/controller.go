// Package controller drives the planner and step generator tasks from a
// single state machine (spec §4.6): EnqueueMove/Pause/Resume/Cancel/
// EmergencyStop/QueryState are the only entry points a caller (a CLI, a
// G-code front end that isn't this repository's concern, a test) ever needs.
package controller

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"motioncore/kinematics"
	"motioncore/mcerr"
	"motioncore/motion"
	"motioncore/planner"
	"motioncore/profile"
	"motioncore/shaper"
	"motioncore/stepgen"
)

// idlePollInterval is how often generateLoop rechecks for newly enqueued
// moves once the planner's lookahead window has run dry.
const idlePollInterval = 2 * time.Millisecond

// StepSink receives the generated, time-ordered step events. Transport
// implementations (wire encoder, in-memory test sink) implement this.
type StepSink interface {
	Send(ctx context.Context, ev motion.StepEvent) error
}

// Controller owns the planner, step generator, and horizon, and exposes the
// spec §4.6 control surface. All exported methods are safe for concurrent
// use; the generation loop itself runs on its own goroutine started by Run.
type Controller struct {
	mu    sync.Mutex
	state motion.QueueState

	planner *planner.Planner
	gen     *stepgen.Generator
	horizon *stepgen.Horizon
	sink    StepSink
	clock   clock.Clock
	logger  *zap.Logger

	diagnostics chan motion.Diagnostic
	resumeCh    chan struct{}
	cancelFn    context.CancelFunc
	baseTimeNs  int64
}

// New builds an idle Controller. horizonCapacity bounds how many step events
// may be buffered ahead of the transport before Push blocks (spec §6).
// axisShapers applies input shaping independently per logical axis (spec
// §4.2, §9 open question 2); pass nil for an unshaped machine. lookaheadDepth
// (spec §6 "lookahead_depth") bounds how many queued segments the planner
// holds back before their exit velocities are considered stable enough to
// seal; pass 0 to use planner.DefaultLookaheadDepth.
func New(kin kinematics.Kinematics, motors map[string]stepgen.MotorConfig, axisShapers map[motion.Axis]*shaper.Shaper, limits motion.PerAxis, lookaheadDepth int, start motion.Position, sink StepSink, horizonCapacity int64, logger *zap.Logger) (*Controller, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	gen, err := stepgen.NewGenerator(kin, motors, axisShapers, start)
	if err != nil {
		return nil, errors.Wrap(err, "controller: build generator")
	}
	return &Controller{
		state:       motion.Idle,
		planner:     planner.NewPlanner(limits, start, lookaheadDepth, logger),
		gen:         gen,
		horizon:     stepgen.NewHorizon(horizonCapacity),
		sink:        sink,
		clock:       clock.New(),
		logger:      logger,
		diagnostics: make(chan motion.Diagnostic, 64),
		resumeCh:    make(chan struct{}),
	}, nil
}

// Diagnostics returns the read-only diagnostic stream (spec §6).
func (c *Controller) Diagnostics() <-chan motion.Diagnostic { return c.diagnostics }

// QueryState returns a consistent snapshot of the controller's state.
func (c *Controller) QueryState() motion.StateSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return motion.StateSnapshot{
		State:           c.state,
		QueuedMoves:     c.planner.PendingCount(),
		CurrentPosition: c.planner.CurrentPosition(),
	}
}

// EnqueueMove adds a move to the lookahead window. It is valid from Idle and
// Running; any other state returns mcerr.StateInvalid.
func (c *Controller) EnqueueMove(move motion.Move) (*motion.Segment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != motion.Idle && c.state != motion.Running {
		return nil, mcerr.New(mcerr.StateInvalid, "cannot enqueue a move while %s", c.state)
	}
	seg := c.planner.QueueMove(move)
	if c.state == motion.Idle {
		c.state = motion.Running
	}
	return seg, nil
}

// Run drains the planner into step events until ctx is cancelled or the
// queue empties out naturally, pushing every event to sink through the
// backpressure horizon. It is meant to run on its own goroutine (spec §5:
// one task ingests moves, one plans+generates, one transports); callers
// typically launch it via golang.org/x/sync/errgroup alongside the
// transport's own drain loop.
func (c *Controller) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancelFn = cancel
	c.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.generateLoop(ctx) })
	g.Go(func() error { return c.drainLoop(ctx) })
	return g.Wait()
}

func (c *Controller) generateLoop(ctx context.Context) error {
	for {
		if err := c.waitWhilePaused(ctx); err != nil {
			return err
		}
		c.mu.Lock()
		state := c.state
		c.mu.Unlock()
		if state == motion.Cancelled || state == motion.EmergencyStopped {
			return nil
		}

		c.mu.Lock()
		segs, err := c.planner.Flush()
		c.mu.Unlock()
		if err != nil {
			c.reportDivergence(err)
			return err
		}
		if len(segs) == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.clock.After(idlePollInterval):
				c.mu.Lock()
				stillPending := c.planner.PendingCount()
				running := c.state == motion.Running
				c.mu.Unlock()
				if stillPending > 0 && running {
					// Nothing new arrived during the poll interval, so the
					// only segments left are the lookahead window Flush
					// holds back (spec §4.4, §6 "lookahead_depth"). Seal
					// them now so the queue can actually reach Idle rather
					// than stalling forever behind an unfilled window.
					c.mu.Lock()
					tail, err := c.planner.FlushAll()
					c.mu.Unlock()
					if err != nil {
						c.reportDivergence(err)
						return err
					}
					if err := c.emitSegments(ctx, tail); err != nil {
						return err
					}
					continue
				}
				c.mu.Lock()
				if c.planner.PendingCount() == 0 && c.state == motion.Running {
					c.state = motion.Idle
				}
				done := c.state == motion.Idle
				c.mu.Unlock()
				if done {
					return nil
				}
				continue
			}
		}

		if err := c.emitSegments(ctx, segs); err != nil {
			return err
		}
	}
}

// emitSegments generates and pushes the step events for each already-sealed
// segment, in order, onto the backpressure horizon.
func (c *Controller) emitSegments(ctx context.Context, segs []*motion.Segment) error {
	for _, seg := range segs {
		events, err := c.gen.Generate(seg, c.baseTimeNs)
		if err != nil {
			return err
		}
		if len(events) > 0 {
			c.baseTimeNs = events[len(events)-1].TAbsNs
		}
		c.emitDiagnostic(seg)
		for _, ev := range events {
			if err := c.horizon.Push(ctx, ev); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Controller) drainLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		ev, ok := c.horizon.Pop()
		if !ok {
			c.mu.Lock()
			state := c.state
			c.mu.Unlock()
			if state == motion.Idle || state == motion.Cancelled || state == motion.EmergencyStopped {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.clock.After(idlePollInterval):
			}
			continue
		}
		if err := c.sink.Send(ctx, ev); err != nil {
			return errors.Wrap(err, "controller: step sink")
		}
	}
}

func (c *Controller) waitWhilePaused(ctx context.Context) error {
	c.mu.Lock()
	paused := c.state == motion.Paused
	ch := c.resumeCh
	c.mu.Unlock()
	if !paused {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pause transitions Running -> Paused. The generation loop blocks before its
// next segment; already-buffered step events keep draining to the sink.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !allowed(c.state, motion.Paused) {
		return mcerr.New(mcerr.StateInvalid, "cannot pause from %s", c.state)
	}
	c.state = motion.Paused
	return nil
}

// Resume transitions Paused -> Running.
func (c *Controller) Resume() error {
	c.mu.Lock()
	if !allowed(c.state, motion.Running) {
		defer c.mu.Unlock()
		return mcerr.New(mcerr.StateInvalid, "cannot resume from %s", c.state)
	}
	c.state = motion.Running
	ch := c.resumeCh
	c.resumeCh = make(chan struct{})
	c.mu.Unlock()
	close(ch)
	return nil
}

// Cancel transitions to Cancelled, discarding unsealed queued moves. Already
// buffered step events still drain so in-flight motion decelerates cleanly
// rather than halting mid-step.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !allowed(c.state, motion.Cancelled) {
		return mcerr.New(mcerr.StateInvalid, "cannot cancel from %s", c.state)
	}
	c.planner.ClearQueue()
	c.state = motion.Cancelled
	return nil
}

// EmergencyStop transitions to EmergencyStopped from any state, immediately
// discarding the queue. Unlike Cancel, it never waits for in-flight steps to
// finish draining; the caller is expected to also cut motor power downstream.
func (c *Controller) EmergencyStop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.planner.ClearQueue()
	c.state = motion.EmergencyStopped
	if c.cancelFn != nil {
		c.cancelFn()
	}
	return nil
}

func (c *Controller) emitDiagnostic(seg *motion.Segment) {
	d := motion.Diagnostic{
		SeqID:             seg.SeqID,
		PeakVelocity:      seg.VPeak(),
		CruiseDurationSec: seg.Profile.Phases[profile.CruisePhase].Duration,
		LimitingFactor:    seg.Profile.Limiter,
		Reduced:           seg.Pass > 0,
	}
	select {
	case c.diagnostics <- d:
	default:
		c.logger.Warn("diagnostic stream full, dropping sample", zap.Int64("seq_id", seg.SeqID))
	}
}

func (c *Controller) reportDivergence(err error) {
	c.logger.Error("planner divergence", zap.Error(err))
	select {
	case c.diagnostics <- motion.Diagnostic{Message: err.Error()}:
	default:
	}
}
