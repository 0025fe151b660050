package controller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motioncore/kinematics"
	"motioncore/mcerr"
	"motioncore/motion"
	"motioncore/stepgen"
)

type recordingSink struct {
	mu     sync.Mutex
	events []motion.StepEvent
}

func (s *recordingSink) Send(_ context.Context, ev motion.StepEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func newTestController(t *testing.T) (*Controller, *recordingSink) {
	t.Helper()
	kin := kinematics.NewCartesian(nil)
	motors := map[string]stepgen.MotorConfig{
		"x": {StepsPerMM: 80}, "y": {StepsPerMM: 80}, "z": {StepsPerMM: 400}, "e": {StepsPerMM: 100},
	}
	limits := motion.PerAxis{Global: motion.KinematicLimits{
		VMax: 150, AMax: 2500, JMax: 80000, SMax: 4e6, CMax: 2e8, JunctionDeviation: 0.05,
	}}
	sink := &recordingSink{}
	c, err := New(kin, motors, nil, limits, 1, motion.Position{}, sink, 256, nil)
	require.NoError(t, err)
	return c, sink
}

func TestControllerRunsQueuedMoveToIdle(t *testing.T) {
	c, sink := newTestController(t)
	_, err := c.EnqueueMove(motion.Move{Target: motion.Position{X: 15}, FeedRate: 100})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err = c.Run(ctx)
	assert.NoError(t, err)
	assert.Greater(t, sink.count(), 0)
	assert.Equal(t, motion.Idle, c.QueryState().State)
}

func TestControllerRejectsEnqueueWhenEmergencyStopped(t *testing.T) {
	c, _ := newTestController(t)
	require.NoError(t, c.EmergencyStop())
	_, err := c.EnqueueMove(motion.Move{Target: motion.Position{X: 1}})
	assert.True(t, mcerr.Is(err, mcerr.StateInvalid))
}

func TestControllerPauseResumeTransitions(t *testing.T) {
	c, _ := newTestController(t)
	_, err := c.EnqueueMove(motion.Move{Target: motion.Position{X: 1}})
	require.NoError(t, err)
	require.NoError(t, c.Pause())
	assert.Equal(t, motion.Paused, c.QueryState().State)
	require.NoError(t, c.Resume())
	assert.Equal(t, motion.Running, c.QueryState().State)
	assert.NoError(t, c.Resume()) // idempotent: already Running
}

func TestControllerCancelDiscardsQueue(t *testing.T) {
	c, _ := newTestController(t)
	_, err := c.EnqueueMove(motion.Move{Target: motion.Position{X: 50}})
	require.NoError(t, err)
	require.NoError(t, c.Cancel())
	assert.Equal(t, motion.Cancelled, c.QueryState().State)
	assert.Equal(t, 0, c.QueryState().QueuedMoves)
}

func TestControllerEmergencyStopFromAnyState(t *testing.T) {
	c, _ := newTestController(t)
	_, err := c.EnqueueMove(motion.Move{Target: motion.Position{X: 10}, FeedRate: 50})
	require.NoError(t, err)
	require.NoError(t, c.Pause())
	require.NoError(t, c.EmergencyStop())
	assert.Equal(t, motion.EmergencyStopped, c.QueryState().State)
}
