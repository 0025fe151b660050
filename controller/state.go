package controller

import "motioncore/motion"

// transitions enumerates the controller state machine (spec §4.6): keys are
// the current state, values are the states a control operation may move to
// from there. EmergencyStopped has no outgoing transitions except a fresh
// controller.
var transitions = map[motion.QueueState]map[motion.QueueState]bool{
	motion.Idle: {
		motion.Running:          true,
		motion.EmergencyStopped: true,
	},
	motion.Running: {
		motion.Paused:           true,
		motion.Cancelled:        true,
		motion.Idle:             true, // queue drained naturally
		motion.EmergencyStopped: true,
	},
	motion.Paused: {
		motion.Running:          true,
		motion.Cancelled:        true,
		motion.EmergencyStopped: true,
	},
	motion.Cancelled: {
		motion.Idle:             true,
		motion.EmergencyStopped: true,
	},
	motion.EmergencyStopped: {},
}

func allowed(from, to motion.QueueState) bool {
	if from == to {
		return true
	}
	next, ok := transitions[from]
	return ok && next[to]
}
