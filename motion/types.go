// Package motion holds the data model shared by every motioncore package:
// positions, move requests, kinematic limits, motion segments, and the
// queue/controller state enums (spec §3).
package motion

// Axis is a logical machine axis. Physical motors are a
// configuration-dependent function of logical axes (see kinematics).
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
	AxisE
	numAxes
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	case AxisE:
		return "e"
	default:
		return "unknown"
	}
}

// Position is a fixed-length position vector in machine (logical) coordinates,
// millimeters, extruder in filament-mm.
type Position struct {
	X, Y, Z, E float64
}

// Sub returns p - o.
func (p Position) Sub(o Position) Position {
	return Position{X: p.X - o.X, Y: p.Y - o.Y, Z: p.Z - o.Z, E: p.E - o.E}
}

// Add returns p + o.
func (p Position) Add(o Position) Position {
	return Position{X: p.X + o.X, Y: p.Y + o.Y, Z: p.Z + o.Z, E: p.E + o.E}
}

// Scale returns p scaled by s.
func (p Position) Scale(s float64) Position {
	return Position{X: p.X * s, Y: p.Y * s, Z: p.Z * s, E: p.E * s}
}

// Move is an immutable (after acceptance) request to travel to Target at the
// given requested feedrate.
type Move struct {
	Target        Position
	FeedRate      float64 // mm/s, > 0
	IsExtrudeOnly bool
}

// KinematicLimits bounds every derivative the profile solver must respect.
// All fields are strictly positive; use +Inf for "no limit" at a given
// order (see profile package for the resulting G⁴→G³→G² collapse).
type KinematicLimits struct {
	VMax              float64
	AMax              float64
	JMax              float64
	SMax              float64
	CMax              float64
	JunctionDeviation float64
}

// PerAxis optionally overrides a subset of KinematicLimits per logical axis.
// The effective limit for a segment is the axis-direction-projected minimum
// across whichever axes the segment moves along (see Planner.axisLimits).
type PerAxis struct {
	Global KinematicLimits
	Axes   map[Axis]KinematicLimits
}

// QueueState enumerates the controller's lifecycle states (spec §4.6).
type QueueState int

const (
	Idle QueueState = iota
	Running
	Paused
	Cancelled
	EmergencyStopped
)

func (s QueueState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Running:
		return "Running"
	case Paused:
		return "Paused"
	case Cancelled:
		return "Cancelled"
	case EmergencyStopped:
		return "EmergencyStopped"
	default:
		return "Unknown"
	}
}

// StateSnapshot is the read-only tuple returned by query_state (spec §4.6).
type StateSnapshot struct {
	State               QueueState
	QueuedMoves         int
	CurrentPosition     Position
	PlannerTailVelocity float64
}

// Diagnostic is the optional telemetry stream of spec §6: per-segment
// profile-solved data, and fatal/recoverable error context.
type Diagnostic struct {
	SeqID             int64
	PeakVelocity      float64
	CruiseDurationSec float64
	LimitingFactor    string // "v_max", "a_max", "j_max", "s_max", "c_max", "short-segment", or ""
	Reduced           bool   // true if ProfileInfeasible recovery reduced an endpoint velocity
	Message           string
}

// StepEvent is one emitted step on the downstream event stream (spec §6):
// (motor_id, direction_bit, t_abs_ns), non-decreasing in TAbsNs order.
type StepEvent struct {
	MotorID   int
	Direction bool // true = positive direction
	TAbsNs    int64
	Flush     bool // explicit flush marker at pause/cancel boundaries
}
