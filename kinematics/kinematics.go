// Package kinematics converts between logical machine coordinates
// (motion.Position, millimeters) and per-motor positions (spec §4.5). Unlike
// the teacher's kinematics.Kinematics, which only ever mapped Cartesian XYZE
// 1:1, the spec requires both directions: Inverse for planning the motor
// targets a segment must reach, Forward for mapping motor positions back to
// logical coordinates. Both are closed form for every geometry here.
package kinematics

import "motioncore/motion"

// Kinematics is implemented by every supported machine geometry.
type Kinematics interface {
	// Name identifies the geometry, e.g. "cartesian", "corexy", "delta".
	Name() string

	// MotorNames returns the ordered motor identifiers Inverse's return
	// slice corresponds to positionally.
	MotorNames() []string

	// Inverse converts a logical position to motor positions (mm or, for
	// delta, carriage height along each tower). Returns
	// mcerr.KinematicsUnreachable if pos is outside the reachable envelope.
	Inverse(pos motion.Position) ([]float64, error)

	// Forward converts motor positions back to a logical position. Used to
	// validate Inverse's output and, for delta, to seed its root-finding.
	Forward(motorPos []float64) (motion.Position, error)

	// CheckLimits validates pos against configured axis limits, independent
	// of whether the geometry can reach it at all.
	CheckLimits(pos motion.Position) error
}

// AxisLimits represents the reachable range for one logical axis.
type AxisLimits struct {
	Min float64
	Max float64
}
