package planner

import (
	"math"

	"motioncore/motion"
)

// junctionVelocity bounds the velocity a corner between two segments can be
// taken at, using the junction-deviation model (spec §4.4): a virtual
// circular arc of radius proportional to the allowed lateral deviation is
// inscribed in the corner, and the centripetal-acceleration limit at that
// radius bounds cornering speed. A near-180-degree reversal (cos_theta near
// 1, i.e. the two unit directions nearly opposite) forces a near-zero
// junction velocity; a straight-through move (cos_theta near -1) leaves the
// junction effectively unconstrained.
//
// Only zero-length segments (zero unit direction) skip the cornering
// calculation, bounded by v_max alone. E counts as an axis of the unit
// direction, so an E-only move points along E and corners against its
// Cartesian neighbor like any other axis-aligned move.
func junctionVelocity(prev, next *motion.Segment, limits motion.KinematicLimits) float64 {
	if isZero(prev.UnitDir) || isZero(next.UnitDir) {
		return limits.VMax
	}
	cosTheta := -dot(prev.UnitDir, next.UnitDir)
	if cosTheta > 0.999999 {
		return 0 // near-reversal: full stop at the corner
	}
	if cosTheta < -0.999999 {
		return limits.VMax // collinear continuation
	}
	sinHalfTheta := math.Sqrt(0.5 * (1 - cosTheta))
	if sinHalfTheta > 0.999999 {
		return limits.VMax
	}
	r := limits.JunctionDeviation * sinHalfTheta / (1 - sinHalfTheta)
	v := math.Sqrt(limits.AMax * r)
	if v > limits.VMax {
		return limits.VMax
	}
	return v
}

func dot(a, b motion.Position) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z + a.E*b.E
}

func isZero(p motion.Position) bool {
	return p.X == 0 && p.Y == 0 && p.Z == 0 && p.E == 0
}

// reachableVelocity returns the maximum velocity attainable after
// accelerating (or decelerating) from vStart across distance length under a
// constant-acceleration approximation (the standard v^2 = v0^2 + 2aL
// kinematic bound used by the lookahead passes to avoid re-running the full
// G^4 solver on every candidate junction velocity; spec §4.4 "reachable_from
// ... uses the profile solver's 'max reachable delta-v over distance L under
// limits' closed form"). It is intentionally a looser bound than the G^4
// solver: Seal always re-verifies the final choice with profile.Solve.
func reachableVelocity(vStart, length, aMax float64) float64 {
	if length <= 0 {
		return vStart
	}
	return math.Sqrt(vStart*vStart + 2*aMax*length)
}
