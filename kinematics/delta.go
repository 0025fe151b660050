package kinematics

import (
	"math"

	"motioncore/mcerr"
	"motioncore/motion"
)

// Delta implements a standard reprap-style linear delta: three towers at
// 120 degree spacing, each carriage connected to the effector by a fixed
// diagonal rod. Motors: ["a","b","c","e"] — the three towers plus the
// extruder, which (as on Cartesian/CoreXY) maps 1:1 since it carries no
// positional coupling to the XYZ geometry.
type Delta struct {
	radius     float64 // mm, horizontal distance from center to each tower
	rodLength  float64 // mm, diagonal rod length
	towerAngle [3]float64
	towerX     [3]float64
	towerY     [3]float64
	minZ, maxZ float64
}

// NewDelta builds a Delta geometry. towerOffsetDeg lets a calibrated rig
// nudge each tower a few degrees off the ideal 90/210/330 layout.
func NewDelta(radius, rodLength float64, towerOffsetDeg [3]float64, minZ, maxZ float64) *Delta {
	d := &Delta{radius: radius, rodLength: rodLength, minZ: minZ, maxZ: maxZ}
	base := [3]float64{90, 210, 330} // towers at the back, front-left, front-right
	for i := 0; i < 3; i++ {
		angle := (base[i] + towerOffsetDeg[i]) * math.Pi / 180
		d.towerAngle[i] = angle
		d.towerX[i] = radius * math.Cos(angle)
		d.towerY[i] = radius * math.Sin(angle)
	}
	return d
}

func (d *Delta) Name() string { return "delta" }

func (d *Delta) MotorNames() []string { return []string{"a", "b", "c", "e"} }

// Inverse computes each tower's carriage height for the effector at pos, plus
// the pass-through extruder motor position.
func (d *Delta) Inverse(pos motion.Position) ([]float64, error) {
	if err := d.CheckLimits(pos); err != nil {
		return nil, err
	}
	out := make([]float64, 4)
	for i := 0; i < 3; i++ {
		dx := d.towerX[i] - pos.X
		dy := d.towerY[i] - pos.Y
		reach := d.rodLength*d.rodLength - dx*dx - dy*dy
		if reach < 0 {
			return nil, mcerr.New(mcerr.KinematicsUnreachable, "tower %d cannot reach x=%.4f y=%.4f (rod too short by %.4fmm)", i, pos.X, pos.Y, math.Sqrt(-reach))
		}
		out[i] = pos.Z + math.Sqrt(reach)
	}
	out[3] = pos.E
	return out, nil
}

// Forward solves the effector position from three tower carriage heights via
// trilateration, the classic reprap closed form (three spheres of radius
// rodLength centered at each tower carriage, intersected), plus the
// pass-through extruder position.
func (d *Delta) Forward(motorPos []float64) (motion.Position, error) {
	if len(motorPos) != 4 {
		return motion.Position{}, mcerr.New(mcerr.InvalidArgument, "delta forward expects 4 motor positions, got %d", len(motorPos))
	}
	x1, y1, z1 := d.towerX[0], d.towerY[0], motorPos[0]
	x2, y2, z2 := d.towerX[1], d.towerY[1], motorPos[1]
	x3, y3, z3 := d.towerX[2], d.towerY[2], motorPos[2]
	r := d.rodLength

	// Trilateration in the plane spanned by the three towers (classic
	// reprap derivation): translate so tower 1 is the origin, rotate so
	// tower 2 lies on the local x-axis, solve the resulting 2D system, then
	// rotate/translate back.
	p2 := [2]float64{x2 - x1, y2 - y1}
	d12 := math.Hypot(p2[0], p2[1])
	if d12 < 1e-9 {
		return motion.Position{}, mcerr.New(mcerr.KinematicsUnreachable, "degenerate tower layout")
	}
	ex := [2]float64{p2[0] / d12, p2[1] / d12}
	ey := [2]float64{-ex[1], ex[0]}

	p3 := [2]float64{x3 - x1, y3 - y1}
	i := p3[0]*ex[0] + p3[1]*ex[1]
	j := p3[0]*ey[0] + p3[1]*ey[1]
	if math.Abs(j) < 1e-9 {
		return motion.Position{}, mcerr.New(mcerr.KinematicsUnreachable, "degenerate tower layout")
	}

	rsq := r * r
	// Effective planar radii after projecting out each carriage's height
	// relative to tower 1's (towers share the same horizontal plane, only
	// their Z differs by carriage travel).
	r1 := rsq
	r2 := rsq - (z2-z1)*(z2-z1)
	r3 := rsq - (z3-z1)*(z3-z1)

	xLocal := (r1 - r2 + d12*d12) / (2 * d12)
	yLocal := (r1-r3+i*i+j*j)/(2*j) - (i/j)*xLocal
	// xLocal/yLocal above solve the case where the effector sits at tower 1's
	// carriage height; both shift linearly with zLocal (how far tower 1's
	// carriage sits above the effector), and sphere 1 then fixes zLocal.
	xw := (z2 - z1) / d12
	yw := ((z3 - z1) - i*xw) / j
	qa, qb := xw*xw+yw*yw+1, 2*(xLocal*xw+yLocal*yw)
	disc := qb*qb - 4*qa*(xLocal*xLocal+yLocal*yLocal-r1)
	if disc < 0 {
		return motion.Position{}, mcerr.New(mcerr.KinematicsUnreachable, "trilateration has no real solution (inconsistent tower heights)")
	}
	zLocal := (-qb + math.Sqrt(disc)) / (2 * qa)
	xLocal, yLocal = xLocal+xw*zLocal, yLocal+yw*zLocal

	x := x1 + xLocal*ex[0] + yLocal*ey[0]
	y := y1 + xLocal*ex[1] + yLocal*ey[1]
	z := z1 - zLocal

	return motion.Position{X: x, Y: y, Z: z, E: motorPos[3]}, nil
}

func (d *Delta) CheckLimits(pos motion.Position) error {
	if pos.Z < d.minZ || pos.Z > d.maxZ {
		return mcerr.New(mcerr.KinematicsUnreachable, "z=%.4f outside [%.4f, %.4f]", pos.Z, d.minZ, d.maxZ)
	}
	return nil
}
