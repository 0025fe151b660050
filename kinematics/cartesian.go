package kinematics

import (
	"motioncore/mcerr"
	"motioncore/motion"
)

// Cartesian is a 1:1 XYZE mapping: motors ["x","y","z","e"].
type Cartesian struct {
	limits map[string]AxisLimits
}

// NewCartesian builds a Cartesian geometry. limits may omit any axis to
// leave it unbounded.
func NewCartesian(limits map[string]AxisLimits) *Cartesian {
	return &Cartesian{limits: limits}
}

func (k *Cartesian) Name() string { return "cartesian" }

func (k *Cartesian) MotorNames() []string { return []string{"x", "y", "z", "e"} }

func (k *Cartesian) Inverse(pos motion.Position) ([]float64, error) {
	if err := k.CheckLimits(pos); err != nil {
		return nil, err
	}
	return []float64{pos.X, pos.Y, pos.Z, pos.E}, nil
}

func (k *Cartesian) Forward(motorPos []float64) (motion.Position, error) {
	if len(motorPos) != 4 {
		return motion.Position{}, mcerr.New(mcerr.InvalidArgument, "cartesian forward expects 4 motor positions, got %d", len(motorPos))
	}
	return motion.Position{X: motorPos[0], Y: motorPos[1], Z: motorPos[2], E: motorPos[3]}, nil
}

func (k *Cartesian) CheckLimits(pos motion.Position) error {
	return checkAxisLimits(k.limits, pos)
}

func checkAxisLimits(limits map[string]AxisLimits, pos motion.Position) error {
	checks := []struct {
		name string
		val  float64
	}{{"x", pos.X}, {"y", pos.Y}, {"z", pos.Z}}
	for _, c := range checks {
		if lim, ok := limits[c.name]; ok {
			if c.val < lim.Min || c.val > lim.Max {
				return mcerr.New(mcerr.KinematicsUnreachable, "%s=%.4f outside [%.4f, %.4f]", c.name, c.val, lim.Min, lim.Max)
			}
		}
	}
	return nil
}
