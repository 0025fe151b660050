package kinematics

import (
	"motioncore/mcerr"
	"motioncore/motion"
)

// CoreXY implements the belt-coupled H-bot/CoreXY geometry: motor A drives
// X+Y, motor B drives X-Y; Z and E stay 1:1. Motors: ["a","b","z","e"].
type CoreXY struct {
	limits map[string]AxisLimits
}

func NewCoreXY(limits map[string]AxisLimits) *CoreXY {
	return &CoreXY{limits: limits}
}

func (k *CoreXY) Name() string { return "corexy" }

func (k *CoreXY) MotorNames() []string { return []string{"a", "b", "z", "e"} }

func (k *CoreXY) Inverse(pos motion.Position) ([]float64, error) {
	if err := k.CheckLimits(pos); err != nil {
		return nil, err
	}
	return []float64{pos.X + pos.Y, pos.X - pos.Y, pos.Z, pos.E}, nil
}

func (k *CoreXY) Forward(motorPos []float64) (motion.Position, error) {
	if len(motorPos) != 4 {
		return motion.Position{}, mcerr.New(mcerr.InvalidArgument, "corexy forward expects 4 motor positions, got %d", len(motorPos))
	}
	a, b, z, e := motorPos[0], motorPos[1], motorPos[2], motorPos[3]
	return motion.Position{
		X: (a + b) / 2,
		Y: (a - b) / 2,
		Z: z,
		E: e,
	}, nil
}

func (k *CoreXY) CheckLimits(pos motion.Position) error {
	return checkAxisLimits(k.limits, pos)
}
