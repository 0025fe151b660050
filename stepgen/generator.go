// Package stepgen converts sealed motion.Segment values into per-motor
// motion.StepEvent streams (spec §4.5): it samples each segment's solved
// profile at a fixed rate, applies input shaping independently to each
// logical axis's path component, projects the shaped position onto motor
// space via inverse kinematics, and quantizes each motor's continuous
// position into discrete step events.
package stepgen

import (
	"math"

	"motioncore/kinematics"
	"motioncore/mcerr"
	"motioncore/motion"
	"motioncore/shaper"
)

// DefaultSampleHz is the rate at which a segment's analytic profile is
// re-evaluated; it bounds step-timing resolution, not the step rate itself
// (many steps can be emitted within one sample interval).
const DefaultSampleHz = 8000

// MotorConfig maps one kinematics motor name to its steps-per-millimeter
// scale.
type MotorConfig struct {
	StepsPerMM float64
}

// Generator walks sealed segments and emits step events.
type Generator struct {
	kin         kinematics.Kinematics
	motors      map[string]MotorConfig
	axisShapers map[motion.Axis]*shaper.Shaper
	sampleHz    float64
	prevMotor   map[string]float64
	accSteps    map[string]float64
}

// NewGenerator builds a Generator for the given kinematics and per-motor
// configuration. startPos is the machine's logical position the first
// segment's Start is expected to match. axisShapers (spec §4.2, §9 open
// question 2) applies independently per logical axis (X/Y/Z/E), not per
// physical motor: a nil or missing entry for an axis means that axis is
// unshaped.
func NewGenerator(kin kinematics.Kinematics, motors map[string]MotorConfig, axisShapers map[motion.Axis]*shaper.Shaper, startPos motion.Position) (*Generator, error) {
	startMotors, err := kin.Inverse(startPos)
	if err != nil {
		return nil, err
	}
	names := kin.MotorNames()
	if len(startMotors) != len(names) {
		return nil, mcerr.New(mcerr.InvalidArgument, "kinematics %s: Inverse returned %d values for %d motors", kin.Name(), len(startMotors), len(names))
	}
	g := &Generator{
		kin: kin, motors: motors, axisShapers: axisShapers, sampleHz: DefaultSampleHz,
		prevMotor: make(map[string]float64, len(names)),
		accSteps:  make(map[string]float64, len(names)),
	}
	for i, name := range names {
		g.prevMotor[name] = startMotors[i]
	}
	return g, nil
}

// Generate samples seg's solved profile and returns the step events it
// produces, with TAbsNs offset from baseTimeNs (the machine-wide absolute
// clock position at which this segment begins executing).
func (g *Generator) Generate(seg *motion.Segment, baseTimeNs int64) ([]motion.StepEvent, error) {
	if seg.Profile == nil {
		return nil, mcerr.WithSeq(mcerr.StateInvalid, seg.SeqID, "segment has no solved profile")
	}
	total := seg.Profile.TotalDuration()

	raw := func(t float64) float64 {
		if t < 0 {
			t = 0
		}
		if t > total {
			t = total
		}
		pos, _, _, _, _, _ := seg.Profile.Evaluate(t)
		return pos
	}

	// Each logical axis shapes its own component of the path independently
	// (spec §9 open question 2): a diagonal move with, say, X=zvd and Y=none
	// configured must suppress X-axis ringing without touching Y. Convolve
	// is linear and every Shaper's amplitudes sum to 1 (P6), so shaping the
	// scalar arc length with axis a's own shaper and then projecting via
	// Start.a + UnitDir.a*shapedArc is equivalent to, and far cheaper than,
	// shaping the full per-axis position function directly.
	axisList := [...]motion.Axis{motion.AxisX, motion.AxisY, motion.AxisZ, motion.AxisE}
	shapedArc := make(map[motion.Axis]func(float64) float64, len(axisList))
	maxShaperDur := 0.0
	for _, axis := range axisList {
		sh := g.axisShapers[axis]
		if sh == nil {
			sh = shaper.None()
		}
		shapedArc[axis] = func(t float64) float64 { return sh.Convolve(t, raw) }
		if d := sh.Duration(); d > maxShaperDur {
			maxShaperDur = d
		}
	}

	axisComponent := func(p motion.Position, axis motion.Axis) float64 {
		switch axis {
		case motion.AxisX:
			return p.X
		case motion.AxisY:
			return p.Y
		case motion.AxisZ:
			return p.Z
		default:
			return p.E
		}
	}

	dt := 1.0 / g.sampleHz
	// A shaped segment takes maxShaperDur longer to settle than its raw
	// profile duration: impulses with T>0 keep pulling in pre-freeze raw
	// values after t passes total, so the sample window must extend that
	// far for the shaped tail to actually be emitted.
	extendedTotal := total + maxShaperDur
	samples := int(math.Ceil(extendedTotal/dt)) + 1

	var events []motion.StepEvent
	names := g.kin.MotorNames()
	prevT := 0.0
	for i := 1; i <= samples; i++ {
		t := math.Min(float64(i)*dt, extendedTotal)
		var logical motion.Position
		for _, axis := range axisList {
			arc := shapedArc[axis](t)
			if arc < 0 {
				arc = 0
			}
			if arc > seg.LengthMM {
				arc = seg.LengthMM
			}
			dir := axisComponent(seg.UnitDir, axis)
			start := axisComponent(seg.Start, axis)
			val := start + dir*arc
			switch axis {
			case motion.AxisX:
				logical.X = val
			case motion.AxisY:
				logical.Y = val
			case motion.AxisZ:
				logical.Z = val
			case motion.AxisE:
				logical.E = val
			}
		}
		motorPos, err := g.kin.Inverse(logical)
		if err != nil {
			return nil, mcerr.WithSeq(mcerr.KinematicsUnreachable, seg.SeqID, "step generation left the reachable envelope: %v", err)
		}
		tAbsStart := baseTimeNs + int64(prevT*1e9)
		tAbsEnd := baseTimeNs + int64(t*1e9)
		for motorIdx, name := range names {
			cfg := g.motors[name]
			steps := motorPos[motorIdx] * cfg.StepsPerMM
			g.accSteps[name] += steps - g.prevMotor[name]*cfg.StepsPerMM
			g.prevMotor[name] = motorPos[motorIdx]
			whole := int(g.accSteps[name])
			if whole == 0 {
				continue
			}
			dir := whole > 0
			n := whole
			if n < 0 {
				n = -n
			}
			g.accSteps[name] -= float64(whole)
			for _, ts := range distributeTimes(n, tAbsStart, tAbsEnd) {
				events = append(events, motion.StepEvent{MotorID: motorIndex(names, name), Direction: dir, TAbsNs: ts})
			}
		}
		prevT = t
		if t >= extendedTotal {
			break
		}
	}
	return events, nil
}

func motorIndex(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

// distributeTimes returns n timestamps evenly spaced across (start, end],
// the simplest fair approximation of "when within this sample interval did
// each individual step boundary actually occur".
func distributeTimes(n int, start, end int64) []int64 {
	out := make([]int64, n)
	span := end - start
	for i := 0; i < n; i++ {
		out[i] = start + span*int64(i+1)/int64(n)
	}
	return out
}
