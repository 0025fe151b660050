// Package config loads and validates the machine description that wires
// together kinematics, per-axis limits, and input shaping (spec §4.1, §4.5).
// Configuration is read as JSON and decoded through mapstructure rather than
// encoding/json alone so a machine file can mix loosely-typed values (JSON
// numbers, nested maps for the polymorphic kinematics/shaper blocks) without
// every caller hand-rolling a custom UnmarshalJSON.
package config

import (
	"encoding/json"

	"github.com/go-viper/mapstructure/v2"

	"motioncore/kinematics"
	"motioncore/mcerr"
	"motioncore/motion"
	"motioncore/shaper"
	"motioncore/stepgen"
)

// AxisConfig is one logical axis's kinematic limits and step scale.
type AxisConfig struct {
	StepsPerMM  float64 `mapstructure:"steps_per_mm"`
	MinPosition float64 `mapstructure:"min_position"`
	MaxPosition float64 `mapstructure:"max_position"`
	MaxVelocity float64 `mapstructure:"max_velocity"`
	MaxAccel    float64 `mapstructure:"max_accel"`
	MaxJerk     float64 `mapstructure:"max_jerk"`
	MaxSnap     float64 `mapstructure:"max_snap"`
	MaxCrackle  float64 `mapstructure:"max_crackle"`
	Shaper      string  `mapstructure:"shaper"` // references a key in MachineConfig.Shapers
}

// KinematicsConfig selects and parameterizes the machine geometry.
type KinematicsConfig struct {
	Type           string     `mapstructure:"type"` // "cartesian", "corexy", "delta"
	Radius         float64    `mapstructure:"radius"`
	RodLength      float64    `mapstructure:"rod_length"`
	TowerOffsetDeg [3]float64 `mapstructure:"tower_offset_deg"`
	MinZ           float64    `mapstructure:"min_z"`
	MaxZ           float64    `mapstructure:"max_z"`
}

// ShaperConfig parameterizes one named input shaper.
type ShaperConfig struct {
	Type         string  `mapstructure:"type"` // "none", "zv", "zvd", "mzv", "ei"
	FreqHz       float64 `mapstructure:"freq_hz"`
	Zeta         float64 `mapstructure:"damping_ratio"`
	VibTolerance float64 `mapstructure:"vibration_tolerance"` // ei only
}

// MachineConfig is the complete, decoded machine description.
type MachineConfig struct {
	Kinematics        KinematicsConfig        `mapstructure:"kinematics"`
	Axes              map[string]AxisConfig   `mapstructure:"axes"`
	Shapers           map[string]ShaperConfig `mapstructure:"shapers"`
	JunctionDeviation float64                 `mapstructure:"junction_deviation"`
	HorizonCapacity   int64                   `mapstructure:"horizon_capacity"`
	LookaheadDepth    int                     `mapstructure:"lookahead_depth"`
}

// Load parses JSON bytes into a validated, defaulted MachineConfig.
func Load(jsonData []byte) (*MachineConfig, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(jsonData, &raw); err != nil {
		return nil, mcerr.Wrap(mcerr.ConfigInvalid, err, "parsing config JSON")
	}

	var cfg MachineConfig
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      false,
	})
	if err != nil {
		return nil, mcerr.Wrap(mcerr.ConfigInvalid, err, "building config decoder")
	}
	if err := dec.Decode(raw); err != nil {
		return nil, mcerr.Wrap(mcerr.ConfigInvalid, err, "decoding config")
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *MachineConfig) {
	if cfg.Kinematics.Type == "" {
		cfg.Kinematics.Type = "cartesian"
	}
	if cfg.Kinematics.Type == "delta" {
		if cfg.Kinematics.Radius == 0 {
			cfg.Kinematics.Radius = 140
		}
		if cfg.Kinematics.RodLength == 0 {
			cfg.Kinematics.RodLength = 280
		}
		if cfg.Kinematics.MaxZ == 0 {
			cfg.Kinematics.MaxZ = 400
		}
	}
	if cfg.JunctionDeviation == 0 {
		cfg.JunctionDeviation = 0.05
	}
	if cfg.HorizonCapacity == 0 {
		cfg.HorizonCapacity = 4096
	}
	if cfg.LookaheadDepth == 0 {
		cfg.LookaheadDepth = 4
	}
	for name, axis := range cfg.Axes {
		if axis.MaxVelocity == 0 {
			axis.MaxVelocity = 300
		}
		if axis.MaxAccel == 0 {
			axis.MaxAccel = 3000
		}
		if axis.MaxJerk == 0 {
			axis.MaxJerk = 100000
		}
		if axis.MaxSnap == 0 {
			axis.MaxSnap = 5e6
		}
		if axis.MaxCrackle == 0 {
			axis.MaxCrackle = 2e8
		}
		if axis.StepsPerMM == 0 {
			axis.StepsPerMM = 80
		}
		cfg.Axes[name] = axis
	}
}

func validate(cfg *MachineConfig) error {
	switch cfg.Kinematics.Type {
	case "cartesian", "corexy", "delta":
	default:
		return mcerr.New(mcerr.ConfigInvalid, "unknown kinematics type %q", cfg.Kinematics.Type)
	}
	for name, axis := range cfg.Axes {
		if axis.StepsPerMM <= 0 {
			return mcerr.New(mcerr.ConfigInvalid, "axis %q: steps_per_mm must be positive", name)
		}
	}
	if cfg.LookaheadDepth <= 0 {
		return mcerr.New(mcerr.ConfigInvalid, "lookahead_depth must be a positive integer, got %d", cfg.LookaheadDepth)
	}
	return nil
}

// BuildKinematics constructs the kinematics.Kinematics the config describes.
func (cfg *MachineConfig) BuildKinematics() (kinematics.Kinematics, error) {
	limits := map[string]kinematics.AxisLimits{}
	for name, axis := range cfg.Axes {
		limits[name] = kinematics.AxisLimits{Min: axis.MinPosition, Max: axis.MaxPosition}
	}
	switch cfg.Kinematics.Type {
	case "cartesian":
		return kinematics.NewCartesian(limits), nil
	case "corexy":
		return kinematics.NewCoreXY(limits), nil
	case "delta":
		return kinematics.NewDelta(cfg.Kinematics.Radius, cfg.Kinematics.RodLength, cfg.Kinematics.TowerOffsetDeg, cfg.Kinematics.MinZ, cfg.Kinematics.MaxZ), nil
	default:
		return nil, mcerr.New(mcerr.ConfigInvalid, "unknown kinematics type %q", cfg.Kinematics.Type)
	}
}

// BuildLimits projects the configured axes into the global+per-axis
// KinematicLimits the planner consumes.
func (cfg *MachineConfig) BuildLimits() motion.PerAxis {
	per := motion.PerAxis{Axes: map[motion.Axis]motion.KinematicLimits{}}
	axisByName := map[string]motion.Axis{"x": motion.AxisX, "y": motion.AxisY, "z": motion.AxisZ, "e": motion.AxisE}
	for name, axis := range cfg.Axes {
		lim := motion.KinematicLimits{
			VMax: axis.MaxVelocity, AMax: axis.MaxAccel, JMax: axis.MaxJerk,
			SMax: axis.MaxSnap, CMax: axis.MaxCrackle, JunctionDeviation: cfg.JunctionDeviation,
		}
		if la, ok := axisByName[name]; ok {
			per.Axes[la] = lim
		}
		per.Global = tightestOf(per.Global, lim)
	}
	return per
}

func tightestOf(a, b motion.KinematicLimits) motion.KinematicLimits {
	if a == (motion.KinematicLimits{}) {
		return b
	}
	pick := func(x, y float64) float64 {
		if x == 0 || y < x {
			return y
		}
		return x
	}
	return motion.KinematicLimits{
		VMax: pick(a.VMax, b.VMax), AMax: pick(a.AMax, b.AMax), JMax: pick(a.JMax, b.JMax),
		SMax: pick(a.SMax, b.SMax), CMax: pick(a.CMax, b.CMax), JunctionDeviation: b.JunctionDeviation,
	}
}

// BuildShapers constructs the named shaper.Shaper set, keyed by the name
// each shaper has in the config.
func (cfg *MachineConfig) BuildShapers() (map[string]*shaper.Shaper, error) {
	out := make(map[string]*shaper.Shaper, len(cfg.Shapers))
	for name, sc := range cfg.Shapers {
		switch sc.Type {
		case "", "none":
			out[name] = shaper.None()
		case "zv":
			out[name] = shaper.ZV(sc.FreqHz, sc.Zeta)
		case "zvd":
			out[name] = shaper.ZVD(sc.FreqHz, sc.Zeta)
		case "mzv":
			out[name] = shaper.MZV(sc.FreqHz, sc.Zeta)
		case "ei":
			out[name] = shaper.EI(sc.FreqHz, sc.Zeta, sc.VibTolerance)
		default:
			return nil, mcerr.New(mcerr.ConfigInvalid, "shaper %q: unknown type %q", name, sc.Type)
		}
	}
	return out, nil
}

// BuildMotors assembles the stepgen.MotorConfig set keyed by kin's physical
// motor names (kinematics.Kinematics.MotorNames), not by logical axis name.
// For cartesian and delta geometry the two coincide 1:1 (delta's tower
// motors "a"/"b"/"c" are each configured directly, under those same keys).
// For belt-coupled geometry (CoreXY's "a"/"b"), both physical motors share
// the X axis's steps-per-mm, matching how such machines are actually
// configured: A and B are the same physical stepper/pulley/belt assembly
// wired to move in a coupled pattern, not independently calibrated axes.
// Input shaping is NOT carried here: it is a logical-axis concern (see
// BuildAxisShapers), since a physical motor in coupled geometry mixes
// multiple logical axes and cannot be shaped in isolation.
func (cfg *MachineConfig) BuildMotors(kin kinematics.Kinematics) map[string]stepgen.MotorConfig {
	out := make(map[string]stepgen.MotorConfig, len(kin.MotorNames()))
	toMotorConfig := func(axis AxisConfig) stepgen.MotorConfig {
		return stepgen.MotorConfig{StepsPerMM: axis.StepsPerMM}
	}
	isCoreXY := kin.Name() == "corexy"
	for _, name := range kin.MotorNames() {
		switch {
		case isCoreXY && (name == "a" || name == "b"):
			if axis, ok := cfg.Axes["x"]; ok {
				out[name] = toMotorConfig(axis)
			}
		default:
			if axis, ok := cfg.Axes[name]; ok {
				out[name] = toMotorConfig(axis)
			}
		}
	}
	return out
}

// BuildAxisShapers maps each logical axis (spec §4.2, §9 open question 2) to
// its own configured shaper.Shaper, independent of kinematics/motor naming:
// a diagonal move shapes its X and Y path components separately, even under
// coupled geometry where no single physical motor carries just one axis.
// An axis with no shaper configured is left unset (stepgen treats that as
// shaper.None()).
func (cfg *MachineConfig) BuildAxisShapers(shapers map[string]*shaper.Shaper) map[motion.Axis]*shaper.Shaper {
	axisByName := map[string]motion.Axis{"x": motion.AxisX, "y": motion.AxisY, "z": motion.AxisZ, "e": motion.AxisE}
	out := make(map[motion.Axis]*shaper.Shaper, len(cfg.Axes))
	for name, axis := range cfg.Axes {
		la, ok := axisByName[name]
		if !ok || axis.Shaper == "" {
			continue
		}
		out[la] = shapers[axis.Shaper]
	}
	return out
}
