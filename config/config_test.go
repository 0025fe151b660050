package config

import (
	"testing"

	"motioncore/motion"
)

const sampleConfig = `{
  "kinematics": {"type": "corexy"},
  "axes": {
    "x": {"steps_per_mm": 80, "max_velocity": 250, "max_accel": 4000, "min_position": 0, "max_position": 300},
    "y": {"steps_per_mm": 80, "max_velocity": 250, "max_accel": 4000, "min_position": 0, "max_position": 300},
    "z": {"steps_per_mm": 400, "max_velocity": 15, "max_accel": 200, "min_position": 0, "max_position": 250},
    "e": {"steps_per_mm": 96, "shaper": "hotend"}
  },
  "shapers": {
    "hotend": {"type": "mzv", "freq_hz": 42, "damping_ratio": 0.1}
  },
  "junction_deviation": 0.04
}`

func TestLoadDecodesNestedConfig(t *testing.T) {
	cfg, err := Load([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Kinematics.Type != "corexy" {
		t.Fatalf("expected corexy, got %q", cfg.Kinematics.Type)
	}
	if cfg.Axes["x"].MaxAccel != 4000 {
		t.Fatalf("expected x max_accel 4000, got %v", cfg.Axes["x"].MaxAccel)
	}
	if cfg.Axes["e"].Shaper != "hotend" {
		t.Fatalf("expected e axis to reference the hotend shaper")
	}
	// Defaults should have filled in e's unset derivative limits.
	if cfg.Axes["e"].MaxJerk == 0 {
		t.Fatalf("expected default max_jerk to be applied")
	}
}

func TestLoadRejectsUnknownKinematics(t *testing.T) {
	_, err := Load([]byte(`{"kinematics": {"type": "hexapod"}}`))
	if err == nil {
		t.Fatalf("expected an error for an unknown kinematics type")
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	_, err := Load([]byte(`{not json`))
	if err == nil {
		t.Fatalf("expected an error for malformed JSON")
	}
}

func TestBuildKinematicsMatchesConfiguredType(t *testing.T) {
	cfg, err := Load([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	kin, err := cfg.BuildKinematics()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kin.Name() != "corexy" {
		t.Fatalf("expected corexy kinematics, got %q", kin.Name())
	}
}

func TestBuildShapersHonorsType(t *testing.T) {
	cfg, err := Load([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	shapers, err := cfg.BuildShapers()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sh, ok := shapers["hotend"]
	if !ok {
		t.Fatalf("expected a hotend shaper")
	}
	if sh.Name() != "mzv" {
		t.Fatalf("expected mzv shaper, got %q", sh.Name())
	}
}

func TestBuildAxisShapersMapsLogicalAxisNotMotor(t *testing.T) {
	cfg, err := Load([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	shapers, err := cfg.BuildShapers()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	axisShapers := cfg.BuildAxisShapers(shapers)
	if _, ok := axisShapers[motion.AxisE]; !ok {
		t.Fatalf("expected the e axis to carry the hotend shaper")
	}
	if _, ok := axisShapers[motion.AxisX]; ok {
		t.Fatalf("x axis has no shaper configured, expected no entry")
	}
}

func TestLoadDefaultsLookaheadDepth(t *testing.T) {
	cfg, err := Load([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LookaheadDepth != 4 {
		t.Fatalf("expected default lookahead_depth 4, got %d", cfg.LookaheadDepth)
	}
}

func TestLoadRejectsNegativeLookaheadDepth(t *testing.T) {
	// 0 is the "unset" sentinel (applyDefaults fills it in, like
	// junction_deviation/horizon_capacity); only an explicit negative value
	// is rejected.
	_, err := Load([]byte(`{"kinematics": {"type": "cartesian"}, "lookahead_depth": -2}`))
	if err == nil {
		t.Fatalf("expected an error for a negative lookahead_depth")
	}
}
