// Package shaper implements input shaping (spec §4.2): convolving a
// commanded step/velocity waveform with a short impulse train so that the
// resonance at a configured frequency and damping ratio is cancelled rather
// than excited by the machine's motion.
//
// Per-axis semantics (spec §9 open question 2): a Shaper is scoped to one
// logical axis (X/Y/Z/E), never to a physical motor. Under coupled
// kinematics (CoreXY's "a"/"b", a delta's three towers) a single motor's
// command mixes several logical axes, so shaping must happen before the
// inverse-kinematics projection, not after. stepgen.Generator convolves
// each axis's own path component independently — Start.axis +
// UnitDir.axis*arc(t) — with that axis's Shaper (or an unshaped identity
// Shaper if none is configured), then hands the recombined logical position
// to Kinematics.Inverse. A diagonal move with, say, X shaped and Y
// unshaped therefore suppresses X-axis ringing without touching Y, even
// though both motors carry a mix of X and Y motion.
package shaper
