package shaper

import "math"

// Impulse is one term of a shaper's impulse train: apply amplitude A at
// offset T seconds after the unshaped command.
type Impulse struct {
	T float64
	A float64
}

// Shaper produces a shaped waveform by convolving a source signal with its
// impulse train.
type Shaper struct {
	name     string
	impulses []Impulse
}

// Name identifies the shaper type, e.g. "zv", "zvd", "mzv", "ei", "none".
func (s *Shaper) Name() string { return s.name }

// Impulses returns the (time, amplitude) pairs, increasing in T. Amplitudes
// always sum to 1 (spec invariant P6).
func (s *Shaper) Impulses() []Impulse { return s.impulses }

// Duration is the span from the first to the last impulse.
func (s *Shaper) Duration() float64 {
	if len(s.impulses) == 0 {
		return 0
	}
	return s.impulses[len(s.impulses)-1].T
}

// Convolve evaluates the shaped signal at time t given the unshaped signal
// unshaped(t). Each impulse delays and scales a copy of the source.
func (s *Shaper) Convolve(t float64, unshaped func(float64) float64) float64 {
	var out float64
	for _, imp := range s.impulses {
		out += imp.A * unshaped(t-imp.T)
	}
	return out
}

// None is the identity shaper: a single unit impulse at t=0.
func None() *Shaper {
	return &Shaper{name: "none", impulses: []Impulse{{T: 0, A: 1}}}
}

// ZV builds the zero-vibration shaper: two impulses, minimal added latency,
// moderate robustness to frequency error.
func ZV(freqHz, zeta float64) *Shaper {
	df, k := dampedParams(freqHz, zeta)
	denom := 1 + k
	return &Shaper{name: "zv", impulses: []Impulse{
		{T: 0, A: 1 / denom},
		{T: 0.5 / df, A: k / denom},
	}}
}

// ZVD builds the zero-vibration-derivative shaper: three impulses, more
// robust to frequency error than ZV at the cost of extra latency.
func ZVD(freqHz, zeta float64) *Shaper {
	df, k := dampedParams(freqHz, zeta)
	denom := 1 + 2*k + k*k
	return &Shaper{name: "zvd", impulses: []Impulse{
		{T: 0, A: 1 / denom},
		{T: 0.5 / df, A: 2 * k / denom},
		{T: 1 / df, A: k * k / denom},
	}}
}

// MZV builds the modified-ZV shaper (three impulses, tuned for a good
// vibration/latency/robustness tradeoff on 3D-printer-class structures).
func MZV(freqHz, zeta float64) *Shaper {
	df := math.Sqrt(1 - zeta*zeta)
	k := math.Exp(-0.75 * zeta * math.Pi / df)
	a1 := 1 - 1/math.Sqrt2
	a2 := (math.Sqrt2 - 1) * k
	a3 := a1 * k * k
	sum := a1 + a2 + a3
	return &Shaper{name: "mzv", impulses: []Impulse{
		{T: 0, A: a1 / sum},
		{T: 0.375 / df / freqHz, A: a2 / sum},
		{T: 0.75 / df / freqHz, A: a3 / sum},
	}}
}

// EI builds the extra-insensitivity shaper: trades a small amount of
// residual vibration (vibTolerance, e.g. 0.05 for 5%) for wider robustness
// to an error in the estimated resonant frequency.
func EI(freqHz, zeta, vibTolerance float64) *Shaper {
	df := math.Sqrt(1 - zeta*zeta)
	k := math.Exp(-zeta * math.Pi / df)
	a1 := 0.25 * (1 + vibTolerance)
	a2 := 0.5 * (1 - vibTolerance) * k
	a3 := a1 * k * k
	sum := a1 + a2 + a3
	return &Shaper{name: "ei", impulses: []Impulse{
		{T: 0, A: a1 / sum},
		{T: 0.5 / df / freqHz, A: a2 / sum},
		{T: 1 / df / freqHz, A: a3 / sum},
	}}
}

func dampedParams(freqHz, zeta float64) (dampedFreq, k float64) {
	df := math.Sqrt(1 - zeta*zeta)
	k = math.Exp(-zeta * math.Pi / df)
	return df * freqHz, k
}
