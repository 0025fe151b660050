package shaper

import (
	"math"
	"testing"
)

func sumAmplitudes(s *Shaper) float64 {
	var sum float64
	for _, imp := range s.Impulses() {
		sum += imp.A
	}
	return sum
}

func TestImpulsesSumToOne(t *testing.T) {
	shapers := []*Shaper{
		None(),
		ZV(40, 0.1),
		ZVD(40, 0.1),
		MZV(40, 0.1),
		EI(40, 0.1, 0.05),
	}
	for _, s := range shapers {
		if got := sumAmplitudes(s); math.Abs(got-1) > 1e-9 {
			t.Errorf("%s: amplitudes sum to %v, want 1", s.Name(), got)
		}
	}
}

func TestImpulsesNonNegativeAndOrdered(t *testing.T) {
	for _, s := range []*Shaper{ZV(40, 0.1), ZVD(40, 0.1), MZV(40, 0.1), EI(40, 0.1, 0.05)} {
		last := -1.0
		for _, imp := range s.Impulses() {
			if imp.T < last {
				t.Errorf("%s: impulses not time-ordered", s.Name())
			}
			if imp.A < 0 {
				t.Errorf("%s: negative amplitude %v", s.Name(), imp.A)
			}
			last = imp.T
		}
	}
}

func TestConvolveOfConstantIsConstant(t *testing.T) {
	s := ZVD(40, 0.1)
	constSignal := func(float64) float64 { return 5 }
	got := s.Convolve(1.0, constSignal)
	if math.Abs(got-5) > 1e-9 {
		t.Fatalf("convolving a constant should reproduce it (unit-sum impulses), got %v", got)
	}
}

func TestConvolveIsLinear(t *testing.T) {
	s := MZV(35, 0.15)
	f := func(t float64) float64 { return math.Sin(2 * math.Pi * 35 * t) }
	g := func(t float64) float64 { return t * t }
	combined := func(t float64) float64 { return 2*f(t) + 3*g(t) }
	lhs := s.Convolve(0.01, combined)
	rhs := 2*s.Convolve(0.01, f) + 3*s.Convolve(0.01, g)
	if math.Abs(lhs-rhs) > 1e-9 {
		t.Fatalf("convolution should be linear: got %v vs %v", lhs, rhs)
	}
}

func TestNoneShaperIsIdentity(t *testing.T) {
	s := None()
	f := func(t float64) float64 { return math.Sin(t) }
	if got := s.Convolve(0.37, f); math.Abs(got-f(0.37)) > 1e-12 {
		t.Fatalf("none shaper should be identity, got %v want %v", got, f(0.37))
	}
}

func TestEIMatchesZVDDuration(t *testing.T) {
	// EI and ZVD share the same impulse count and spacing formula family;
	// EI's nonzero vibration tolerance changes amplitudes, not timing, so
	// duration should match ZVD exactly for equal freq/zeta.
	zvd := ZVD(40, 0.2)
	ei := EI(40, 0.2, 0.05)
	if math.Abs(zvd.Duration()-ei.Duration()) > 1e-9 {
		t.Fatalf("expected equal duration, got zvd=%v ei=%v", zvd.Duration(), ei.Duration())
	}
}
