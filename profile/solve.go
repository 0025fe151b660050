package profile

import (
	"math"

	"motioncore/mcerr"
)

// bisectIterations bounds the peak-velocity binary search of spec §4.3 step 5.
const bisectIterations = 60

// Solve computes the 31-phase profile taking a segment from vIn to vOut over
// distance length (mm), honoring limits (spec §4.3).
//
// Algorithm (spec §4.3 "Algorithm (design level)"):
//  1. v_ceiling = limits.VMax (the per-segment nominal velocity is the
//     planner's responsibility to have already clamped into vIn/vOut/limits;
//     Solve only ever aims as high as limits.VMax).
//  2. Build the symmetric half-profile from vIn to v_ceiling (accel chain)
//     and from v_ceiling down to vOut (decel chain).
//  3. If their combined length fits inside `length`, the remainder becomes
//     the cruise phase.
//  4. Otherwise binary-search a reduced peak velocity so the two halves'
//     length exactly matches `length`.
//  5. If even peak = max(vIn, vOut) overshoots, return ProfileInfeasible so
//     the planner can lower an endpoint and retry (spec §4.4 "Sealing").
func Solve(vIn, vOut, length float64, limits Limits) (*Profile, error) {
	if err := validate(vIn, vOut, length, limits); err != nil {
		return nil, err
	}

	bounds := recursionBounds(limits)
	vCeiling := limits.VMax
	vFloor := math.Max(vIn, vOut)
	if vFloor > vCeiling {
		// The planner handed us endpoints above v_max; that's a planner bug,
		// not a solver one, but fail safe rather than silently clamp.
		return nil, mcerr.New(mcerr.InvalidArgument, "v_in/v_out (%v/%v) exceed v_max %v", vIn, vOut, limits.VMax)
	}

	if length < stepEpsilonMM {
		// Extremely short segment: a single non-zero-duration cruise phase
		// at the lower of the two endpoint velocities, or at the higher one
		// when the lower is zero (spec §4.3 tie-break).
		return shortSegmentProfile(vIn, vOut, length), nil
	}

	fits := func(peak float64) (accel, decel []Phase, la, ld float64) {
		accel, la, _ = buildChain(vIn, peak, bounds)
		decel, ld, _ = buildChain(peak, vOut, bounds)
		return
	}

	accel, decel, la, ld := fits(vCeiling)
	peak := vCeiling
	limiter := "v_max"

	if la+ld > length {
		// Binary search a smaller peak in [vFloor, vCeiling].
		lo, hi := vFloor, vCeiling
		for i := 0; i < bisectIterations; i++ {
			mid := (lo + hi) / 2
			a, d, la2, ld2 := fits(mid)
			if la2+ld2 > length {
				hi = mid
			} else {
				lo = mid
				accel, decel, la, ld = a, d, la2, ld2
			}
		}
		peak = lo
		limiter = limitingFactor(activeBounds(limits))

		if peak <= vFloor+1e-9 {
			// Even the smallest admissible peak overshoots: infeasible.
			_, _, laFloor, ldFloor := fits(vFloor)
			if laFloor+ldFloor > length+1e-6 {
				return nil, mcerr.New(mcerr.ProfileInfeasible,
					"cannot reach length=%.6fmm from v_in=%v to v_out=%v within limits even at v_peak=%v", length, vIn, vOut, vFloor)
			}
		}
	}

	cruiseLen := length - la - ld
	cruiseDur := 0.0
	if peak > 0 {
		cruiseDur = cruiseLen / peak
	}
	if cruiseDur < 0 {
		cruiseDur = 0
	}

	var p Profile
	copy(p.Phases[:NumPhases/2], padTo(accel, NumPhases/2))
	p.Phases[CruisePhase] = Phase{Duration: cruiseDur, Crackle: 0}
	copy(p.Phases[CruisePhase+1:], padTo(decel, NumPhases/2))
	p.VIn, p.VOut, p.VPeak, p.Length, p.Limiter = vIn, vOut, peak, length, limiter
	return &p, nil
}

const stepEpsilonMM = 1e-4 // below this, treat the segment as a single cruise step

func shortSegmentProfile(vIn, vOut, length float64) *Profile {
	v := math.Min(vIn, vOut)
	if v <= 0 {
		v = math.Max(vIn, vOut)
	}
	var p Profile
	dur := 0.0
	if v > 0 {
		dur = length / v
	}
	p.Phases[CruisePhase] = Phase{Duration: dur, Crackle: 0}
	p.VIn, p.VOut, p.VPeak, p.Length, p.Limiter = vIn, vOut, v, length, "short-segment"
	return &p
}

func validate(vIn, vOut, length float64, limits Limits) error {
	if !finite(vIn) || !finite(vOut) || !finite(length) {
		return mcerr.New(mcerr.InvalidArgument, "non-finite input (v_in=%v v_out=%v length=%v)", vIn, vOut, length)
	}
	if vIn < 0 || vOut < 0 || length < 0 {
		return mcerr.New(mcerr.InvalidArgument, "negative input (v_in=%v v_out=%v length=%v)", vIn, vOut, length)
	}
	if limits.VMax <= 0 || limits.AMax <= 0 || limits.JMax <= 0 || limits.SMax <= 0 || limits.CMax <= 0 {
		return mcerr.New(mcerr.InvalidArgument, "limits must be strictly positive (use +Inf for \"no limit\")")
	}
	if math.IsInf(limits.AMax, 1) || math.IsInf(limits.JMax, 1) {
		return mcerr.New(mcerr.InvalidArgument, "only s_max/c_max may be +Inf (spec §9 open question 1); a_max/j_max must stay finite")
	}
	return nil
}

func finite(v float64) bool { return !math.IsInf(v, 0) && !math.IsNaN(v) }

// surrogateFactor scales a collapsed (+Inf) bound up from the next-tighter
// finite level, far enough that its phases shrink to negligible duration
// without introducing the 0*Inf NaNs that advance() would produce on a
// genuinely infinite crackle.
const surrogateFactor = 1e9

// recursionBounds returns [AMax,JMax,SMax,CMax] always at full length, with
// any +Inf entry (spec §9 open question 1: collapse the G⁴ profile to a G³
// or G² shape) replaced by a finite surrogate. buildChain/bump's recursion
// depth is an absolute index into this fixed 4-level chain (fieldAtDepth:
// 0->Snap, 1->Jerk, 2->Accel, 3->Vel); shortening the slice instead of
// substituting a surrogate would shift that mapping and misassign which
// physical bound a given recursion level actually uses.
func recursionBounds(limits Limits) []float64 {
	b := [4]float64{limits.AMax, limits.JMax, limits.SMax, limits.CMax}
	for i := 1; i < len(b); i++ {
		if math.IsInf(b[i], 1) {
			b[i] = b[i-1] * surrogateFactor
		}
	}
	return b[:]
}

// activeBounds strips trailing +Inf entries from [AMax,JMax,SMax,CMax],
// reporting which order actually constrains the profile (for limitingFactor)
// independent of the finite surrogate recursionBounds substitutes.
func activeBounds(limits Limits) []float64 {
	all := []float64{limits.AMax, limits.JMax, limits.SMax, limits.CMax}
	n := len(all)
	for n > 1 && math.IsInf(all[n-1], 1) {
		n--
	}
	return all[:n]
}

func limitingFactor(bounds []float64) string {
	names := []string{"a_max", "j_max", "s_max", "c_max"}
	return names[len(bounds)-1]
}
