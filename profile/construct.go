package profile

// buildChain constructs the phase sequence carrying velocity from vStart to
// vTarget, honoring bounds = [a_max, j_max, s_max, c_max] (always all four
// entries, as built by recursionBounds). The shape depends only on the
// magnitude of vTarget-vStart; its sign only flips the crackle signs.
// length is the distance swept while actually starting from vStart.
func buildChain(vStart, vTarget float64, bounds []float64) (phases []Phase, length, duration float64) {
	delta := vTarget - vStart
	falling := delta < 0
	if falling {
		delta = -delta
	}
	raw := bump(delta, bounds)
	if falling {
		raw = negatePhases(raw)
	}
	s := state{Vel: vStart}
	for _, ph := range raw {
		s = advance(s, ph.Duration, ph.Crackle)
		duration += ph.Duration
	}
	return raw, s.Pos, duration
}

// bump builds the phase list for a symmetric rise-hold-fall of the quantity
// one level above bounds[0] (e.g. bounds=[a_max,j_max,s_max,c_max] builds
// velocity's bump, reaching a net change of delta) entirely from rest.
//
// This is the "bump of bumps" recursive construction: at each level the
// quantity's own rate is itself built the same way one level down, mirrored
// to fall back to zero, with a hold inserted in between if the full-swing
// rise+fall doesn't by itself sweep enough area; otherwise a smaller peak is
// found by bisection so a hold-free rise+fall matches delta exactly.
func bump(delta float64, bounds []float64) []Phase {
	if delta <= 1e-12 {
		return nil
	}
	limit := bounds[0]
	depth := len(bounds) - 1

	if depth == 0 {
		return []Phase{{Duration: delta / limit, Crackle: limit}}
	}

	riseFull := bump(limit, bounds[1:])
	fallFull := mirrorPhases(riseFull)
	natural := fieldAtDepth(walk(append(append([]Phase{}, riseFull...), fallFull...)), depth)

	if delta >= natural {
		hold := (delta - natural) / limit
		out := make([]Phase, 0, len(riseFull)+1+len(fallFull))
		out = append(out, riseFull...)
		out = append(out, Phase{Duration: hold, Crackle: 0})
		out = append(out, fallFull...)
		return out
	}

	peak := bisectPeak(delta, bounds, depth)
	rise := bump(peak, bounds[1:])
	fall := mirrorPhases(rise)
	out := make([]Phase, 0, len(rise)+len(fall))
	out = append(out, rise...)
	out = append(out, fall...)
	return out
}

// bisectPeak finds peak in (0, bounds[0]] such that a hold-free rise+fall of
// the next level down, built to `peak`, nets exactly `delta` at `depth`. The
// area swept is monotonically increasing in peak, so plain bisection suffices
// (spec §4.3 explicitly licenses a non-optimal, bisection-based solver).
func bisectPeak(delta float64, bounds []float64, depth int) float64 {
	lo, hi := 0.0, bounds[0]
	for i := 0; i < bisectIterations; i++ {
		mid := (lo + hi) / 2
		rise := bump(mid, bounds[1:])
		full := append(append([]Phase{}, rise...), mirrorPhases(rise)...)
		got := fieldAtDepth(walk(full), depth)
		if got > delta {
			hi = mid
		} else {
			lo = mid
		}
	}
	return (lo + hi) / 2
}

// fieldAtDepth reads the kinematic field that recursion depth `depth`
// targets: 0 -> Snap, 1 -> Jerk, 2 -> Accel, 3 -> Vel.
func fieldAtDepth(s state, depth int) float64 {
	switch depth {
	case 0:
		return s.Snap
	case 1:
		return s.Jerk
	case 2:
		return s.Accel
	case 3:
		return s.Vel
	default:
		return 0
	}
}

// walk replays phases through advance() from a zero state.
func walk(phases []Phase) state {
	var s state
	for _, ph := range phases {
		s = advance(s, ph.Duration, ph.Crackle)
	}
	return s
}

// mirrorPhases keeps phase order and negates each crackle, turning a rise of
// some quantity into its matching fall back to zero (by linearity the fall
// undoes every change the rise made, so the two together leave every
// derivative below the targeted one at exactly zero).
func mirrorPhases(phases []Phase) []Phase {
	out := make([]Phase, len(phases))
	for i, ph := range phases {
		out[i] = Phase{Duration: ph.Duration, Crackle: -ph.Crackle}
	}
	return out
}

// negatePhases keeps phase order but negates crackle in place, turning a
// rising chain into a falling one of the same magnitude (linearity of the
// constant-crackle ODE with zero higher-derivative initial conditions).
func negatePhases(phases []Phase) []Phase {
	out := make([]Phase, len(phases))
	for i, ph := range phases {
		out[i] = Phase{Duration: ph.Duration, Crackle: -ph.Crackle}
	}
	return out
}

// padTo right-pads phases with zero-duration, zero-crackle entries up to n,
// the fixed number of slots a collapsed (G³/G²/trapezoidal) profile still
// occupies in the 31-phase array (spec §9 open question 1).
func padTo(phases []Phase, n int) []Phase {
	if len(phases) >= n {
		return phases[:n]
	}
	out := make([]Phase, n)
	copy(out, phases)
	return out
}
