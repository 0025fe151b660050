package motion

import (
	"math"

	"motioncore/profile"
)

// Segment is one sealed, profile-solved leg of the move queue (spec §4.4).
// A Segment is immutable once sealed; re-planning produces a new Segment
// with a bumped Pass counter rather than mutating one in place.
type Segment struct {
	SeqID       int64
	Move        Move
	Start       Position
	End         Position
	UnitDir     Position // End-Start, normalized over X/Y/Z/E; zero vector only when End == Start
	LengthMM    float64
	VEntry      float64
	VExit       float64
	Profile     *profile.Profile
	IsFinalPass bool
	Pass        int
}

// VPeak reports the solved profile's peak velocity, or 0 if unsolved.
func (s *Segment) VPeak() float64 {
	if s.Profile == nil {
		return 0
	}
	return s.Profile.VPeak
}

// unitDirection returns (end-start) normalized to unit length, and the
// scalar length, both taken over all four axes (a pure extrusion points
// along E). A zero-length delta reports a zero vector.
func unitDirection(start, end Position) (Position, float64) {
	d := end.Sub(start)
	length := cartesianNorm(d)
	if length < 1e-12 {
		return Position{}, 0
	}
	return d.Scale(1 / length), length
}

func cartesianNorm(p Position) float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z + p.E*p.E)
}

// NewSegment builds an unsolved Segment (Profile is nil until the planner
// calls profile.Solve and attaches the result).
func NewSegment(seqID int64, move Move, start, end Position) *Segment {
	dir, length := unitDirection(start, end)
	return &Segment{
		SeqID:    seqID,
		Move:     move,
		Start:    start,
		End:      end,
		UnitDir:  dir,
		LengthMM: length,
	}
}
