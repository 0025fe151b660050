package mcerr

import (
	"errors"
	"testing"
)

func TestIsMatchesKind(t *testing.T) {
	err := WithSeq(ProfileInfeasible, 42, "cannot reach v_peak=%v", 12.5)
	if !Is(err, ProfileInfeasible) {
		t.Fatalf("expected ProfileInfeasible, got %v", err)
	}
	if Is(err, StateInvalid) {
		t.Fatalf("did not expect StateInvalid to match")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(PlannerDivergence, cause, "retries exhausted")
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to be reachable via errors.Is")
	}
}

func TestErrorStringIncludesSeqID(t *testing.T) {
	err := WithSeq(KinematicsUnreachable, 7, "point outside reachable volume")
	got := err.Error()
	want := "KinematicsUnreachable: seq_id=7: point outside reachable volume"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
