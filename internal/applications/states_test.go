package applications

import "testing"

func TestCanTransitionListedEdges(t *testing.T) {
	allowed := map[[2]State]bool{
		{StateSubmitted, StateUnderReview}:            true,
		{StateSubmitted, StateWithdrawn}:              true,
		{StateUnderReview, StateInterviewScheduled}:   true,
		{StateUnderReview, StateRejected}:             true,
		{StateUnderReview, StateWithdrawn}:            true,
		{StateInterviewScheduled, StateOfferExtended}: true,
		{StateInterviewScheduled, StateRejected}:      true,
		{StateInterviewScheduled, StateWithdrawn}:     true,
	}
	for _, from := range AllStates {
		for _, to := range AllStates {
			want := allowed[[2]State{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s → %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestTerminalStates(t *testing.T) {
	for _, s := range []State{StateOfferExtended, StateRejected, StateWithdrawn} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []State{StateSubmitted, StateUnderReview, StateInterviewScheduled} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestParseState(t *testing.T) {
	if s, err := ParseState(" Under_Review "); err != nil || s != StateUnderReview {
		t.Fatalf("ParseState = %q, %v", s, err)
	}
	if _, err := ParseState("hired"); err == nil {
		t.Fatalf("expected error for unknown state")
	}
}
