// Package applications tracks a candidate's application to an opportunity.
//
// Valid state graph:
//
//	submitted ──► under_review ──► interview_scheduled ──► offer_extended
//	                   │                   │
//	                   └──► rejected ◄─────┘
//
// submitted, under_review and interview_scheduled may also move to withdrawn.
// offer_extended, rejected and withdrawn are terminal.
package applications

import (
	"fmt"
	"slices"
	"strings"
)

type State string

const (
	StateSubmitted          State = "submitted"
	StateUnderReview        State = "under_review"
	StateInterviewScheduled State = "interview_scheduled"
	StateOfferExtended      State = "offer_extended"
	StateRejected           State = "rejected"
	StateWithdrawn          State = "withdrawn"
)

// AllStates in lifecycle order.
var AllStates = []State{
	StateSubmitted,
	StateUnderReview,
	StateInterviewScheduled,
	StateOfferExtended,
	StateRejected,
	StateWithdrawn,
}

// validTransitions lists every allowed (from → to) pair.
var validTransitions = map[State][]State{
	StateSubmitted:          {StateUnderReview, StateWithdrawn},
	StateUnderReview:        {StateInterviewScheduled, StateRejected, StateWithdrawn},
	StateInterviewScheduled: {StateOfferExtended, StateRejected, StateWithdrawn},
}

// ParseState converts a raw string to a State, returning an error for unknown values.
func ParseState(s string) (State, error) {
	st := State(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(AllStates, st) {
		return st, nil
	}
	return "", fmt.Errorf("unknown application state %q", s)
}

// CanTransition reports whether from → to is an edge of the state machine.
func CanTransition(from, to State) bool {
	return slices.Contains(validTransitions[from], to)
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	_, ok := validTransitions[s]
	return !ok
}

// Live reports whether the application still occupies its (profile, opportunity) pair.
func (s State) Live() bool {
	return s != StateWithdrawn
}
