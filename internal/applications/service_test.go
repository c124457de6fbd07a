package applications

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"internship-matcher/internal/catalog"
	"internship-matcher/internal/notify"
	"internship-matcher/internal/shared/apperr"
)

var baseTime = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	svc    *Service
	index  *catalog.Index
	clock  *time.Time
	mu     sync.Mutex
	events []notify.Event
	disp   *notify.Dispatcher
}

func newTestEnv(t *testing.T, repo Repo) *testEnv {
	t.Helper()
	env := &testEnv{index: catalog.NewIndex()}
	now := baseTime
	env.clock = &now

	for _, o := range []catalog.Opportunity{
		{ID: "opp-1", Openings: 2, Deadline: baseTime.Add(72 * time.Hour), Status: catalog.StatusOpen, PostedBy: "emp-1"},
		{ID: "opp-open", Openings: 1, Deadline: baseTime.Add(72 * time.Hour), Status: catalog.StatusOpen},
		{ID: "opp-full", Openings: 0, Deadline: baseTime.Add(72 * time.Hour), Status: catalog.StatusOpen},
		{ID: "opp-closed", Openings: 3, Deadline: baseTime.Add(72 * time.Hour), Status: catalog.StatusClosed},
		{ID: "opp-expired", Openings: 3, Deadline: baseTime.Add(-time.Hour), Status: catalog.StatusOpen},
	} {
		if err := env.index.Upsert(o); err != nil {
			t.Fatalf("seed %s: %v", o.ID, err)
		}
	}

	env.disp = notify.NewDispatcher(notify.NotifierFunc(func(ctx context.Context, e notify.Event) error {
		env.mu.Lock()
		defer env.mu.Unlock()
		env.events = append(env.events, e)
		return nil
	}), time.Second)

	var seq atomic.Int64
	env.svc = NewService(repo, env.index, env.disp)
	env.svc.Now = func() time.Time { return *env.clock }
	env.svc.NewID = func() string { return fmt.Sprintf("app-%d", seq.Add(1)) }
	return env
}

func (e *testEnv) drainEvents(t *testing.T) []notify.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.disp.Wait(ctx); err != nil {
		t.Fatalf("wait for notifier: %v", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]notify.Event(nil), e.events...)
}

var (
	employer  = Actor{Kind: ActorEmployer, ID: "emp-1"}
	applicant = Actor{Kind: ActorApplicant, ID: "stu-1"}
)

func submit(t *testing.T, env *testEnv, profileID, oppID string) Application {
	t.Helper()
	app, err := env.svc.Submit(context.Background(), profileID, SubmitRequest{OpportunityID: oppID, CoverLetter: "I would love to join."})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return app
}

func move(t *testing.T, env *testEnv, id string, actor Actor, to State) Application {
	t.Helper()
	app, err := env.svc.Transition(context.Background(), id, actor, TransitionRequest{State: string(to)})
	if err != nil {
		t.Fatalf("Transition to %s: %v", to, err)
	}
	return app
}

func TestSubmitCreatesAndNotifies(t *testing.T) {
	env := newTestEnv(t, NewMemoryRepo())
	app := submit(t, env, "stu-1", "opp-1")

	if app.State != StateSubmitted || app.ID != "app-1" || !app.CreatedAt.Equal(baseTime) {
		t.Fatalf("unexpected application %+v", app)
	}
	events := env.drainEvents(t)
	if len(events) != 1 || events[0].From != "" || events[0].To != "submitted" {
		t.Fatalf("events = %+v", events)
	}
}

func TestSubmitDuplicate(t *testing.T) {
	env := newTestEnv(t, NewMemoryRepo())
	first := submit(t, env, "stu-1", "opp-1")

	_, err := env.svc.Submit(context.Background(), "stu-1", SubmitRequest{OpportunityID: "opp-1", CoverLetter: "again"})
	appErr, ok := err.(*apperr.Error)
	if !ok || appErr.Kind != apperr.KindDuplicateApplication {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if appErr.ID != first.ID {
		t.Fatalf("duplicate should reference %s, got %s", first.ID, appErr.ID)
	}
}

func TestSubmitAfterWithdrawIsAllowed(t *testing.T) {
	env := newTestEnv(t, NewMemoryRepo())
	first := submit(t, env, "stu-1", "opp-1")
	move(t, env, first.ID, applicant, StateWithdrawn)

	second := submit(t, env, "stu-1", "opp-1")
	if second.ID == first.ID {
		t.Fatalf("expected a new application")
	}
}

func TestSubmitValidation(t *testing.T) {
	env := newTestEnv(t, NewMemoryRepo())
	cases := []struct {
		name string
		req  SubmitRequest
	}{
		{"empty cover letter", SubmitRequest{OpportunityID: "opp-1", CoverLetter: "  "}},
		{"unknown opportunity", SubmitRequest{OpportunityID: "nope", CoverLetter: "hi"}},
		{"full", SubmitRequest{OpportunityID: "opp-full", CoverLetter: "hi"}},
		{"closed", SubmitRequest{OpportunityID: "opp-closed", CoverLetter: "hi"}},
		{"expired", SubmitRequest{OpportunityID: "opp-expired", CoverLetter: "hi"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.Submit(context.Background(), "stu-1", tc.req)
			if !apperr.Is(err, apperr.KindValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestConcurrentSubmitsYieldOneApplication(t *testing.T) {
	env := newTestEnv(t, NewMemoryRepo())
	var (
		wg         sync.WaitGroup
		created    atomic.Int32
		duplicates atomic.Int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Submit(context.Background(), "stu-1", SubmitRequest{OpportunityID: "opp-1", CoverLetter: "hi"})
			switch {
			case err == nil:
				created.Add(1)
			case apperr.Is(err, apperr.KindDuplicateApplication):
				duplicates.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if created.Load() != 1 || duplicates.Load() != 15 {
		t.Fatalf("created=%d duplicates=%d", created.Load(), duplicates.Load())
	}
}

func TestFullLifecycleAndHistory(t *testing.T) {
	env := newTestEnv(t, NewMemoryRepo())
	app := submit(t, env, "stu-1", "opp-1")

	*env.clock = baseTime.Add(time.Hour)
	move(t, env, app.ID, employer, StateUnderReview)

	interview := baseTime.Add(48 * time.Hour)
	*env.clock = baseTime.Add(2 * time.Hour)
	got, err := env.svc.Transition(context.Background(), app.ID, employer, TransitionRequest{
		State:       "interview_scheduled",
		Feedback:    "Strong portfolio",
		InterviewAt: &interview,
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if got.InterviewAt == nil || !got.InterviewAt.Equal(interview) || got.Feedback != "Strong portfolio" {
		t.Fatalf("unexpected application %+v", got)
	}

	*env.clock = baseTime.Add(3 * time.Hour)
	move(t, env, app.ID, employer, StateOfferExtended)

	full, err := env.svc.Get(context.Background(), app.ID, applicant)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := []State{StateSubmitted, StateUnderReview, StateInterviewScheduled, StateOfferExtended}
	if len(full.History) != len(want) {
		t.Fatalf("history = %+v", full.History)
	}
	for i, tr := range full.History {
		if tr.To != want[i] {
			t.Fatalf("history[%d] = %s, want %s", i, tr.To, want[i])
		}
	}

	events := env.drainEvents(t)
	if len(events) != 4 {
		t.Fatalf("events = %+v", events)
	}
	var sawOffer bool
	for _, e := range events {
		if e.To == "offer_extended" {
			sawOffer = e.From == "interview_scheduled" && e.ActorID == "emp-1"
		}
	}
	if !sawOffer {
		t.Fatalf("missing offer event in %+v", events)
	}
}

func TestTransitionsFromTerminalStatesAreIllegal(t *testing.T) {
	for _, terminal := range []State{StateOfferExtended, StateRejected, StateWithdrawn} {
		t.Run(string(terminal), func(t *testing.T) {
			env := newTestEnv(t, NewMemoryRepo())
			app := submit(t, env, "stu-1", "opp-1")
			switch terminal {
			case StateWithdrawn:
				move(t, env, app.ID, applicant, StateWithdrawn)
			case StateRejected:
				move(t, env, app.ID, employer, StateUnderReview)
				move(t, env, app.ID, employer, StateRejected)
			case StateOfferExtended:
				move(t, env, app.ID, employer, StateUnderReview)
				move(t, env, app.ID, employer, StateInterviewScheduled)
				move(t, env, app.ID, employer, StateOfferExtended)
			}
			for _, to := range AllStates {
				actor := employer
				if to == StateWithdrawn {
					actor = applicant
				}
				_, err := env.svc.Transition(context.Background(), app.ID, actor, TransitionRequest{State: string(to)})
				if !apperr.Is(err, apperr.KindIllegalTransition) {
					t.Fatalf("%s → %s: expected illegal_transition, got %v", terminal, to, err)
				}
			}
		})
	}
}

func TestSkippingEdgesIsIllegal(t *testing.T) {
	env := newTestEnv(t, NewMemoryRepo())
	app := submit(t, env, "stu-1", "opp-1")
	_, err := env.svc.Transition(context.Background(), app.ID, employer, TransitionRequest{State: "offer_extended"})
	if !apperr.Is(err, apperr.KindIllegalTransition) {
		t.Fatalf("expected illegal_transition, got %v", err)
	}
	_, err = env.svc.Transition(context.Background(), app.ID, employer, TransitionRequest{State: "rejected"})
	if !apperr.Is(err, apperr.KindIllegalTransition) {
		t.Fatalf("submitted → rejected must be illegal, got %v", err)
	}
}

func TestTransitionPermissions(t *testing.T) {
	env := newTestEnv(t, NewMemoryRepo())
	app := submit(t, env, "stu-1", "opp-1")
	ctx := context.Background()

	_, err := env.svc.Transition(ctx, app.ID, applicant, TransitionRequest{State: "under_review"})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("applicant advancing: expected forbidden, got %v", err)
	}
	_, err = env.svc.Transition(ctx, app.ID, employer, TransitionRequest{State: "withdrawn"})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("employer withdrawing: expected forbidden, got %v", err)
	}
	_, err = env.svc.Transition(ctx, app.ID, Actor{Kind: ActorApplicant, ID: "stu-2"}, TransitionRequest{State: "withdrawn"})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("other applicant: expected not_found, got %v", err)
	}
	_, err = env.svc.Transition(ctx, app.ID, Actor{Kind: ActorEmployer, ID: "emp-2"}, TransitionRequest{State: "under_review"})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("foreign employer: expected forbidden, got %v", err)
	}
	move(t, env, app.ID, Actor{Kind: ActorAdmin, ID: "root"}, StateUnderReview)
}

func TestTransitionUnknownStateAndApplication(t *testing.T) {
	env := newTestEnv(t, NewMemoryRepo())
	app := submit(t, env, "stu-1", "opp-1")
	_, err := env.svc.Transition(context.Background(), app.ID, employer, TransitionRequest{State: "hired"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation, got %v", err)
	}
	_, err = env.svc.Transition(context.Background(), "missing", employer, TransitionRequest{State: "under_review"})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestTimestampsNeverGoBackwards(t *testing.T) {
	env := newTestEnv(t, NewMemoryRepo())
	app := submit(t, env, "stu-1", "opp-1")

	*env.clock = baseTime.Add(-time.Hour)
	moved := move(t, env, app.ID, employer, StateUnderReview)
	if !moved.UpdatedAt.Equal(baseTime) {
		t.Fatalf("updatedAt = %v, want clamp to %v", moved.UpdatedAt, baseTime)
	}
	full, err := env.svc.Get(context.Background(), app.ID, employer)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if full.History[1].At.Before(full.History[0].At) {
		t.Fatalf("history timestamps decrease: %+v", full.History)
	}
}

func TestListsAndCounts(t *testing.T) {
	env := newTestEnv(t, NewMemoryRepo())
	ctx := context.Background()
	first := submit(t, env, "stu-1", "opp-1")
	*env.clock = baseTime.Add(time.Minute)
	submit(t, env, "stu-1", "opp-open")
	submit(t, env, "stu-2", "opp-1")
	move(t, env, first.ID, employer, StateUnderReview)

	mine, err := env.svc.ListForProfile(ctx, "stu-1")
	if err != nil || len(mine) != 2 || mine[0].OpportunityID != "opp-open" {
		t.Fatalf("ListForProfile = %+v, %v", mine, err)
	}
	counts, err := env.svc.CountByState(ctx, "stu-1")
	if err != nil || counts[StateSubmitted] != 1 || counts[StateUnderReview] != 1 || counts[StateRejected] != 0 {
		t.Fatalf("counts = %v, %v", counts, err)
	}

	forOpp, err := env.svc.ListForOpportunity(ctx, "opp-1", employer)
	if err != nil || len(forOpp) != 2 {
		t.Fatalf("ListForOpportunity = %+v, %v", forOpp, err)
	}
	if _, err := env.svc.ListForOpportunity(ctx, "opp-1", Actor{Kind: ActorEmployer, ID: "emp-2"}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := env.svc.ListForOpportunity(ctx, "opp-1", applicant); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for applicant, got %v", err)
	}
}
