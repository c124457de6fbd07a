package applications

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"internship-matcher/internal/catalog"
	"internship-matcher/internal/notify"
	"internship-matcher/internal/shared/apperr"
	"internship-matcher/internal/shared/keylock"
	"internship-matcher/internal/shared/metrics"
	"internship-matcher/internal/shared/telemetry"
	"internship-matcher/internal/shared/validation"
)

// OpportunityLookup finds stored opportunities regardless of status.
type OpportunityLookup interface {
	Get(id string) (catalog.Opportunity, bool)
}

// Service is the only writer of application state.
type Service struct {
	Repo     Repo
	Catalog  OpportunityLookup
	Notifier *notify.Dispatcher
	Locks    *keylock.Table
	Now      func() time.Time
	NewID    func() string
}

func NewService(repo Repo, lookup OpportunityLookup, notifier *notify.Dispatcher) *Service {
	return &Service{
		Repo:     repo,
		Catalog:  lookup,
		Notifier: notifier,
		Locks:    &keylock.Table{},
		Now:      time.Now,
		NewID:    uuid.NewString,
	}
}

// Submit creates a submitted application for profileID. At most one live
// application may exist per (profile, opportunity).
func (s *Service) Submit(ctx context.Context, profileID string, req SubmitRequest) (Application, error) {
	if strings.TrimSpace(profileID) == "" {
		return Application{}, apperr.Validation("profileId", "is required")
	}
	if err := validation.Struct(req); err != nil {
		return Application{}, err
	}
	oppID := strings.TrimSpace(req.OpportunityID)
	if err := s.checkOpen(oppID); err != nil {
		return Application{}, err
	}

	unlock := s.Locks.Lock(profileID, oppID)
	defer unlock()

	if existing, err := s.Repo.FindLive(ctx, profileID, oppID); err == nil {
		return Application{}, s.duplicate(profileID, oppID, existing.ID)
	} else if !errors.Is(err, ErrNotFound) {
		return Application{}, err
	}

	now := s.now()
	app := Application{
		ID:            s.newID(),
		ProfileID:     profileID,
		OpportunityID: oppID,
		State:         StateSubmitted,
		CoverLetter:   strings.TrimSpace(req.CoverLetter),
		ResumeID:      strings.TrimSpace(req.ResumeID),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	first := Transition{To: StateSubmitted, ActorKind: ActorApplicant, ActorID: profileID, At: now}

	if err := s.Repo.Create(ctx, app, first); err != nil {
		if errors.Is(err, ErrDuplicate) {
			existingID := ""
			if existing, findErr := s.Repo.FindLive(ctx, profileID, oppID); findErr == nil {
				existingID = existing.ID
			}
			return Application{}, s.duplicate(profileID, oppID, existingID)
		}
		return Application{}, err
	}

	metrics.IncApplicationsSubmitted()
	metrics.IncTransition(string(StateSubmitted))
	telemetry.Info("application.submitted", map[string]any{
		"application_id": app.ID,
		"profile_id":     profileID,
		"opportunity_id": oppID,
	})
	s.publish(app, first)
	app.History = []Transition{first}
	return app, nil
}

// Transition moves an application along one edge of the state machine.
// Applicants may only withdraw their own applications; every other edge
// belongs to employers and admins.
func (s *Service) Transition(ctx context.Context, id string, actor Actor, req TransitionRequest) (Application, error) {
	if err := validation.Struct(req); err != nil {
		return Application{}, err
	}
	target, err := ParseState(req.State)
	if err != nil {
		return Application{}, apperr.Validation("state", err.Error())
	}

	app, err := s.load(ctx, id)
	if err != nil {
		return Application{}, err
	}
	if err := s.authorize(app, actor, target); err != nil {
		return Application{}, err
	}

	unlock := s.Locks.Lock(app.ProfileID, app.OpportunityID)
	defer unlock()

	// Re-read under the pair lock; another request may have moved it.
	if app, err = s.load(ctx, id); err != nil {
		return Application{}, err
	}
	if !CanTransition(app.State, target) {
		return Application{}, apperr.IllegalTransition(app.ID, string(app.State), string(target))
	}

	at := s.now()
	if at.Before(app.UpdatedAt) {
		at = app.UpdatedAt
	}
	t := Transition{
		From:      app.State,
		To:        target,
		ActorKind: actor.Kind,
		ActorID:   actor.ID,
		Feedback:  strings.TrimSpace(req.Feedback),
		At:        at,
	}
	next := app
	next.State = target
	next.UpdatedAt = at
	if t.Feedback != "" {
		next.Feedback = t.Feedback
	}
	if target == StateInterviewScheduled && req.InterviewAt != nil {
		interviewAt := req.InterviewAt.UTC()
		next.InterviewAt = &interviewAt
	}

	if err := s.Repo.Update(ctx, next, t); err != nil {
		if errors.Is(err, ErrStale) {
			return Application{}, apperr.IllegalTransition(app.ID, string(app.State), string(target))
		}
		if errors.Is(err, ErrNotFound) {
			return Application{}, apperr.NotFound("application", id)
		}
		return Application{}, err
	}

	metrics.IncTransition(string(target))
	telemetry.Info("application.transition", map[string]any{
		"application_id": app.ID,
		"from":           string(t.From),
		"to":             string(t.To),
		"actor_kind":     string(actor.Kind),
	})
	s.publish(next, t)
	return next, nil
}

// Get returns an application with its history if actor may see it.
func (s *Service) Get(ctx context.Context, id string, actor Actor) (Application, error) {
	app, err := s.load(ctx, id)
	if err != nil {
		return Application{}, err
	}
	if !s.canView(app, actor) {
		return Application{}, apperr.NotFound("application", id)
	}
	history, err := s.Repo.History(ctx, id)
	if err != nil {
		return Application{}, err
	}
	app.History = history
	return app, nil
}

// ListForProfile returns the profile's applications, newest first.
func (s *Service) ListForProfile(ctx context.Context, profileID string) ([]Application, error) {
	apps, err := s.Repo.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if apps == nil {
		apps = []Application{}
	}
	return apps, nil
}

// ListForOpportunity returns applications to an opportunity the actor manages.
func (s *Service) ListForOpportunity(ctx context.Context, opportunityID string, actor Actor) ([]Application, error) {
	if actor.Kind == ActorApplicant {
		return nil, apperr.Forbidden("applicants cannot list other candidates")
	}
	if actor.Kind == ActorEmployer {
		o, ok := s.Catalog.Get(opportunityID)
		if !ok {
			return nil, apperr.NotFound("opportunity", opportunityID)
		}
		if o.PostedBy != "" && o.PostedBy != actor.ID {
			return nil, apperr.Forbidden("opportunity belongs to another employer")
		}
	}
	apps, err := s.Repo.ListByOpportunity(ctx, opportunityID)
	if err != nil {
		return nil, err
	}
	if apps == nil {
		apps = []Application{}
	}
	return apps, nil
}

// CountByState tallies the profile's applications per state.
func (s *Service) CountByState(ctx context.Context, profileID string) (map[State]int, error) {
	apps, err := s.Repo.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	counts := make(map[State]int, len(AllStates))
	for _, st := range AllStates {
		counts[st] = 0
	}
	for _, app := range apps {
		counts[app.State]++
	}
	return counts, nil
}

func (s *Service) checkOpen(oppID string) error {
	o, ok := s.Catalog.Get(oppID)
	if !ok {
		return apperr.Validation("opportunityId", "opportunity does not exist")
	}
	now := s.now()
	switch {
	case o.Status != catalog.StatusOpen:
		return apperr.Validation("opportunityId", "opportunity is closed")
	case o.Openings <= 0:
		return apperr.Validation("opportunityId", "opportunity has no openings left")
	case o.Deadline.Before(now):
		return apperr.Validation("opportunityId", "application deadline has passed")
	}
	return nil
}

func (s *Service) authorize(app Application, actor Actor, target State) error {
	switch actor.Kind {
	case ActorApplicant:
		if app.ProfileID != actor.ID {
			return apperr.NotFound("application", app.ID)
		}
		if !CanTransition(app.State, target) {
			return apperr.IllegalTransition(app.ID, string(app.State), string(target))
		}
		if target != StateWithdrawn {
			return apperr.Forbidden("applicants may only withdraw")
		}
	case ActorEmployer, ActorAdmin:
		if !CanTransition(app.State, target) {
			return apperr.IllegalTransition(app.ID, string(app.State), string(target))
		}
		if target == StateWithdrawn {
			return apperr.Forbidden("only the applicant may withdraw")
		}
		if actor.Kind == ActorEmployer {
			if o, ok := s.Catalog.Get(app.OpportunityID); ok && o.PostedBy != "" && o.PostedBy != actor.ID {
				return apperr.Forbidden("opportunity belongs to another employer")
			}
		}
	default:
		return apperr.Forbidden("unknown actor")
	}
	return nil
}

func (s *Service) canView(app Application, actor Actor) bool {
	switch actor.Kind {
	case ActorApplicant:
		return app.ProfileID == actor.ID
	case ActorEmployer:
		o, ok := s.Catalog.Get(app.OpportunityID)
		return !ok || o.PostedBy == "" || o.PostedBy == actor.ID
	case ActorAdmin:
		return true
	}
	return false
}

func (s *Service) load(ctx context.Context, id string) (Application, error) {
	app, err := s.Repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Application{}, apperr.NotFound("application", id)
	}
	return app, err
}

func (s *Service) duplicate(profileID, oppID, existingID string) error {
	metrics.IncDuplicateApplications()
	telemetry.Warn("application.duplicate", map[string]any{
		"profile_id":     profileID,
		"opportunity_id": oppID,
		"existing_id":    existingID,
	})
	return apperr.DuplicateApplication(profileID, oppID, existingID)
}

func (s *Service) publish(app Application, t Transition) {
	s.Notifier.Dispatch(notify.Event{
		ApplicationID: app.ID,
		ProfileID:     app.ProfileID,
		OpportunityID: app.OpportunityID,
		From:          string(t.From),
		To:            string(t.To),
		ActorKind:     string(t.ActorKind),
		ActorID:       t.ActorID,
		Feedback:      t.Feedback,
		At:            t.At,
	})
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}
