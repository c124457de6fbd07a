package profiles

import (
	"context"
	"errors"
	"strings"
	"time"

	"internship-matcher/internal/shared/apperr"
	"internship-matcher/internal/shared/telemetry"
)

type Service struct {
	Normalizer *Normalizer
	Repo       Repo
	Now        func() time.Time
}

func NewService(normalizer *Normalizer, repo Repo) *Service {
	return &Service{Normalizer: normalizer, Repo: repo, Now: time.Now}
}

// Normalize canonicalizes a raw profile without storing it.
func (s *Service) Normalize(raw RawProfile) (Profile, error) {
	return s.Normalizer.Normalize(raw)
}

// Save normalizes raw for userID and stores the result. The identity from the
// caller always wins over any userId in the payload.
func (s *Service) Save(ctx context.Context, userID string, raw RawProfile) (Profile, error) {
	if s == nil || s.Repo == nil {
		return Profile{}, errors.New("profiles service not configured")
	}
	raw.UserID = userID
	profile, err := s.Normalizer.Normalize(raw)
	if err != nil {
		return Profile{}, err
	}
	profile.UpdatedAt = s.now()
	if err := s.Repo.Put(ctx, profile); err != nil {
		return Profile{}, err
	}
	telemetry.Info("profile.saved", map[string]any{
		"user_id":     userID,
		"skill_count": len(profile.Skills),
		"education":   profile.EducationLevel.String(),
	})
	return profile, nil
}

// Get returns the stored canonical profile.
func (s *Service) Get(ctx context.Context, userID string) (Profile, error) {
	if s == nil || s.Repo == nil {
		return Profile{}, errors.New("profiles service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return Profile{}, apperr.Validation("userId", "is required")
	}
	p, err := s.Repo.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return Profile{}, apperr.NotFound("profile", userID)
	}
	return p, err
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
