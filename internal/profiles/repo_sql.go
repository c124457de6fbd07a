package profiles

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"internship-matcher/internal/shared/storage/db"
)

// SQLRepo stores profiles in Postgres or sqlite; list columns hold JSON arrays.
type SQLRepo struct {
	DB *sql.DB
}

func (r *SQLRepo) Put(ctx context.Context, profile Profile) error {
	skills, err := json.Marshal(profile.Skills)
	if err != nil {
		return err
	}
	sectors, err := json.Marshal(profile.SectorInterests)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO profiles (user_id, skills, education_level, field_of_study, sectors, location, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (user_id) DO UPDATE SET
  skills = EXCLUDED.skills,
  education_level = EXCLUDED.education_level,
  field_of_study = EXCLUDED.field_of_study,
  sectors = EXCLUDED.sectors,
  location = EXCLUDED.location,
  updated_at = EXCLUDED.updated_at`
	_, err = r.DB.ExecContext(ctx, query,
		profile.UserID,
		string(skills),
		profile.EducationLevel.String(),
		profile.FieldOfStudy,
		string(sectors),
		profile.Location,
		profile.UpdatedAt.UTC(),
	)
	return err
}

func (r *SQLRepo) Get(ctx context.Context, userID string) (Profile, error) {
	const query = `
SELECT user_id, skills, education_level, field_of_study, sectors, location, updated_at
FROM profiles
WHERE user_id = $1`
	var (
		p         Profile
		skills    string
		level     string
		sectors   string
		updatedAt db.Timestamp
	)
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID,
		&skills,
		&level,
		&p.FieldOfStudy,
		&sectors,
		&p.Location,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	if err := json.Unmarshal([]byte(skills), &p.Skills); err != nil {
		return Profile{}, fmt.Errorf("decode skills for %s: %w", userID, err)
	}
	if err := json.Unmarshal([]byte(sectors), &p.SectorInterests); err != nil {
		return Profile{}, fmt.Errorf("decode sectors for %s: %w", userID, err)
	}
	var ok bool
	if p.EducationLevel, ok = ParseEducationLevel(level); !ok {
		return Profile{}, fmt.Errorf("stored education level %q invalid for %s", level, userID)
	}
	p.UpdatedAt = updatedAt.Time
	return p, nil
}
