package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"internship-matcher/internal/shared/storage/db"
)

// SQLRepo persists opportunities in Postgres or sqlite. List columns are JSON arrays.
type SQLRepo struct {
	DB *sql.DB
}

const opportunityColumns = `id, title, organization, description, required_skills, preferred_skills,
  location, sector, duration, stipend, employment_type, perks, responsibilities, posted_by,
  deadline, openings, status, created_at, updated_at`

func (r *SQLRepo) Upsert(ctx context.Context, o Opportunity) error {
	lists, err := encodeLists(o)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO opportunities (` + opportunityColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
ON CONFLICT (id) DO UPDATE SET
  title = EXCLUDED.title,
  organization = EXCLUDED.organization,
  description = EXCLUDED.description,
  required_skills = EXCLUDED.required_skills,
  preferred_skills = EXCLUDED.preferred_skills,
  location = EXCLUDED.location,
  sector = EXCLUDED.sector,
  duration = EXCLUDED.duration,
  stipend = EXCLUDED.stipend,
  employment_type = EXCLUDED.employment_type,
  perks = EXCLUDED.perks,
  responsibilities = EXCLUDED.responsibilities,
  posted_by = EXCLUDED.posted_by,
  deadline = EXCLUDED.deadline,
  openings = EXCLUDED.openings,
  status = EXCLUDED.status,
  updated_at = EXCLUDED.updated_at`
	_, err = r.DB.ExecContext(ctx, query,
		o.ID,
		o.Title,
		o.Organization,
		o.Description,
		lists[0],
		lists[1],
		o.Location,
		o.Sector,
		o.Duration,
		o.Stipend,
		o.EmploymentType,
		lists[2],
		lists[3],
		o.PostedBy,
		o.Deadline.UTC(),
		o.Openings,
		string(o.Status),
		o.CreatedAt.UTC(),
		o.UpdatedAt.UTC(),
	)
	return err
}

func (r *SQLRepo) Get(ctx context.Context, id string) (Opportunity, error) {
	query := `SELECT ` + opportunityColumns + ` FROM opportunities WHERE id = $1`
	o, err := scanOpportunity(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Opportunity{}, ErrNotFound
	}
	return o, err
}

func (r *SQLRepo) List(ctx context.Context) ([]Opportunity, error) {
	query := `SELECT ` + opportunityColumns + ` FROM opportunities ORDER BY id`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Opportunity
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOpportunity(row rowScanner) (Opportunity, error) {
	var (
		o                                        Opportunity
		required, preferred, perks, resp, status string
		deadline, createdAt, updatedAt           db.Timestamp
	)
	err := row.Scan(
		&o.ID,
		&o.Title,
		&o.Organization,
		&o.Description,
		&required,
		&preferred,
		&o.Location,
		&o.Sector,
		&o.Duration,
		&o.Stipend,
		&o.EmploymentType,
		&perks,
		&resp,
		&o.PostedBy,
		&deadline,
		&o.Openings,
		&status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return Opportunity{}, err
	}
	for _, target := range []struct {
		raw string
		dst *[]string
	}{
		{required, &o.RequiredSkills},
		{preferred, &o.PreferredSkills},
		{perks, &o.Perks},
		{resp, &o.Responsibilities},
	} {
		if err := json.Unmarshal([]byte(target.raw), target.dst); err != nil {
			return Opportunity{}, fmt.Errorf("decode opportunity %s: %w", o.ID, err)
		}
		if len(*target.dst) == 0 {
			*target.dst = nil
		}
	}
	o.Status = Status(status)
	o.Deadline = deadline.Time
	o.CreatedAt = createdAt.Time
	o.UpdatedAt = updatedAt.Time
	return o, nil
}

// encodeLists returns required, preferred, perks and responsibilities as JSON.
func encodeLists(o Opportunity) ([4]string, error) {
	var out [4]string
	for i, list := range [][]string{o.RequiredSkills, o.PreferredSkills, o.Perks, o.Responsibilities} {
		if list == nil {
			list = []string{}
		}
		b, err := json.Marshal(list)
		if err != nil {
			return out, err
		}
		out[i] = string(b)
	}
	return out, nil
}
