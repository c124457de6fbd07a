package applications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"internship-matcher/internal/shared/storage/db"
)

// SQLRepo stores applications and their transition log. The partial unique
// index on live pairs backs ErrDuplicate.
type SQLRepo struct {
	DB *sql.DB
}

const applicationColumns = `id, profile_id, opportunity_id, state, cover_letter, resume_id, feedback,
  interview_at, created_at, updated_at`

const insertTransition = `
INSERT INTO application_transitions (application_id, from_state, to_state, actor_kind, actor_id, feedback, at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

func (r *SQLRepo) Create(ctx context.Context, app Application, first Transition) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO applications (`+applicationColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		app.ID,
		app.ProfileID,
		app.OpportunityID,
		string(app.State),
		app.CoverLetter,
		nullString(app.ResumeID),
		nullString(app.Feedback),
		db.NullableTime(app.InterviewAt),
		app.CreatedAt.UTC(),
		app.UpdatedAt.UTC(),
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	if err := execTransition(ctx, tx, app.ID, first); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLRepo) Get(ctx context.Context, id string) (Application, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)
	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Application{}, ErrNotFound
	}
	return app, err
}

func (r *SQLRepo) FindLive(ctx context.Context, profileID, opportunityID string) (Application, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications
WHERE profile_id = $1 AND opportunity_id = $2 AND state <> 'withdrawn'`, profileID, opportunityID)
	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Application{}, ErrNotFound
	}
	return app, err
}

func (r *SQLRepo) Update(ctx context.Context, app Application, t Transition) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
UPDATE applications
SET state = $1, feedback = $2, interview_at = $3, updated_at = $4
WHERE id = $5 AND state = $6`,
		string(t.To),
		nullString(app.Feedback),
		db.NullableTime(app.InterviewAt),
		app.UpdatedAt.UTC(),
		app.ID,
		string(t.From),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM applications WHERE id = $1`, app.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return ErrStale
	}
	if err := execTransition(ctx, tx, app.ID, t); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLRepo) ListByProfile(ctx context.Context, profileID string) ([]Application, error) {
	return r.list(ctx, `SELECT `+applicationColumns+` FROM applications WHERE profile_id = $1`, profileID)
}

func (r *SQLRepo) ListByOpportunity(ctx context.Context, opportunityID string) ([]Application, error) {
	return r.list(ctx, `SELECT `+applicationColumns+` FROM applications WHERE opportunity_id = $1`, opportunityID)
}

func (r *SQLRepo) History(ctx context.Context, id string) ([]Transition, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT from_state, to_state, actor_kind, actor_id, feedback, at
FROM application_transitions WHERE application_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var (
			t                   Transition
			from, to, actorKind string
			feedback            sql.NullString
			at                  db.Timestamp
		)
		if err := rows.Scan(&from, &to, &actorKind, &t.ActorID, &feedback, &at); err != nil {
			return nil, err
		}
		t.From, t.To, t.ActorKind = State(from), State(to), ActorKind(actorKind)
		t.Feedback = feedback.String
		t.At = at.Time
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *SQLRepo) list(ctx context.Context, query string, arg string) ([]Application, error) {
	rows, err := r.DB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, app)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortNewestFirst(out)
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (Application, error) {
	var (
		app                  Application
		state                string
		resumeID, feedback   sql.NullString
		interviewAt          db.Timestamp
		createdAt, updatedAt db.Timestamp
	)
	err := row.Scan(
		&app.ID,
		&app.ProfileID,
		&app.OpportunityID,
		&state,
		&app.CoverLetter,
		&resumeID,
		&feedback,
		&interviewAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return Application{}, err
	}
	parsed, err := ParseState(state)
	if err != nil {
		return Application{}, fmt.Errorf("application %s: %w", app.ID, err)
	}
	app.State = parsed
	app.ResumeID = resumeID.String
	app.Feedback = feedback.String
	app.InterviewAt = interviewAt.Ptr()
	app.CreatedAt = createdAt.Time
	app.UpdatedAt = updatedAt.Time
	return app, nil
}

func execTransition(ctx context.Context, tx *sql.Tx, appID string, t Transition) error {
	_, err := tx.ExecContext(ctx, insertTransition,
		appID,
		string(t.From),
		string(t.To),
		string(t.ActorKind),
		t.ActorID,
		nullString(t.Feedback),
		t.At.UTC(),
	)
	return err
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
