package bookmarks

import (
	"context"
	"database/sql"
	"errors"
	"iter"

	"internship-matcher/internal/shared/storage/db"
)

type SQLStore struct {
	DB *sql.DB
}

func (s *SQLStore) Save(ctx context.Context, b Bookmark) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `
INSERT INTO bookmarks (profile_id, opportunity_id, saved_at)
VALUES ($1, $2, $3)
ON CONFLICT (profile_id, opportunity_id) DO NOTHING`,
		b.ProfileID, b.OpportunityID, b.SavedAt.UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *SQLStore) Remove(ctx context.Context, profileID, opportunityID string) (bool, error) {
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM bookmarks WHERE profile_id = $1 AND opportunity_id = $2`, profileID, opportunityID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Toggle deletes the pair and inserts it only when nothing was deleted, in
// one transaction.
func (s *SQLStore) Toggle(ctx context.Context, b Bookmark) (bool, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM bookmarks WHERE profile_id = $1 AND opportunity_id = $2`, b.ProfileID, b.OpportunityID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	saved := n == 0
	if saved {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO bookmarks (profile_id, opportunity_id, saved_at) VALUES ($1, $2, $3)`,
			b.ProfileID, b.OpportunityID, b.SavedAt.UTC()); err != nil {
			if db.IsUniqueViolation(err) {
				// A concurrent toggle saved it first; the pair ends up saved either way.
				return true, nil
			}
			return false, err
		}
	}
	return saved, tx.Commit()
}

func (s *SQLStore) Exists(ctx context.Context, profileID, opportunityID string) (bool, error) {
	var one int
	err := s.DB.QueryRowContext(ctx,
		`SELECT 1 FROM bookmarks WHERE profile_id = $1 AND opportunity_id = $2`, profileID, opportunityID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *SQLStore) Count(ctx context.Context, profileID string) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookmarks WHERE profile_id = $1`, profileID).Scan(&n)
	return n, err
}

// List streams rows as they are scanned; stopping early closes the cursor.
func (s *SQLStore) List(ctx context.Context, profileID string) iter.Seq2[Bookmark, error] {
	return func(yield func(Bookmark, error) bool) {
		rows, err := s.DB.QueryContext(ctx, `
SELECT profile_id, opportunity_id, saved_at FROM bookmarks
WHERE profile_id = $1
ORDER BY saved_at DESC, opportunity_id ASC`, profileID)
		if err != nil {
			yield(Bookmark{}, err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			var (
				b  Bookmark
				at db.Timestamp
			)
			if err := rows.Scan(&b.ProfileID, &b.OpportunityID, &at); err != nil {
				yield(Bookmark{}, err)
				return
			}
			b.SavedAt = at.Time
			if !yield(b, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(Bookmark{}, err)
		}
	}
}
