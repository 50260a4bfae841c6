package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"shelfhub/pkg/database"
	"shelfhub/pkg/models"
)

type Repo struct {
	DB *database.DB
}

func NewRepo(db *database.DB) *Repo {
	return &Repo{DB: db}
}

const entryColumns = `id, user_id, title, author, status, type,
	current_page, total_pages, current_volume, total_volumes,
	rating, review, start_date, finish_date, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*models.LibraryEntry, error) {
	var (
		e                                  models.LibraryEntry
		curPage, totPages, curVol, totVols sql.NullInt64
		rating                             sql.NullInt64
		review                             sql.NullString
		start, finish                      sql.NullTime
	)
	if err := s.Scan(&e.ID, &e.UserID, &e.Title, &e.Author, &e.Status, &e.Type,
		&curPage, &totPages, &curVol, &totVols,
		&rating, &review, &start, &finish, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.CurrentPage = intPtr(curPage)
	e.TotalPages = intPtr(totPages)
	e.CurrentVolume = intPtr(curVol)
	e.TotalVolumes = intPtr(totVols)
	e.Rating = intPtr(rating)
	if review.Valid {
		e.Review = &review.String
	}
	if start.Valid {
		t := start.Time.UTC()
		e.StartDate = &t
	}
	if finish.Valid {
		t := finish.Time.UTC()
		e.FinishDate = &t
	}
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return &e, nil
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func (r *Repo) Create(ctx context.Context, e models.LibraryEntry) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind(`
		INSERT INTO library_entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), e.ID, e.UserID, e.Title, e.Author, string(e.Status), string(e.Type),
		nullable(e.CurrentPage), nullable(e.TotalPages), nullable(e.CurrentVolume), nullable(e.TotalVolumes),
		nullable(e.Rating), nullable(e.Review), nullable(e.StartDate), nullable(e.FinishDate),
		e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create library entry: %w", err)
	}
	return nil
}

// Get returns nil, nil when the entry does not exist or belongs to
// another user.
func (r *Repo) Get(ctx context.Context, userID, id string) (*models.LibraryEntry, error) {
	e, err := scanEntry(r.DB.QueryRowContext(ctx, r.DB.Rebind(`
		SELECT `+entryColumns+`
		FROM library_entries
		WHERE id = ? AND user_id = ?
	`), id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get library entry: %w", err)
	}
	return e, nil
}

func (r *Repo) Owns(ctx context.Context, userID, id string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, r.DB.Rebind(`
		SELECT COUNT(*) FROM library_entries WHERE id = ? AND user_id = ?
	`), id, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check entry owner: %w", err)
	}
	return n > 0, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// List returns the user's entries, most recently updated first.
func (r *Repo) List(ctx context.Context, userID string, f Filter) ([]models.LibraryEntry, error) {
	var (
		where = []string{"user_id = ?"}
		args  = []any{userID}
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Type != "" && f.Type != models.TypeAll {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
		where = append(where, `(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(author) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	rows, err := r.DB.QueryContext(ctx, r.DB.Rebind(`
		SELECT `+entryColumns+`
		FROM library_entries
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY updated_at DESC, created_at DESC
	`), args...)
	if err != nil {
		return nil, fmt.Errorf("list library entries: %w", err)
	}
	defer rows.Close()

	out := make([]models.LibraryEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan library entry: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows library entries: %w", err)
	}
	return out, nil
}

// Update rewrites every mutable column. It reports false when no row
// owned by e.UserID matched.
func (r *Repo) Update(ctx context.Context, e models.LibraryEntry) (bool, error) {
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind(`
		UPDATE library_entries
		SET title = ?, author = ?, status = ?, type = ?,
			current_page = ?, total_pages = ?, current_volume = ?, total_volumes = ?,
			rating = ?, review = ?, start_date = ?, finish_date = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`), e.Title, e.Author, string(e.Status), string(e.Type),
		nullable(e.CurrentPage), nullable(e.TotalPages), nullable(e.CurrentVolume), nullable(e.TotalVolumes),
		nullable(e.Rating), nullable(e.Review), nullable(e.StartDate), nullable(e.FinishDate), e.UpdatedAt,
		e.ID, e.UserID)
	if err != nil {
		return false, fmt.Errorf("update library entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update library entry rows: %w", err)
	}
	return n > 0, nil
}

func (r *Repo) Delete(ctx context.Context, userID, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind(`
		DELETE FROM library_entries
		WHERE id = ? AND user_id = ?
	`), id, userID)
	if err != nil {
		return false, fmt.Errorf("delete library entry: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
