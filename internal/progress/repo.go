package progress

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"shelfhub/pkg/database"
	"shelfhub/pkg/models"
)

type Repo struct {
	DB *database.DB
}

func NewRepo(db *database.DB) *Repo {
	return &Repo{DB: db}
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

// Add appends one reading-log line for an entry.
func (r *Repo) Add(ctx context.Context, entry models.ProgressHistory) error {
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}

	_, err := r.DB.ExecContext(ctx, r.DB.Rebind(`
		INSERT INTO entry_progress_history (entry_id, user_id, page, volume, at)
		VALUES (?, ?, ?, ?, ?)
	`), entry.EntryID, entry.UserID, nullInt(entry.Page), nullInt(entry.Volume), entry.At)
	if err != nil {
		return fmt.Errorf("insert progress history: %w", err)
	}
	return nil
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// ClampPage brings a requested page into the range List serves.
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > MaxPageSize {
		limit = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// List returns the owner's log for one entry, newest first.
func (r *Repo) List(ctx context.Context, userID, entryID string, limit, offset int) ([]models.ProgressHistory, int, error) {
	limit, offset = ClampPage(limit, offset)

	var total int
	if err := r.DB.QueryRowContext(ctx, r.DB.Rebind(`
		SELECT COUNT(*) FROM entry_progress_history
		WHERE user_id = ? AND entry_id = ?
	`), userID, entryID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count progress history: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, r.DB.Rebind(`
		SELECT entry_id, user_id, page, volume, at
		FROM entry_progress_history
		WHERE user_id = ? AND entry_id = ?
		ORDER BY at DESC, id DESC
		LIMIT ? OFFSET ?
	`), userID, entryID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list progress history: %w", err)
	}
	defer rows.Close()

	out := make([]models.ProgressHistory, 0, limit)
	for rows.Next() {
		var entry models.ProgressHistory
		var page, volume sql.NullInt64

		if err := rows.Scan(&entry.EntryID, &entry.UserID, &page, &volume, &entry.At); err != nil {
			return nil, 0, fmt.Errorf("scan progress history: %w", err)
		}
		if page.Valid {
			p := int(page.Int64)
			entry.Page = &p
		}
		if volume.Valid {
			v := int(volume.Int64)
			entry.Volume = &v
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows progress history: %w", err)
	}

	return out, total, nil
}
