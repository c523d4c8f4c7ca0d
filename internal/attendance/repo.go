package attendance

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Record is one attendance mark. Its id is derived from (user, session), so
// re-marking the same pair overwrites at the same key instead of adding a
// second row. That overwrite is an invariant, not an accident.
type Record struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	SessionID string    `json:"sessionId"`
	MarkedAt  time.Time `json:"markedAt"`
	Date      string    `json:"date"` // yyyy-mm-dd
	Status    string    `json:"status"`
	Method    string    `json:"method"`
	MarkedBy  string    `json:"markedBy,omitempty"`
}

// RecordID derives the deterministic composite key for a (user, session)
// pair.
func RecordID(userID, sessionID string) string {
	return userID + "#" + sessionID
}

// Repository persists attendance records in Postgres.
type Repository struct {
	db    *sql.DB
	table string
}

// NewRepository creates a repo bound to the configured attendance table.
func NewRepository(db *sql.DB, table string) *Repository {
	if table == "" {
		table = "attendance"
	}
	return &Repository{db: db, table: table}
}

// Upsert writes the record, last write wins at the derived id.
func (r *Repository) Upsert(ctx context.Context, rec Record) error {
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, user_id, session_id, marked_at, date, status, method, marked_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET
			marked_at = EXCLUDED.marked_at,
			date = EXCLUDED.date,
			status = EXCLUDED.status,
			method = EXCLUDED.method,
			marked_by = EXCLUDED.marked_by
	`, r.table), rec.ID, rec.UserID, rec.SessionID, rec.MarkedAt, rec.Date,
		rec.Status, rec.Method, rec.MarkedBy)
	return err
}

// ListByClass returns records whose session id contains classID. Session ids
// embed the class id, so this is a substring match rather than an indexed
// join.
func (r *Repository) ListByClass(ctx context.Context, classID string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, user_id, session_id, marked_at, date, status, method, marked_by
		FROM %s
		WHERE session_id LIKE '%%' || $1 || '%%'
		ORDER BY marked_at DESC
	`, r.table), classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.SessionID, &rec.MarkedAt,
			&rec.Date, &rec.Status, &rec.Method, &rec.MarkedBy); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
