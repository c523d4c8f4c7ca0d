package timetable

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository persists timetable entries in Postgres.
type Repository struct {
	db    *sql.DB
	table string
}

// NewRepository creates a repo bound to the configured timetable table.
func NewRepository(db *sql.DB, table string) *Repository {
	if table == "" {
		table = "timetable"
	}
	return &Repository{db: db, table: table}
}

const entryColumns = `id, class_id, class_name, teacher_id, teacher_name, day,
	start_time, end_time, subject, room, active, assigned_at`

func scanEntry(row interface{ Scan(...any) error }) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.ClassID, &e.ClassName, &e.TeacherID, &e.TeacherName,
		&e.Day, &e.StartTime, &e.EndTime, &e.Subject, &e.Room, &e.Active, &e.AssignedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Get returns the entry or nil when absent.
func (r *Repository) Get(ctx context.Context, id string) (*Entry, error) {
	row := r.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE id = $1`, entryColumns, r.table), id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// Upsert writes the entry, overwriting the slot when it already exists.
func (r *Repository) Upsert(ctx context.Context, e Entry) error {
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (id) DO UPDATE SET
			class_name = EXCLUDED.class_name,
			teacher_id = EXCLUDED.teacher_id,
			teacher_name = EXCLUDED.teacher_name,
			end_time = EXCLUDED.end_time,
			subject = EXCLUDED.subject,
			room = EXCLUDED.room,
			active = EXCLUDED.active
	`, r.table, entryColumns),
		e.ID, e.ClassID, e.ClassName, e.TeacherID, e.TeacherName, e.Day,
		e.StartTime, e.EndTime, e.Subject, e.Room, e.Active, e.AssignedAt)
	return err
}

// Deactivate soft-deletes an entry.
func (r *Repository) Deactivate(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(
		`UPDATE %s SET active = FALSE WHERE id = $1`, r.table), id)
	return err
}

// SetTeacher overwrites the entry's teacher fields and assignment timestamp,
// leaving everything else untouched.
func (r *Repository) SetTeacher(ctx context.Context, id, teacherID, teacherName string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET teacher_id = $2, teacher_name = $3, assigned_at = $4
		WHERE id = $1
	`, r.table), id, teacherID, teacherName, at)
	return err
}

func (r *Repository) list(ctx context.Context, where string, args ...any) ([]Entry, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s %s ORDER BY start_time, class_id`,
		entryColumns, r.table, where)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// ListActive returns all active entries.
func (r *Repository) ListActive(ctx context.Context) ([]Entry, error) {
	return r.list(ctx, `WHERE active`)
}

// ListActiveByDay returns active entries for one weekday.
func (r *Repository) ListActiveByDay(ctx context.Context, day string) ([]Entry, error) {
	return r.list(ctx, `WHERE active AND day = $1`, day)
}

// ListActiveByTeacher returns a teacher's active entries.
func (r *Repository) ListActiveByTeacher(ctx context.Context, teacherID string) ([]Entry, error) {
	return r.list(ctx, `WHERE active AND teacher_id = $1`, teacherID)
}

// ListActiveByTeacherDay returns a teacher's active entries for one weekday.
func (r *Repository) ListActiveByTeacherDay(ctx context.Context, teacherID, day string) ([]Entry, error) {
	return r.list(ctx, `WHERE active AND teacher_id = $1 AND day = $2`, teacherID, day)
}
