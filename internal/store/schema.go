package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Tables names the three Postgres tables the service owns. Session records
// live in Redis and have no table here.
type Tables struct {
	Users      string
	Attendance string
	Timetable  string
}

// EnsureSchema creates the tables when missing. Safe to run on every start;
// "already exists" is a no-op by construction.
func EnsureSchema(ctx context.Context, db *sql.DB, t Tables) error {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id               TEXT PRIMARY KEY,
		name             TEXT NOT NULL,
		email            TEXT NOT NULL,
		role             TEXT NOT NULL,
		approved         BOOLEAN NOT NULL DEFAULT FALSE,
		rejected         BOOLEAN NOT NULL DEFAULT FALSE,
		rejection_reason TEXT NOT NULL DEFAULT '',
		active           BOOLEAN NOT NULL DEFAULT FALSE,
		password         TEXT NOT NULL DEFAULT '',
		photo_base64     TEXT NOT NULL DEFAULT '',
		face_id          TEXT NOT NULL DEFAULT '',
		photo_key        TEXT NOT NULL DEFAULT '',
		department       TEXT NOT NULL DEFAULT '',
		specialization   TEXT NOT NULL DEFAULT '',
		employee_id      TEXT NOT NULL DEFAULT '',
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		approved_at      TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS %s (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		session_id TEXT NOT NULL,
		marked_at  TIMESTAMPTZ NOT NULL,
		date       TEXT NOT NULL,
		status     TEXT NOT NULL DEFAULT 'Present',
		method     TEXT NOT NULL,
		marked_by  TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS %s (
		id           TEXT PRIMARY KEY,
		class_id     TEXT NOT NULL,
		class_name   TEXT NOT NULL,
		teacher_id   TEXT NOT NULL DEFAULT '',
		teacher_name TEXT NOT NULL DEFAULT '',
		day          TEXT NOT NULL,
		start_time   TEXT NOT NULL,
		end_time     TEXT NOT NULL,
		subject      TEXT NOT NULL,
		room         TEXT NOT NULL DEFAULT '',
		active       BOOLEAN NOT NULL DEFAULT TRUE,
		assigned_at  TIMESTAMPTZ
	);

	CREATE INDEX IF NOT EXISTS idx_%s_session ON %s(session_id);
	CREATE INDEX IF NOT EXISTS idx_%s_day ON %s(day);
	`, t.Users, t.Attendance, t.Timetable,
		t.Attendance, t.Attendance,
		t.Timetable, t.Timetable)

	_, err := db.ExecContext(ctx, schema)
	return err
}
