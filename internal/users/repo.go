package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository persists user records in Postgres.
type Repository struct {
	db    *sql.DB
	table string
}

// NewRepository creates a repo bound to the configured users table.
func NewRepository(db *sql.DB, table string) *Repository {
	if table == "" {
		table = "users"
	}
	return &Repository{db: db, table: table}
}

const userColumns = `id, name, email, role, approved, rejected, rejection_reason, active,
	password, photo_base64, face_id, photo_key, department, specialization, employee_id,
	created_at, approved_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Approved, &u.Rejected,
		&u.RejectionReason, &u.Active, &u.Password, &u.PhotoBase64, &u.FaceID,
		&u.PhotoKey, &u.Department, &u.Specialization, &u.EmployeeID,
		&u.CreatedAt, &u.ApprovedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Get returns the user or nil when absent.
func (r *Repository) Get(ctx context.Context, id string) (*User, error) {
	row := r.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE id = $1`, userColumns, r.table), id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// Put writes the full record, overwriting any existing row with the same id.
func (r *Repository) Put(ctx context.Context, u User) error {
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			role = EXCLUDED.role,
			approved = EXCLUDED.approved,
			rejected = EXCLUDED.rejected,
			rejection_reason = EXCLUDED.rejection_reason,
			active = EXCLUDED.active,
			password = EXCLUDED.password,
			photo_base64 = EXCLUDED.photo_base64,
			face_id = EXCLUDED.face_id,
			photo_key = EXCLUDED.photo_key,
			department = EXCLUDED.department,
			specialization = EXCLUDED.specialization,
			employee_id = EXCLUDED.employee_id
	`, r.table, userColumns),
		u.ID, u.Name, u.Email, u.Role, u.Approved, u.Rejected, u.RejectionReason,
		u.Active, u.Password, u.PhotoBase64, u.FaceID, u.PhotoKey,
		u.Department, u.Specialization, u.EmployeeID, u.CreatedAt, u.ApprovedAt)
	return err
}

// SetApproved promotes a pending user: approved/active with credentials and
// the indexed face reference.
func (r *Repository) SetApproved(ctx context.Context, id, password, faceID, photoKey string) error {
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s
		SET approved = TRUE, rejected = FALSE, active = TRUE,
			password = $2, face_id = $3, photo_key = $4, approved_at = $5
		WHERE id = $1
	`, r.table), id, password, faceID, photoKey, time.Now().UTC())
	return err
}

// SetRejected marks a pending user rejected. The record is kept.
func (r *Repository) SetRejected(ctx context.Context, id, reason string) error {
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET approved = FALSE, rejected = TRUE, rejection_reason = $2
		WHERE id = $1
	`, r.table), id, reason)
	return err
}

// Deactivate soft-deletes by clearing the active and approved flags.
func (r *Repository) Deactivate(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET active = FALSE, approved = FALSE WHERE id = $1
	`, r.table), id)
	return err
}

func (r *Repository) list(ctx context.Context, where string, args ...any) ([]User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s %s ORDER BY created_at DESC`, userColumns, r.table, where)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// ListPending returns the approval queue.
func (r *Repository) ListPending(ctx context.Context) ([]User, error) {
	return r.list(ctx, `WHERE NOT approved AND NOT rejected`)
}

// ListActive returns all approved, non-deleted users.
func (r *Repository) ListActive(ctx context.Context) ([]User, error) {
	return r.list(ctx, `WHERE active`)
}

// ListTeachers returns approved teachers.
func (r *Repository) ListTeachers(ctx context.Context) ([]User, error) {
	return r.list(ctx, `WHERE active AND approved AND role = $1`, RoleTeacher)
}

// ListStudents returns approved students.
func (r *Repository) ListStudents(ctx context.Context) ([]User, error) {
	return r.list(ctx, `WHERE active AND approved AND role = $1`, RoleStudent)
}
