package users

import "time"

// Roles recognized by the service.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// User is one account record. A user is created pending by self-registration
// and promoted to approved (with an indexed face) or rejected by an admin.
// At most one indexed face exists per id; the face-match service is the
// source of truth for "this face already belongs to someone".
type User struct {
	ID              string     `json:"userId"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Role            string     `json:"role"`
	Approved        bool       `json:"approved"`
	Rejected        bool       `json:"rejected"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
	Active          bool       `json:"active"`
	Password        string     `json:"-"`
	PhotoBase64     string     `json:"-"`
	FaceID          string     `json:"faceId,omitempty"`
	PhotoKey        string     `json:"photoKey,omitempty"`
	Department      string     `json:"department,omitempty"`
	Specialization  string     `json:"specialization,omitempty"`
	EmployeeID      string     `json:"employeeId,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	ApprovedAt      *time.Time `json:"approvedAt,omitempty"`
}
