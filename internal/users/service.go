package users

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"faceattend/internal/apperr"
	"faceattend/internal/cloudinary"
	"faceattend/internal/faceclient"
)

// Store is the persistence surface the service needs.
type Store interface {
	Get(ctx context.Context, id string) (*User, error)
	Put(ctx context.Context, u User) error
	SetApproved(ctx context.Context, id, password, faceID, photoKey string) error
	SetRejected(ctx context.Context, id, reason string) error
	Deactivate(ctx context.Context, id string) error
	ListPending(ctx context.Context) ([]User, error)
	ListActive(ctx context.Context) ([]User, error)
	ListTeachers(ctx context.Context) ([]User, error)
}

// FaceMatcher is the slice of the face-match service the workflow uses.
type FaceMatcher interface {
	IndexFace(ctx context.Context, externalID, image string) (*faceclient.IndexResult, error)
	SearchByImage(ctx context.Context, image string, threshold float64, maxMatches int) ([]faceclient.Match, error)
}

// PhotoStore persists approved photos. Nil is allowed; approval then skips
// the upload.
type PhotoStore interface {
	UploadBase64(data, publicID string) (*cloudinary.UploadResult, error)
}

// Service implements the registration, approval, and authentication workflow.
type Service struct {
	store  Store
	face   FaceMatcher
	photos PhotoStore
	log    *zap.Logger

	matchThreshold  float64
	verifyThreshold float64
	now             func() time.Time
}

// NewService wires the workflow. matchThreshold guards duplicate-face
// detection at registration; verifyThreshold guards post-login verification.
func NewService(store Store, face FaceMatcher, photos PhotoStore, matchThreshold, verifyThreshold float64, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:           store,
		face:            face,
		photos:          photos,
		log:             log,
		matchThreshold:  matchThreshold,
		verifyThreshold: verifyThreshold,
		now:             time.Now,
	}
}

// RegisterInput carries a self-registration submission.
type RegisterInput struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	Photo          string `json:"facePhoto"`
	Department     string `json:"department"`
	Specialization string `json:"specialization"`
	EmployeeID     string `json:"employeeId"`
}

// Register validates a submission, runs duplicate-face detection, and
// persists a pending user carrying the raw photo.
//
// Duplicate detection is best-effort: no lock or reservation is held between
// the search and the write, so two near-simultaneous registrations with the
// same face can both land pending. True exclusion happens at approval, when
// the face is indexed.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if in.Name == "" || in.Email == "" || in.Role == "" || in.Photo == "" {
		return nil, apperr.Validationf("name, email, role and facePhoto are required")
	}

	matches, err := s.face.SearchByImage(ctx, in.Photo, s.matchThreshold, 1)
	if err != nil && !errors.Is(err, faceclient.ErrNoCollection) {
		return nil, apperr.Internal("face search failed", err)
	}
	if len(matches) > 0 {
		owner, err := s.store.Get(ctx, matches[0].ExternalID)
		if err != nil || owner == nil {
			return nil, apperr.Conflictf(apperr.CodeDuplicateFace, "this face is already registered")
		}
		return nil, apperr.Conflictf(apperr.CodeDuplicateFace,
			"this face is already registered to %s (%s)", owner.Name, owner.ID)
	}

	u := User{
		ID:             s.newUserID(in.Role),
		Name:           in.Name,
		Email:          in.Email,
		Role:           in.Role,
		PhotoBase64:    in.Photo,
		Department:     in.Department,
		Specialization: in.Specialization,
		EmployeeID:     in.EmployeeID,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.store.Put(ctx, u); err != nil {
		return nil, apperr.Internal("save user failed", err)
	}
	s.log.Info("user registered", zap.String("user_id", u.ID), zap.String("role", u.Role))
	return &u, nil
}

// newUserID synthesizes an 11-digit identifier: a role-tag digit ("1" for
// students, "2" otherwise), the low 8 digits of the current unix time, and 2
// random digits. Collisions are possible but not checked for.
func (s *Service) newUserID(role string) string {
	tag := "2"
	if role == RoleStudent {
		tag = "1"
	}
	return fmt.Sprintf("%s%08d%02d", tag, s.now().Unix()%100000000, rand.Intn(100))
}

// Approve promotes a pending user: persists the photo to the object store
// under a key derived from the id, indexes the face with the id as external
// reference, and updates the record. There is deliberately no guard against
// a second approval; approving twice indexes twice.
func (s *Service) Approve(ctx context.Context, userID, password string) (*User, error) {
	if userID == "" || password == "" {
		return nil, apperr.Validationf("userId and password are required")
	}
	u, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("load user failed", err)
	}
	if u == nil {
		return nil, apperr.NotFoundf("user %s not found", userID)
	}
	if u.PhotoBase64 == "" {
		return nil, apperr.Validationf("user %s has no photo on file", userID)
	}

	var photoKey string
	if s.photos != nil {
		res, err := s.photos.UploadBase64(u.PhotoBase64, userID)
		if err != nil {
			return nil, apperr.Internal("photo upload failed", err)
		}
		photoKey = res.PublicID
	} else {
		s.log.Warn("object store not configured, skipping photo upload", zap.String("user_id", userID))
	}

	idx, err := s.face.IndexFace(ctx, userID, u.PhotoBase64)
	if err != nil {
		return nil, apperr.Internal("face index failed", err)
	}

	if err := s.store.SetApproved(ctx, userID, password, idx.FaceID, photoKey); err != nil {
		return nil, apperr.Internal("approve user failed", err)
	}
	s.log.Info("user approved", zap.String("user_id", userID), zap.String("face_id", idx.FaceID))

	u.Approved = true
	u.Active = true
	u.FaceID = idx.FaceID
	u.PhotoKey = photoKey
	return u, nil
}

// Reject marks a pending user rejected with an optional reason. The record
// is kept.
func (s *Service) Reject(ctx context.Context, userID, reason string) error {
	if userID == "" {
		return apperr.Validationf("userId is required")
	}
	u, err := s.store.Get(ctx, userID)
	if err != nil {
		return apperr.Internal("load user failed", err)
	}
	if u == nil {
		return apperr.NotFoundf("user %s not found", userID)
	}
	if err := s.store.SetRejected(ctx, userID, reason); err != nil {
		return apperr.Internal("reject user failed", err)
	}
	s.log.Info("user rejected", zap.String("user_id", userID), zap.String("reason", reason))
	return nil
}

// Delete soft-deletes a user by clearing the active and approved flags.
func (s *Service) Delete(ctx context.Context, userID string) error {
	if userID == "" {
		return apperr.Validationf("userId is required")
	}
	u, err := s.store.Get(ctx, userID)
	if err != nil {
		return apperr.Internal("load user failed", err)
	}
	if u == nil {
		return apperr.NotFoundf("user %s not found", userID)
	}
	if err := s.store.Deactivate(ctx, userID); err != nil {
		return apperr.Internal("delete user failed", err)
	}
	return nil
}

// Login checks the caller's credentials. No token is issued; subsequent
// calls re-authenticate via face verification or trust the supplied id.
func (s *Service) Login(ctx context.Context, userID, password, role string) (*User, error) {
	if userID == "" || password == "" {
		return nil, apperr.Validationf("userId and password are required")
	}
	u, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("load user failed", err)
	}
	if u == nil {
		return nil, apperr.NotFoundf("user %s not found", userID)
	}
	if !u.Approved || !u.Active {
		return nil, apperr.Authf("account not approved")
	}
	if u.Password != password {
		return nil, apperr.Authf("invalid credentials")
	}
	if role != "" && role != u.Role {
		return nil, apperr.Authf("invalid credentials")
	}
	return u, nil
}

// VerifyResult is the outcome of a post-login face check.
type VerifyResult struct {
	Verified   bool    `json:"verified"`
	Similarity float64 `json:"similarity,omitempty"`
}

// VerifyFace searches the collection with the submitted photo and succeeds
// only when a candidate carries userID as its external reference. A match
// against a different user is a no-match, not an error.
func (s *Service) VerifyFace(ctx context.Context, userID, photo string) (*VerifyResult, error) {
	if userID == "" || photo == "" {
		return nil, apperr.Validationf("userId and facePhoto are required")
	}
	u, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("load user failed", err)
	}
	if u == nil {
		return nil, apperr.NotFoundf("user %s not found", userID)
	}

	matches, err := s.face.SearchByImage(ctx, photo, s.verifyThreshold, 5)
	if err != nil {
		if errors.Is(err, faceclient.ErrNoCollection) {
			return &VerifyResult{Verified: false}, nil
		}
		return nil, apperr.Internal("face search failed", err)
	}
	for _, m := range matches {
		if m.ExternalID == userID {
			return &VerifyResult{Verified: true, Similarity: m.Similarity}, nil
		}
	}
	return &VerifyResult{Verified: false}, nil
}

// Pending returns the approval queue.
func (s *Service) Pending(ctx context.Context) ([]User, error) {
	out, err := s.store.ListPending(ctx)
	if err != nil {
		return nil, apperr.Internal("list pending failed", err)
	}
	return out, nil
}

// Users returns all active users.
func (s *Service) Users(ctx context.Context) ([]User, error) {
	out, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, apperr.Internal("list users failed", err)
	}
	return out, nil
}

// Teachers returns approved teachers.
func (s *Service) Teachers(ctx context.Context) ([]User, error) {
	out, err := s.store.ListTeachers(ctx)
	if err != nil {
		return nil, apperr.Internal("list teachers failed", err)
	}
	return out, nil
}
