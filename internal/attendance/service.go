package attendance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"faceattend/internal/apperr"
	"faceattend/internal/users"
)

// Marking methods.
const (
	MethodQR     = "qr_scan"
	MethodManual = "manual"
	MethodFace   = "face"
)

// StatusPresent is currently the only status a record carries.
const StatusPresent = "Present"

var markedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "attendance_marked_total",
	Help: "Attendance records written, by marking method.",
}, []string{"method"})

// SessionStore persists QR sessions.
type SessionStore interface {
	Put(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (*Session, error)
}

// RecordStore persists attendance records.
type RecordStore interface {
	Upsert(ctx context.Context, rec Record) error
	ListByClass(ctx context.Context, classID string) ([]Record, error)
}

// Directory is the slice of the user store used for enrichment and rosters.
type Directory interface {
	Get(ctx context.Context, id string) (*users.User, error)
	ListStudents(ctx context.Context) ([]users.User, error)
}

// Service implements the attendance-session workflow.
type Service struct {
	sessions SessionStore
	records  RecordStore
	dir      Directory
	renderQR func(content string) (string, error)
	log      *zap.Logger

	sessionTTL time.Duration
	now        func() time.Time
}

// NewService wires the workflow. renderQR turns a session id into a
// scannable image; sessionTTL bounds how long a QR session accepts marks.
func NewService(sessions SessionStore, records RecordStore, dir Directory, renderQR func(string) (string, error), sessionTTL time.Duration, log *zap.Logger) *Service {
	if sessionTTL <= 0 {
		sessionTTL = 10 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		sessions:   sessions,
		records:    records,
		dir:        dir,
		renderQR:   renderQR,
		log:        log,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// GeneratedSession is a new session plus its rendered QR image.
type GeneratedSession struct {
	Session
	QRImage string `json:"qrImage"`
}

// GenerateSession creates a time-boxed session for a class meeting. The id
// embeds the class id and creation time; expiry is an absolute instant. No
// check is made that the teacher is assigned to the class.
func (s *Service) GenerateSession(ctx context.Context, teacherID, classID string) (*GeneratedSession, error) {
	if teacherID == "" || classID == "" {
		return nil, apperr.Validationf("teacherId and classId are required")
	}

	now := s.now()
	sess := Session{
		ID:        fmt.Sprintf("QR-%s-%d", classID, now.Unix()),
		ClassID:   classID,
		TeacherID: teacherID,
		ExpiresAt: now.Add(s.sessionTTL).Unix(),
	}

	img, err := s.renderQR(sess.ID)
	if err != nil {
		return nil, apperr.Internal("qr render failed", err)
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, apperr.Internal("save session failed", err)
	}
	s.log.Info("qr session created",
		zap.String("session_id", sess.ID),
		zap.String("teacher_id", teacherID),
		zap.Int64("expires_at", sess.ExpiresAt))
	return &GeneratedSession{Session: sess, QRImage: img}, nil
}

// Mark records attendance for a user against a session. The session must
// exist and the wall clock must not have passed its expiry; on the re-mark
// of the same (user, session) pair the write lands on the same derived id.
func (s *Service) Mark(ctx context.Context, userID, sessionID, method string) (*Record, error) {
	if userID == "" || sessionID == "" {
		return nil, apperr.Validationf("userId and sessionId are required")
	}
	if method != MethodQR && method != MethodFace {
		return nil, apperr.Validationf("method must be %s or %s", MethodQR, MethodFace)
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, apperr.Internal("load session failed", err)
	}
	if sess == nil {
		return nil, apperr.Validationf("Invalid session/QR code")
	}
	now := s.now()
	if now.Unix() > sess.ExpiresAt {
		return nil, apperr.Validationf("QR session expired")
	}

	rec := s.buildRecord(userID, sessionID, method, "", now)
	if err := s.records.Upsert(ctx, rec); err != nil {
		return nil, apperr.Internal("save attendance failed", err)
	}
	markedTotal.WithLabelValues(method).Inc()
	return &rec, nil
}

func (s *Service) buildRecord(userID, sessionID, method, markedBy string, now time.Time) Record {
	return Record{
		ID:        RecordID(userID, sessionID),
		UserID:    userID,
		SessionID: sessionID,
		MarkedAt:  now.UTC(),
		Date:      now.UTC().Format("2006-01-02"),
		Status:    StatusPresent,
		Method:    method,
		MarkedBy:  markedBy,
	}
}

// ManualResult is the per-student outcome of a bulk submission.
type ManualResult struct {
	StudentID string `json:"studentId"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// SubmitManual writes a Present record for every listed student, tagged with
// the submitting teacher. Writes are issued concurrently with no ordering
// guarantee and no rollback: one failed write does not undo the others.
// sessionID is reused when supplied, else synthesized.
func (s *Service) SubmitManual(ctx context.Context, teacherID, classID string, studentIDs []string, sessionID string) (string, []ManualResult, error) {
	if teacherID == "" || classID == "" || len(studentIDs) == 0 {
		return "", nil, apperr.Validationf("teacherId, classId and students are required")
	}

	now := s.now()
	if sessionID == "" {
		sessionID = fmt.Sprintf("MANUAL-%s-%d", classID, now.Unix())
	}

	results := make([]ManualResult, len(studentIDs))
	var wg sync.WaitGroup
	for i, id := range studentIDs {
		wg.Add(1)
		go func(i int, studentID string) {
			defer wg.Done()
			rec := s.buildRecord(studentID, sessionID, MethodManual, teacherID, now)
			if err := s.records.Upsert(ctx, rec); err != nil {
				results[i] = ManualResult{StudentID: studentID, Error: err.Error()}
				return
			}
			markedTotal.WithLabelValues(MethodManual).Inc()
			results[i] = ManualResult{StudentID: studentID, Success: true}
		}(i, id)
	}
	wg.Wait()

	return sessionID, results, nil
}

// EnrichedRecord is a record joined with its user's details.
type EnrichedRecord struct {
	Record
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// ClassAttendance returns all records for a class, each enriched with the
// user's details. User lookups fan out concurrently; a failed lookup
// downgrades to placeholder values instead of failing the response.
func (s *Service) ClassAttendance(ctx context.Context, classID string) ([]EnrichedRecord, error) {
	if classID == "" {
		return nil, apperr.Validationf("classId is required")
	}
	recs, err := s.records.ListByClass(ctx, classID)
	if err != nil {
		return nil, apperr.Internal("list attendance failed", err)
	}

	out := make([]EnrichedRecord, len(recs))
	var wg sync.WaitGroup
	for i, rec := range recs {
		wg.Add(1)
		go func(i int, rec Record) {
			defer wg.Done()
			enriched := EnrichedRecord{Record: rec, Name: "Unknown", Email: "Unknown", Role: "Unknown"}
			if u, err := s.dir.Get(ctx, rec.UserID); err == nil && u != nil {
				enriched.Name = u.Name
				enriched.Email = u.Email
				enriched.Role = u.Role
			}
			out[i] = enriched
		}(i, rec)
	}
	wg.Wait()
	return out, nil
}

// RosterEntry is one student with today's presence for a class.
type RosterEntry struct {
	UserID       string `json:"userId"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PresentToday bool   `json:"presentToday"`
}

// ClassRoster returns all approved students annotated with whether an
// attendance record exists for the class today.
func (s *Service) ClassRoster(ctx context.Context, classID string) ([]RosterEntry, error) {
	if classID == "" {
		return nil, apperr.Validationf("classId is required")
	}
	students, err := s.dir.ListStudents(ctx)
	if err != nil {
		return nil, apperr.Internal("list students failed", err)
	}
	recs, err := s.records.ListByClass(ctx, classID)
	if err != nil {
		return nil, apperr.Internal("list attendance failed", err)
	}

	today := s.now().UTC().Format("2006-01-02")
	present := make(map[string]bool, len(recs))
	for _, rec := range recs {
		if rec.Date == today {
			present[rec.UserID] = true
		}
	}

	out := make([]RosterEntry, 0, len(students))
	for _, st := range students {
		out = append(out, RosterEntry{
			UserID:       st.ID,
			Name:         st.Name,
			Email:        st.Email,
			PresentToday: present[st.ID],
		})
	}
	return out, nil
}
