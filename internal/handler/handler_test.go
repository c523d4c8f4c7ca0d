package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"faceattend/internal/attendance"
	"faceattend/internal/faceclient"
	"faceattend/internal/timetable"
	"faceattend/internal/users"
)

// memStore backs every service interface in these tests.
type memStore struct {
	mu       sync.Mutex
	users    map[string]users.User
	sessions map[string]attendance.Session
	records  map[string]attendance.Record
	entries  map[string]timetable.Entry
	matches  []faceclient.Match
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]users.User),
		sessions: make(map[string]attendance.Session),
		records:  make(map[string]attendance.Record),
		entries:  make(map[string]timetable.Entry),
	}
}

func (m *memStore) Get(_ context.Context, id string) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *memStore) Put(_ context.Context, u users.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *memStore) SetApproved(_ context.Context, id, password, faceID, photoKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.Approved, u.Active = true, true
	u.Password, u.FaceID, u.PhotoKey = password, faceID, photoKey
	m.users[id] = u
	return nil
}

func (m *memStore) SetRejected(_ context.Context, id, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.Rejected, u.RejectionReason = true, reason
	m.users[id] = u
	return nil
}

func (m *memStore) Deactivate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.Active, u.Approved = false, false
	m.users[id] = u
	return nil
}

func (m *memStore) listUsers(pred func(users.User) bool) []users.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []users.User
	for _, u := range m.users {
		if pred(u) {
			out = append(out, u)
		}
	}
	return out
}

func (m *memStore) ListPending(_ context.Context) ([]users.User, error) {
	return m.listUsers(func(u users.User) bool { return !u.Approved && !u.Rejected }), nil
}

func (m *memStore) ListActive(_ context.Context) ([]users.User, error) {
	return m.listUsers(func(u users.User) bool { return u.Active }), nil
}

func (m *memStore) ListTeachers(_ context.Context) ([]users.User, error) {
	return m.listUsers(func(u users.User) bool { return u.Active && u.Role == users.RoleTeacher }), nil
}

func (m *memStore) ListStudents(_ context.Context) ([]users.User, error) {
	return m.listUsers(func(u users.User) bool { return u.Active && u.Role == users.RoleStudent }), nil
}

func (m *memStore) SearchByImage(_ context.Context, _ string, _ float64, _ int) ([]faceclient.Match, error) {
	return m.matches, nil
}

func (m *memStore) IndexFace(_ context.Context, externalID, _ string) (*faceclient.IndexResult, error) {
	return &faceclient.IndexResult{FaceID: "face-" + externalID, ExternalID: externalID}, nil
}

// attendance.SessionStore
func (m *memStore) PutSession(_ context.Context, s attendance.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *memStore) GetSession(_ context.Context, id string) (*attendance.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// attendance.RecordStore
func (m *memStore) Upsert(_ context.Context, rec attendance.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec
	return nil
}

func (m *memStore) ListByClass(_ context.Context, classID string) ([]attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []attendance.Record
	for _, rec := range m.records {
		if strings.Contains(rec.SessionID, classID) {
			out = append(out, rec)
		}
	}
	return out, nil
}

type sessionStoreAdapter struct{ *memStore }

func (a sessionStoreAdapter) Put(ctx context.Context, s attendance.Session) error {
	return a.PutSession(ctx, s)
}

func (a sessionStoreAdapter) Get(ctx context.Context, id string) (*attendance.Session, error) {
	return a.GetSession(ctx, id)
}

func newTestRouter(store *memStore) *gin.Engine {
	gin.SetMode(gin.TestMode)

	userSvc := users.NewService(store, store, nil, 80, 80, nil)
	attSvc := attendance.NewService(sessionStoreAdapter{store}, store, store,
		func(content string) (string, error) { return "qr:" + content, nil },
		600*time.Second, nil)
	ttSvc := timetable.NewService(nil, store, nil)

	r := gin.New()
	New(userSvc, attSvc, ttSvc).Register(r)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, w.Body.String())
	}
	return w, out
}

func TestRegisterEndpoint(t *testing.T) {
	store := newMemStore()
	r := newTestRouter(store)

	w, out := doJSON(t, r, http.MethodPost, "/auth/register", map[string]string{
		"name": "A", "email": "a@example.com", "role": "student", "facePhoto": "img",
	})
	if w.Code != http.StatusOK || out["success"] != true {
		t.Fatalf("want 200 success, got %d %v", w.Code, out)
	}
	userID, _ := out["userId"].(string)
	if !regexp.MustCompile(`^1\d{10}$`).MatchString(userID) {
		t.Errorf("unexpected userId %q", userID)
	}
}

func TestRegisterDuplicateFaceEndpoint(t *testing.T) {
	store := newMemStore()
	store.users["10000000001"] = users.User{ID: "10000000001", Name: "Existing"}
	store.matches = []faceclient.Match{{ExternalID: "10000000001", Similarity: 92}}
	r := newTestRouter(store)

	w, out := doJSON(t, r, http.MethodPost, "/auth/register", map[string]string{
		"name": "Dup", "email": "d@example.com", "role": "teacher", "facePhoto": "img",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("want 409, got %d %v", w.Code, out)
	}
	if out["success"] != false || out["code"] != "DUPLICATE_FACE" {
		t.Errorf("envelope wrong: %v", out)
	}
}

func TestLoginEndpointStatuses(t *testing.T) {
	store := newMemStore()
	store.users["10000000001"] = users.User{
		ID: "10000000001", Role: "student", Approved: true, Active: true, Password: "pw",
	}
	r := newTestRouter(store)

	w, _ := doJSON(t, r, http.MethodPost, "/auth/login", map[string]string{
		"userId": "missing", "password": "pw",
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown user: want 404, got %d", w.Code)
	}

	w, _ = doJSON(t, r, http.MethodPost, "/auth/login", map[string]string{
		"userId": "10000000001", "password": "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad password: want 401, got %d", w.Code)
	}

	w, out := doJSON(t, r, http.MethodPost, "/auth/login", map[string]string{
		"userId": "10000000001", "password": "pw",
	})
	if w.Code != http.StatusOK || out["role"] != "student" {
		t.Errorf("login: want 200 with role, got %d %v", w.Code, out)
	}
}

func TestQRFlowEndpoints(t *testing.T) {
	store := newMemStore()
	r := newTestRouter(store)

	w, out := doJSON(t, r, http.MethodPost, "/teacher/generate-qr", map[string]string{
		"teacherId": "T1", "classId": "CS101",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("generate: want 200, got %d %v", w.Code, out)
	}
	sess := out["session"].(map[string]any)
	sessionID := sess["sessionId"].(string)
	if !strings.HasPrefix(sessionID, "QR-CS101-") {
		t.Fatalf("unexpected session id %q", sessionID)
	}

	w, out = doJSON(t, r, http.MethodPost, "/student/scan-qr", map[string]string{
		"userId": "10000000001", "sessionId": sessionID,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("scan: want 200, got %d %v", w.Code, out)
	}
	rec := out["attendance"].(map[string]any)
	if rec["method"] != "qr_scan" || rec["status"] != "Present" {
		t.Errorf("unexpected record %v", rec)
	}

	w, out = doJSON(t, r, http.MethodPost, "/student/scan-qr", map[string]string{
		"userId": "10000000001", "sessionId": "QR-CS101-0",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown session: want 400, got %d %v", w.Code, out)
	}
}
