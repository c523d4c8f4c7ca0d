package timetable

import (
	"context"
	"testing"
	"time"

	"faceattend/internal/apperr"
	"faceattend/internal/users"
)

type fakeStore struct {
	entries  map[string]Entry
	setCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]Entry)}
}

func (f *fakeStore) Get(_ context.Context, id string) (*Entry, error) {
	e, ok := f.entries[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (f *fakeStore) Upsert(_ context.Context, e Entry) error {
	f.entries[e.ID] = e
	return nil
}

func (f *fakeStore) Deactivate(_ context.Context, id string) error {
	e := f.entries[id]
	e.Active = false
	f.entries[id] = e
	return nil
}

func (f *fakeStore) SetTeacher(_ context.Context, id, teacherID, teacherName string, at time.Time) error {
	f.setCalls++
	e := f.entries[id]
	e.TeacherID, e.TeacherName, e.AssignedAt = teacherID, teacherName, &at
	f.entries[id] = e
	return nil
}

func (f *fakeStore) filter(pred func(Entry) bool) []Entry {
	var out []Entry
	for _, e := range f.entries {
		if pred(e) {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeStore) ListActive(_ context.Context) ([]Entry, error) {
	return f.filter(func(e Entry) bool { return e.Active }), nil
}

func (f *fakeStore) ListActiveByDay(_ context.Context, day string) ([]Entry, error) {
	return f.filter(func(e Entry) bool { return e.Active && e.Day == day }), nil
}

func (f *fakeStore) ListActiveByTeacher(_ context.Context, teacherID string) ([]Entry, error) {
	return f.filter(func(e Entry) bool { return e.Active && e.TeacherID == teacherID }), nil
}

func (f *fakeStore) ListActiveByTeacherDay(_ context.Context, teacherID, day string) ([]Entry, error) {
	return f.filter(func(e Entry) bool { return e.Active && e.TeacherID == teacherID && e.Day == day }), nil
}

type fakeDirectory struct {
	users map[string]users.User
}

func (f *fakeDirectory) Get(_ context.Context, id string) (*users.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (f *fakeDirectory) ListTeachers(_ context.Context) ([]users.User, error) {
	var out []users.User
	for _, u := range f.users {
		if u.Role == users.RoleTeacher {
			out = append(out, u)
		}
	}
	return out, nil
}

func validInput() UpsertInput {
	return UpsertInput{
		ClassID: "CS101", ClassName: "Intro CS", TeacherID: "T1", TeacherName: "Carol",
		Day: "Monday", StartTime: "09:00", EndTime: "10:00", Subject: "CS",
	}
}

func TestUpsertDerivedIDOverwrites(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeDirectory{}, nil)

	first, err := svc.Upsert(context.Background(), validInput())
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if first.ID != "CS101#Monday#09:00" {
		t.Errorf("unexpected id %q", first.ID)
	}

	in := validInput()
	in.Room = "B12"
	second, err := svc.Upsert(context.Background(), in)
	if err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Error("same slot must derive the same id")
	}
	if len(store.entries) != 1 {
		t.Fatalf("re-submission must overwrite, got %d entries", len(store.entries))
	}
	if store.entries[first.ID].Room != "B12" {
		t.Error("overwrite did not take")
	}
}

func TestUpsertValidation(t *testing.T) {
	svc := NewService(newFakeStore(), &fakeDirectory{}, nil)

	in := validInput()
	in.Subject = ""
	if _, err := svc.Upsert(context.Background(), in); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("missing subject: want validation error, got %v", err)
	}

	in = validInput()
	in.Room = "" // room is the only optional field
	if _, err := svc.Upsert(context.Background(), in); err != nil {
		t.Errorf("missing room should pass, got %v", err)
	}

	in = validInput()
	in.StartTime = "9am"
	if _, err := svc.Upsert(context.Background(), in); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("malformed time: want validation error, got %v", err)
	}
}

func TestDeleteSoft(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeDirectory{}, nil)
	e, _ := svc.Upsert(context.Background(), validInput())

	if err := svc.Delete(context.Background(), e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	kept, ok := store.entries[e.ID]
	if !ok {
		t.Fatal("soft delete must keep the record")
	}
	if kept.Active {
		t.Error("soft delete must clear active")
	}
}

func TestAssignTeacherRejectsNonTeacher(t *testing.T) {
	store := newFakeStore()
	dir := &fakeDirectory{users: map[string]users.User{
		"S1": {ID: "S1", Name: "Alice", Role: users.RoleStudent},
	}}
	svc := NewService(store, dir, nil)
	e, _ := svc.Upsert(context.Background(), validInput())

	_, err := svc.AssignTeacher(context.Background(), e.ID, "S1")
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("non-teacher role: want not found, got %v", err)
	}
	_, err = svc.AssignTeacher(context.Background(), e.ID, "missing")
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("unknown teacher: want not found, got %v", err)
	}
	if store.setCalls != 0 {
		t.Error("failed assignment must not mutate the entry")
	}
	if store.entries[e.ID].TeacherID != "T1" {
		t.Error("entry teacher changed on failed assignment")
	}
}

func TestAssignTeacher(t *testing.T) {
	store := newFakeStore()
	dir := &fakeDirectory{users: map[string]users.User{
		"T2": {ID: "T2", Name: "Dan", Role: users.RoleTeacher},
	}}
	svc := NewService(store, dir, nil)
	e, _ := svc.Upsert(context.Background(), validInput())

	updated, err := svc.AssignTeacher(context.Background(), e.ID, "T2")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if updated.TeacherID != "T2" || updated.TeacherName != "Dan" {
		t.Errorf("teacher fields not overwritten: %+v", updated)
	}
	if updated.AssignedAt == nil {
		t.Error("assignment timestamp missing")
	}
}

func TestTeacherTodayFlags(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeDirectory{}, nil)

	// A Monday at 09:30 UTC.
	now := time.Date(2026, 8, 24, 9, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	add := func(start, end string) {
		in := validInput()
		in.StartTime, in.EndTime = start, end
		if _, err := svc.Upsert(context.Background(), in); err != nil {
			t.Fatalf("upsert %s: %v", start, err)
		}
	}
	add("08:00", "09:00") // completed
	add("09:00", "10:00") // in progress
	add("11:00", "12:00") // upcoming

	classes, err := svc.TeacherToday(context.Background(), "T1")
	if err != nil {
		t.Fatalf("teacher today: %v", err)
	}
	if len(classes) != 3 {
		t.Fatalf("want 3 classes, got %d", len(classes))
	}
	// Sorted by start time.
	if classes[0].StartTime != "08:00" || classes[2].StartTime != "11:00" {
		t.Errorf("classes not sorted by start: %v", classes)
	}

	completed, current, upcoming := classes[0], classes[1], classes[2]
	if !completed.IsCompleted || completed.CanTakeAttendance {
		t.Errorf("08:00 slot flags wrong: %+v", completed)
	}
	if !current.CanTakeAttendance || current.IsUpcoming || current.IsCompleted {
		t.Errorf("09:00 slot flags wrong: %+v", current)
	}
	if !upcoming.IsUpcoming || upcoming.CanTakeAttendance {
		t.Errorf("11:00 slot flags wrong: %+v", upcoming)
	}
}

func TestTeacherAssignmentsOverview(t *testing.T) {
	store := newFakeStore()
	dir := &fakeDirectory{users: map[string]users.User{
		"T1": {ID: "T1", Name: "Carol", Role: users.RoleTeacher, Email: "c@example.com"},
		"T2": {ID: "T2", Name: "Dan", Role: users.RoleTeacher},
	}}
	svc := NewService(store, dir, nil)

	in := validInput()
	if _, err := svc.Upsert(context.Background(), in); err != nil {
		t.Fatal(err)
	}
	in.ClassID, in.Day = "CS102", "Tuesday"
	if _, err := svc.Upsert(context.Background(), in); err != nil {
		t.Fatal(err)
	}
	unassigned := validInput()
	unassigned.ClassID = "CS103"
	e, _ := svc.Upsert(context.Background(), unassigned)
	_ = store.SetTeacher(context.Background(), e.ID, "", "", time.Time{})
	store.setCalls = 0

	overview, err := svc.TeacherAssignments(context.Background())
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if len(overview.Unassigned) != 1 || overview.Unassigned[0].ClassID != "CS103" {
		t.Errorf("unassigned wrong: %+v", overview.Unassigned)
	}

	counts := make(map[string]int)
	for _, tl := range overview.Teachers {
		counts[tl.TeacherID] = tl.ClassCount
	}
	if counts["T1"] != 2 || counts["T2"] != 0 {
		t.Errorf("class counts wrong: %v", counts)
	}
}

func TestMinutesOfDay(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"00:00", 0, true},
		{"09:05", 545, true},
		{"23:59", 1439, true},
		{"9:30", 570, true},
		{"24:00", 0, false},
		{"12:60", 0, false},
		{"noon", 0, false},
	}
	for _, tc := range cases {
		got, err := minutesOfDay(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("minutesOfDay(%q) = %d, %v; want %d", tc.in, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Errorf("minutesOfDay(%q) should fail", tc.in)
		}
	}
}
