package timetable

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"faceattend/internal/apperr"
	"faceattend/internal/users"
)

// Store is the persistence surface the service needs.
type Store interface {
	Get(ctx context.Context, id string) (*Entry, error)
	Upsert(ctx context.Context, e Entry) error
	Deactivate(ctx context.Context, id string) error
	SetTeacher(ctx context.Context, id, teacherID, teacherName string, at time.Time) error
	ListActive(ctx context.Context) ([]Entry, error)
	ListActiveByDay(ctx context.Context, day string) ([]Entry, error)
	ListActiveByTeacher(ctx context.Context, teacherID string) ([]Entry, error)
	ListActiveByTeacherDay(ctx context.Context, teacherID, day string) ([]Entry, error)
}

// Directory is the slice of the user store used for teacher validation.
type Directory interface {
	Get(ctx context.Context, id string) (*users.User, error)
	ListTeachers(ctx context.Context) ([]users.User, error)
}

// Service implements the timetable and teacher-assignment workflow.
type Service struct {
	store Store
	dir   Directory
	log   *zap.Logger
	now   func() time.Time
}

// NewService wires the workflow.
func NewService(store Store, dir Directory, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, dir: dir, log: log, now: time.Now}
}

// UpsertInput carries a timetable submission. Room is the only optional
// field.
type UpsertInput struct {
	ClassID     string `json:"classId"`
	ClassName   string `json:"className"`
	TeacherID   string `json:"teacherId"`
	TeacherName string `json:"teacherName"`
	Day         string `json:"day"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	Subject     string `json:"subject"`
	Room        string `json:"room"`
}

// Upsert validates and writes a slot. The derived id makes re-submission of
// the same class/day/start overwrite the existing slot.
func (s *Service) Upsert(ctx context.Context, in UpsertInput) (*Entry, error) {
	if in.ClassID == "" || in.ClassName == "" || in.TeacherID == "" || in.TeacherName == "" ||
		in.Day == "" || in.StartTime == "" || in.EndTime == "" || in.Subject == "" {
		return nil, apperr.Validationf("all fields except room are required")
	}
	if _, err := minutesOfDay(in.StartTime); err != nil {
		return nil, apperr.Validationf("startTime: %v", err)
	}
	if _, err := minutesOfDay(in.EndTime); err != nil {
		return nil, apperr.Validationf("endTime: %v", err)
	}

	e := Entry{
		ID:          EntryID(in.ClassID, in.Day, in.StartTime),
		ClassID:     in.ClassID,
		ClassName:   in.ClassName,
		TeacherID:   in.TeacherID,
		TeacherName: in.TeacherName,
		Day:         in.Day,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		Subject:     in.Subject,
		Room:        in.Room,
		Active:      true,
	}
	if err := s.store.Upsert(ctx, e); err != nil {
		return nil, apperr.Internal("save timetable entry failed", err)
	}
	return &e, nil
}

// Delete soft-deletes a slot.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperr.Validationf("id is required")
	}
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return apperr.Internal("load timetable entry failed", err)
	}
	if e == nil {
		return apperr.NotFoundf("timetable entry %s not found", id)
	}
	if err := s.store.Deactivate(ctx, id); err != nil {
		return apperr.Internal("delete timetable entry failed", err)
	}
	return nil
}

// List returns all active entries.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	out, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, apperr.Internal("list timetable failed", err)
	}
	return out, nil
}

// TeacherEntries returns a teacher's active slots across the week.
func (s *Service) TeacherEntries(ctx context.Context, teacherID string) ([]Entry, error) {
	if teacherID == "" {
		return nil, apperr.Validationf("teacherId is required")
	}
	out, err := s.store.ListActiveByTeacher(ctx, teacherID)
	if err != nil {
		return nil, apperr.Internal("list timetable failed", err)
	}
	return out, nil
}

// AssignTeacher validates the teacher and overwrites the entry's teacher
// fields. A missing user or one whose role is not teacher fails with
// NotFound and leaves the entry untouched. Overlapping assignments are not
// checked.
func (s *Service) AssignTeacher(ctx context.Context, timetableID, teacherID string) (*Entry, error) {
	if timetableID == "" || teacherID == "" {
		return nil, apperr.Validationf("timetableId and teacherId are required")
	}

	t, err := s.dir.Get(ctx, teacherID)
	if err != nil {
		return nil, apperr.Internal("load teacher failed", err)
	}
	if t == nil || t.Role != users.RoleTeacher {
		return nil, apperr.NotFoundf("teacher %s not found", teacherID)
	}

	e, err := s.store.Get(ctx, timetableID)
	if err != nil {
		return nil, apperr.Internal("load timetable entry failed", err)
	}
	if e == nil {
		return nil, apperr.NotFoundf("timetable entry %s not found", timetableID)
	}

	at := s.now().UTC()
	if err := s.store.SetTeacher(ctx, timetableID, t.ID, t.Name, at); err != nil {
		return nil, apperr.Internal("assign teacher failed", err)
	}
	s.log.Info("teacher assigned",
		zap.String("timetable_id", timetableID), zap.String("teacher_id", teacherID))

	e.TeacherID = t.ID
	e.TeacherName = t.Name
	e.AssignedAt = &at
	return e, nil
}

// TeacherLoad summarizes one teacher's assigned classes.
type TeacherLoad struct {
	TeacherID   string   `json:"teacherId"`
	TeacherName string   `json:"teacherName"`
	Email       string   `json:"email"`
	ClassCount  int      `json:"classCount"`
	Classes     []string `json:"classes"`
}

// AssignmentsOverview cross-references active entries against approved
// teachers.
type AssignmentsOverview struct {
	Teachers   []TeacherLoad `json:"teachers"`
	Unassigned []Entry       `json:"unassigned"`
}

// TeacherAssignments builds the admin dashboard view: per-teacher class
// counts plus entries with no assigned teacher.
func (s *Service) TeacherAssignments(ctx context.Context) (*AssignmentsOverview, error) {
	entries, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, apperr.Internal("list timetable failed", err)
	}
	teachers, err := s.dir.ListTeachers(ctx)
	if err != nil {
		return nil, apperr.Internal("list teachers failed", err)
	}

	byTeacher := make(map[string][]string)
	var unassigned []Entry
	for _, e := range entries {
		if e.TeacherID == "" {
			unassigned = append(unassigned, e)
			continue
		}
		byTeacher[e.TeacherID] = append(byTeacher[e.TeacherID], e.ClassID)
	}

	out := AssignmentsOverview{Unassigned: unassigned}
	for _, t := range teachers {
		classes := byTeacher[t.ID]
		sort.Strings(classes)
		out.Teachers = append(out.Teachers, TeacherLoad{
			TeacherID:   t.ID,
			TeacherName: t.Name,
			Email:       t.Email,
			ClassCount:  len(classes),
			Classes:     classes,
		})
	}
	return &out, nil
}

// ClassTeachers is one distinct class with its assigned teacher.
type ClassTeachers struct {
	ClassID     string `json:"classId"`
	ClassName   string `json:"className"`
	TeacherID   string `json:"teacherId,omitempty"`
	TeacherName string `json:"teacherName,omitempty"`
	Subject     string `json:"subject"`
}

// ClassesWithTeachers returns distinct classes with their teacher info.
func (s *Service) ClassesWithTeachers(ctx context.Context) ([]ClassTeachers, error) {
	entries, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, apperr.Internal("list timetable failed", err)
	}

	seen := make(map[string]bool)
	var out []ClassTeachers
	for _, e := range entries {
		if seen[e.ClassID] {
			continue
		}
		seen[e.ClassID] = true
		out = append(out, ClassTeachers{
			ClassID:     e.ClassID,
			ClassName:   e.ClassName,
			TeacherID:   e.TeacherID,
			TeacherName: e.TeacherName,
			Subject:     e.Subject,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClassID < out[j].ClassID })
	return out, nil
}

// DayClass is a timetable entry enriched with time-of-day flags for
// dashboards.
type DayClass struct {
	Entry
	CanTakeAttendance bool `json:"canTakeAttendance"`
	IsUpcoming        bool `json:"isUpcoming"`
	IsCompleted       bool `json:"isCompleted"`
}

// StudentToday returns today's active classes sorted by start time.
func (s *Service) StudentToday(ctx context.Context, userID string) ([]Entry, error) {
	if userID == "" {
		return nil, apperr.Validationf("userId is required")
	}
	entries, err := s.store.ListActiveByDay(ctx, s.now().Weekday().String())
	if err != nil {
		return nil, apperr.Internal("list timetable failed", err)
	}
	sortByStart(entries)
	return entries, nil
}

// TeacherToday returns the teacher's classes for today with derived flags.
// A class can take attendance while the current time lies inside its slot.
func (s *Service) TeacherToday(ctx context.Context, teacherID string) ([]DayClass, error) {
	if teacherID == "" {
		return nil, apperr.Validationf("teacherId is required")
	}
	now := s.now()
	entries, err := s.store.ListActiveByTeacherDay(ctx, teacherID, now.Weekday().String())
	if err != nil {
		return nil, apperr.Internal("list timetable failed", err)
	}
	sortByStart(entries)

	nowMin := now.Hour()*60 + now.Minute()
	out := make([]DayClass, 0, len(entries))
	for _, e := range entries {
		dc := DayClass{Entry: e}
		start, serr := minutesOfDay(e.StartTime)
		end, eerr := minutesOfDay(e.EndTime)
		if serr == nil && eerr == nil {
			dc.CanTakeAttendance = nowMin >= start && nowMin <= end
			dc.IsUpcoming = nowMin < start
			dc.IsCompleted = nowMin > end
		}
		out = append(out, dc)
	}
	return out, nil
}

func sortByStart(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, _ := minutesOfDay(entries[i].StartTime)
		b, _ := minutesOfDay(entries[j].StartTime)
		return a < b
	})
}

// minutesOfDay parses "HH:MM" into minutes since midnight. Comparing parsed
// values keeps ordering correct even if a time ever arrives without a
// leading zero.
func minutesOfDay(hhmm string) (int, error) {
	h, m, ok := strings.Cut(hhmm, ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", hhmm)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", hhmm)
	}
	min, err := strconv.Atoi(m)
	if err != nil || min < 0 || min > 59 {
		return 0, fmt.Errorf("invalid minute in %q", hhmm)
	}
	return hour*60 + min, nil
}
