package handler

import (
	"github.com/gin-gonic/gin"

	"faceattend/internal/timetable"
)

// UpsertTimetable handles POST /admin/timetable.
func (h *Handler) UpsertTimetable(c *gin.Context) {
	var in timetable.UpsertInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	e, err := h.timetable.Upsert(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"entry": e})
}

// Timetables handles GET /admin/timetables.
func (h *Handler) Timetables(c *gin.Context) {
	entries, err := h.timetable.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"timetables": entries})
}

// DeleteTimetable handles DELETE /admin/timetable/:id.
func (h *Handler) DeleteTimetable(c *gin.Context) {
	if err := h.timetable.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"message": "timetable entry deactivated"})
}

// AssignTeacher handles POST /admin/assign-teacher.
func (h *Handler) AssignTeacher(c *gin.Context) {
	var req struct {
		TimetableID string `json:"timetableId"`
		TeacherID   string `json:"teacherId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	e, err := h.timetable.AssignTeacher(c.Request.Context(), req.TimetableID, req.TeacherID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"entry": e})
}

// TeacherAssignments handles GET /admin/teacher-assignments.
func (h *Handler) TeacherAssignments(c *gin.Context) {
	overview, err := h.timetable.TeacherAssignments(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"teachers": overview.Teachers, "unassigned": overview.Unassigned})
}

// ClassesWithTeachers handles GET /admin/classes-with-teachers.
func (h *Handler) ClassesWithTeachers(c *gin.Context) {
	classes, err := h.timetable.ClassesWithTeachers(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"classes": classes})
}

// StudentClasses handles GET /student/classes/:userId.
func (h *Handler) StudentClasses(c *gin.Context) {
	entries, err := h.timetable.StudentToday(c.Request.Context(), c.Param("userId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"classes": entries})
}

// TeacherClasses handles GET /teacher/classes/:teacherId, today's classes
// with attendance-window flags.
func (h *Handler) TeacherClasses(c *gin.Context) {
	classes, err := h.timetable.TeacherToday(c.Request.Context(), c.Param("teacherId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"classes": classes})
}

// TeacherMyClasses handles GET /teacher/my-classes/:teacherId, the full
// weekly schedule.
func (h *Handler) TeacherMyClasses(c *gin.Context) {
	entries, err := h.timetable.TeacherEntries(c.Request.Context(), c.Param("teacherId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"classes": entries})
}
