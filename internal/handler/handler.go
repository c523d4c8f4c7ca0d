// Package handler exposes the HTTP surface. Every response uses the
// {success: bool, ...} envelope; errors map onto the apperr taxonomy.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"faceattend/internal/apperr"
	"faceattend/internal/attendance"
	"faceattend/internal/timetable"
	"faceattend/internal/users"
)

// Handler holds the workflow services behind the routes.
type Handler struct {
	users      *users.Service
	attendance *attendance.Service
	timetable  *timetable.Service
}

// New creates a handler.
func New(u *users.Service, a *attendance.Service, t *timetable.Service) *Handler {
	return &Handler{users: u, attendance: a, timetable: t}
}

// Register mounts every route on r.
func (h *Handler) Register(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/register", h.RegisterUser)
		auth.POST("/login", h.Login)
		auth.POST("/verify-face", h.VerifyFace)
	}

	admin := r.Group("/admin")
	{
		admin.POST("/approve", h.Approve)
		admin.POST("/reject", h.Reject)
		admin.GET("/pending", h.Pending)
		admin.GET("/users", h.Users)
		admin.DELETE("/user/:userId", h.DeleteUser)
		admin.GET("/teachers", h.Teachers)
		admin.POST("/timetable", h.UpsertTimetable)
		admin.GET("/timetables", h.Timetables)
		admin.DELETE("/timetable/:id", h.DeleteTimetable)
		admin.POST("/assign-teacher", h.AssignTeacher)
		admin.GET("/teacher-assignments", h.TeacherAssignments)
		admin.GET("/classes-with-teachers", h.ClassesWithTeachers)
	}

	student := r.Group("/student")
	{
		student.GET("/classes/:userId", h.StudentClasses)
		student.POST("/scan-qr", h.ScanQR)
	}

	teacher := r.Group("/teacher")
	{
		teacher.GET("/classes/:teacherId", h.TeacherClasses)
		teacher.GET("/my-classes/:teacherId", h.TeacherMyClasses)
		teacher.POST("/generate-qr", h.GenerateQR)
		teacher.POST("/submit-attendance", h.SubmitAttendance)
		teacher.GET("/attendance/:classId", h.ClassAttendance)
		teacher.GET("/students/:classId", h.ClassStudents)
	}

	r.POST("/attendance/mark", h.MarkAttendance)
}

// ok writes a success envelope.
func ok(c *gin.Context, payload gin.H) {
	if payload == nil {
		payload = gin.H{}
	}
	payload["success"] = true
	c.JSON(http.StatusOK, payload)
}

// fail maps an error onto its HTTP status and writes a failure envelope.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindAuth:
		status = http.StatusUnauthorized
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindConflict:
		status = http.StatusConflict
	}

	body := gin.H{"success": false, "error": err.Error()}
	if code := apperr.CodeOf(err); code != "" {
		body["code"] = code
	}
	c.JSON(status, body)
}

// badRequest rejects an unparsable body.
func badRequest(c *gin.Context, err error) {
	fail(c, apperr.Validationf("invalid request body: %v", err))
}
