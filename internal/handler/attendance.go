package handler

import (
	"github.com/gin-gonic/gin"

	"faceattend/internal/attendance"
)

// GenerateQR handles POST /teacher/generate-qr.
func (h *Handler) GenerateQR(c *gin.Context) {
	var req struct {
		TeacherID string `json:"teacherId"`
		ClassID   string `json:"classId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sess, err := h.attendance.GenerateSession(c.Request.Context(), req.TeacherID, req.ClassID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"session": sess})
}

// ScanQR handles POST /student/scan-qr.
func (h *Handler) ScanQR(c *gin.Context) {
	var req struct {
		UserID    string `json:"userId"`
		SessionID string `json:"sessionId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rec, err := h.attendance.Mark(c.Request.Context(), req.UserID, req.SessionID, attendance.MethodQR)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"attendance": rec})
}

// MarkAttendance handles POST /attendance/mark, the face-verified path.
func (h *Handler) MarkAttendance(c *gin.Context) {
	var req struct {
		UserID    string `json:"userId"`
		SessionID string `json:"sessionId"`
		Method    string `json:"method"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Method == "" {
		req.Method = attendance.MethodFace
	}
	rec, err := h.attendance.Mark(c.Request.Context(), req.UserID, req.SessionID, req.Method)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"attendance": rec})
}

// SubmitAttendance handles POST /teacher/submit-attendance, the manual bulk
// path.
func (h *Handler) SubmitAttendance(c *gin.Context) {
	var req struct {
		TeacherID string   `json:"teacherId"`
		ClassID   string   `json:"classId"`
		Students  []string `json:"students"`
		SessionID string   `json:"sessionId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sessionID, results, err := h.attendance.SubmitManual(c.Request.Context(),
		req.TeacherID, req.ClassID, req.Students, req.SessionID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"sessionId": sessionID, "results": results})
}

// ClassAttendance handles GET /teacher/attendance/:classId.
func (h *Handler) ClassAttendance(c *gin.Context) {
	records, err := h.attendance.ClassAttendance(c.Request.Context(), c.Param("classId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"attendance": records})
}

// ClassStudents handles GET /teacher/students/:classId.
func (h *Handler) ClassStudents(c *gin.Context) {
	roster, err := h.attendance.ClassRoster(c.Request.Context(), c.Param("classId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"students": roster})
}
