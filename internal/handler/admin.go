package handler

import "github.com/gin-gonic/gin"

// Approve handles POST /admin/approve.
func (h *Handler) Approve(c *gin.Context) {
	var req struct {
		UserID   string `json:"userId"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	u, err := h.users.Approve(c.Request.Context(), req.UserID, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{
		"userId":  u.ID,
		"faceId":  u.FaceID,
		"message": "user approved and face indexed",
	})
}

// Reject handles POST /admin/reject.
func (h *Handler) Reject(c *gin.Context) {
	var req struct {
		UserID string `json:"userId"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.users.Reject(c.Request.Context(), req.UserID, req.Reason); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"message": "user rejected"})
}

// Pending handles GET /admin/pending.
func (h *Handler) Pending(c *gin.Context) {
	list, err := h.users.Pending(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"users": list})
}

// Users handles GET /admin/users.
func (h *Handler) Users(c *gin.Context) {
	list, err := h.users.Users(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"users": list})
}

// DeleteUser handles DELETE /admin/user/:userId.
func (h *Handler) DeleteUser(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), c.Param("userId")); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"message": "user deactivated"})
}

// Teachers handles GET /admin/teachers.
func (h *Handler) Teachers(c *gin.Context) {
	list, err := h.users.Teachers(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"teachers": list})
}
