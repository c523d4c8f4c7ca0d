package handler

import (
	"github.com/gin-gonic/gin"

	"faceattend/internal/users"
)

// RegisterUser handles POST /auth/register.
func (h *Handler) RegisterUser(c *gin.Context) {
	var in users.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	u, err := h.users.Register(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{
		"userId":  u.ID,
		"message": "registration submitted, awaiting approval",
	})
}

// Login handles POST /auth/login. No token is issued.
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		UserID   string `json:"userId"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	u, err := h.users.Login(c.Request.Context(), req.UserID, req.Password, req.Role)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{
		"userId": u.ID,
		"name":   u.Name,
		"role":   u.Role,
	})
}

// VerifyFace handles POST /auth/verify-face.
func (h *Handler) VerifyFace(c *gin.Context) {
	var req struct {
		UserID string `json:"userId"`
		Photo  string `json:"facePhoto"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.users.VerifyFace(c.Request.Context(), req.UserID, req.Photo)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"verified": res.Verified, "similarity": res.Similarity})
}
