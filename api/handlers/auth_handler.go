package handlers

import (
	"net/http"

	"example.com/ecoguard/api/middleware"
	"example.com/ecoguard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AuthHandler serves login, logout and the phone push-token registration
type AuthHandler struct {
	service service.Service
	log     *logrus.Logger
}

func NewAuthHandler(svc service.Service, log *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		service: svc,
		log:     log,
	}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type deviceTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// Login exchanges credentials for a bearer token
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, badRequest("Invalid login format"), "Failed to decode login")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondError(c, h.log, badRequest("username and password are required"), "Incomplete login")
		return
	}

	sess, err := h.service.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, h.log, err, "Login rejected")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":    sess.Token,
		"username": sess.Username,
		"role":     sess.Role,
	})
}

// Logout revokes the caller's token
func (h *AuthHandler) Logout(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		respondError(c, h.log, NewAPIError(http.StatusUnauthorized, CodeUnauthenticated, "Unauthorized"), "Logout without session")
		return
	}

	if err := h.service.Logout(c.Request.Context(), sess.Token); err != nil {
		respondError(c, h.log, err, "Failed to log out")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// UpdateDeviceToken stores the push token of the caller's phone
func (h *AuthHandler) UpdateDeviceToken(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		respondError(c, h.log, NewAPIError(http.StatusUnauthorized, CodeUnauthenticated, "Unauthorized"), "Device token without session")
		return
	}

	var req deviceTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, badRequest("Invalid device token format"), "Failed to decode device token")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondError(c, h.log, badRequest("Device token required"), "Missing device token")
		return
	}

	if err := h.service.UpdateDeviceToken(c.Request.Context(), sess.Username, req.Token); err != nil {
		respondError(c, h.log, err, "Failed to update device token")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Device token updated"})
}
