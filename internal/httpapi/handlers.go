// Package httpapi holds the HTTP handlers. Keep these thin: parse and
// validate input, call internal services, return JSON.
package httpapi

import (
	"errors"
	"net/http"
	"time"

	"temandifa-backend/internal/aiproxy"
	"temandifa-backend/internal/auth"
	"temandifa-backend/internal/calls"
	"temandifa-backend/internal/config"
	"temandifa-backend/internal/contacts"
	"temandifa-backend/internal/metrics"
	"temandifa-backend/internal/users"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
type Handlers struct {
	Auth     *auth.Manager
	Users    *users.Service
	Contacts *contacts.Service
	Calls    *calls.Coordinator
	AI       *aiproxy.Service
	AIConfig config.AIConfig
	Metrics  *metrics.Metrics
}

/* ===================== AUTH ===================== */

type registerRequest struct {
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password" binding:"required,min=6"`
}

func (h Handlers) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "username, email and a password of at least 6 characters are required"})
		return
	}

	u, err := h.Users.Register(c.Request.Context(), users.RegisterRequest{
		Username:    req.Username,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
	})
	if errors.Is(err, users.ErrDuplicate) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "an account with that username, email or phone number already exists"})
		return
	}
	if errors.Is(err, users.ErrInvalidArgument) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid registration data"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	pair, err := h.Auth.IssuePair(time.Now(), u.ID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"user":          u,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	u, err := h.Users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, users.ErrInvalidCredentials) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	pair, err := h.Auth.IssuePair(time.Now(), u.ID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":          u,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h Handlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "refresh_token is required"})
		return
	}

	claims, err := h.Auth.Verify(req.RefreshToken, auth.TokenTypeRefresh, time.Now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}

	pair, err := h.Auth.IssuePair(time.Now(), claims.UserID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

type pushTokenRequest struct {
	PushToken string `json:"push_token" binding:"required"`
}

// UpdatePushToken records the device handle that makes the user reachable
// for incoming calls.
func (h Handlers) UpdatePushToken(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var req pushTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "push_token is required"})
		return
	}

	if err := h.Users.SetPushToken(c.Request.Context(), userID, req.PushToken); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to update push token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "push token updated"})
}

func (h Handlers) Me(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	u, ok, err := h.Users.ByID(c.Request.Context(), userID)
	if err != nil || !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}
	c.JSON(http.StatusOK, u)
}
