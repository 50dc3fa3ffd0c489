package httpapi

import (
	"net/http"
	"strings"

	"temandifa-backend/internal/auth"
	"temandifa-backend/internal/calls"

	"github.com/gin-gonic/gin"
)

type initiateCallRequest struct {
	CalleePhoneNumber string `json:"calleePhoneNumber" binding:"required"`
}

func (h Handlers) InitiateCall(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var req initiateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.CalleePhoneNumber) == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "calleePhoneNumber is required"})
		return
	}

	res, err := h.Calls.Initiate(c.Request.Context(), userID, req.CalleePhoneNumber)
	if err != nil {
		c.AbortWithStatusJSON(calls.StatusOf(err), gin.H{"error": err.Error()})
		return
	}
	h.Metrics.ObserveCall("initiated")
	c.JSON(http.StatusOK, res)
}

func (h Handlers) CallStatus(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	rec, err := h.Calls.ActiveCall(c.Request.Context(), userID)
	if err != nil {
		c.AbortWithStatusJSON(calls.StatusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"activeCall": rec})
}

func (h Handlers) AnswerCall(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	callID := c.Param("callId")
	if callID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "callId is required"})
		return
	}

	res, err := h.Calls.Answer(c.Request.Context(), callID, userID)
	if err != nil {
		c.AbortWithStatusJSON(calls.StatusOf(err), gin.H{"error": err.Error()})
		return
	}
	h.Metrics.ObserveCall("answered")
	c.JSON(http.StatusOK, res)
}

func (h Handlers) EndCall(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	callID := c.Param("callId")
	if callID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "callId is required"})
		return
	}

	res, err := h.Calls.End(c.Request.Context(), callID, userID)
	if err != nil {
		c.AbortWithStatusJSON(calls.StatusOf(err), gin.H{"error": err.Error()})
		return
	}
	if res.Action != calls.ActionNoop {
		h.Metrics.ObserveCall(res.Action)
	}
	c.JSON(http.StatusOK, res)
}
