package main

import (
	"temandifa-backend/internal/gateway"
	"temandifa-backend/internal/httpapi"
	"temandifa-backend/internal/metrics"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, gw *gateway.Gateway, m *metrics.Metrics, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", m.Handler())

	// Signaling connection; the handshake itself carries the bearer token.
	r.GET("/ws", gw.Handle)

	v1 := r.Group("/api/v1")

	// AUTH routes (public)
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
	}

	// protected API group
	protected := v1.Group("")
	protected.Use(authMW)
	{
		protected.GET("/users/me", h.Me)
		protected.PUT("/users/push-token", h.UpdatePushToken)

		// CALL routes
		call := protected.Group("/call")
		{
			call.POST("/initiate", h.InitiateCall)
			call.GET("/status", h.CallStatus)
			call.POST("/:callId/answer", h.AnswerCall)
			call.POST("/:callId/end", h.EndCall)
		}

		// CONTACT routes
		contactsGroup := protected.Group("/contacts")
		{
			contactsGroup.POST("", h.CreateContact)
			contactsGroup.GET("", h.ListContacts)
			contactsGroup.GET("/:contactId", h.GetContact)
			contactsGroup.PUT("/:contactId", h.UpdateContact)
			contactsGroup.DELETE("/:contactId", h.DeleteContact)
		}

		// AI gateway routes
		protected.POST("/detect", h.Detect)
		protected.POST("/scan", h.Scan)
		protected.POST("/transcribe", h.Transcribe)
	}
}
