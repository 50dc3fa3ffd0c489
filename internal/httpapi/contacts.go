package httpapi

import (
	"errors"
	"net/http"

	"temandifa-backend/internal/auth"
	"temandifa-backend/internal/contacts"

	"github.com/gin-gonic/gin"
)

type contactRequest struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

func (h Handlers) CreateContact(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	contact, err := h.Contacts.Create(c.Request.Context(), userID, req.Name, req.PhoneNumber)
	if err != nil {
		respondContactErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, contact)
}

func (h Handlers) ListContacts(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	list, err := h.Contacts.List(c.Request.Context(), userID)
	if err != nil {
		respondContactErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": list})
}

func (h Handlers) GetContact(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	contact, err := h.Contacts.Get(c.Request.Context(), userID, c.Param("contactId"))
	if err != nil {
		respondContactErr(c, err)
		return
	}
	c.JSON(http.StatusOK, contact)
}

func (h Handlers) UpdateContact(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	contact, err := h.Contacts.Update(c.Request.Context(), userID, c.Param("contactId"), req.Name, req.PhoneNumber)
	if err != nil {
		respondContactErr(c, err)
		return
	}
	c.JSON(http.StatusOK, contact)
}

func (h Handlers) DeleteContact(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	if err := h.Contacts.Delete(c.Request.Context(), userID, c.Param("contactId")); err != nil {
		respondContactErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "contact deleted"})
}

func respondContactErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, contacts.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "contact not found"})
	case errors.Is(err, contacts.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "name and phone_number are required"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "contact operation failed"})
	}
}
