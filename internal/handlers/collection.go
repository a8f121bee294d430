package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type addBookRequest struct {
	ISBN string `json:"isbn" binding:"required,isbn_id"`
}

type setAvailabilityRequest struct {
	IsAvailable *bool `json:"is_available" binding:"required"`
}

func (h *LendingHandler) listMyBooks(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	items, err := h.collection.List(c.Request.Context(), actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *LendingHandler) addMyBook(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req addBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entry, err := h.collection.Add(c.Request.Context(), actor, req.ISBN)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "isbn": entry.BookISBN, "is_available": entry.IsAvailable})
}

func (h *LendingHandler) setMyBookAvailability(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req setAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "is_available must be a boolean"})
		return
	}
	isbn := strings.TrimSpace(c.Param("isbn"))
	if err := h.collection.SetAvailable(c.Request.Context(), actor, isbn, *req.IsAvailable); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "isbn": isbn, "is_available": *req.IsAvailable})
}

func (h *LendingHandler) removeMyBook(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	isbn := strings.TrimSpace(c.Param("isbn"))
	if err := h.collection.Remove(c.Request.Context(), actor, isbn); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "isbn": isbn})
}

func (h *LendingHandler) getAvailability(c *gin.Context) {
	ownerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid owner id"})
		return
	}
	isbn := strings.TrimSpace(c.Param("isbn"))
	available, err := h.collection.GetAvailability(c.Request.Context(), ownerID, isbn)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"owner_user_id": ownerID, "isbn": isbn, "is_available": available})
}
