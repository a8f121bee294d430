package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"booklend/internal/models"
	"booklend/internal/services"
)

type createLoanRequest struct {
	OwnerUserID string `json:"owner_user_id" binding:"required,uuid"`
	BookISBN    string `json:"book_isbn" binding:"required,isbn_id"`
}

func (h *LendingHandler) createLoan(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var req createLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ownerID, err := uuid.Parse(req.OwnerUserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid owner_user_id"})
		return
	}

	loan, err := h.loans.Create(c.Request.Context(), actor, ownerID, strings.TrimSpace(req.BookISBN))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "loan": loan})
}

func (h *LendingHandler) listInbox(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	items, err := h.loans.Inbox(c.Request.Context(), actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *LendingHandler) listOutbox(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	items, err := h.loans.Outbox(c.Request.Context(), actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

type transitionFunc func(ctx context.Context, actor services.Actor, loanID uuid.UUID) (*models.LoanRequest, error)

func (h *LendingHandler) acceptLoan(c *gin.Context) { h.transition(c, h.loans.Accept) }
func (h *LendingHandler) rejectLoan(c *gin.Context) { h.transition(c, h.loans.Reject) }
func (h *LendingHandler) returnLoan(c *gin.Context) { h.transition(c, h.loans.Return) }
func (h *LendingHandler) cancelLoan(c *gin.Context) { h.transition(c, h.loans.Cancel) }

func (h *LendingHandler) transition(c *gin.Context, fn transitionFunc) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	loanID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid loan id"})
		return
	}

	loan, err := fn(c.Request.Context(), actor, loanID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"id":        loan.ID,
		"status":    loan.Status,
		"book_isbn": loan.BookISBN,
	})
}
