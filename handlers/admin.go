package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/haiminhdev/callstat/services"
)

type AdminHandler struct {
	Lifecycle *services.LifecycleService
}

func NewAdminHandler(lifecycle *services.LifecycleService) *AdminHandler {
	return &AdminHandler{Lifecycle: lifecycle}
}

// DeleteByDate removes all events and rollups for one date.
// DELETE /api/calls?date=2024-01-01
func (h *AdminHandler) DeleteByDate(c *gin.Context) {
	date, ok := queryDate(c, "date")
	if !ok {
		return
	}

	if err := h.Lifecycle.DeleteByDate(date); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "deleted all events and rollups for " + date.Format("2006-01-02"),
	})
}

type resetRequest struct {
	ConfirmToken string `json:"confirm_token" binding:"required"`
}

// ResetAll truncates the event store, the rollup store and the import ledger.
// POST /api/admin/reset {"confirm_token": "..."}
func (h *AdminHandler) ResetAll(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "confirm_token is required"})
		return
	}

	if err := h.Lifecycle.ResetAll(req.ConfirmToken); err != nil {
		if errors.Is(err, services.ErrInvalidResetToken) {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "all call data has been reset"})
}
