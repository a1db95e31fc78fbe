package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/arbitration-backend/internal/service"
)

// JurorHandler предоставляет HTTP слой реестра присяжных.
type JurorHandler struct {
	jurors *service.JurorService
}

// NewJurorHandler создаёт хэндлер.
func NewJurorHandler(jurors *service.JurorService) *JurorHandler {
	return &JurorHandler{jurors: jurors}
}

// Me обрабатывает GET /jurors/me.
func (h *JurorHandler) Me(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	juror, stats, err := h.jurors.GetJuror(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"juror": juror, "stats": stats})
}

// Register обрабатывает POST /jurors/register.
func (h *JurorHandler) Register(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req struct {
		Stake int64 `json:"stake" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	juror, err := h.jurors.Register(c.Request.Context(), userID, req.Stake)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, juror)
}

// Unstake обрабатывает POST /jurors/unstake.
func (h *JurorHandler) Unstake(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	if err := h.jurors.Unstake(c.Request.Context(), userID); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "стейк возвращён"})
}

// RefreshTier обрабатывает POST /jurors/refresh-tier.
func (h *JurorHandler) RefreshTier(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	tier, err := h.jurors.RefreshTier(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tier": tier})
}
