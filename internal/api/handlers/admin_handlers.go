package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/dubeyaashish/itradebook-sub000/internal/domain/services/snapshot"
	"github.com/dubeyaashish/itradebook-sub000/pkg/errors"
	"github.com/dubeyaashish/itradebook-sub000/pkg/logger"
)

// AdminHandlers serves adjustment and administrative operations
type AdminHandlers struct {
	snapshots *snapshot.Service
	logger    *logger.Logger
}

// NewAdminHandlers creates new admin handlers
func NewAdminHandlers(snapshots *snapshot.Service, log *logger.Logger) *AdminHandlers {
	return &AdminHandlers{snapshots: snapshots, logger: log}
}

type adjustmentRequest struct {
	Date       string          `json:"date" binding:"required"`
	Symbol     string          `json:"symbol" binding:"required"`
	Deposit    decimal.Decimal `json:"deposit"`
	Withdrawal decimal.Decimal `json:"withdrawal"`
}

// SetAdjustment stores a deposit/withdrawal adjustment for (date, symbol)
func (h *AdminHandlers) SetAdjustment(c *gin.Context) {
	var req adjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "date and symbol are required", nil)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "date must be YYYY-MM-DD", nil)
		return
	}

	if err := h.snapshots.SetDepositWithdrawal(c.Request.Context(), date, req.Symbol, req.Deposit, req.Withdrawal); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":       req.Date,
		"symbol":     req.Symbol,
		"deposit":    req.Deposit,
		"withdrawal": req.Withdrawal,
	})
}

// GetAdjustment returns the stored adjustment for (date, symbol)
func (h *AdminHandlers) GetAdjustment(c *gin.Context) {
	date, err := parseDate(c.Query("date"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "date must be YYYY-MM-DD", nil)
		return
	}
	symbol := c.Query("symbol")

	deposit, withdrawal, found, err := h.snapshots.GetDepositWithdrawal(c.Request.Context(), date, symbol)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":       c.Query("date"),
		"symbol":     symbol,
		"deposit":    deposit,
		"withdrawal": withdrawal,
		"found":      found,
	})
}

type finalizeRequest struct {
	Date string `json:"date" binding:"required"`
}

// FinalizeDay locks a day's rows against automatic recomputation
func (h *AdminHandlers) FinalizeDay(c *gin.Context) {
	var req finalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "date is required", nil)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "date must be YYYY-MM-DD", nil)
		return
	}

	if err := h.snapshots.FinalizeDay(c.Request.Context(), date); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"date": req.Date, "finalized": true})
}

// Rebuild regenerates the entire snapshot store from raw tick history
func (h *AdminHandlers) Rebuild(c *gin.Context) {
	if err := h.snapshots.RebuildAll(c.Request.Context()); err != nil {
		if err == errors.ErrRebuildInProgress {
			respondError(c, http.StatusConflict, "REBUILD_IN_PROGRESS", err.Error(), nil)
			return
		}
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rebuilt": true})
}

// Stats returns the read-only storage summary
func (h *AdminHandlers) Stats(c *gin.Context) {
	stats, err := h.snapshots.Stats(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
