package handlers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/dubeyaashish/itradebook-sub000/internal/domain/entities"
	"github.com/dubeyaashish/itradebook-sub000/internal/domain/services/alerts"
	"github.com/dubeyaashish/itradebook-sub000/internal/domain/services/report"
	"github.com/dubeyaashish/itradebook-sub000/pkg/errors"
	"github.com/dubeyaashish/itradebook-sub000/pkg/logger"
)

// ReportHandlers serves the daily P&L report surface
type ReportHandlers struct {
	assembler *report.Assembler
	evaluator *alerts.Evaluator
	logger    *logger.Logger
}

// NewReportHandlers creates new report handlers
func NewReportHandlers(assembler *report.Assembler, evaluator *alerts.Evaluator, log *logger.Logger) *ReportHandlers {
	return &ReportHandlers{
		assembler: assembler,
		evaluator: evaluator,
		logger:    log,
	}
}

// GetDailyPL returns one page of the monthly daily P&L report
func (h *ReportHandlers) GetDailyPL(c *gin.Context) {
	year, ok := queryInt(c, "year", 0)
	if !ok {
		return
	}
	month, ok := queryInt(c, "month", 0)
	if !ok {
		return
	}
	if year == 0 || month < 1 || month > 12 {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "year and month (1-12) are required", nil)
		return
	}
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return
	}
	pageSize, ok := queryInt(c, "page_size", 0)
	if !ok {
		return
	}

	result, err := h.assembler.GetReport(c.Request.Context(), year, month, querySymbols(c), page, pageSize)
	if err != nil {
		h.logger.Errorw("report query failed", "error", err, "year", year, "month", month)
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ExportDailyPL streams the filtered month as CSV
func (h *ReportHandlers) ExportDailyPL(c *gin.Context) {
	year, ok := queryInt(c, "year", 0)
	if !ok {
		return
	}
	month, ok := queryInt(c, "month", 0)
	if !ok {
		return
	}
	if year == 0 || month < 1 || month > 12 {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "year and month (1-12) are required", nil)
		return
	}

	// One oversized page covers any month of per-symbol rows.
	result, err := h.assembler.GetReport(c.Request.Context(), year, month, querySymbols(c), 1, 10000)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	// Render into memory first so an encoding failure surfaces as an error
	// response instead of a truncated 200 body.
	var buf bytes.Buffer
	if err := writeDailyPLCSV(&buf, result.Rows); err != nil {
		h.logger.Errorw("csv export failed", "error", err, "year", year, "month", month)
		respondServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("daily-pl-%04d-%02d.csv", year, month)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

func writeDailyPLCSV(w io.Writer, rows []*entities.DailyPLRecord) error {
	writer := csv.NewWriter(w)

	writer.Write([]string{
		"trade_date", "symbol", "market_price",
		"company_realized", "company_unrealized", "company_pln",
		"deposit", "withdrawal",
		"cp_realized", "cp_unrealized", "cp_pln",
		"account_profit", "daily_company_total", "daily_cp_total", "daily_grand_total",
		"finalized",
	})

	for _, row := range rows {
		writer.Write([]string{
			row.TradeDate.Format(dateLayout),
			row.Symbol,
			row.MarketPrice.String(),
			row.CompanyRealized.String(),
			row.CompanyUnrealized.String(),
			row.CompanyPln.String(),
			row.Deposit.String(),
			row.Withdrawal.String(),
			row.CpRealized.String(),
			row.CpUnrealized.String(),
			row.CpPln.String(),
			row.AccountProfit.String(),
			row.DailyCompanyTotal.String(),
			row.DailyCpTotal.String(),
			row.DailyGrandTotal.String(),
			fmt.Sprintf("%t", row.IsFinalized),
		})
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return errors.Compute("csv export", err)
	}
	return nil
}

// EvaluateSymbol compares a symbol's latest two ticks against a threshold
func (h *ReportHandlers) EvaluateSymbol(c *gin.Context) {
	symbol := c.Param("symbol")

	threshold := decimal.Zero
	if raw := c.Query("threshold"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "threshold must be a number", nil)
			return
		}
		threshold = parsed
	}

	evaluation, err := h.evaluator.Evaluate(c.Request.Context(), symbol, threshold)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, evaluation)
}
