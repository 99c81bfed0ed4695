package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/domain/apperr"
	"github.com/mamadbah2/kitchenledger/internal/domain/models"
	"github.com/mamadbah2/kitchenledger/internal/service/commands"
	"github.com/mamadbah2/kitchenledger/internal/service/export"
	"github.com/mamadbah2/kitchenledger/internal/service/reporting"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SnapshotLister reads archived weekly closes.
type SnapshotLister interface {
	ListSnapshots(ctx context.Context, limit int64) ([]models.ReportSnapshot, error)
}

// ReportHandler exposes the read side: P&L, analyses, tax worksheets and exports.
type ReportHandler struct {
	svc       *commands.Service
	snapshots SnapshotLister
	logger    *zap.Logger
}

// NewReportHandler constructs the HTTP handler adapter.
func NewReportHandler(svc *commands.Service, snapshots SnapshotLister, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{svc: svc, snapshots: snapshots, logger: logger}
}

// PeriodReport answers GET /reports/pnl?start=&end=&compare=.
func (h *ReportHandler) PeriodReport(c *gin.Context) {
	r, err := queryRange(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	mode, err := reporting.ParseCompareMode(c.Query("compare"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	report, err := h.svc.PeriodReport(c.Request.Context(), r, mode)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// CashFlow returns the weekly cash projection from an opening balance.
func (h *ReportHandler) CashFlow(c *gin.Context) {
	r, err := queryRange(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	opening := 0.0
	if raw := c.Query("opening"); raw != "" {
		if opening, err = strconv.ParseFloat(raw, 64); err != nil {
			respondError(c, h.logger, apperr.Validation("opening", "must be a number"))
			return
		}
	}

	weeks, err := h.svc.CashFlow(c.Request.Context(), r, opening)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"weeks": weeks})
}

// DailySummary returns revenue and spend per day of the range.
func (h *ReportHandler) DailySummary(c *gin.Context) {
	r, err := queryRange(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	days, err := h.svc.DailySummary(c.Request.Context(), r)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": days})
}

// VendorAnalysis ranks vendors by spend over the range.
func (h *ReportHandler) VendorAnalysis(c *gin.Context) {
	r, err := queryRange(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	vendors, err := h.svc.VendorAnalysis(c.Request.Context(), r)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vendors": vendors})
}

type budgetRequest struct {
	Budgets map[string]float64 `json:"budgets" binding:"required"`
}

// BudgetVsActual compares category spend against the budgets in the body.
func (h *ReportHandler) BudgetVsActual(c *gin.Context) {
	r, err := queryRange(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	var req budgetRequest
	if !bindJSON(c, &req) {
		return
	}

	lines, err := h.svc.BudgetVsActual(c.Request.Context(), r, req.Budgets)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lines": lines})
}

// MenuEngineering classifies menu items by popularity and margin.
func (h *ReportHandler) MenuEngineering(c *gin.Context) {
	r, err := queryRange(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	result, err := h.svc.MenuEngineering(c.Request.Context(), r)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ScheduleC maps the range onto Schedule C lines.
func (h *ReportHandler) ScheduleC(c *gin.Context) {
	r, err := queryRange(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	sc, err := h.svc.ScheduleC(c.Request.Context(), r)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sc)
}

// QuarterlyEstimates returns the estimated tax due per quarter of a year.
func (h *ReportHandler) QuarterlyEstimates(c *gin.Context) {
	year, err := queryYear(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	quarters, err := h.svc.QuarterlyEstimates(c.Request.Context(), year)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"year": year, "quarters": quarters})
}

// Form1099 lists the vendors paid above the 1099 threshold in a year.
func (h *ReportHandler) Form1099(c *gin.Context) {
	year, err := queryYear(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	rows, err := h.svc.Form1099(c.Request.Context(), year)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"year": year, "vendors": rows})
}

// ExportWorkbook streams the P&L, Schedule C and 1099 sheets of a range as xlsx. The 1099 sheet
// covers the calendar year the range ends in.
func (h *ReportHandler) ExportWorkbook(c *gin.Context) {
	r, err := queryRange(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ctx := c.Request.Context()

	report, err := h.svc.PeriodReport(ctx, r, reporting.CompareNone)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	sc, err := h.svc.ScheduleC(ctx, r)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	year := r.End.Year()
	vendors, err := h.svc.Form1099(ctx, year)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	filename := fmt.Sprintf("kitchenledger_%s_%s.xlsx", r.Start.Format(dateLayout), r.End.Format(dateLayout))
	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)
	if err := export.Write(export.Workbook{Report: report, ScheduleC: sc, Form1099: vendors, Year: year}, c.Writer); err != nil {
		h.logger.Error("workbook export failed", zap.Error(err))
	}
}

// Snapshots lists archived weekly closes, newest first.
func (h *ReportHandler) Snapshots(c *gin.Context) {
	var limit int64
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			respondError(c, h.logger, apperr.Validation("limit", "must be a positive integer"))
			return
		}
		limit = v
	}

	snaps, err := h.snapshots.ListSnapshots(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": snaps})
}
