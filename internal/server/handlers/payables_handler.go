package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/domain/models"
	"github.com/mamadbah2/kitchenledger/internal/service/commands"
	"github.com/mamadbah2/kitchenledger/internal/service/payables"
)

// PayablesHandler exposes payroll runs, invoices and payment batches.
type PayablesHandler struct {
	svc    *commands.Service
	logger *zap.Logger
}

// NewPayablesHandler constructs the HTTP handler adapter.
func NewPayablesHandler(svc *commands.Service, logger *zap.Logger) *PayablesHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PayablesHandler{svc: svc, logger: logger}
}

type payRunRequest struct {
	Start string                 `json:"start" binding:"required"`
	End   string                 `json:"end" binding:"required"`
	Hours []models.EmployeeHours `json:"hours" binding:"required"`
}

// RunPayroll computes and posts a pay run.
func (h *PayablesHandler) RunPayroll(c *gin.Context) {
	var req payRunRequest
	if !bindJSON(c, &req) {
		return
	}
	start, err := parseDate("start", req.Start)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	end, err := parseDate("end", req.End)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	run, err := h.svc.RunPayroll(c.Request.Context(), start, end, req.Hours)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, run)
}

type invoiceRequest struct {
	ExpenseID     string `json:"expense_id" binding:"required"`
	InvoiceNumber string `json:"invoice_number"`
	DueDate       string `json:"due_date"`
}

// CreateInvoice drafts an invoice from an expense.
func (h *PayablesHandler) CreateInvoice(c *gin.Context) {
	var req invoiceRequest
	if !bindJSON(c, &req) {
		return
	}
	var due time.Time
	if req.DueDate != "" {
		d, err := parseDate("due_date", req.DueDate)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		due = d
	}

	inv, err := h.svc.CreateInvoice(c.Request.Context(), req.ExpenseID, req.InvoiceNumber, due)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

type invoicePatchRequest struct {
	InvoiceNumber *string `json:"invoice_number"`
	DueDate       *string `json:"due_date"`
}

// UpdateInvoice edits the number or due date of an open invoice.
func (h *PayablesHandler) UpdateInvoice(c *gin.Context) {
	var req invoicePatchRequest
	if !bindJSON(c, &req) {
		return
	}
	patch := payables.InvoicePatch{InvoiceNumber: req.InvoiceNumber}
	if req.DueDate != nil {
		d, err := parseDate("due_date", *req.DueDate)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		patch.DueDate = &d
	}

	inv, err := h.svc.UpdateInvoice(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// ApproveInvoice approves a draft invoice.
func (h *PayablesHandler) ApproveInvoice(c *gin.Context) {
	inv, err := h.svc.ApproveInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// RejectInvoice rejects an open invoice with a reason.
func (h *PayablesHandler) RejectInvoice(c *gin.Context) {
	var req rejectRequest
	if !bindJSON(c, &req) {
		return
	}
	inv, err := h.svc.RejectInvoice(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// PostInvoice posts an approved invoice and returns its journal lines.
func (h *PayablesHandler) PostInvoice(c *gin.Context) {
	inv, lines, err := h.svc.PostInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoice": inv, "ledger_lines": lines})
}

// DeleteInvoice removes an invoice that was never posted.
func (h *PayablesHandler) DeleteInvoice(c *gin.Context) {
	if err := h.svc.DeleteInvoice(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type batchRequest struct {
	InvoiceIDs []string `json:"invoice_ids" binding:"required"`
}

// CreateBatch drafts a payment batch over posted invoices.
func (h *PayablesHandler) CreateBatch(c *gin.Context) {
	var req batchRequest
	if !bindJSON(c, &req) {
		return
	}
	batch, err := h.svc.CreateBatch(c.Request.Context(), req.InvoiceIDs)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, batch)
}

// ApproveBatch approves a draft payment batch.
func (h *PayablesHandler) ApproveBatch(c *gin.Context) {
	batch, err := h.svc.ApproveBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

type processRequest struct {
	CheckStart int `json:"check_start" binding:"required"`
}

// ProcessBatch cuts sequential checks and records the vendor payments.
func (h *PayablesHandler) ProcessBatch(c *gin.Context) {
	var req processRequest
	if !bindJSON(c, &req) {
		return
	}
	batch, payments, err := h.svc.ProcessBatch(c.Request.Context(), c.Param("id"), req.CheckStart)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batch": batch, "payments": payments})
}

// DeleteBatch removes a draft payment batch.
func (h *PayablesHandler) DeleteBatch(c *gin.Context) {
	if err := h.svc.DeleteBatch(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
