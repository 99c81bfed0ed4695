package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/domain/apperr"
	"github.com/mamadbah2/kitchenledger/internal/domain/models"
	"github.com/mamadbah2/kitchenledger/internal/service/commands"
)

// ExpenseHandler exposes vendors, categories, expenses and the line mapper.
type ExpenseHandler struct {
	svc    *commands.Service
	logger *zap.Logger
}

// NewExpenseHandler constructs the HTTP handler adapter.
func NewExpenseHandler(svc *commands.Service, logger *zap.Logger) *ExpenseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpenseHandler{svc: svc, logger: logger}
}

// SaveVendor creates or updates a vendor.
func (h *ExpenseHandler) SaveVendor(c *gin.Context) {
	var v models.Vendor
	if !bindJSON(c, &v) {
		return
	}
	saved, err := h.svc.SaveVendor(c.Request.Context(), v)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// SaveCategory creates or updates an expense category.
func (h *ExpenseHandler) SaveCategory(c *gin.Context) {
	var cat models.Category
	if !bindJSON(c, &cat) {
		return
	}
	saved, err := h.svc.SaveCategory(c.Request.Context(), cat)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// mappingRuleRequest leaves Active nil when the body omits it.
type mappingRuleRequest struct {
	models.MappingRule
	Active *bool `json:"active"`
}

// SaveMappingRule stores a vendor mapping rule. Rules are active unless the body says otherwise.
func (h *ExpenseHandler) SaveMappingRule(c *gin.Context) {
	var req mappingRuleRequest
	if !bindJSON(c, &req) {
		return
	}
	rule := req.MappingRule
	rule.Active = req.Active == nil || *req.Active
	saved, err := h.svc.SaveMappingRule(c.Request.Context(), rule)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

type expenseRequest struct {
	ID       string                   `json:"id"`
	VendorID string                   `json:"vendor_id"`
	Date     string                   `json:"date" binding:"required"`
	Lines    []models.ExpenseLineItem `json:"lines"`
}

// SaveExpense stores an expense with its raw lines.
func (h *ExpenseHandler) SaveExpense(c *gin.Context) {
	var req expenseRequest
	if !bindJSON(c, &req) {
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	saved, err := h.svc.SaveExpense(c.Request.Context(), models.Expense{
		ID:       req.ID,
		VendorID: req.VendorID,
		Date:     date,
		Lines:    req.Lines,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// ApplyMappings runs the auto-mapper over one expense or a list of lines.
func (h *ExpenseHandler) ApplyMappings(c *gin.Context) {
	var req commands.ApplyRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.svc.ApplyMappings(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type mapLineRequest struct {
	IngredientID string `json:"ingredient_id"`
	CategoryID   string `json:"category_id"`
}

// MapLine maps one line by hand and locks it.
func (h *ExpenseHandler) MapLine(c *gin.Context) {
	var req mapLineRequest
	if !bindJSON(c, &req) {
		return
	}
	line, err := h.svc.MapLine(c.Request.Context(), c.Param("id"), req.IngredientID, req.CategoryID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, line)
}

// UnlockLine hands a manually mapped line back to the auto-mapper.
func (h *ExpenseHandler) UnlockLine(c *gin.Context) {
	line, err := h.svc.UnlockLine(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, line)
}

// SuggestIngredients ranks ingredient names closest to the line description.
func (h *ExpenseHandler) SuggestIngredients(c *gin.Context) {
	n := 5
	if raw := c.Query("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			respondError(c, h.logger, apperr.Validation("n", "must be a positive integer"))
			return
		}
		n = v
	}

	suggestions, err := h.svc.SuggestIngredients(c.Request.Context(), c.Param("id"), n)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}
