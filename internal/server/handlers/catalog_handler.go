package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/domain/models"
	"github.com/mamadbah2/kitchenledger/internal/service/commands"
)

// CatalogHandler exposes ingredients, menu items, recipes and sales.
type CatalogHandler struct {
	svc    *commands.Service
	logger *zap.Logger
}

// NewCatalogHandler constructs the HTTP handler adapter.
func NewCatalogHandler(svc *commands.Service, logger *zap.Logger) *CatalogHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogHandler{svc: svc, logger: logger}
}

// SaveIngredient creates an ingredient, or replaces the one named in the path.
func (h *CatalogHandler) SaveIngredient(c *gin.Context) {
	var ing models.Ingredient
	if !bindJSON(c, &ing) {
		return
	}
	if id := c.Param("id"); id != "" {
		ing.ID = id
	}

	saved, err := h.svc.SaveIngredient(c.Request.Context(), ing)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// DeleteIngredient soft-deletes an ingredient that no recipe uses.
func (h *CatalogHandler) DeleteIngredient(c *gin.Context) {
	if err := h.svc.DeleteIngredient(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type priceRequest struct {
	Price *float64 `json:"price" binding:"required"`
}

// UpdatePrice records a new purchase price.
func (h *CatalogHandler) UpdatePrice(c *gin.Context) {
	var req priceRequest
	if !bindJSON(c, &req) {
		return
	}

	ing, err := h.svc.UpdatePrice(c.Request.Context(), c.Param("id"), *req.Price)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ing)
}

// ResolveCost returns the cost per usage unit of an ingredient.
func (h *CatalogHandler) ResolveCost(c *gin.Context) {
	cost, err := h.svc.ResolveCost(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cost)
}

// StalePrices lists ingredients whose purchase price needs refreshing.
func (h *CatalogHandler) StalePrices(c *gin.Context) {
	stale, err := h.svc.StalePrices(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stale": stale})
}

// SaveMenuItem creates a menu item, or replaces the one named in the path.
func (h *CatalogHandler) SaveMenuItem(c *gin.Context) {
	var item models.MenuItem
	if !bindJSON(c, &item) {
		return
	}
	if id := c.Param("id"); id != "" {
		item.ID = id
	}

	saved, err := h.svc.SaveMenuItem(c.Request.Context(), item)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// RecipeCost returns the plate cost breakdown of a menu item.
func (h *CatalogHandler) RecipeCost(c *gin.Context) {
	cost, err := h.svc.AggregateRecipe(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cost)
}

type recipeLineRequest struct {
	QuantityUsed float64 `json:"quantity_used"`
}

// UpsertRecipeLine sets the quantity of one ingredient in a recipe and returns the new plate cost.
func (h *CatalogHandler) UpsertRecipeLine(c *gin.Context) {
	var req recipeLineRequest
	if !bindJSON(c, &req) {
		return
	}

	cost, err := h.svc.UpsertRecipeLine(c.Request.Context(), models.RecipeLine{
		MenuItemID:   c.Param("id"),
		IngredientID: c.Param("ingredient_id"),
		QuantityUsed: req.QuantityUsed,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cost)
}

// RemoveRecipeLine drops an ingredient from a menu item recipe.
func (h *CatalogHandler) RemoveRecipeLine(c *gin.Context) {
	cost, err := h.svc.RemoveRecipeLine(c.Request.Context(), c.Param("id"), c.Param("ingredient_id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cost)
}

type salesRequest struct {
	Date         string  `json:"date" binding:"required"`
	MenuItemID   string  `json:"menu_item_id" binding:"required"`
	QuantitySold int     `json:"quantity_sold"`
	Discounts    float64 `json:"discounts"`
}

// UpsertSales records the day's quantity for one menu item. A zero quantity clears the day.
func (h *CatalogHandler) UpsertSales(c *gin.Context) {
	var req salesRequest
	if !bindJSON(c, &req) {
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	err = h.svc.UpsertSales(c.Request.Context(), models.SalesRecord{
		Date:         date,
		MenuItemID:   req.MenuItemID,
		QuantitySold: req.QuantitySold,
		Discounts:    req.Discounts,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
