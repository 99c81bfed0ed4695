// Package costing resolves ingredient unit costs and rolls recipe lines into plate and prime
// costs. Every function here is pure: callers hand in snapshots and persist the results.
package costing

import (
	"sort"
	"time"

	"github.com/mamadbah2/kitchenledger/internal/domain/apperr"
	"github.com/mamadbah2/kitchenledger/internal/domain/models"
)

// DefaultStalenessDays is used when a caller asks for stale prices without a window.
const DefaultStalenessDays = 30

// CostPerUsageUnit returns purchase_price / (unit_conversion_factor * yield_percent).
func CostPerUsageUnit(ing models.Ingredient) (float64, error) {
	if err := ValidateIngredient(ing); err != nil {
		return 0, err
	}
	return ing.PurchasePrice / (ing.UnitConversionFactor * ing.YieldPercent), nil
}

// ValidateIngredient checks the fields the unit cost depends on.
func ValidateIngredient(ing models.Ingredient) error {
	switch {
	case ing.PurchasePrice < 0:
		return &apperr.InvalidIngredientError{IngredientID: ing.ID, Reason: "purchase price must not be negative"}
	case ing.UnitConversionFactor <= 0:
		return &apperr.InvalidIngredientError{IngredientID: ing.ID, Reason: "unit conversion factor must be positive"}
	case ing.YieldPercent <= 0 || ing.YieldPercent > 1:
		return &apperr.InvalidIngredientError{IngredientID: ing.ID, Reason: "yield percent must be within (0, 1]"}
	}
	return nil
}

// UpdatePrice sets a new purchase price and restarts the staleness clock.
func UpdatePrice(ing models.Ingredient, price float64, now time.Time) (models.Ingredient, error) {
	if price <= 0 {
		return models.Ingredient{}, apperr.Validation("purchase_price", "must be positive")
	}
	ing.PurchasePrice = price
	stamp := now.UTC()
	ing.LastPriceUpdate = &stamp
	return ing, nil
}

// StaleIngredient is an ingredient whose price has not been refreshed within the window.
type StaleIngredient struct {
	Ingredient models.Ingredient `json:"ingredient"`
	// DaysSinceUpdate is -1 when the price was never recorded.
	DaysSinceUpdate int `json:"days_since_update"`
}

// StaleIngredients lists live ingredients whose price is older than days, oldest first.
// Ingredients that were never priced are reported first.
func StaleIngredients(ingredients []models.Ingredient, now time.Time, days int) []StaleIngredient {
	if days <= 0 {
		days = DefaultStalenessDays
	}
	cutoff := now.AddDate(0, 0, -days)

	var stale []StaleIngredient
	for _, ing := range ingredients {
		if ing.Deleted {
			continue
		}
		if ing.LastPriceUpdate == nil {
			stale = append(stale, StaleIngredient{Ingredient: ing, DaysSinceUpdate: -1})
			continue
		}
		if ing.LastPriceUpdate.Before(cutoff) {
			age := int(now.Sub(*ing.LastPriceUpdate).Hours() / 24)
			stale = append(stale, StaleIngredient{Ingredient: ing, DaysSinceUpdate: age})
		}
	}

	sort.SliceStable(stale, func(i, j int) bool {
		a, b := stale[i].DaysSinceUpdate, stale[j].DaysSinceUpdate
		if a == -1 || b == -1 {
			return a == -1 && b != -1
		}
		return a > b
	})
	return stale
}
