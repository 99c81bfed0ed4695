package costing

import (
	"fmt"

	"github.com/mamadbah2/kitchenledger/internal/domain/apperr"
	"github.com/mamadbah2/kitchenledger/internal/domain/models"
	"github.com/mamadbah2/kitchenledger/pkg/money"
)

// CostedLine is a recipe line carrying its ingredient's resolved unit cost.
type CostedLine struct {
	Line             models.RecipeLine `json:"line"`
	IngredientName   string            `json:"ingredient_name"`
	CostPerUsageUnit float64           `json:"cost_per_usage_unit"`
}

// Cost is the line's contribution to the plate, unrounded.
func (c CostedLine) Cost() float64 {
	return c.Line.QuantityUsed * c.CostPerUsageUnit
}

// RecipeCost is the cost breakdown of one menu item. Percentages are nil when the selling price
// is zero.
type RecipeCost struct {
	MenuItemID       string       `json:"menu_item_id"`
	Lines            []CostedLine `json:"lines"`
	IngredientCost   float64      `json:"ingredient_cost"`
	PlateCost        float64      `json:"plate_cost"`
	LaborCost        float64      `json:"labor_cost"`
	PrimeCost        float64      `json:"prime_cost"`
	GrossProfit      float64      `json:"gross_profit"`
	NetProfit        float64      `json:"net_profit"`
	FoodCostPercent  *float64     `json:"food_cost_percent"`
	PrimeCostPercent *float64     `json:"prime_cost_percent"`
	LaborCostPercent *float64     `json:"labor_cost_percent"`
	// CostConfigured is false when the item has no recipe lines; its plate cost is then just the
	// q-factor and it must not feed food-cost alerts.
	CostConfigured bool `json:"cost_configured"`
}

// Aggregator rolls recipe lines into plate and prime costs.
type Aggregator struct {
	laborRate float64
}

// NewAggregator builds an Aggregator using the effective hourly labor rate from configuration.
func NewAggregator(effectiveHourlyLaborRate float64) *Aggregator {
	return &Aggregator{laborRate: effectiveHourlyLaborRate}
}

// Aggregate computes the cost breakdown of item from its costed lines.
func (a *Aggregator) Aggregate(item models.MenuItem, lines []CostedLine) (RecipeCost, error) {
	if err := validateCostInputs(item); err != nil {
		return RecipeCost{}, err
	}

	var ingredientCost money.Accumulator
	var raw float64
	for _, l := range lines {
		if l.Line.MenuItemID != "" && l.Line.MenuItemID != item.ID {
			return RecipeCost{}, apperr.Validation("recipe_line", fmt.Sprintf("line for %s does not belong to %s", l.Line.MenuItemID, item.ID))
		}
		if l.Line.QuantityUsed <= 0 {
			return RecipeCost{}, apperr.Validation("quantity_used", "must be positive")
		}
		ingredientCost.Add(l.Cost())
		raw += l.Cost()
	}

	rawPlate := raw + item.QFactor
	rawLabor := item.EstimatedPrepTimeMinutes / 60 * a.laborRate
	rawPrime := rawPlate + rawLabor

	return RecipeCost{
		MenuItemID:       item.ID,
		Lines:            lines,
		IngredientCost:   ingredientCost.Total(),
		PlateCost:        money.Round(rawPlate),
		LaborCost:        money.Round(rawLabor),
		PrimeCost:        money.Round(rawPrime),
		GrossProfit:      money.Round(item.SellingPrice - rawPlate),
		NetProfit:        money.Round(item.SellingPrice - rawPrime),
		FoodCostPercent:  money.Percent(rawPlate, item.SellingPrice),
		PrimeCostPercent: money.Percent(rawPrime, item.SellingPrice),
		LaborCostPercent: money.Percent(rawLabor, item.SellingPrice),
		CostConfigured:   len(lines) > 0,
	}, nil
}

// PlateCost returns the unrounded plate cost of item, used by period COGS.
func PlateCost(item models.MenuItem, lines []CostedLine) float64 {
	total := item.QFactor
	for _, l := range lines {
		total += l.Cost()
	}
	return total
}

// CostLines resolves each line against the ingredient snapshot.
func CostLines(lines []models.RecipeLine, ingredients map[string]models.Ingredient) ([]CostedLine, error) {
	out := make([]CostedLine, 0, len(lines))
	for _, line := range lines {
		ing, ok := ingredients[line.IngredientID]
		if !ok || ing.Deleted {
			return nil, apperr.NotFound("ingredient", line.IngredientID)
		}
		unit, err := CostPerUsageUnit(ing)
		if err != nil {
			return nil, err
		}
		out = append(out, CostedLine{Line: line, IngredientName: ing.Name, CostPerUsageUnit: unit})
	}
	return out, nil
}

// ValidateMenuItem checks a menu item before it is stored. Items are sold, so the selling price
// must be positive.
func ValidateMenuItem(item models.MenuItem) error {
	if item.SellingPrice <= 0 {
		return apperr.Validation("selling_price", "must be positive")
	}
	return validateCostInputs(item)
}

// validateCostInputs checks the fields the cost breakdown depends on. A zero selling price is
// tolerated here and yields nil ratios.
func validateCostInputs(item models.MenuItem) error {
	switch {
	case item.SellingPrice < 0:
		return apperr.Validation("selling_price", "must not be negative")
	case item.QFactor < 0:
		return apperr.Validation("q_factor", "must not be negative")
	case item.EstimatedPrepTimeMinutes < 0:
		return apperr.Validation("estimated_prep_time_minutes", "must not be negative")
	}
	return nil
}

// UpsertRecipeLine adds line to lines or, when the (menu item, ingredient) pair already exists,
// replaces its quantity.
func UpsertRecipeLine(lines []models.RecipeLine, line models.RecipeLine) ([]models.RecipeLine, error) {
	if line.MenuItemID == "" || line.IngredientID == "" {
		return nil, apperr.Validation("recipe_line", "menu item and ingredient are required")
	}
	if line.QuantityUsed <= 0 {
		return nil, apperr.Validation("quantity_used", "must be positive")
	}

	out := make([]models.RecipeLine, 0, len(lines)+1)
	replaced := false
	for _, existing := range lines {
		if existing.MenuItemID == line.MenuItemID && existing.IngredientID == line.IngredientID {
			existing.QuantityUsed = line.QuantityUsed
			replaced = true
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append(out, line)
	}
	return out, nil
}
