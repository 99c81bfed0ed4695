package costing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/kitchenledger/internal/domain/apperr"
	"github.com/mamadbah2/kitchenledger/internal/domain/models"
)

func chickenBreast() models.Ingredient {
	return models.Ingredient{
		ID:                   "ing-chicken",
		Name:                 "Chicken breast",
		PurchasePrice:        8.50,
		PurchaseUnit:         "lb",
		UsageUnit:            "oz",
		UnitConversionFactor: 16,
		YieldPercent:         1.0,
	}
}

func TestCostPerUsageUnit(t *testing.T) {
	t.Parallel()

	cost, err := CostPerUsageUnit(chickenBreast())
	require.NoError(t, err)
	require.InDelta(t, 0.53125, cost, 1e-9)

	trimmed := chickenBreast()
	trimmed.YieldPercent = 0.8
	cost, err = CostPerUsageUnit(trimmed)
	require.NoError(t, err)
	require.InDelta(t, 0.6640625, cost, 1e-9)
}

func TestCostPerUsageUnitRejectsInvalidIngredients(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*models.Ingredient)
	}{
		{name: "zero conversion factor", mutate: func(i *models.Ingredient) { i.UnitConversionFactor = 0 }},
		{name: "negative conversion factor", mutate: func(i *models.Ingredient) { i.UnitConversionFactor = -2 }},
		{name: "zero yield", mutate: func(i *models.Ingredient) { i.YieldPercent = 0 }},
		{name: "yield above one", mutate: func(i *models.Ingredient) { i.YieldPercent = 1.2 }},
		{name: "negative price", mutate: func(i *models.Ingredient) { i.PurchasePrice = -1 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ing := chickenBreast()
			tc.mutate(&ing)

			_, err := CostPerUsageUnit(ing)
			require.ErrorIs(t, err, apperr.ErrValidation)

			var invalid *apperr.InvalidIngredientError
			require.ErrorAs(t, err, &invalid)
			require.Equal(t, "ing-chicken", invalid.IngredientID)
		})
	}
}

func TestUpdatePriceStampsStalenessClock(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	updated, err := UpdatePrice(chickenBreast(), 9.25, now)
	require.NoError(t, err)
	require.Equal(t, 9.25, updated.PurchasePrice)
	require.NotNil(t, updated.LastPriceUpdate)
	require.True(t, updated.LastPriceUpdate.Equal(now))

	_, err = UpdatePrice(chickenBreast(), 0, now)
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestStaleIngredients(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	at := func(daysAgo int) *time.Time {
		ts := now.AddDate(0, 0, -daysAgo)
		return &ts
	}

	ingredients := []models.Ingredient{
		{ID: "fresh", LastPriceUpdate: at(3)},
		{ID: "old", LastPriceUpdate: at(45)},
		{ID: "older", LastPriceUpdate: at(90)},
		{ID: "never"},
		{ID: "gone", Deleted: true},
	}

	stale := StaleIngredients(ingredients, now, 30)
	require.Len(t, stale, 3)
	require.Equal(t, "never", stale[0].Ingredient.ID)
	require.Equal(t, -1, stale[0].DaysSinceUpdate)
	require.Equal(t, "older", stale[1].Ingredient.ID)
	require.Equal(t, 90, stale[1].DaysSinceUpdate)
	require.Equal(t, "old", stale[2].Ingredient.ID)

	require.Len(t, StaleIngredients(ingredients, now, 0), 3, "zero window falls back to the default")
	require.Len(t, StaleIngredients(ingredients, now, 60), 2)
}

func TestAggregateScenario(t *testing.T) {
	t.Parallel()

	item := models.MenuItem{
		ID:                       "menu-grilled-chicken",
		SellingPrice:             16.00,
		QFactor:                  0.05,
		EstimatedPrepTimeMinutes: 12,
	}
	lines, err := CostLines(
		[]models.RecipeLine{{MenuItemID: item.ID, IngredientID: "ing-chicken", QuantityUsed: 4.5}},
		map[string]models.Ingredient{"ing-chicken": chickenBreast()},
	)
	require.NoError(t, err)

	cost, err := NewAggregator(20).Aggregate(item, lines)
	require.NoError(t, err)

	require.Equal(t, 2.39, cost.IngredientCost)
	require.Equal(t, 2.44, cost.PlateCost)
	require.NotNil(t, cost.FoodCostPercent)
	require.InDelta(t, 15.25, *cost.FoodCostPercent, 0.01)
	require.Equal(t, 4.0, cost.LaborCost)
	require.Equal(t, 6.44, cost.PrimeCost)
	require.Equal(t, 13.56, cost.GrossProfit)
	require.Equal(t, 9.56, cost.NetProfit)
	require.Equal(t, 25.0, *cost.LaborCostPercent)
	require.True(t, cost.CostConfigured)
}

func TestAggregateWithoutRecipeLinesUsesQFactor(t *testing.T) {
	t.Parallel()

	item := models.MenuItem{ID: "menu-soda", SellingPrice: 3, QFactor: 0.25}
	cost, err := NewAggregator(15).Aggregate(item, nil)
	require.NoError(t, err)

	require.Equal(t, 0.25, cost.PlateCost)
	require.Equal(t, 0.0, cost.IngredientCost)
	require.False(t, cost.CostConfigured)
}

func TestAggregateGuardsZeroSellingPrice(t *testing.T) {
	t.Parallel()

	cost, err := NewAggregator(15).Aggregate(models.MenuItem{ID: "staff-meal", QFactor: 0.1}, nil)
	require.NoError(t, err)
	require.Nil(t, cost.FoodCostPercent)
	require.Nil(t, cost.PrimeCostPercent)
	require.Nil(t, cost.LaborCostPercent)
}

func TestValidateMenuItemRequiresPositivePrice(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, ValidateMenuItem(models.MenuItem{ID: "staff-meal", QFactor: 0.1}), apperr.ErrValidation)
	require.ErrorIs(t, ValidateMenuItem(models.MenuItem{ID: "m", SellingPrice: -1}), apperr.ErrValidation)
	require.ErrorIs(t, ValidateMenuItem(models.MenuItem{ID: "m", SellingPrice: 10, QFactor: -0.1}), apperr.ErrValidation)
	require.NoError(t, ValidateMenuItem(models.MenuItem{ID: "m", SellingPrice: 10, QFactor: 0.05}))
}

func TestPlateCostIsMonotonicInQuantity(t *testing.T) {
	t.Parallel()

	item := models.MenuItem{ID: "m", SellingPrice: 10, QFactor: 0.05}
	ingredients := map[string]models.Ingredient{"ing-chicken": chickenBreast()}

	previous := -1.0
	for _, qty := range []float64{0.5, 1, 2.25, 4.5, 4.5, 9, 20} {
		lines, err := CostLines([]models.RecipeLine{{MenuItemID: "m", IngredientID: "ing-chicken", QuantityUsed: qty}}, ingredients)
		require.NoError(t, err)
		plate := PlateCost(item, lines)
		require.GreaterOrEqual(t, plate, previous)
		previous = plate
	}
}

func TestCostLinesReportsMissingIngredient(t *testing.T) {
	t.Parallel()

	deleted := chickenBreast()
	deleted.Deleted = true

	_, err := CostLines([]models.RecipeLine{{MenuItemID: "m", IngredientID: "ing-chicken", QuantityUsed: 1}}, map[string]models.Ingredient{"ing-chicken": deleted})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpsertRecipeLineReplacesQuantity(t *testing.T) {
	t.Parallel()

	lines, err := UpsertRecipeLine(nil, models.RecipeLine{MenuItemID: "m", IngredientID: "a", QuantityUsed: 2})
	require.NoError(t, err)
	lines, err = UpsertRecipeLine(lines, models.RecipeLine{MenuItemID: "m", IngredientID: "b", QuantityUsed: 1})
	require.NoError(t, err)
	lines, err = UpsertRecipeLine(lines, models.RecipeLine{MenuItemID: "m", IngredientID: "a", QuantityUsed: 3.5})
	require.NoError(t, err)

	require.Len(t, lines, 2)
	require.Equal(t, 3.5, lines[0].QuantityUsed)

	_, err = UpsertRecipeLine(lines, models.RecipeLine{MenuItemID: "m", IngredientID: "a", QuantityUsed: 0})
	require.ErrorIs(t, err, apperr.ErrValidation)
}
