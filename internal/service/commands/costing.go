package commands

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/domain/apperr"
	"github.com/mamadbah2/kitchenledger/internal/domain/models"
	"github.com/mamadbah2/kitchenledger/internal/repository"
	"github.com/mamadbah2/kitchenledger/internal/service/costing"
)

// CostResult is the resolved usage-unit cost of one ingredient.
type CostResult struct {
	IngredientID     string  `json:"ingredient_id"`
	Name             string  `json:"name"`
	UsageUnit        string  `json:"usage_unit"`
	CostPerUsageUnit float64 `json:"cost_per_usage_unit"`
}

// ResolveCost computes the cost per usage unit of an ingredient.
func (s *Service) ResolveCost(ctx context.Context, ingredientID string) (CostResult, error) {
	ing, err := s.store.GetIngredient(ctx, ingredientID)
	if err != nil {
		return CostResult{}, err
	}
	if ing.Deleted {
		return CostResult{}, apperr.NotFound("ingredient", ingredientID)
	}
	cost, err := costing.CostPerUsageUnit(ing)
	if err != nil {
		return CostResult{}, err
	}
	return CostResult{IngredientID: ing.ID, Name: ing.Name, UsageUnit: ing.UsageUnit, CostPerUsageUnit: cost}, nil
}

// SaveIngredient validates and stores an ingredient. A new ingredient gets an ID and its price
// clock starts now.
func (s *Service) SaveIngredient(ctx context.Context, ing models.Ingredient) (models.Ingredient, error) {
	ing.Name = strings.TrimSpace(ing.Name)
	if ing.Name == "" {
		return models.Ingredient{}, apperr.Validation("name", "is required")
	}
	if err := costing.ValidateIngredient(ing); err != nil {
		return models.Ingredient{}, err
	}
	if ing.ID == "" {
		ing.ID = s.newID()
	}
	if ing.LastPriceUpdate == nil && ing.PurchasePrice > 0 {
		now := s.now().UTC()
		ing.LastPriceUpdate = &now
	}
	if err := s.store.SaveIngredient(ctx, ing); err != nil {
		return models.Ingredient{}, fmt.Errorf("save ingredient: %w", err)
	}
	return ing, nil
}

// DeleteIngredient soft-deletes an ingredient no recipe uses.
func (s *Service) DeleteIngredient(ctx context.Context, id string) error {
	return s.store.InTx(ctx, func(tx repository.Store) error {
		ing, err := tx.GetIngredient(ctx, id)
		if err != nil {
			return err
		}
		lines, err := tx.ListRecipeLines(ctx, "")
		if err != nil {
			return fmt.Errorf("load recipe lines: %w", err)
		}
		for _, l := range lines {
			if l.IngredientID == id {
				return apperr.Conflict("ingredient", id, "used by "+l.MenuItemID, "delete")
			}
		}
		ing.Deleted = true
		return tx.SaveIngredient(ctx, ing)
	})
}

// UpdatePrice records a new purchase price and resets the staleness clock.
func (s *Service) UpdatePrice(ctx context.Context, id string, price float64) (models.Ingredient, error) {
	var out models.Ingredient
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		ing, err := tx.GetIngredient(ctx, id)
		if err != nil {
			return err
		}
		if ing.Deleted {
			return apperr.NotFound("ingredient", id)
		}
		updated, err := costing.UpdatePrice(ing, price, s.now())
		if err != nil {
			return err
		}
		if err := tx.SaveIngredient(ctx, updated); err != nil {
			return fmt.Errorf("save ingredient: %w", err)
		}
		out = updated
		return nil
	})
	return out, err
}

// StalePrices lists ingredients whose price is older than the configured staleness window.
func (s *Service) StalePrices(ctx context.Context) ([]costing.StaleIngredient, error) {
	ings, err := s.store.ListIngredients(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ingredients: %w", err)
	}
	days := s.cfg.PriceStalenessDays
	if days <= 0 {
		days = costing.DefaultStalenessDays
	}
	return costing.StaleIngredients(ings, s.now(), days), nil
}

// SaveMenuItem validates and stores a menu item.
func (s *Service) SaveMenuItem(ctx context.Context, item models.MenuItem) (models.MenuItem, error) {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return models.MenuItem{}, apperr.Validation("name", "is required")
	}
	if err := costing.ValidateMenuItem(item); err != nil {
		return models.MenuItem{}, err
	}
	switch item.Category {
	case "":
		item.Category = models.MenuOther
	case models.MenuFood, models.MenuBeverage, models.MenuAlcohol, models.MenuCatering, models.MenuOther:
	default:
		return models.MenuItem{}, apperr.Validation("category", "unknown menu category "+string(item.Category))
	}
	if item.ID == "" {
		item.ID = s.newID()
	}
	if err := s.store.SaveMenuItem(ctx, item); err != nil {
		return models.MenuItem{}, fmt.Errorf("save menu item: %w", err)
	}
	return item, nil
}

// AggregateRecipe computes the cost breakdown of a menu item from its current recipe.
func (s *Service) AggregateRecipe(ctx context.Context, menuItemID string) (costing.RecipeCost, error) {
	return s.recipeCost(ctx, s.store, menuItemID)
}

// UpsertRecipeLine adds or replaces a recipe line and returns the recomputed breakdown.
func (s *Service) UpsertRecipeLine(ctx context.Context, line models.RecipeLine) (costing.RecipeCost, error) {
	var out costing.RecipeCost
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		if _, err := tx.GetMenuItem(ctx, line.MenuItemID); err != nil {
			return err
		}
		ing, err := tx.GetIngredient(ctx, line.IngredientID)
		if err != nil {
			return err
		}
		if ing.Deleted {
			return apperr.NotFound("ingredient", line.IngredientID)
		}
		current, err := tx.ListRecipeLines(ctx, line.MenuItemID)
		if err != nil {
			return fmt.Errorf("load recipe lines: %w", err)
		}
		if _, err := costing.UpsertRecipeLine(current, line); err != nil {
			return err
		}
		if err := tx.UpsertRecipeLine(ctx, line); err != nil {
			return fmt.Errorf("save recipe line: %w", err)
		}
		out, err = s.recipeCost(ctx, tx, line.MenuItemID)
		return err
	})
	return out, err
}

// RemoveRecipeLine deletes one ingredient from a recipe and returns the recomputed breakdown.
func (s *Service) RemoveRecipeLine(ctx context.Context, menuItemID, ingredientID string) (costing.RecipeCost, error) {
	var out costing.RecipeCost
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.DeleteRecipeLine(ctx, menuItemID, ingredientID); err != nil {
			return err
		}
		var err error
		out, err = s.recipeCost(ctx, tx, menuItemID)
		return err
	})
	return out, err
}

// UpsertSales records the quantity of a menu item sold on a day. A zero quantity removes the row.
func (s *Service) UpsertSales(ctx context.Context, rec models.SalesRecord) error {
	if rec.Date.IsZero() {
		return apperr.Validation("date", "is required")
	}
	if rec.QuantitySold < 0 {
		return apperr.Validation("quantity_sold", "must not be negative")
	}
	if rec.Discounts < 0 {
		return apperr.Validation("discounts", "must not be negative")
	}
	if rec.QuantitySold > 0 {
		if _, err := s.store.GetMenuItem(ctx, rec.MenuItemID); err != nil {
			return err
		}
	}
	rec.Date = dateOnly(rec.Date)
	if err := s.store.UpsertSales(ctx, rec); err != nil {
		return fmt.Errorf("upsert sales: %w", err)
	}
	s.logger.Debug("sales recorded",
		zap.String("menu_item_id", rec.MenuItemID),
		zap.String("date", rec.Date.Format(dateFormat)),
		zap.Int("quantity", rec.QuantitySold))
	return nil
}

func (s *Service) recipeCost(ctx context.Context, store repository.Store, menuItemID string) (costing.RecipeCost, error) {
	item, err := store.GetMenuItem(ctx, menuItemID)
	if err != nil {
		return costing.RecipeCost{}, err
	}
	lines, err := store.ListRecipeLines(ctx, menuItemID)
	if err != nil {
		return costing.RecipeCost{}, fmt.Errorf("load recipe lines: %w", err)
	}
	ingredients, err := ingredientIndex(ctx, store)
	if err != nil {
		return costing.RecipeCost{}, err
	}
	costed, err := costing.CostLines(lines, ingredients)
	if err != nil {
		return costing.RecipeCost{}, err
	}
	return s.aggregator.Aggregate(item, costed)
}

func ingredientIndex(ctx context.Context, store repository.Store) (map[string]models.Ingredient, error) {
	ings, err := store.ListIngredients(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ingredients: %w", err)
	}
	out := make(map[string]models.Ingredient, len(ings))
	for _, ing := range ings {
		out[ing.ID] = ing
	}
	return out, nil
}
