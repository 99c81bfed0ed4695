package postgres

import (
	"context"
	"time"

	"github.com/mamadbah2/kitchenledger/internal/domain/apperr"
	"github.com/mamadbah2/kitchenledger/internal/domain/models"
)

const ingredientColumns = `id, name, vendor_id, purchase_price, purchase_unit, usage_unit,
	unit_conversion_factor, yield_percent, last_price_update, deleted`

func scanIngredient(row scanner) (models.Ingredient, error) {
	var ing models.Ingredient
	err := row.Scan(&ing.ID, &ing.Name, &ing.VendorID, &ing.PurchasePrice, &ing.PurchaseUnit, &ing.UsageUnit,
		&ing.UnitConversionFactor, &ing.YieldPercent, &ing.LastPriceUpdate, &ing.Deleted)
	ing.LastPriceUpdate = utcPtr(ing.LastPriceUpdate)
	return ing, err
}

func (s *Store) GetIngredient(ctx context.Context, id string) (models.Ingredient, error) {
	ing, err := scanIngredient(s.db.QueryRow(ctx, `SELECT `+ingredientColumns+` FROM ingredients WHERE id = $1`, id))
	if err != nil {
		return models.Ingredient{}, lookupErr(err, "ingredient", id)
	}
	return ing, nil
}

func (s *Store) ListIngredients(ctx context.Context) ([]models.Ingredient, error) {
	rows, err := s.db.Query(ctx, `SELECT `+ingredientColumns+` FROM ingredients ORDER BY id`)
	return collect(rows, err, scanIngredient)
}

func (s *Store) SaveIngredient(ctx context.Context, ing models.Ingredient) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO ingredients (`+ingredientColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			vendor_id = EXCLUDED.vendor_id,
			purchase_price = EXCLUDED.purchase_price,
			purchase_unit = EXCLUDED.purchase_unit,
			usage_unit = EXCLUDED.usage_unit,
			unit_conversion_factor = EXCLUDED.unit_conversion_factor,
			yield_percent = EXCLUDED.yield_percent,
			last_price_update = EXCLUDED.last_price_update,
			deleted = EXCLUDED.deleted
	`, ing.ID, ing.Name, ing.VendorID, ing.PurchasePrice, ing.PurchaseUnit, ing.UsageUnit,
		ing.UnitConversionFactor, ing.YieldPercent, ing.LastPriceUpdate, ing.Deleted)
	return err
}

const menuItemColumns = `id, name, category, selling_price, q_factor, target_cost_percent, estimated_prep_time_minutes`

func scanMenuItem(row scanner) (models.MenuItem, error) {
	var item models.MenuItem
	err := row.Scan(&item.ID, &item.Name, &item.Category, &item.SellingPrice, &item.QFactor,
		&item.TargetCostPercent, &item.EstimatedPrepTimeMinutes)
	return item, err
}

func (s *Store) GetMenuItem(ctx context.Context, id string) (models.MenuItem, error) {
	item, err := scanMenuItem(s.db.QueryRow(ctx, `SELECT `+menuItemColumns+` FROM menu_items WHERE id = $1`, id))
	if err != nil {
		return models.MenuItem{}, lookupErr(err, "menu item", id)
	}
	return item, nil
}

func (s *Store) ListMenuItems(ctx context.Context) ([]models.MenuItem, error) {
	rows, err := s.db.Query(ctx, `SELECT `+menuItemColumns+` FROM menu_items ORDER BY id`)
	return collect(rows, err, scanMenuItem)
}

func (s *Store) SaveMenuItem(ctx context.Context, item models.MenuItem) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO menu_items (`+menuItemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			selling_price = EXCLUDED.selling_price,
			q_factor = EXCLUDED.q_factor,
			target_cost_percent = EXCLUDED.target_cost_percent,
			estimated_prep_time_minutes = EXCLUDED.estimated_prep_time_minutes
	`, item.ID, item.Name, item.Category, item.SellingPrice, item.QFactor, item.TargetCostPercent, item.EstimatedPrepTimeMinutes)
	return err
}

func scanRecipeLine(row scanner) (models.RecipeLine, error) {
	var l models.RecipeLine
	err := row.Scan(&l.MenuItemID, &l.IngredientID, &l.QuantityUsed)
	return l, err
}

func (s *Store) ListRecipeLines(ctx context.Context, menuItemID string) ([]models.RecipeLine, error) {
	rows, err := s.db.Query(ctx, `
		SELECT menu_item_id, ingredient_id, quantity_used
		FROM recipe_lines
		WHERE $1 = '' OR menu_item_id = $1
		ORDER BY menu_item_id, ingredient_id
	`, menuItemID)
	return collect(rows, err, scanRecipeLine)
}

func (s *Store) UpsertRecipeLine(ctx context.Context, line models.RecipeLine) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO recipe_lines (menu_item_id, ingredient_id, quantity_used)
		VALUES ($1, $2, $3)
		ON CONFLICT (menu_item_id, ingredient_id) DO UPDATE SET quantity_used = EXCLUDED.quantity_used
	`, line.MenuItemID, line.IngredientID, line.QuantityUsed)
	return err
}

func (s *Store) DeleteRecipeLine(ctx context.Context, menuItemID, ingredientID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM recipe_lines WHERE menu_item_id = $1 AND ingredient_id = $2`, menuItemID, ingredientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("recipe line", menuItemID+"/"+ingredientID)
	}
	return nil
}

func (s *Store) UpsertSales(ctx context.Context, rec models.SalesRecord) error {
	if rec.QuantitySold == 0 {
		_, err := s.db.Exec(ctx, `DELETE FROM sales WHERE sale_date = $1 AND menu_item_id = $2`, rec.Date, rec.MenuItemID)
		return err
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO sales (sale_date, menu_item_id, quantity_sold, discounts)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (sale_date, menu_item_id) DO UPDATE SET
			quantity_sold = EXCLUDED.quantity_sold,
			discounts = EXCLUDED.discounts
	`, rec.Date, rec.MenuItemID, rec.QuantitySold, rec.Discounts)
	return err
}

func (s *Store) ListSales(ctx context.Context, start, end time.Time) ([]models.SalesRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT sale_date, menu_item_id, quantity_sold, discounts
		FROM sales
		WHERE sale_date BETWEEN $1 AND $2
		ORDER BY sale_date, menu_item_id
	`, start, end)
	return collect(rows, err, func(row scanner) (models.SalesRecord, error) {
		var rec models.SalesRecord
		err := row.Scan(&rec.Date, &rec.MenuItemID, &rec.QuantitySold, &rec.Discounts)
		rec.Date = rec.Date.UTC()
		return rec, err
	})
}
