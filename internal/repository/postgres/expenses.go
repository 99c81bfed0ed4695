package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mamadbah2/kitchenledger/internal/domain/apperr"
	"github.com/mamadbah2/kitchenledger/internal/domain/models"
)

const lineColumns = `id, expense_id, vendor_id, raw_vendor_code, raw_description, quantity, unit_price,
	line_total, mapped_ingredient_id, mapped_category_id, mapping_confidence, locked`

func scanLine(row scanner) (models.ExpenseLineItem, error) {
	var l models.ExpenseLineItem
	err := row.Scan(&l.ID, &l.ExpenseID, &l.VendorID, &l.RawVendorCode, &l.RawDescription, &l.Quantity, &l.UnitPrice,
		&l.LineTotal, &l.MappedIngredientID, &l.MappedCategoryID, &l.MappingConfidence, &l.Locked)
	return l, err
}

func (s *Store) GetExpense(ctx context.Context, id string) (models.Expense, error) {
	var exp models.Expense
	err := s.db.QueryRow(ctx, `SELECT id, vendor_id, expense_date FROM expenses WHERE id = $1`, id).
		Scan(&exp.ID, &exp.VendorID, &exp.Date)
	if err != nil {
		return models.Expense{}, lookupErr(err, "expense", id)
	}
	exp.Date = exp.Date.UTC()

	rows, err := s.db.Query(ctx, `SELECT `+lineColumns+` FROM expense_lines WHERE expense_id = $1 ORDER BY position`, id)
	if exp.Lines, err = collect(rows, err, scanLine); err != nil {
		return models.Expense{}, err
	}
	return exp, nil
}

// SaveExpense replaces the expense and all of its lines.
func (s *Store) SaveExpense(ctx context.Context, exp models.Expense) error {
	return s.atomic(ctx, func(db querier) error {
		if _, err := db.Exec(ctx, `
			INSERT INTO expenses (id, vendor_id, expense_date) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET vendor_id = EXCLUDED.vendor_id, expense_date = EXCLUDED.expense_date
		`, exp.ID, exp.VendorID, exp.Date); err != nil {
			return err
		}
		if _, err := db.Exec(ctx, `DELETE FROM expense_lines WHERE expense_id = $1`, exp.ID); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for i, l := range exp.Lines {
			batch.Queue(`
				INSERT INTO expense_lines (`+lineColumns+`, position)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			`, l.ID, exp.ID, l.VendorID, l.RawVendorCode, l.RawDescription, l.Quantity, l.UnitPrice,
				l.LineTotal, l.MappedIngredientID, l.MappedCategoryID, l.MappingConfidence, l.Locked, i)
		}
		return sendBatch(ctx, db, batch)
	})
}

func (s *Store) ListExpenses(ctx context.Context, start, end time.Time) ([]models.Expense, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, vendor_id, expense_date FROM expenses
		WHERE expense_date BETWEEN $1 AND $2
		ORDER BY expense_date, id
	`, start, end)
	expenses, err := collect(rows, err, func(row scanner) (models.Expense, error) {
		var exp models.Expense
		err := row.Scan(&exp.ID, &exp.VendorID, &exp.Date)
		exp.Date = exp.Date.UTC()
		return exp, err
	})
	if err != nil || len(expenses) == 0 {
		return expenses, err
	}

	rows, err = s.db.Query(ctx, `
		SELECT `+lineColumns+` FROM expense_lines l
		WHERE l.expense_id IN (SELECT id FROM expenses WHERE expense_date BETWEEN $1 AND $2)
		ORDER BY l.expense_id, l.position
	`, start, end)
	lines, err := collect(rows, err, scanLine)
	if err != nil {
		return nil, err
	}
	byExpense := make(map[string][]models.ExpenseLineItem, len(expenses))
	for _, l := range lines {
		byExpense[l.ExpenseID] = append(byExpense[l.ExpenseID], l)
	}
	for i := range expenses {
		expenses[i].Lines = byExpense[expenses[i].ID]
	}
	return expenses, nil
}

// GetExpenseLines returns the lines in the order of ids.
func (s *Store) GetExpenseLines(ctx context.Context, ids []string) ([]models.ExpenseLineItem, error) {
	rows, err := s.db.Query(ctx, `SELECT `+lineColumns+` FROM expense_lines WHERE id = ANY($1)`, ids)
	lines, err := collect(rows, err, scanLine)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.ExpenseLineItem, len(lines))
	for _, l := range lines {
		byID[l.ID] = l
	}
	out := make([]models.ExpenseLineItem, 0, len(ids))
	for _, id := range ids {
		l, ok := byID[id]
		if !ok {
			return nil, apperr.NotFound("expense line", id)
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *Store) UpdateLineMapping(ctx context.Context, line models.ExpenseLineItem) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE expense_lines
		SET mapped_ingredient_id = $2, mapped_category_id = $3, mapping_confidence = $4, locked = $5
		WHERE id = $1
	`, line.ID, line.MappedIngredientID, line.MappedCategoryID, line.MappingConfidence, line.Locked)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("expense line", line.ID)
	}
	return nil
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, category_group, schedule_c_line, deleted FROM categories ORDER BY id`)
	return collect(rows, err, func(row scanner) (models.Category, error) {
		var c models.Category
		err := row.Scan(&c.ID, &c.Name, &c.Group, &c.ScheduleCLine, &c.Deleted)
		return c, err
	})
}

func (s *Store) SaveCategory(ctx context.Context, c models.Category) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO categories (id, name, category_group, schedule_c_line, deleted)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category_group = EXCLUDED.category_group,
			schedule_c_line = EXCLUDED.schedule_c_line,
			deleted = EXCLUDED.deleted
	`, c.ID, c.Name, c.Group, c.ScheduleCLine, c.Deleted)
	return err
}

func (s *Store) ListVendors(ctx context.Context) ([]models.Vendor, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, is_1099_eligible FROM vendors ORDER BY id`)
	return collect(rows, err, func(row scanner) (models.Vendor, error) {
		var v models.Vendor
		err := row.Scan(&v.ID, &v.Name, &v.Is1099Eligible)
		return v, err
	})
}

func (s *Store) SaveVendor(ctx context.Context, v models.Vendor) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO vendors (id, name, is_1099_eligible) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, is_1099_eligible = EXCLUDED.is_1099_eligible
	`, v.ID, v.Name, v.Is1099Eligible)
	return err
}

func (s *Store) ListMappingRules(ctx context.Context, vendorID string) ([]models.MappingRule, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, vendor_id, match_type, match_value, ingredient_id, category_id, active, priority
		FROM mapping_rules
		WHERE $1 = '' OR vendor_id = $1
		ORDER BY vendor_id, priority, id
	`, vendorID)
	return collect(rows, err, func(row scanner) (models.MappingRule, error) {
		var r models.MappingRule
		err := row.Scan(&r.ID, &r.VendorID, &r.MatchType, &r.MatchValue, &r.IngredientID, &r.CategoryID, &r.Active, &r.Priority)
		return r, err
	})
}

func (s *Store) SaveMappingRule(ctx context.Context, r models.MappingRule) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO mapping_rules (id, vendor_id, match_type, match_value, ingredient_id, category_id, active, priority)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			vendor_id = EXCLUDED.vendor_id,
			match_type = EXCLUDED.match_type,
			match_value = EXCLUDED.match_value,
			ingredient_id = EXCLUDED.ingredient_id,
			category_id = EXCLUDED.category_id,
			active = EXCLUDED.active,
			priority = EXCLUDED.priority
	`, r.ID, r.VendorID, r.MatchType, r.MatchValue, r.IngredientID, r.CategoryID, r.Active, r.Priority)
	return err
}
