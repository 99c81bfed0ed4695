package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/domain/apperr"
	"github.com/mamadbah2/kitchenledger/internal/domain/models"
	"github.com/mamadbah2/kitchenledger/internal/repository"
	"github.com/mamadbah2/kitchenledger/internal/service/mapping"
	"github.com/mamadbah2/kitchenledger/pkg/money"
)

// ApplyRequest selects the lines to map: every line of one expense, or an explicit list.
type ApplyRequest struct {
	ExpenseID string   `json:"expense_id"`
	LineIDs   []string `json:"line_ids"`
}

// SaveVendor stores a vendor.
func (s *Service) SaveVendor(ctx context.Context, v models.Vendor) (models.Vendor, error) {
	v.Name = strings.TrimSpace(v.Name)
	if v.Name == "" {
		return models.Vendor{}, apperr.Validation("name", "is required")
	}
	if v.ID == "" {
		v.ID = s.newID()
	}
	if err := s.store.SaveVendor(ctx, v); err != nil {
		return models.Vendor{}, fmt.Errorf("save vendor: %w", err)
	}
	return v, nil
}

// SaveCategory stores an expense category.
func (s *Service) SaveCategory(ctx context.Context, c models.Category) (models.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return models.Category{}, apperr.Validation("name", "is required")
	}
	switch c.Group {
	case "":
		c.Group = models.GroupOperating
	case models.GroupOperating, models.GroupMarketing, models.GroupCOGS, models.GroupOther:
	default:
		return models.Category{}, apperr.Validation("group", "unknown category group "+string(c.Group))
	}
	if c.ID == "" {
		c.ID = s.newID()
	}
	if err := s.store.SaveCategory(ctx, c); err != nil {
		return models.Category{}, fmt.Errorf("save category: %w", err)
	}
	return c, nil
}

// SaveMappingRule validates and stores a mapping rule for a known vendor. The Active flag is
// stored as given.
func (s *Service) SaveMappingRule(ctx context.Context, rule models.MappingRule) (models.MappingRule, error) {
	if rule.VendorID == "" {
		return models.MappingRule{}, apperr.Validation("vendor_id", "is required")
	}
	if err := mapping.ValidateRule(rule); err != nil {
		return models.MappingRule{}, err
	}
	if rule.MatchType == models.MatchRegex {
		if err := s.mapper.CheckPattern(rule.MatchValue); err != nil {
			return models.MappingRule{}, err
		}
	}
	if rule.ID == "" {
		rule.ID = s.newID()
	}
	if err := s.store.SaveMappingRule(ctx, rule); err != nil {
		return models.MappingRule{}, fmt.Errorf("save mapping rule: %w", err)
	}
	return rule, nil
}

// SaveExpense stores an expense with its lines. Lines inherit the expense and vendor IDs and a
// missing line total is derived from quantity × unit price. A line that already exists keeps its
// stored mapping, confidence and lock; only MapLine, UnlockLine and ApplyMappings change those.
// An expense behind a posted invoice cannot be changed.
func (s *Service) SaveExpense(ctx context.Context, exp models.Expense) (models.Expense, error) {
	if exp.VendorID == "" {
		return models.Expense{}, apperr.Validation("vendor_id", "is required")
	}
	if exp.Date.IsZero() {
		return models.Expense{}, apperr.Validation("date", "is required")
	}
	if exp.ID == "" {
		exp.ID = s.newID()
	}
	exp.Date = dateOnly(exp.Date)

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		if err := guardPosted(ctx, tx, "update", exp.ID); err != nil {
			return err
		}
		stored := make(map[string]models.ExpenseLineItem)
		prev, err := tx.GetExpense(ctx, exp.ID)
		switch {
		case err == nil:
			for _, l := range prev.Lines {
				stored[l.ID] = l
			}
		case !errors.Is(err, apperr.ErrNotFound):
			return fmt.Errorf("load expense: %w", err)
		}

		for i := range exp.Lines {
			line := &exp.Lines[i]
			if line.ID == "" {
				line.ID = s.newID()
			}
			line.ExpenseID = exp.ID
			line.VendorID = exp.VendorID
			if line.LineTotal == 0 && line.Quantity != 0 {
				line.LineTotal = money.Mul(line.Quantity, line.UnitPrice)
			}
			if old, ok := stored[line.ID]; ok {
				line.MappedIngredientID = old.MappedIngredientID
				line.MappedCategoryID = old.MappedCategoryID
				line.MappingConfidence = old.MappingConfidence
				line.Locked = old.Locked
			}
			if err := validateLineMapping(*line); err != nil {
				return err
			}
		}

		if err := tx.SaveExpense(ctx, exp); err != nil {
			return fmt.Errorf("save expense: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Expense{}, err
	}
	return exp, nil
}

func validateLineMapping(line models.ExpenseLineItem) error {
	mapped := line.MappedIngredientID != "" || line.MappedCategoryID != ""
	switch {
	case line.MappedIngredientID != "" && line.MappedCategoryID != "":
		return apperr.Validation("lines", "line "+line.ID+" maps to both an ingredient and a category")
	case line.MappingConfidence < 0 || line.MappingConfidence > 1:
		return apperr.Validation("lines", "line "+line.ID+" mapping confidence must be within [0, 1]")
	case !mapped && line.MappingConfidence != 0:
		return apperr.Validation("lines", "line "+line.ID+" has a mapping confidence but no mapping")
	}
	return nil
}

// guardPosted reports a ConflictError when a posted invoice was raised for one of the expenses.
func guardPosted(ctx context.Context, store repository.Store, action string, expenseIDs ...string) error {
	seen := make(map[string]struct{}, len(expenseIDs))
	for _, id := range expenseIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		invoices, err := store.ListInvoicesByExpense(ctx, id)
		if err != nil {
			return fmt.Errorf("load invoices: %w", err)
		}
		for _, inv := range invoices {
			if inv.Status == models.InvoicePosted {
				return apperr.Conflict("expense", id, "posted", action)
			}
		}
	}
	return nil
}

// ApplyMappings runs the auto-mapper over the selected lines and persists the result in one
// transaction. Locked lines are never written.
func (s *Service) ApplyMappings(ctx context.Context, req ApplyRequest) (mapping.BatchResult, error) {
	if (req.ExpenseID == "") == (len(req.LineIDs) == 0) {
		return mapping.BatchResult{}, apperr.Validation("request", "exactly one of expense_id or line_ids is required")
	}

	var out mapping.BatchResult
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var lines []models.ExpenseLineItem
		if req.ExpenseID != "" {
			exp, err := tx.GetExpense(ctx, req.ExpenseID)
			if err != nil {
				return err
			}
			lines = exp.Lines
		} else {
			var err error
			if lines, err = tx.GetExpenseLines(ctx, req.LineIDs); err != nil {
				return err
			}
		}

		expenseIDs := make([]string, 0, len(lines))
		for _, l := range lines {
			expenseIDs = append(expenseIDs, l.ExpenseID)
		}
		if err := guardPosted(ctx, tx, "remap", expenseIDs...); err != nil {
			return err
		}

		rules, err := tx.ListMappingRules(ctx, "")
		if err != nil {
			return fmt.Errorf("load mapping rules: %w", err)
		}
		catalog, err := loadCatalog(ctx, tx)
		if err != nil {
			return err
		}

		out = s.mapper.Apply(lines, rules, catalog)
		for _, line := range out.Lines {
			if line.Locked {
				continue
			}
			if err := tx.UpdateLineMapping(ctx, line); err != nil {
				return fmt.Errorf("save line mapping: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return mapping.BatchResult{}, err
	}

	s.logger.Info("mappings applied",
		zap.String("expense_id", req.ExpenseID),
		zap.Int("applied", out.Applied),
		zap.Int("total", out.Total))
	return out, nil
}

// MapLine maps a line by hand to an ingredient or a category and locks it against the
// auto-mapper.
func (s *Service) MapLine(ctx context.Context, lineID, ingredientID, categoryID string) (models.ExpenseLineItem, error) {
	if (ingredientID == "") == (categoryID == "") {
		return models.ExpenseLineItem{}, apperr.Validation("target", "exactly one of ingredient_id or category_id is required")
	}

	var out models.ExpenseLineItem
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		line, err := singleLine(ctx, tx, lineID)
		if err != nil {
			return err
		}
		if err := guardPosted(ctx, tx, "remap", line.ExpenseID); err != nil {
			return err
		}
		catalog, err := loadCatalog(ctx, tx)
		if err != nil {
			return err
		}
		if ingredientID != "" {
			if ing, ok := catalog.Ingredients[ingredientID]; !ok || ing.Deleted {
				return apperr.NotFound("ingredient", ingredientID)
			}
		} else if cat, ok := catalog.Categories[categoryID]; !ok || cat.Deleted {
			return apperr.NotFound("category", categoryID)
		}

		line.MappedIngredientID = ingredientID
		line.MappedCategoryID = categoryID
		line.MappingConfidence = 1
		line.Locked = true
		if err := tx.UpdateLineMapping(ctx, line); err != nil {
			return fmt.Errorf("save line mapping: %w", err)
		}
		out = line
		return nil
	})
	return out, err
}

// UnlockLine hands a line back to the auto-mapper. Its current mapping stays until the next
// ApplyMappings run.
func (s *Service) UnlockLine(ctx context.Context, lineID string) (models.ExpenseLineItem, error) {
	var out models.ExpenseLineItem
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		line, err := singleLine(ctx, tx, lineID)
		if err != nil {
			return err
		}
		if err := guardPosted(ctx, tx, "unlock", line.ExpenseID); err != nil {
			return err
		}
		line.Locked = false
		if err := tx.UpdateLineMapping(ctx, line); err != nil {
			return fmt.Errorf("save line mapping: %w", err)
		}
		out = line
		return nil
	})
	return out, err
}

// SuggestIngredients proposes ingredients for a line, best first.
func (s *Service) SuggestIngredients(ctx context.Context, lineID string, n int) ([]mapping.Suggestion, error) {
	line, err := singleLine(ctx, s.store, lineID)
	if err != nil {
		return nil, err
	}
	ings, err := s.store.ListIngredients(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ingredients: %w", err)
	}
	if n <= 0 {
		n = 5
	}
	return mapping.Suggest(line, ings, n), nil
}

func singleLine(ctx context.Context, store repository.Store, id string) (models.ExpenseLineItem, error) {
	lines, err := store.GetExpenseLines(ctx, []string{id})
	if err != nil {
		return models.ExpenseLineItem{}, err
	}
	return lines[0], nil
}

func loadCatalog(ctx context.Context, store repository.Store) (mapping.Catalog, error) {
	ingredients, err := ingredientIndex(ctx, store)
	if err != nil {
		return mapping.Catalog{}, err
	}
	cats, err := store.ListCategories(ctx)
	if err != nil {
		return mapping.Catalog{}, fmt.Errorf("load categories: %w", err)
	}
	categories := make(map[string]models.Category, len(cats))
	for _, c := range cats {
		categories[c.ID] = c
	}
	return mapping.Catalog{Ingredients: ingredients, Categories: categories}, nil
}
