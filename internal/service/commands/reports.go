package commands

import (
	"context"
	"fmt"

	"github.com/mamadbah2/kitchenledger/internal/domain/models"
	"github.com/mamadbah2/kitchenledger/internal/repository"
	"github.com/mamadbah2/kitchenledger/internal/service/costing"
	"github.com/mamadbah2/kitchenledger/internal/service/reporting"
)

// MenuEngineering is the menu performance matrix plus the items over their food-cost target.
type MenuEngineering struct {
	Range  reporting.Range             `json:"range"`
	Items  []reporting.MenuPerformance `json:"items"`
	Alerts []reporting.MenuPerformance `json:"alerts"`
}

// PeriodReport computes the P&L of r, with a comparison window when mode is set.
func (s *Service) PeriodReport(ctx context.Context, r reporting.Range, mode reporting.CompareMode) (reporting.PeriodReport, error) {
	window := r
	if mode != reporting.CompareNone {
		prev, err := reporting.ResolveComparison(r, mode)
		if err != nil {
			return reporting.PeriodReport{}, err
		}
		window = r.Union(prev)
	}

	in, err := loadInput(ctx, s.store, window)
	if err != nil {
		return reporting.PeriodReport{}, err
	}
	report, err := s.reports.BuildPeriodReport(in, r, mode)
	if err != nil {
		return reporting.PeriodReport{}, err
	}
	s.reports.LogSkipped(report)
	return report, nil
}

// CashFlow projects weekly cash in and out over r from an opening balance.
func (s *Service) CashFlow(ctx context.Context, r reporting.Range, openingBalance float64) ([]reporting.CashFlowWeek, error) {
	in, err := loadInput(ctx, s.store, r)
	if err != nil {
		return nil, err
	}
	return s.reports.CashFlow(in, r, openingBalance)
}

// DailySummary reports revenue and spend for every day of r.
func (s *Service) DailySummary(ctx context.Context, r reporting.Range) ([]reporting.DaySummary, error) {
	in, err := loadInput(ctx, s.store, r)
	if err != nil {
		return nil, err
	}
	return s.reports.DailySummary(in, r)
}

// VendorAnalysis ranks vendors by spend over r.
func (s *Service) VendorAnalysis(ctx context.Context, r reporting.Range) ([]reporting.VendorSpend, error) {
	in, err := loadInput(ctx, s.store, r)
	if err != nil {
		return nil, err
	}
	return s.reports.VendorAnalysis(in, r), nil
}

// BudgetVsActual compares category spend over r with budgets keyed by category ID.
func (s *Service) BudgetVsActual(ctx context.Context, r reporting.Range, budgets map[string]float64) ([]reporting.BudgetLine, error) {
	in, err := loadInput(ctx, s.store, r)
	if err != nil {
		return nil, err
	}
	return s.reports.BudgetVsActual(in, r, budgets), nil
}

// MenuEngineering classifies every menu item over r and flags those over target cost.
func (s *Service) MenuEngineering(ctx context.Context, r reporting.Range) (MenuEngineering, error) {
	in, err := loadInput(ctx, s.store, r)
	if err != nil {
		return MenuEngineering{}, err
	}
	perf, err := s.reports.MenuPerformance(in, r)
	if err != nil {
		return MenuEngineering{}, err
	}
	items := reporting.ClassifyMenu(perf)
	return MenuEngineering{Range: r, Items: items, Alerts: reporting.FoodCostAlerts(items)}, nil
}

// loadInput reads everything a report over r needs. Recipes are costed at current prices.
func loadInput(ctx context.Context, store repository.Store, r reporting.Range) (reporting.Input, error) {
	items, err := store.ListMenuItems(ctx)
	if err != nil {
		return reporting.Input{}, fmt.Errorf("load menu items: %w", err)
	}
	ingredients, err := ingredientIndex(ctx, store)
	if err != nil {
		return reporting.Input{}, err
	}
	lines, err := store.ListRecipeLines(ctx, "")
	if err != nil {
		return reporting.Input{}, fmt.Errorf("load recipe lines: %w", err)
	}

	in := reporting.Input{
		MenuItems:  make(map[string]models.MenuItem, len(items)),
		Recipes:    make(map[string][]costing.CostedLine),
		Categories: make(map[string]models.Category),
		Vendors:    make(map[string]models.Vendor),
	}
	for _, item := range items {
		in.MenuItems[item.ID] = item
	}

	byItem := make(map[string][]models.RecipeLine)
	for _, l := range lines {
		byItem[l.MenuItemID] = append(byItem[l.MenuItemID], l)
	}
	for id, recipe := range byItem {
		costed, err := costing.CostLines(recipe, ingredients)
		if err != nil {
			return reporting.Input{}, fmt.Errorf("cost recipe %s: %w", id, err)
		}
		in.Recipes[id] = costed
	}

	if in.Sales, err = store.ListSales(ctx, r.Start, r.End); err != nil {
		return reporting.Input{}, fmt.Errorf("load sales: %w", err)
	}
	if in.Expenses, err = store.ListExpenses(ctx, r.Start, r.End); err != nil {
		return reporting.Input{}, fmt.Errorf("load expenses: %w", err)
	}
	if in.Payroll, err = store.ListPayroll(ctx, r.Start, r.End); err != nil {
		return reporting.Input{}, fmt.Errorf("load payroll: %w", err)
	}

	cats, err := store.ListCategories(ctx)
	if err != nil {
		return reporting.Input{}, fmt.Errorf("load categories: %w", err)
	}
	for _, c := range cats {
		in.Categories[c.ID] = c
	}
	vendors, err := store.ListVendors(ctx)
	if err != nil {
		return reporting.Input{}, fmt.Errorf("load vendors: %w", err)
	}
	for _, v := range vendors {
		in.Vendors[v.ID] = v
	}
	return in, nil
}
