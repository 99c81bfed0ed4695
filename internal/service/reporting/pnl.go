// Package reporting rolls sales, categorized expenses and payroll into period financial
// statements. Reports are recomputed on every call and never stored.
package reporting

import (
	"sort"

	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/domain/apperr"
	"github.com/mamadbah2/kitchenledger/internal/domain/models"
	"github.com/mamadbah2/kitchenledger/internal/service/costing"
	"github.com/mamadbah2/kitchenledger/pkg/money"
)

// Input is the read snapshot a report is computed from. It must cover the comparison window
// when one is requested.
type Input struct {
	MenuItems  map[string]models.MenuItem
	Recipes    map[string][]costing.CostedLine
	Sales      []models.SalesRecord
	Expenses   []models.Expense
	Categories map[string]models.Category
	Vendors    map[string]models.Vendor
	Payroll    []models.PayrollRecord
}

// CategoryTotal is the spend on one expense category.
type CategoryTotal struct {
	CategoryID    string               `json:"category_id"`
	Name          string               `json:"name"`
	Group         models.CategoryGroup `json:"group"`
	ScheduleCLine string               `json:"schedule_c_line,omitempty"`
	Total         float64              `json:"total"`
}

// Totals are the headline figures of a period.
type Totals struct {
	GrossRevenue float64 `json:"gross_revenue"`
	NetRevenue   float64 `json:"net_revenue"`
	COGS         float64 `json:"cogs"`
	Operating    float64 `json:"operating"`
	Marketing    float64 `json:"marketing"`
	Payroll      float64 `json:"payroll"`
	NetIncome    float64 `json:"net_income"`
}

// Comparison holds the comparison window and percent changes. A change is nil when the
// previous value is zero.
type Comparison struct {
	Mode                   CompareMode `json:"mode"`
	Range                  Range       `json:"range"`
	Previous               Totals      `json:"previous"`
	RevenueChangePercent   *float64    `json:"revenue_change_percent"`
	COGSChangePercent      *float64    `json:"cogs_change_percent"`
	PayrollChangePercent   *float64    `json:"payroll_change_percent"`
	OperatingChangePercent *float64    `json:"operating_change_percent"`
	NetIncomeChangePercent *float64    `json:"net_income_change_percent"`
}

// PeriodReport is the P&L of one date range.
type PeriodReport struct {
	Range Range `json:"range"`
	Totals

	Discounts         float64                         `json:"discounts"`
	RevenueByCategory map[models.MenuCategory]float64 `json:"revenue_by_category"`
	ItemsSold         int                             `json:"items_sold"`

	PayrollWages        float64         `json:"payroll_wages"`
	PayrollTaxes        float64         `json:"payroll_taxes"`
	ExpensesByCategory  []CategoryTotal `json:"expenses_by_category"`
	IngredientPurchases float64         `json:"ingredient_purchases"`
	UnmappedExpense     float64         `json:"unmapped_expense"`

	FoodCostPercent  *float64 `json:"food_cost_percent"`
	LaborCostPercent *float64 `json:"labor_cost_percent"`
	PrimeCostPercent *float64 `json:"prime_cost_percent"`

	// UnconfiguredItems lists sold menu items without recipe lines; their COGS is q-factor only.
	UnconfiguredItems []string `json:"unconfigured_items,omitempty"`

	Comparison *Comparison `json:"comparison,omitempty"`
}

// Service builds period reports and their variations.
type Service struct {
	logger *zap.Logger
}

// NewService wires a new reporting service instance.
func NewService(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger}
}

// BuildPeriodReport computes the P&L of r and, when mode is set, its comparison window.
func (s *Service) BuildPeriodReport(in Input, r Range, mode CompareMode) (PeriodReport, error) {
	report, err := s.build(in, r)
	if err != nil {
		return PeriodReport{}, err
	}
	if mode == CompareNone {
		return report, nil
	}

	prevRange, err := ResolveComparison(r, mode)
	if err != nil {
		return PeriodReport{}, err
	}
	prev, err := s.build(in, prevRange)
	if err != nil {
		return PeriodReport{}, err
	}

	report.Comparison = &Comparison{
		Mode:                   mode,
		Range:                  prevRange,
		Previous:               prev.Totals,
		RevenueChangePercent:   money.PercentChange(report.NetRevenue, prev.NetRevenue),
		COGSChangePercent:      money.PercentChange(report.COGS, prev.COGS),
		PayrollChangePercent:   money.PercentChange(report.Payroll, prev.Payroll),
		OperatingChangePercent: money.PercentChange(report.Operating, prev.Operating),
		NetIncomeChangePercent: money.PercentChange(report.NetIncome, prev.NetIncome),
	}
	return report, nil
}

func (s *Service) build(in Input, r Range) (PeriodReport, error) {
	report := PeriodReport{
		Range:             r,
		RevenueByCategory: make(map[models.MenuCategory]float64),
	}

	rev, err := s.revenue(in, r)
	if err != nil {
		return PeriodReport{}, err
	}
	report.GrossRevenue = rev.gross.Total()
	report.Discounts = rev.discounts.Total()
	report.NetRevenue = money.Sub(report.GrossRevenue, report.Discounts)
	report.COGS = money.Round(rev.cogs)
	report.ItemsSold = rev.items
	report.UnconfiguredItems = rev.unconfigured
	for cat, acc := range rev.byCategory {
		report.RevenueByCategory[cat] = acc.Total()
	}

	exp := s.expenses(in, r)
	report.Operating = exp.operating.Total()
	report.Marketing = exp.marketing.Total()
	report.IngredientPurchases = exp.ingredients.Total()
	report.UnmappedExpense = exp.unmapped.Total()
	report.ExpensesByCategory = exp.categoryTotals()

	var wages, taxes money.Accumulator
	for _, rec := range in.Payroll {
		if !r.Overlaps(rec.PeriodStart, rec.PeriodEnd) {
			continue
		}
		wages.Add(rec.GrossPay)
		taxes.Add(rec.EmployerTaxes)
	}
	report.PayrollWages = wages.Total()
	report.PayrollTaxes = taxes.Total()
	report.Payroll = money.Sum(report.PayrollWages, report.PayrollTaxes)

	report.NetIncome = money.Sub(report.NetRevenue, report.COGS, report.Operating, report.Marketing, report.Payroll)

	report.FoodCostPercent = money.Percent(report.COGS, report.NetRevenue)
	report.LaborCostPercent = money.Percent(report.Payroll, report.NetRevenue)
	report.PrimeCostPercent = money.Percent(money.Sum(report.COGS, report.Payroll), report.NetRevenue)

	return report, nil
}

type revenueTotals struct {
	gross, discounts money.Accumulator
	byCategory       map[models.MenuCategory]*money.Accumulator
	cogs             float64
	items            int
	unconfigured     []string
}

func (s *Service) revenue(in Input, r Range) (*revenueTotals, error) {
	out := &revenueTotals{byCategory: make(map[models.MenuCategory]*money.Accumulator)}
	var cogs money.Accumulator
	seenUnconfigured := map[string]bool{}

	for _, sale := range in.Sales {
		if !r.Contains(sale.Date) {
			continue
		}
		if sale.QuantitySold <= 0 {
			s.logger.Debug("skip empty sales record", zap.String("menu_item_id", sale.MenuItemID), zap.Time("date", sale.Date))
			continue
		}
		item, ok := in.MenuItems[sale.MenuItemID]
		if !ok {
			return nil, apperr.NotFound("menu item", sale.MenuItemID)
		}

		lineRevenue := float64(sale.QuantitySold) * item.SellingPrice
		out.gross.Add(lineRevenue)
		out.discounts.Add(sale.Discounts)

		category := item.Category
		if category == "" {
			category = models.MenuOther
		}
		acc, ok := out.byCategory[category]
		if !ok {
			acc = &money.Accumulator{}
			out.byCategory[category] = acc
		}
		acc.Add(lineRevenue - sale.Discounts)

		lines := in.Recipes[item.ID]
		if len(lines) == 0 && !seenUnconfigured[item.ID] {
			seenUnconfigured[item.ID] = true
			out.unconfigured = append(out.unconfigured, item.ID)
		}
		cogs.Add(float64(sale.QuantitySold) * costing.PlateCost(item, lines))
		out.items += sale.QuantitySold
	}

	out.cogs = cogs.Total()
	sort.Strings(out.unconfigured)
	return out, nil
}

type expenseTotals struct {
	operating, marketing, ingredients, unmapped money.Accumulator
	byCategory                                  map[string]*money.Accumulator
	categories                                  map[string]models.Category
}

func (e *expenseTotals) categoryTotals() []CategoryTotal {
	out := make([]CategoryTotal, 0, len(e.byCategory))
	for id, acc := range e.byCategory {
		cat := e.categories[id]
		out = append(out, CategoryTotal{
			CategoryID:    id,
			Name:          cat.Name,
			Group:         cat.Group,
			ScheduleCLine: cat.ScheduleCLine,
			Total:         acc.Total(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out
}

// expenses splits in-range expense lines into P&L buckets. Lines mapped to ingredients are
// purchases: COGS is recognized from sales instead, so they only show up as IngredientPurchases.
func (s *Service) expenses(in Input, r Range) *expenseTotals {
	out := &expenseTotals{
		byCategory: make(map[string]*money.Accumulator),
		categories: in.Categories,
	}

	for _, exp := range in.Expenses {
		if !r.Contains(exp.Date) {
			continue
		}
		for _, line := range exp.Lines {
			switch {
			case line.MappedIngredientID != "":
				out.ingredients.Add(line.LineTotal)
			case line.MappedCategoryID != "":
				cat, ok := in.Categories[line.MappedCategoryID]
				if !ok || cat.Deleted {
					s.logger.Debug("expense line points at unknown category", zap.String("line_id", line.ID), zap.String("category_id", line.MappedCategoryID))
					out.unmapped.Add(line.LineTotal)
					continue
				}
				switch cat.Group {
				case models.GroupMarketing:
					out.marketing.Add(line.LineTotal)
				case models.GroupCOGS:
					out.ingredients.Add(line.LineTotal)
					continue
				default:
					out.operating.Add(line.LineTotal)
				}
				acc, ok := out.byCategory[cat.ID]
				if !ok {
					acc = &money.Accumulator{}
					out.byCategory[cat.ID] = acc
				}
				acc.Add(line.LineTotal)
			default:
				out.unmapped.Add(line.LineTotal)
			}
		}
	}
	return out
}
