package reporting

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/domain/apperr"
	"github.com/mamadbah2/kitchenledger/internal/domain/models"
	"github.com/mamadbah2/kitchenledger/internal/service/costing"
	"github.com/mamadbah2/kitchenledger/pkg/money"
)

// CashFlowWeek is one Monday-started week of cash movement. The first and last weeks are clipped
// to the requested range.
type CashFlowWeek struct {
	WeekStart time.Time `json:"week_start"`
	WeekEnd   time.Time `json:"week_end"`
	CashIn    float64   `json:"cash_in"`
	CashOut   float64   `json:"cash_out"`
	Net       float64   `json:"net"`
	Ending    float64   `json:"ending_balance"`
}

// CashFlow buckets net sales as inflow and expense lines plus payroll as outflow. Payroll is paid
// on the last day of its pay period. Ingredient purchases are cash out even though they are not
// P&L expenses.
func (s *Service) CashFlow(in Input, r Range, openingBalance float64) ([]CashFlowWeek, error) {
	weeks := make(map[time.Time]*struct{ in, out money.Accumulator })
	bucket := func(t time.Time) *struct{ in, out money.Accumulator } {
		key := mondayStart(t)
		w, ok := weeks[key]
		if !ok {
			w = &struct{ in, out money.Accumulator }{}
			weeks[key] = w
		}
		return w
	}

	for _, sale := range in.Sales {
		if !r.Contains(sale.Date) || sale.QuantitySold <= 0 {
			continue
		}
		item, ok := in.MenuItems[sale.MenuItemID]
		if !ok {
			return nil, apperr.NotFound("menu item", sale.MenuItemID)
		}
		bucket(sale.Date).in.Add(float64(sale.QuantitySold)*item.SellingPrice - sale.Discounts)
	}
	for _, exp := range in.Expenses {
		if !r.Contains(exp.Date) {
			continue
		}
		w := bucket(exp.Date)
		for _, line := range exp.Lines {
			w.out.Add(line.LineTotal)
		}
	}
	for _, rec := range in.Payroll {
		if !r.Contains(rec.PeriodEnd) {
			continue
		}
		bucket(rec.PeriodEnd).out.Add(rec.TotalEmployerCost)
	}

	var out []CashFlowWeek
	balance := money.Round(openingBalance)
	for start := mondayStart(r.Start); !start.After(r.End); start = start.AddDate(0, 0, 7) {
		week := CashFlowWeek{WeekStart: start, WeekEnd: start.AddDate(0, 0, 6)}
		if week.WeekStart.Before(r.Start) {
			week.WeekStart = r.Start
		}
		if week.WeekEnd.After(r.End) {
			week.WeekEnd = r.End
		}
		if w, ok := weeks[start]; ok {
			week.CashIn = w.in.Total()
			week.CashOut = w.out.Total()
		}
		week.Net = money.Sub(week.CashIn, week.CashOut)
		balance = money.Sum(balance, week.Net)
		week.Ending = balance
		out = append(out, week)
	}
	return out, nil
}

// DaySummary is one calendar day of trading.
type DaySummary struct {
	Date            time.Time `json:"date"`
	GrossRevenue    float64   `json:"gross_revenue"`
	NetRevenue      float64   `json:"net_revenue"`
	ItemsSold       int       `json:"items_sold"`
	COGS            float64   `json:"cogs"`
	Expenses        float64   `json:"expenses"`
	FoodCostPercent *float64  `json:"food_cost_percent"`
}

// DailySummary returns one entry per day of the range, including days without activity.
func (s *Service) DailySummary(in Input, r Range) ([]DaySummary, error) {
	type acc struct {
		gross, discounts, expenses money.Accumulator
		cogs                       float64
		items                      int
	}
	days := make(map[time.Time]*acc)
	get := func(t time.Time) *acc {
		d := dateOnly(t)
		a, ok := days[d]
		if !ok {
			a = &acc{}
			days[d] = a
		}
		return a
	}

	for _, sale := range in.Sales {
		if !r.Contains(sale.Date) || sale.QuantitySold <= 0 {
			continue
		}
		item, ok := in.MenuItems[sale.MenuItemID]
		if !ok {
			return nil, apperr.NotFound("menu item", sale.MenuItemID)
		}
		a := get(sale.Date)
		a.gross.Add(float64(sale.QuantitySold) * item.SellingPrice)
		a.discounts.Add(sale.Discounts)
		a.cogs += float64(sale.QuantitySold) * costing.PlateCost(item, in.Recipes[item.ID])
		a.items += sale.QuantitySold
	}
	for _, exp := range in.Expenses {
		if !r.Contains(exp.Date) {
			continue
		}
		a := get(exp.Date)
		for _, line := range exp.Lines {
			a.expenses.Add(line.LineTotal)
		}
	}

	out := make([]DaySummary, 0, r.Days())
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		day := DaySummary{Date: d}
		if a, ok := days[d]; ok {
			day.GrossRevenue = a.gross.Total()
			day.NetRevenue = money.Sub(day.GrossRevenue, a.discounts.Total())
			day.COGS = money.Round(a.cogs)
			day.ItemsSold = a.items
			day.Expenses = a.expenses.Total()
			day.FoodCostPercent = money.Percent(day.COGS, day.NetRevenue)
		}
		out = append(out, day)
	}
	return out, nil
}

// VendorSpend is the spend with one vendor over a range.
type VendorSpend struct {
	VendorID      string   `json:"vendor_id"`
	VendorName    string   `json:"vendor_name"`
	Spend         float64  `json:"spend"`
	Expenses      int      `json:"expenses"`
	Lines         int      `json:"lines"`
	UnmappedSpend float64  `json:"unmapped_spend"`
	SharePercent  *float64 `json:"share_percent"`
}

// VendorAnalysis ranks vendors by spend, highest first.
func (s *Service) VendorAnalysis(in Input, r Range) []VendorSpend {
	type acc struct {
		spend, unmapped money.Accumulator
		expenses, lines int
	}
	vendors := make(map[string]*acc)
	var total money.Accumulator

	for _, exp := range in.Expenses {
		if !r.Contains(exp.Date) {
			continue
		}
		a, ok := vendors[exp.VendorID]
		if !ok {
			a = &acc{}
			vendors[exp.VendorID] = a
		}
		a.expenses++
		for _, line := range exp.Lines {
			a.spend.Add(line.LineTotal)
			total.Add(line.LineTotal)
			a.lines++
			if !line.IsMapped() {
				a.unmapped.Add(line.LineTotal)
			}
		}
	}

	grand := total.Total()
	out := make([]VendorSpend, 0, len(vendors))
	for id, a := range vendors {
		spend := a.spend.Total()
		out = append(out, VendorSpend{
			VendorID:      id,
			VendorName:    in.Vendors[id].Name,
			Spend:         spend,
			Expenses:      a.expenses,
			Lines:         a.lines,
			UnmappedSpend: a.unmapped.Total(),
			SharePercent:  money.Percent(spend, grand),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Spend != out[j].Spend {
			return out[i].Spend > out[j].Spend
		}
		return out[i].VendorID < out[j].VendorID
	})
	return out
}

// BudgetLine compares the budget of one category with its actual spend.
type BudgetLine struct {
	CategoryID  string   `json:"category_id"`
	Name        string   `json:"name"`
	Budgeted    float64  `json:"budgeted"`
	Actual      float64  `json:"actual"`
	Variance    float64  `json:"variance"` // budgeted - actual, negative when over
	PercentUsed *float64 `json:"percent_used"`
	OverBudget  bool     `json:"over_budget"`
}

// BudgetVsActual lines up category spend against budgets keyed by category ID. Categories with a
// budget but no spend and spend without a budget are both listed.
func (s *Service) BudgetVsActual(in Input, r Range, budgets map[string]float64) []BudgetLine {
	actual := make(map[string]float64)
	for _, ct := range s.expenses(in, r).categoryTotals() {
		actual[ct.CategoryID] = ct.Total
	}

	ids := make(map[string]struct{}, len(actual)+len(budgets))
	for id := range actual {
		ids[id] = struct{}{}
	}
	for id := range budgets {
		ids[id] = struct{}{}
	}

	out := make([]BudgetLine, 0, len(ids))
	for id := range ids {
		budgeted := money.Round(budgets[id])
		spent := actual[id]
		variance := money.Sub(budgeted, spent)
		out = append(out, BudgetLine{
			CategoryID:  id,
			Name:        in.Categories[id].Name,
			Budgeted:    budgeted,
			Actual:      spent,
			Variance:    variance,
			PercentUsed: money.Percent(spent, budgeted),
			OverBudget:  variance < 0,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out
}

// FormatSummary renders the one-line digest used in alerts and the weekly close.
func FormatSummary(report PeriodReport) string {
	start, end := report.Range.Start.Format(dateLayout), report.Range.End.Format(dateLayout)
	if report.NetRevenue == 0 && report.Operating == 0 && report.Payroll == 0 {
		return fmt.Sprintf("P&L (%s-%s): no activity recorded.", start, end)
	}

	foodCost := "food cost n/a"
	if report.FoodCostPercent != nil {
		foodCost = fmt.Sprintf("food cost %.2f%%", *report.FoodCostPercent)
	}
	return fmt.Sprintf("P&L (%s-%s): net revenue %.2f, COGS %.2f, payroll %.2f, operating %.2f, net income %.2f, %s.",
		start, end, report.NetRevenue, report.COGS, report.Payroll, report.Operating+report.Marketing, report.NetIncome, foodCost)
}

// LogSkipped reports data the builders ignored, such as unmapped spend.
func (s *Service) LogSkipped(report PeriodReport) {
	if report.UnmappedExpense > 0 {
		s.logger.Info("period has unmapped expense lines",
			zap.String("range", report.Range.String()),
			zap.Float64("unmapped", report.UnmappedExpense))
	}
	if len(report.UnconfiguredItems) > 0 {
		s.logger.Info("menu items sold without recipe",
			zap.String("range", report.Range.String()),
			zap.Strings("menu_item_ids", report.UnconfiguredItems))
	}
}

// Snapshot converts a report into its archived form.
func Snapshot(report PeriodReport, now time.Time) models.ReportSnapshot {
	return models.ReportSnapshot{
		PeriodStart:     report.Range.Start,
		PeriodEnd:       report.Range.End,
		GrossRevenue:    report.GrossRevenue,
		NetRevenue:      report.NetRevenue,
		COGS:            report.COGS,
		Payroll:         report.Payroll,
		Operating:       report.Operating,
		Marketing:       report.Marketing,
		NetIncome:       report.NetIncome,
		FoodCostPercent: report.FoodCostPercent,
		CreatedAt:       now.UTC(),
	}
}
