// Package taxes lays period reports out as the owner's tax worksheets. Like payroll, the output
// is a planning aid for the accountant and not a filing.
package taxes

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/domain/apperr"
	"github.com/mamadbah2/kitchenledger/internal/domain/models"
	"github.com/mamadbah2/kitchenledger/internal/service/payroll"
	"github.com/mamadbah2/kitchenledger/internal/service/reporting"
	"github.com/mamadbah2/kitchenledger/pkg/money"
)

const otherExpensesLine = "27a"

// expenseLines is the Part II order of Schedule C.
var expenseLines = []struct{ code, label string }{
	{"8", "Advertising"},
	{"9", "Car and truck expenses"},
	{"10", "Commissions and fees"},
	{"11", "Contract labor"},
	{"13", "Depreciation"},
	{"15", "Insurance"},
	{"16a", "Mortgage interest"},
	{"16b", "Other interest"},
	{"17", "Legal and professional services"},
	{"18", "Office expense"},
	{"20a", "Rent or lease: vehicles, machinery, equipment"},
	{"20b", "Rent or lease: other business property"},
	{"21", "Repairs and maintenance"},
	{"22", "Supplies"},
	{"23", "Taxes and licenses"},
	{"24a", "Travel"},
	{"24b", "Deductible meals"},
	{"25", "Utilities"},
	{"26", "Wages"},
	{otherExpensesLine, "Other expenses"},
}

// Line is one Schedule C line.
type Line struct {
	Code   string  `json:"line"`
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// ScheduleC is the Schedule C worksheet of one period.
type ScheduleC struct {
	Range     reporting.Range `json:"range"`
	Lines     []Line          `json:"lines"`
	NetProfit float64         `json:"net_profit"`
}

// Service builds tax worksheets.
type Service struct {
	calc      *payroll.Calculator
	threshold float64
	logger    *zap.Logger
}

// NewService wires the tax worksheet builder. threshold is the 1099 reporting floor.
func NewService(calc *payroll.Calculator, threshold float64, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{calc: calc, threshold: threshold, logger: logger}
}

// ScheduleC maps a period report onto Schedule C. Category spend lands on the category's
// Schedule C line, or 27a when it has none. Employer payroll taxes go to 23 and wages to 26.
// Unmapped spend is left out, so line 31 equals the report's net income.
func (s *Service) ScheduleC(report reporting.PeriodReport) ScheduleC {
	known := make(map[string]bool, len(expenseLines))
	for _, l := range expenseLines {
		known[l.code] = true
	}

	byLine := make(map[string]*money.Accumulator)
	add := func(code string, v float64) {
		acc, ok := byLine[code]
		if !ok {
			acc = &money.Accumulator{}
			byLine[code] = acc
		}
		acc.Add(v)
	}

	for _, ct := range report.ExpensesByCategory {
		code := ct.ScheduleCLine
		if !known[code] {
			if code != "" {
				s.logger.Debug("unknown schedule c line, filing under other expenses",
					zap.String("category_id", ct.CategoryID), zap.String("line", code))
			}
			code = otherExpensesLine
		}
		add(code, ct.Total)
	}
	add("23", report.PayrollTaxes)
	add("26", report.PayrollWages)

	grossProfit := money.Sub(report.NetRevenue, report.COGS)
	lines := []Line{
		{"1", "Gross receipts or sales", report.GrossRevenue},
		{"2", "Returns and allowances", report.Discounts},
		{"3", "Subtract line 2 from line 1", report.NetRevenue},
		{"4", "Cost of goods sold", report.COGS},
		{"5", "Gross profit", grossProfit},
		{"7", "Gross income", grossProfit},
	}

	var total money.Accumulator
	for _, l := range expenseLines {
		acc, ok := byLine[l.code]
		if !ok {
			continue
		}
		amount := acc.Total()
		if amount == 0 {
			continue
		}
		total.Add(amount)
		lines = append(lines, Line{l.code, l.label, amount})
	}

	totalExpenses := total.Total()
	net := money.Sub(grossProfit, totalExpenses)
	lines = append(lines,
		Line{"28", "Total expenses", totalExpenses},
		Line{"29", "Tentative profit or (loss)", net},
		Line{"31", "Net profit or (loss)", net},
	)

	return ScheduleC{Range: report.Range, Lines: lines, NetProfit: net}
}

// Form1099Row is one vendor that must receive a 1099-NEC.
type Form1099Row struct {
	VendorID   string  `json:"vendor_id"`
	VendorName string  `json:"vendor_name"`
	Total      float64 `json:"total"`
	Payments   int     `json:"payments"`
}

// Form1099Report lists 1099-eligible vendors paid at least the threshold during year, highest
// total first.
func (s *Service) Form1099Report(payments []models.VendorPayment, vendors map[string]models.Vendor, year int) []Form1099Row {
	type acc struct {
		total money.Accumulator
		count int
	}
	paid := make(map[string]*acc)
	for _, p := range payments {
		if p.PaidOn.Year() != year {
			continue
		}
		v, ok := vendors[p.VendorID]
		if !ok || !v.Is1099Eligible {
			continue
		}
		a, ok := paid[p.VendorID]
		if !ok {
			a = &acc{}
			paid[p.VendorID] = a
		}
		a.total.Add(p.Amount)
		a.count++
	}

	var out []Form1099Row
	for id, a := range paid {
		total := a.total.Total()
		if total < s.threshold {
			continue
		}
		out = append(out, Form1099Row{VendorID: id, VendorName: vendors[id].Name, Total: total, Payments: a.count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].VendorID < out[j].VendorID
	})
	return out
}

// QuarterlySchedule turns the four quarterly reports of a year into self-employment tax
// estimates.
func (s *Service) QuarterlySchedule(year int, reports [4]reporting.PeriodReport) ([]payroll.QuarterEstimate, error) {
	var net [4]float64
	for i, r := range reports {
		start, end, err := payroll.QuarterRange(year, i+1)
		if err != nil {
			return nil, err
		}
		if !sameDay(r.Range.Start, start) || !sameDay(r.Range.End, end) {
			return nil, apperr.Validation("reports", fmt.Sprintf("report %d does not cover Q%d %d", i, i+1, year))
		}
		net[i] = r.NetIncome
	}
	return s.calc.QuarterlyEstimates(year, net)
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
