// Package export renders reports for the accountant: an xlsx workbook on demand and rows pushed
// to the bookkeeping spreadsheet after each weekly close.
package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/mamadbah2/kitchenledger/internal/domain/models"
	"github.com/mamadbah2/kitchenledger/internal/service/reporting"
	"github.com/mamadbah2/kitchenledger/internal/service/taxes"
)

const (
	sheetPnL       = "P&L"
	sheetScheduleC = "Schedule C"
	sheet1099      = "1099"
	moneyFormat    = "#,##0.00"
)

// Workbook is the content of one accountant export.
type Workbook struct {
	Report    reporting.PeriodReport
	ScheduleC taxes.ScheduleC
	Form1099  []taxes.Form1099Row
	Year      int
}

// Build lays the workbook out on three sheets.
func Build(w Workbook) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheetPnL); err != nil {
		f.Close()
		return nil, err
	}
	for _, name := range []string{sheetScheduleC, sheet1099} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, err
		}
	}

	styles, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	steps := []func(*excelize.File, styleSet, Workbook) error{writePnL, writeScheduleC, write1099}
	for _, step := range steps {
		if err := step(f, styles, w); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// Write builds the workbook and streams it to out.
func Write(w Workbook, out io.Writer) error {
	f, err := Build(w)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

type styleSet struct {
	header int
	money  int
}

func newStyles(f *excelize.File) (styleSet, error) {
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return styleSet{}, err
	}
	numFmt := moneyFormat
	money, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return styleSet{}, err
	}
	return styleSet{header: header, money: money}, nil
}

// table writes a header row and data rows starting at A1 and formats the money columns.
func table(f *excelize.File, st styleSet, sheet string, header []interface{}, rows [][]interface{}, moneyCols ...string) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, st.header); err != nil {
		return err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	if len(rows) > 0 {
		for _, col := range moneyCols {
			if err := f.SetCellStyle(sheet, col+"2", fmt.Sprintf("%s%d", col, len(rows)+1), st.money); err != nil {
				return err
			}
		}
	}

	lastCol, _, err := excelize.SplitCellName(last)
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", lastCol, 22)
}

func percentCell(p *float64) interface{} {
	if p == nil {
		return "n/a"
	}
	return *p
}

func writePnL(f *excelize.File, st styleSet, w Workbook) error {
	r := w.Report
	rows := [][]interface{}{
		{"Period", r.Range.String()},
		{"Gross revenue", r.GrossRevenue},
		{"Discounts", r.Discounts},
		{"Net revenue", r.NetRevenue},
	}

	cats := make([]string, 0, len(r.RevenueByCategory))
	for c := range r.RevenueByCategory {
		cats = append(cats, string(c))
	}
	sort.Strings(cats)
	for _, c := range cats {
		rows = append(rows, []interface{}{"  Revenue: " + c, r.RevenueByCategory[models.MenuCategory(c)]})
	}

	rows = append(rows,
		[]interface{}{"Cost of goods sold", r.COGS},
		[]interface{}{"Payroll wages", r.PayrollWages},
		[]interface{}{"Payroll taxes", r.PayrollTaxes},
	)
	for _, ct := range r.ExpensesByCategory {
		rows = append(rows, []interface{}{"  " + ct.Name, ct.Total})
	}
	rows = append(rows,
		[]interface{}{"Operating expenses", r.Operating},
		[]interface{}{"Marketing", r.Marketing},
		[]interface{}{"Net income", r.NetIncome},
		[]interface{}{"Food cost %", percentCell(r.FoodCostPercent)},
		[]interface{}{"Labor cost %", percentCell(r.LaborCostPercent)},
		[]interface{}{"Prime cost %", percentCell(r.PrimeCostPercent)},
		[]interface{}{"Ingredient purchases", r.IngredientPurchases},
		[]interface{}{"Unmapped spend", r.UnmappedExpense},
	)
	return table(f, st, sheetPnL, []interface{}{"Line", "Amount"}, rows, "B")
}

func writeScheduleC(f *excelize.File, st styleSet, w Workbook) error {
	rows := make([][]interface{}, 0, len(w.ScheduleC.Lines))
	for _, l := range w.ScheduleC.Lines {
		rows = append(rows, []interface{}{l.Code, l.Label, l.Amount})
	}
	return table(f, st, sheetScheduleC, []interface{}{"Line", "Description", "Amount"}, rows, "C")
}

func write1099(f *excelize.File, st styleSet, w Workbook) error {
	rows := make([][]interface{}, 0, len(w.Form1099))
	for _, r := range w.Form1099 {
		rows = append(rows, []interface{}{w.Year, r.VendorID, r.VendorName, r.Payments, r.Total})
	}
	return table(f, st, sheet1099, []interface{}{"Year", "Vendor ID", "Vendor", "Payments", "Total"}, rows, "E")
}
