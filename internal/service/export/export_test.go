package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mamadbah2/kitchenledger/internal/domain/models"
	"github.com/mamadbah2/kitchenledger/internal/service/reporting"
	"github.com/mamadbah2/kitchenledger/internal/service/taxes"
)

func sampleReport(t *testing.T) reporting.PeriodReport {
	t.Helper()
	r, err := reporting.NewRange(time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	food := 20.69
	return reporting.PeriodReport{
		Range: r,
		Totals: reporting.Totals{
			GrossRevenue: 300, NetRevenue: 290, COGS: 60, Operating: 25, NetIncome: 205,
		},
		Discounts:         10,
		RevenueByCategory: map[models.MenuCategory]float64{models.MenuFood: 290},
		ExpensesByCategory: []reporting.CategoryTotal{
			{CategoryID: "supplies", Name: "Supplies", Group: models.GroupOperating, ScheduleCLine: "22", Total: 25},
		},
		FoodCostPercent: &food,
	}
}

func TestWriteWorkbook(t *testing.T) {
	t.Parallel()

	report := sampleReport(t)
	w := Workbook{
		Report: report,
		ScheduleC: taxes.ScheduleC{Range: report.Range, NetProfit: 205, Lines: []taxes.Line{
			{Code: "1", Label: "Gross receipts or sales", Amount: 300},
			{Code: "31", Label: "Net profit or (loss)", Amount: 205},
		}},
		Form1099: []taxes.Form1099Row{{VendorID: "plumber", VendorName: "Joe's Plumbing", Total: 650, Payments: 1}},
		Year:     2025,
	}

	var buf bytes.Buffer
	require.NoError(t, Write(w, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{sheetPnL, sheetScheduleC, sheet1099}, f.GetSheetList())

	rows, err := f.GetRows(sheetPnL)
	require.NoError(t, err)
	require.Equal(t, []string{"Line", "Amount"}, rows[0])
	require.Equal(t, []string{"Period", "2025-01-06..2025-01-12"}, rows[1])

	net, err := f.GetCellValue(sheetScheduleC, "C3", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Equal(t, "205", net)

	vendor, err := f.GetCellValue(sheet1099, "C2")
	require.NoError(t, err)
	require.Equal(t, "Joe's Plumbing", vendor)
}

type fakeSheet struct {
	header   [][]interface{}
	appended map[string][][]interface{}
}

func (f *fakeSheet) AppendRows(_ context.Context, sheetRange string, rows [][]interface{}) error {
	if f.appended == nil {
		f.appended = make(map[string][][]interface{})
	}
	f.appended[sheetRange] = append(f.appended[sheetRange], rows...)
	return nil
}

func (f *fakeSheet) ReadRange(context.Context, string) ([][]interface{}, error) {
	return f.header, nil
}

func TestPublishWeekWritesHeaderOnce(t *testing.T) {
	t.Parallel()

	exported := time.Date(2025, 1, 13, 6, 0, 0, 0, time.UTC)
	sheet := &fakeSheet{}
	p := NewSheetPublisher(sheet, nil)
	p.now = func() time.Time { return exported }

	require.NoError(t, p.PublishWeek(context.Background(), sampleReport(t)))
	rows := sheet.appended[weeklyRange]
	require.Len(t, rows, 2)
	require.Equal(t, weeklyColumns, rows[0])
	require.Equal(t, "2025-01-06", rows[1][0])
	require.Equal(t, 205.0, rows[1][8])
	require.Equal(t, 20.69, rows[1][9])
	require.Equal(t, "2025-01-13T06:00:00Z", rows[1][10])

	sheet.header = [][]interface{}{weeklyColumns}
	require.NoError(t, p.PublishWeek(context.Background(), sampleReport(t)))
	require.Len(t, sheet.appended[weeklyRange], 3)
}

func TestPublishScheduleCTagsRowsWithPeriod(t *testing.T) {
	t.Parallel()

	report := sampleReport(t)
	sheet := &fakeSheet{}
	p := NewSheetPublisher(sheet, nil)
	sc := taxes.ScheduleC{Range: report.Range, Lines: []taxes.Line{{Code: "22", Label: "Supplies", Amount: 25}}}

	require.NoError(t, p.PublishScheduleC(context.Background(), sc))
	require.Equal(t, [][]interface{}{{"2025-01-06", "2025-01-12", "22", "Supplies", 25.0}}, sheet.appended[scheduleCRange])
}
