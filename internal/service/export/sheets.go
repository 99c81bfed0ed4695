package export

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/repository/sheets"
	"github.com/mamadbah2/kitchenledger/internal/service/reporting"
	"github.com/mamadbah2/kitchenledger/internal/service/taxes"
)

const (
	weeklyRange    = "Weekly!A:K"
	weeklyHeader   = "Weekly!A1:K1"
	scheduleCRange = "ScheduleC!A:E"
	dateLayout     = "2006-01-02"
)

var weeklyColumns = []interface{}{
	"Week start", "Week end", "Gross revenue", "Net revenue", "COGS", "Payroll",
	"Operating", "Marketing", "Net income", "Food cost %", "Exported at",
}

// SheetPublisher appends weekly figures to the bookkeeping spreadsheet.
type SheetPublisher struct {
	repo   sheets.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewSheetPublisher wires a publisher on top of a sheet repository.
func NewSheetPublisher(repo sheets.Repository, logger *zap.Logger) *SheetPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SheetPublisher{repo: repo, logger: logger, now: time.Now}
}

// PublishWeek appends one row for the report, writing the header first on an empty sheet.
func (p *SheetPublisher) PublishWeek(ctx context.Context, report reporting.PeriodReport) error {
	head, err := p.repo.ReadRange(ctx, weeklyHeader)
	if err != nil {
		return fmt.Errorf("read weekly header: %w", err)
	}

	var rows [][]interface{}
	if len(head) == 0 {
		rows = append(rows, weeklyColumns)
	}
	rows = append(rows, WeekRow(report, p.now()))

	if err := p.repo.AppendRows(ctx, weeklyRange, rows); err != nil {
		return err
	}
	p.logger.Info("weekly figures exported", zap.String("range", report.Range.String()))
	return nil
}

// PublishScheduleC appends the Schedule C lines of one period, each tagged with the period.
func (p *SheetPublisher) PublishScheduleC(ctx context.Context, sc taxes.ScheduleC) error {
	rows := make([][]interface{}, 0, len(sc.Lines))
	for _, l := range sc.Lines {
		rows = append(rows, []interface{}{
			sc.Range.Start.Format(dateLayout), sc.Range.End.Format(dateLayout), l.Code, l.Label, l.Amount,
		})
	}
	return p.repo.AppendRows(ctx, scheduleCRange, rows)
}

// WeekRow is the sheet row of one weekly report.
func WeekRow(report reporting.PeriodReport, exportedAt time.Time) []interface{} {
	foodCost := interface{}("")
	if report.FoodCostPercent != nil {
		foodCost = *report.FoodCostPercent
	}
	return []interface{}{
		report.Range.Start.Format(dateLayout),
		report.Range.End.Format(dateLayout),
		report.GrossRevenue,
		report.NetRevenue,
		report.COGS,
		report.Payroll,
		report.Operating,
		report.Marketing,
		report.NetIncome,
		foodCost,
		exportedAt.UTC().Format(time.RFC3339),
	}
}
