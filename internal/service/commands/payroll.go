package commands

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/domain/apperr"
	"github.com/mamadbah2/kitchenledger/internal/domain/models"
	"github.com/mamadbah2/kitchenledger/internal/repository"
	"github.com/mamadbah2/kitchenledger/internal/service/payroll"
	"github.com/mamadbah2/kitchenledger/internal/service/reporting"
	"github.com/mamadbah2/kitchenledger/internal/service/taxes"
)

// RunPayroll computes and posts a pay run. Nothing is stored unless every employee is valid.
func (s *Service) RunPayroll(ctx context.Context, start, end time.Time, hours []models.EmployeeHours) (models.PayRun, error) {
	run, err := s.payroll.RunPayroll(dateOnly(start), dateOnly(end), hours)
	if err != nil {
		return models.PayRun{}, err
	}
	if err := s.store.InTx(ctx, func(tx repository.Store) error {
		return tx.SavePayRun(ctx, run)
	}); err != nil {
		return models.PayRun{}, fmt.Errorf("save pay run: %w", err)
	}

	s.logger.Info("payroll posted",
		zap.String("pay_run_id", run.ID),
		zap.Int("employees", len(run.Records)),
		zap.Float64("total_employer_cost", run.TotalEmployerCost))
	return run, nil
}

// ScheduleC builds the Schedule C worksheet of r.
func (s *Service) ScheduleC(ctx context.Context, r reporting.Range) (taxes.ScheduleC, error) {
	report, err := s.PeriodReport(ctx, r, reporting.CompareNone)
	if err != nil {
		return taxes.ScheduleC{}, err
	}
	return s.taxes.ScheduleC(report), nil
}

// QuarterlyEstimates computes the self-employment tax estimates of a year from its four
// quarterly P&Ls.
func (s *Service) QuarterlyEstimates(ctx context.Context, year int) ([]payroll.QuarterEstimate, error) {
	if year < 1 {
		return nil, apperr.Validation("year", "must be positive")
	}
	var reports [4]reporting.PeriodReport
	for q := 1; q <= 4; q++ {
		start, end, err := payroll.QuarterRange(year, q)
		if err != nil {
			return nil, err
		}
		r, err := reporting.NewRange(start, end)
		if err != nil {
			return nil, err
		}
		if reports[q-1], err = s.PeriodReport(ctx, r, reporting.CompareNone); err != nil {
			return nil, fmt.Errorf("q%d report: %w", q, err)
		}
	}
	return s.taxes.QuarterlySchedule(year, reports)
}

// Form1099 lists the vendors that need a 1099 for year.
func (s *Service) Form1099(ctx context.Context, year int) ([]taxes.Form1099Row, error) {
	if year < 1 {
		return nil, apperr.Validation("year", "must be positive")
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	payments, err := s.store.ListVendorPayments(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("load vendor payments: %w", err)
	}
	list, err := s.store.ListVendors(ctx)
	if err != nil {
		return nil, fmt.Errorf("load vendors: %w", err)
	}
	vendors := make(map[string]models.Vendor, len(list))
	for _, v := range list {
		vendors[v.ID] = v
	}
	return s.taxes.Form1099Report(payments, vendors, year), nil
}
