// Package payroll estimates pay, withholdings and employer burden for hourly staff, plus the
// owner's quarterly self-employment tax.
//
// Every figure produced here is a planning estimate built from flat, configurable rates. It does
// not apply wage bases, brackets, allowances or filing status and must not be used to file or
// remit taxes.
package payroll

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/config"
	"github.com/mamadbah2/kitchenledger/internal/domain/apperr"
	"github.com/mamadbah2/kitchenledger/internal/domain/models"
	"github.com/mamadbah2/kitchenledger/pkg/money"
)

// Calculator turns hours into payroll records using the rates of one engine configuration.
type Calculator struct {
	cfg    config.EngineConfig
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// NewCalculator builds a Calculator bound to cfg. Records are stamped by now, or by the wall
// clock when now is nil.
func NewCalculator(cfg config.EngineConfig, logger *zap.Logger, now func() time.Time) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Calculator{
		cfg:    cfg,
		logger: logger,
		now:    now,
		newID:  uuid.NewString,
	}
}

// Calculate computes one employee's pay for the period. The record has no IDs; RunPayroll
// assigns them.
func (c *Calculator) Calculate(h models.EmployeeHours, start, end time.Time) (models.PayrollRecord, error) {
	if err := validateHours(h); err != nil {
		return models.PayrollRecord{}, err
	}

	multiplier := c.cfg.OvertimeMultiplier
	if multiplier == 0 {
		multiplier = 1.5
	}

	regular := h.RegularHours * h.HourlyRate
	overtime := h.OvertimeHours * h.HourlyRate * multiplier
	gross := money.Round(regular + overtime + h.Tips)

	w := c.cfg.Withholding
	rec := models.PayrollRecord{
		EmployeeID:    h.EmployeeID,
		EmployeeName:  h.EmployeeName,
		PeriodStart:   start,
		PeriodEnd:     end,
		RegularHours:  h.RegularHours,
		OvertimeHours: h.OvertimeHours,
		HourlyRate:    h.HourlyRate,
		Tips:          h.Tips,
		GrossPay:      gross,

		FederalWithholding: money.Mul(gross, w.Federal),
		StateWithholding:   money.Mul(gross, w.State),
		SocialSecurity:     money.Mul(gross, w.SocialSecurity),
		Medicare:           money.Mul(gross, w.Medicare),
	}
	rec.TotalWithholding = money.Sum(rec.FederalWithholding, rec.StateWithholding, rec.SocialSecurity, rec.Medicare)
	rec.NetPay = money.Sub(gross, rec.TotalWithholding)

	e := c.cfg.Employer
	rec.EmployerSocialSecurity = money.Mul(gross, e.SocialSecurity)
	rec.EmployerMedicare = money.Mul(gross, e.Medicare)
	rec.FUTA = money.Mul(gross, e.FUTA)
	rec.SUTA = money.Mul(gross, e.SUTA)
	rec.EmployerTaxes = money.Sum(rec.EmployerSocialSecurity, rec.EmployerMedicare, rec.FUTA, rec.SUTA)
	rec.TotalEmployerCost = money.Sum(gross, rec.EmployerTaxes)

	return rec, nil
}

// RunPayroll computes a pay run for every employee. All inputs are validated before anything is
// computed; one bad entry fails the whole run.
func (c *Calculator) RunPayroll(start, end time.Time, hours []models.EmployeeHours) (models.PayRun, error) {
	if end.Before(start) {
		return models.PayRun{}, apperr.Validation("period_end", "must not be before period_start")
	}
	if len(hours) == 0 {
		return models.PayRun{}, apperr.Validation("hours", "at least one employee is required")
	}

	seen := make(map[string]struct{}, len(hours))
	for i, h := range hours {
		if err := validateHours(h); err != nil {
			return models.PayRun{}, fmt.Errorf("employee %d: %w", i, err)
		}
		if _, dup := seen[h.EmployeeID]; dup {
			return models.PayRun{}, apperr.Validation("employee_id", "duplicate employee "+h.EmployeeID)
		}
		seen[h.EmployeeID] = struct{}{}
	}

	run := models.PayRun{
		ID:          c.newID(),
		PeriodStart: start,
		PeriodEnd:   end,
		Records:     make([]models.PayrollRecord, 0, len(hours)),
	}
	postedAt := c.now().UTC()

	var gross, net, employer money.Accumulator
	for _, h := range hours {
		rec, err := c.Calculate(h, start, end)
		if err != nil {
			return models.PayRun{}, err
		}
		rec.ID = c.newID()
		rec.PayRunID = run.ID
		rec.PostedAt = postedAt

		gross.Add(rec.GrossPay)
		net.Add(rec.NetPay)
		employer.Add(rec.TotalEmployerCost)
		run.Records = append(run.Records, rec)
	}
	run.TotalGross = gross.Total()
	run.TotalNet = net.Total()
	run.TotalEmployerCost = employer.Total()

	c.logger.Info("payroll computed",
		zap.String("pay_run_id", run.ID),
		zap.Int("employees", len(run.Records)),
		zap.Float64("total_employer_cost", run.TotalEmployerCost))
	return run, nil
}

func validateHours(h models.EmployeeHours) error {
	switch {
	case h.EmployeeID == "":
		return apperr.Validation("employee_id", "is required")
	case h.RegularHours < 0:
		return apperr.Validation("regular_hours", "must not be negative")
	case h.OvertimeHours < 0:
		return apperr.Validation("overtime_hours", "must not be negative")
	case h.HourlyRate < 0:
		return apperr.Validation("hourly_rate", "must not be negative")
	case h.Tips < 0:
		return apperr.Validation("tips", "must not be negative")
	}
	return nil
}
