package models

import "time"

// EmployeeHours is the payroll input for one employee over one pay period.
type EmployeeHours struct {
	EmployeeID    string  `json:"employee_id"`
	EmployeeName  string  `json:"employee_name"`
	RegularHours  float64 `json:"regular_hours"`
	OvertimeHours float64 `json:"overtime_hours"`
	HourlyRate    float64 `json:"hourly_rate"`
	Tips          float64 `json:"tips"`
}

// PayrollRecord is one employee's computed pay for a pay run. Immutable once posted.
type PayrollRecord struct {
	ID            string    `json:"id"`
	PayRunID      string    `json:"pay_run_id"`
	EmployeeID    string    `json:"employee_id"`
	EmployeeName  string    `json:"employee_name"`
	PeriodStart   time.Time `json:"period_start"`
	PeriodEnd     time.Time `json:"period_end"`
	RegularHours  float64   `json:"regular_hours"`
	OvertimeHours float64   `json:"overtime_hours"`
	HourlyRate    float64   `json:"hourly_rate"`
	Tips          float64   `json:"tips"`

	GrossPay           float64 `json:"gross_pay"`
	FederalWithholding float64 `json:"federal_withholding"`
	StateWithholding   float64 `json:"state_withholding"`
	SocialSecurity     float64 `json:"social_security"`
	Medicare           float64 `json:"medicare"`
	TotalWithholding   float64 `json:"total_withholding"`
	NetPay             float64 `json:"net_pay"`

	EmployerSocialSecurity float64 `json:"employer_social_security"`
	EmployerMedicare       float64 `json:"employer_medicare"`
	FUTA                   float64 `json:"futa"`
	SUTA                   float64 `json:"suta"`
	EmployerTaxes          float64 `json:"employer_taxes"`
	TotalEmployerCost      float64 `json:"total_employer_cost"`

	PostedAt time.Time `json:"posted_at"`
}

// Overlaps reports whether the record's pay period intersects [start, end] (inclusive dates).
func (r PayrollRecord) Overlaps(start, end time.Time) bool {
	return !r.PeriodEnd.Before(start) && !r.PeriodStart.After(end)
}

// PayRun is a set of payroll records computed together.
type PayRun struct {
	ID          string          `json:"id"`
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
	Records     []PayrollRecord `json:"records"`

	TotalGross        float64 `json:"total_gross"`
	TotalNet          float64 `json:"total_net"`
	TotalEmployerCost float64 `json:"total_employer_cost"`
}
