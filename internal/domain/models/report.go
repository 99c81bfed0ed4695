package models

import "time"

// ReportSnapshot is an archived weekly close. It records what was reported at the time and is
// never read back into a computation.
type ReportSnapshot struct {
	PeriodStart     time.Time `bson:"period_start" json:"period_start"`
	PeriodEnd       time.Time `bson:"period_end" json:"period_end"`
	GrossRevenue    float64   `bson:"gross_revenue" json:"gross_revenue"`
	NetRevenue      float64   `bson:"net_revenue" json:"net_revenue"`
	COGS            float64   `bson:"cogs" json:"cogs"`
	Payroll         float64   `bson:"payroll" json:"payroll"`
	Operating       float64   `bson:"operating" json:"operating"`
	Marketing       float64   `bson:"marketing" json:"marketing"`
	NetIncome       float64   `bson:"net_income" json:"net_income"`
	FoodCostPercent *float64  `bson:"food_cost_percent" json:"food_cost_percent"`
	CreatedAt       time.Time `bson:"created_at" json:"created_at"`
}
