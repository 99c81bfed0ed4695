package payroll

import (
	"time"

	"github.com/mamadbah2/kitchenledger/internal/domain/apperr"
	"github.com/mamadbah2/kitchenledger/pkg/money"
)

// QuarterEstimate is the self-employment tax to set aside for one quarter.
type QuarterEstimate struct {
	Quarter      int       `json:"quarter"`
	DueDate      time.Time `json:"due_date"`
	NetIncome    float64   `json:"net_income"`
	YTDNetIncome float64   `json:"ytd_net_income"`
	YTDSETax     float64   `json:"ytd_se_tax"`
	Estimate     float64   `json:"estimate"`
}

// QuarterlyEstimates spreads the year's self-employment tax over its quarters.
//
// Net income is carried forward year to date: the tax owed through quarter q is
// rate × base × max(YTD net income, 0), and each quarter pays what the year to date owes minus
// what earlier quarters already estimated, never less than zero. A loss early in the year therefore
// reduces later estimates.
func (c *Calculator) QuarterlyEstimates(year int, quarterlyNetIncome [4]float64) ([]QuarterEstimate, error) {
	if year < 1 {
		return nil, apperr.Validation("year", "must be positive")
	}

	se := c.cfg.SelfEmployment
	out := make([]QuarterEstimate, 0, 4)

	var ytd, estimated money.Accumulator
	for i, net := range quarterlyNetIncome {
		ytd.Add(net)
		ytdNet := ytd.Total()

		taxable := ytdNet
		if taxable < 0 {
			taxable = 0
		}
		ytdTax := money.Round(se.Rate * se.Base * taxable)

		estimate := money.Sub(ytdTax, estimated.Total())
		if estimate < 0 {
			estimate = 0
		}
		estimated.Add(estimate)

		out = append(out, QuarterEstimate{
			Quarter:      i + 1,
			DueDate:      dueDate(year, i+1),
			NetIncome:    money.Round(net),
			YTDNetIncome: ytdNet,
			YTDSETax:     ytdTax,
			Estimate:     estimate,
		})
	}
	return out, nil
}

// dueDate returns the estimated-payment deadline of a quarter; Q4 falls in January of the next year.
func dueDate(year, quarter int) time.Time {
	switch quarter {
	case 1:
		return time.Date(year, time.April, 15, 0, 0, 0, 0, time.UTC)
	case 2:
		return time.Date(year, time.June, 15, 0, 0, 0, 0, time.UTC)
	case 3:
		return time.Date(year, time.September, 15, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(year+1, time.January, 15, 0, 0, 0, 0, time.UTC)
	}
}

// QuarterRange returns the first and last day of a calendar quarter.
func QuarterRange(year, quarter int) (time.Time, time.Time, error) {
	if quarter < 1 || quarter > 4 {
		return time.Time{}, time.Time{}, apperr.Validation("quarter", "must be between 1 and 4")
	}
	start := time.Date(year, time.Month(3*(quarter-1)+1), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 3, -1), nil
}
