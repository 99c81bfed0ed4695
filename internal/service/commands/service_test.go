package commands

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/kitchenledger/internal/config"
	"github.com/mamadbah2/kitchenledger/internal/domain/apperr"
	"github.com/mamadbah2/kitchenledger/internal/domain/models"
	"github.com/mamadbah2/kitchenledger/internal/repository/memory"
	"github.com/mamadbah2/kitchenledger/internal/service/payables"
	"github.com/mamadbah2/kitchenledger/internal/service/reporting"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc := NewService(store, config.DefaultEngine(), nil)
	svc.now = func() time.Time { return day(2025, 1, 10) }
	return svc, store
}

// seed loads one week of activity: 20 burgers sold and one sysco invoice with a beef line and a
// napkin line, mapped by rules.
func seed(t *testing.T, svc *Service) {
	t.Helper()
	ctx := context.Background()

	_, err := svc.SaveVendor(ctx, models.Vendor{ID: "sysco", Name: "Sysco"})
	require.NoError(t, err)
	_, err = svc.SaveCategory(ctx, models.Category{ID: "supplies", Name: "Supplies", ScheduleCLine: "22"})
	require.NoError(t, err)
	_, err = svc.SaveCategory(ctx, models.Category{ID: "paper", Name: "Paper goods", Group: models.GroupOperating})
	require.NoError(t, err)

	_, err = svc.SaveIngredient(ctx, models.Ingredient{
		ID: "beef", Name: "Ground beef", PurchasePrice: 40, PurchaseUnit: "case", UsageUnit: "lb",
		UnitConversionFactor: 10, YieldPercent: 0.8,
	})
	require.NoError(t, err)
	_, err = svc.SaveMenuItem(ctx, models.MenuItem{ID: "burger", Name: "Burger", Category: models.MenuFood, SellingPrice: 15, QFactor: 0.5, TargetCostPercent: 30})
	require.NoError(t, err)
	_, err = svc.UpsertRecipeLine(ctx, models.RecipeLine{MenuItemID: "burger", IngredientID: "beef", QuantityUsed: 0.5})
	require.NoError(t, err)

	require.NoError(t, svc.UpsertSales(ctx, models.SalesRecord{Date: day(2025, 1, 6), MenuItemID: "burger", QuantitySold: 20, Discounts: 10}))

	_, err = svc.SaveMappingRule(ctx, models.MappingRule{VendorID: "sysco", MatchType: models.MatchExactCode, MatchValue: "BF-10", IngredientID: "beef", Active: true})
	require.NoError(t, err)
	_, err = svc.SaveMappingRule(ctx, models.MappingRule{VendorID: "sysco", MatchType: models.MatchContains, MatchValue: "napkin", CategoryID: "supplies", Active: true})
	require.NoError(t, err)

	_, err = svc.SaveExpense(ctx, models.Expense{
		ID: "exp-1", VendorID: "sysco", Date: day(2025, 1, 6),
		Lines: []models.ExpenseLineItem{
			{ID: "l-beef", RawVendorCode: "BF-10", RawDescription: "Ground beef 80/20", Quantity: 2, UnitPrice: 40},
			{ID: "l-napkin", RawDescription: "Paper napkins 500ct", Quantity: 1, UnitPrice: 25},
		},
	})
	require.NoError(t, err)
}

func week(t *testing.T) reporting.Range {
	t.Helper()
	r, err := reporting.NewRange(day(2025, 1, 6), day(2025, 1, 12))
	require.NoError(t, err)
	return r
}

func TestRecipeCostAndMappingsFlowIntoPeriodReport(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTestService(t)
	seed(t, svc)

	cost, err := svc.ResolveCost(ctx, "beef")
	require.NoError(t, err)
	require.Equal(t, 5.0, cost.CostPerUsageUnit)

	breakdown, err := svc.AggregateRecipe(ctx, "burger")
	require.NoError(t, err)
	require.Equal(t, 3.0, breakdown.PlateCost)

	res, err := svc.ApplyMappings(ctx, ApplyRequest{ExpenseID: "exp-1"})
	require.NoError(t, err)
	require.Equal(t, 2, res.Applied)
	require.Equal(t, 2, res.Total)

	report, err := svc.PeriodReport(ctx, week(t), reporting.CompareNone)
	require.NoError(t, err)
	require.Equal(t, 300.0, report.GrossRevenue)
	require.Equal(t, 290.0, report.NetRevenue)
	require.Equal(t, 60.0, report.COGS)
	require.Equal(t, 25.0, report.Operating)
	require.Equal(t, 80.0, report.IngredientPurchases)
	require.Equal(t, 205.0, report.NetIncome)
	require.NotNil(t, report.FoodCostPercent)
	require.Equal(t, 20.69, *report.FoodCostPercent)

	sched, err := svc.ScheduleC(ctx, week(t))
	require.NoError(t, err)
	require.Equal(t, report.NetIncome, sched.NetProfit)
}

func TestPeriodReportBeforeMappingLeavesSpendUnmapped(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	seed(t, svc)

	report, err := svc.PeriodReport(context.Background(), week(t), reporting.ComparePreviousPeriod)
	require.NoError(t, err)
	require.Equal(t, 105.0, report.UnmappedExpense)
	require.Zero(t, report.Operating)
	require.NotNil(t, report.Comparison)
	require.Nil(t, report.Comparison.RevenueChangePercent, "empty previous week")
}

func TestMapLineLocksAgainstAutoMapper(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, store := newTestService(t)
	seed(t, svc)

	line, err := svc.MapLine(ctx, "l-napkin", "", "paper")
	require.NoError(t, err)
	require.True(t, line.Locked)
	require.Equal(t, 1.0, line.MappingConfidence)

	res, err := svc.ApplyMappings(ctx, ApplyRequest{LineIDs: []string{"l-beef", "l-napkin"}})
	require.NoError(t, err)
	require.Equal(t, 1, res.Applied)
	require.Equal(t, 1, res.SkippedLocked)

	lines, err := store.GetExpenseLines(ctx, []string{"l-napkin"})
	require.NoError(t, err)
	require.Equal(t, "paper", lines[0].MappedCategoryID)

	_, err = svc.UnlockLine(ctx, "l-napkin")
	require.NoError(t, err)
	_, err = svc.ApplyMappings(ctx, ApplyRequest{ExpenseID: "exp-1"})
	require.NoError(t, err)
	lines, err = store.GetExpenseLines(ctx, []string{"l-napkin"})
	require.NoError(t, err)
	require.Equal(t, "supplies", lines[0].MappedCategoryID)
	require.False(t, lines[0].Locked)
}

func TestApplyMappingsRequiresExactlyOneSelector(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	_, err := svc.ApplyMappings(context.Background(), ApplyRequest{})
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.ApplyMappings(context.Background(), ApplyRequest{ExpenseID: "e", LineIDs: []string{"l"}})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSaveMappingRuleRejectsInvalidRegex(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	_, err := svc.SaveMappingRule(context.Background(), models.MappingRule{VendorID: "sysco", MatchType: models.MatchRegex, MatchValue: "(beef", CategoryID: "x"})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestDeleteIngredientUsedByRecipeConflicts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTestService(t)
	seed(t, svc)

	err := svc.DeleteIngredient(ctx, "beef")
	require.ErrorIs(t, err, apperr.ErrConflict)

	_, err = svc.RemoveRecipeLine(ctx, "burger", "beef")
	require.NoError(t, err)
	require.NoError(t, svc.DeleteIngredient(ctx, "beef"))

	_, err = svc.ResolveCost(ctx, "beef")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdatePriceRestartsStalenessClock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTestService(t)
	seed(t, svc)

	svc.now = func() time.Time { return day(2025, 3, 1) }
	stale, err := svc.StalePrices(ctx)
	require.NoError(t, err)
	require.Len(t, stale, 1)

	_, err = svc.UpdatePrice(ctx, "beef", 44)
	require.NoError(t, err)
	stale, err = svc.StalePrices(ctx)
	require.NoError(t, err)
	require.Empty(t, stale)

	cost, err := svc.ResolveCost(ctx, "beef")
	require.NoError(t, err)
	require.Equal(t, 5.5, cost.CostPerUsageUnit)
}

func TestUpsertSalesRejectsUnknownMenuItem(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	err := svc.UpsertSales(context.Background(), models.SalesRecord{Date: day(2025, 1, 6), MenuItemID: "ghost", QuantitySold: 1})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRunPayrollFeedsPeriodReport(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTestService(t)
	seed(t, svc)

	run, err := svc.RunPayroll(ctx, day(2025, 1, 6), day(2025, 1, 12), []models.EmployeeHours{
		{EmployeeID: "cook", EmployeeName: "Line cook", RegularHours: 40, HourlyRate: 25},
	})
	require.NoError(t, err)
	require.Equal(t, 1109.5, run.TotalEmployerCost)
	require.Equal(t, svc.now(), run.Records[0].PostedAt, "records are stamped by the service clock")

	report, err := svc.PeriodReport(ctx, week(t), reporting.CompareNone)
	require.NoError(t, err)
	require.Equal(t, 1109.5, report.Payroll)

	_, err = svc.RunPayroll(ctx, day(2025, 1, 13), day(2025, 1, 19), []models.EmployeeHours{
		{EmployeeID: "cook", RegularHours: 40, HourlyRate: 25},
		{EmployeeID: "", RegularHours: 10, HourlyRate: 20},
	})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestQuarterlyEstimatesFromStoredActivity(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	seed(t, svc)

	estimates, err := svc.QuarterlyEstimates(context.Background(), 2025)
	require.NoError(t, err)
	require.Len(t, estimates, 4)
	// spend stays unmapped until the auto-mapper runs
	require.Equal(t, 290.0-60.0, estimates[0].NetIncome)
	require.Equal(t, 32.5, estimates[0].Estimate)
	for _, q := range estimates[1:] {
		require.Zero(t, q.Estimate)
	}
}

func TestPayablesLifecycleAndForm1099(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, store := newTestService(t)

	_, err := svc.SaveVendor(ctx, models.Vendor{ID: "plumber", Name: "Joe's Plumbing", Is1099Eligible: true})
	require.NoError(t, err)
	_, err = svc.SaveCategory(ctx, models.Category{ID: "repairs", Name: "Repairs", ScheduleCLine: "21"})
	require.NoError(t, err)
	_, err = svc.SaveExpense(ctx, models.Expense{
		ID: "exp-p", VendorID: "plumber", Date: day(2025, 1, 8),
		Lines: []models.ExpenseLineItem{{ID: "l-drain", RawDescription: "Drain repair", LineTotal: 650, MappedCategoryID: "repairs"}},
	})
	require.NoError(t, err)

	inv, err := svc.CreateInvoice(ctx, "exp-p", "INV-77", day(2025, 2, 7))
	require.NoError(t, err)
	require.Equal(t, models.InvoiceDraft, inv.Status)

	_, _, err = svc.PostInvoice(ctx, inv.ID)
	require.ErrorIs(t, err, apperr.ErrConflict)

	number := "INV-78"
	inv, err = svc.UpdateInvoice(ctx, inv.ID, payables.InvoicePatch{InvoiceNumber: &number})
	require.NoError(t, err)
	require.Equal(t, "INV-78", inv.InvoiceNumber)

	_, err = svc.ApproveInvoice(ctx, inv.ID)
	require.NoError(t, err)
	posted, lines, err := svc.PostInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, models.InvoicePosted, posted.Status)
	require.True(t, payables.Balanced(lines))
	require.Len(t, store.LedgerLines(inv.ID), 2)

	require.ErrorIs(t, svc.DeleteInvoice(ctx, inv.ID), apperr.ErrConflict)
	_, err = svc.RejectInvoice(ctx, inv.ID, "duplicate")
	require.ErrorIs(t, err, apperr.ErrConflict)

	batch, err := svc.CreateBatch(ctx, []string{inv.ID})
	require.NoError(t, err)
	_, _, err = svc.ProcessBatch(ctx, batch.ID, 1001)
	require.ErrorIs(t, err, apperr.ErrConflict)

	_, err = svc.ApproveBatch(ctx, batch.ID)
	require.NoError(t, err)
	done, payments, err := svc.ProcessBatch(ctx, batch.ID, 1001)
	require.NoError(t, err)
	require.Equal(t, models.BatchCompleted, done.Status)
	require.Len(t, payments, 1)
	require.Equal(t, 1001, payments[0].CheckNumber)
	require.Equal(t, svc.now(), payments[0].PaidOn)
	require.ErrorIs(t, svc.DeleteBatch(ctx, batch.ID), apperr.ErrConflict)

	rows, err := svc.Form1099(ctx, svc.now().Year())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "plumber", rows[0].VendorID)
	require.Equal(t, 650.0, rows[0].Total)
}

func TestMenuEngineeringFlagsItemsOverTarget(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTestService(t)
	seed(t, svc)

	_, err := svc.SaveMenuItem(ctx, models.MenuItem{ID: "steak", Name: "Steak", SellingPrice: 20, QFactor: 1, TargetCostPercent: 30})
	require.NoError(t, err)
	_, err = svc.UpsertRecipeLine(ctx, models.RecipeLine{MenuItemID: "steak", IngredientID: "beef", QuantityUsed: 1.6})
	require.NoError(t, err)

	out, err := svc.MenuEngineering(ctx, week(t))
	require.NoError(t, err)
	require.Len(t, out.Items, 2)
	require.Len(t, out.Alerts, 1)
	require.Equal(t, "steak", out.Alerts[0].MenuItemID)
}

// postPlumberInvoice stores a 650.00 repair expense with its line locked to repairs and posts an
// invoice for it.
func postPlumberInvoice(t *testing.T, svc *Service) models.Invoice {
	t.Helper()
	ctx := context.Background()

	_, err := svc.SaveVendor(ctx, models.Vendor{ID: "plumber", Name: "Joe's Plumbing", Is1099Eligible: true})
	require.NoError(t, err)
	_, err = svc.SaveCategory(ctx, models.Category{ID: "repairs", Name: "Repairs", ScheduleCLine: "21"})
	require.NoError(t, err)
	_, err = svc.SaveExpense(ctx, models.Expense{
		ID: "exp-p", VendorID: "plumber", Date: day(2025, 1, 8),
		Lines: []models.ExpenseLineItem{{ID: "l1", RawDescription: "Drain repair", LineTotal: 650}},
	})
	require.NoError(t, err)
	_, err = svc.MapLine(ctx, "l1", "", "repairs")
	require.NoError(t, err)

	inv, err := svc.CreateInvoice(ctx, "exp-p", "INV-90", day(2025, 2, 7))
	require.NoError(t, err)
	_, err = svc.ApproveInvoice(ctx, inv.ID)
	require.NoError(t, err)
	posted, _, err := svc.PostInvoice(ctx, inv.ID)
	require.NoError(t, err)
	return posted
}

func TestSaveExpenseRejectsConfidenceWithoutMapping(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, store := newTestService(t)

	_, err := svc.SaveExpense(ctx, models.Expense{
		ID: "exp-x", VendorID: "sysco", Date: day(2025, 1, 6),
		Lines: []models.ExpenseLineItem{{ID: "lx", RawDescription: "Mystery box", LineTotal: 10, MappingConfidence: 0.8}},
	})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = store.GetExpense(ctx, "exp-x")
	require.ErrorIs(t, err, apperr.ErrNotFound, "nothing is stored when a line is rejected")

	_, err = svc.SaveExpense(ctx, models.Expense{
		ID: "exp-x", VendorID: "sysco", Date: day(2025, 1, 6),
		Lines: []models.ExpenseLineItem{{ID: "lx", LineTotal: 10, MappedCategoryID: "supplies", MappingConfidence: 1.5}},
	})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSaveExpenseKeepsStoredMappingAndLock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, store := newTestService(t)
	seed(t, svc)

	_, err := svc.MapLine(ctx, "l-napkin", "", "paper")
	require.NoError(t, err)

	saved, err := svc.SaveExpense(ctx, models.Expense{
		ID: "exp-1", VendorID: "sysco", Date: day(2025, 1, 6),
		Lines: []models.ExpenseLineItem{
			{ID: "l-beef", RawVendorCode: "BF-10", RawDescription: "Ground beef 80/20", Quantity: 3, UnitPrice: 40},
			{ID: "l-napkin", RawDescription: "Paper napkins 500ct", Quantity: 2, UnitPrice: 25},
			{ID: "l-foil", RawDescription: "Foil roll", LineTotal: 12},
		},
	})
	require.NoError(t, err)
	require.Len(t, saved.Lines, 3)

	lines, err := store.GetExpenseLines(ctx, []string{"l-napkin", "l-foil"})
	require.NoError(t, err)
	napkin, foil := lines[0], lines[1]
	require.Equal(t, 50.0, napkin.LineTotal)
	require.Equal(t, "paper", napkin.MappedCategoryID)
	require.Equal(t, 1.0, napkin.MappingConfidence)
	require.True(t, napkin.Locked)
	require.Empty(t, foil.MappedCategoryID)
	require.Zero(t, foil.MappingConfidence)
}

func TestPostedInvoiceFreezesItsExpense(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, store := newTestService(t)
	inv := postPlumberInvoice(t, svc)

	_, err := svc.SaveExpense(ctx, models.Expense{
		ID: "exp-p", VendorID: "plumber", Date: day(2025, 1, 8),
		Lines: []models.ExpenseLineItem{{ID: "l1", RawDescription: "Drain repair", LineTotal: 9999, MappingConfidence: 0.8}},
	})
	require.ErrorIs(t, err, apperr.ErrConflict)

	_, err = svc.ApplyMappings(ctx, ApplyRequest{ExpenseID: "exp-p"})
	require.ErrorIs(t, err, apperr.ErrConflict)
	_, err = svc.ApplyMappings(ctx, ApplyRequest{LineIDs: []string{"l1"}})
	require.ErrorIs(t, err, apperr.ErrConflict)
	_, err = svc.MapLine(ctx, "l1", "", "repairs")
	require.ErrorIs(t, err, apperr.ErrConflict)
	_, err = svc.UnlockLine(ctx, "l1")
	require.ErrorIs(t, err, apperr.ErrConflict)

	exp, err := store.GetExpense(ctx, "exp-p")
	require.NoError(t, err)
	require.Equal(t, 650.0, exp.Lines[0].LineTotal)
	require.Equal(t, "repairs", exp.Lines[0].MappedCategoryID)
	require.True(t, exp.Lines[0].Locked)
	require.Equal(t, 650.0, inv.Total)
}

func TestInvoiceIsPaidAtMostOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTestService(t)
	inv := postPlumberInvoice(t, svc)

	batch, err := svc.CreateBatch(ctx, []string{inv.ID})
	require.NoError(t, err)

	_, err = svc.CreateBatch(ctx, []string{inv.ID})
	require.ErrorIs(t, err, apperr.ErrConflict, "already waiting in a draft batch")

	_, err = svc.ApproveBatch(ctx, batch.ID)
	require.NoError(t, err)
	_, _, err = svc.ProcessBatch(ctx, batch.ID, 100)
	require.NoError(t, err)

	_, err = svc.CreateBatch(ctx, []string{inv.ID})
	require.ErrorIs(t, err, apperr.ErrConflict, "already paid")

	rows, err := svc.Form1099(ctx, svc.now().Year())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 650.0, rows[0].Total)
	require.Equal(t, 1, rows[0].Payments)
}

func TestDeletedDraftBatchReleasesInvoice(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTestService(t)
	inv := postPlumberInvoice(t, svc)

	batch, err := svc.CreateBatch(ctx, []string{inv.ID})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteBatch(ctx, batch.ID))

	_, err = svc.CreateBatch(ctx, []string{inv.ID})
	require.NoError(t, err)
}

func TestSaveMappingRuleKeepsActiveFlag(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, store := newTestService(t)

	rule, err := svc.SaveMappingRule(ctx, models.MappingRule{
		VendorID: "sysco", MatchType: models.MatchContains, MatchValue: "napkin", CategoryID: "supplies", Active: false,
	})
	require.NoError(t, err)
	require.NotEmpty(t, rule.ID)

	rules, err := store.ListMappingRules(ctx, "sysco")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	require.False(t, rules[0].Active)
}

func TestSaveMenuItemRequiresPositivePrice(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	_, err := svc.SaveMenuItem(context.Background(), models.MenuItem{ID: "water", Name: "Tap water", Category: models.MenuBeverage})
	require.ErrorIs(t, err, apperr.ErrValidation)
}
