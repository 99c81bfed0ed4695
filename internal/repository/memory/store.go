// Package memory is an in-process Store. Transactions snapshot the whole state and restore it
// when the transaction function fails.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mamadbah2/kitchenledger/internal/domain/apperr"
	"github.com/mamadbah2/kitchenledger/internal/domain/models"
	"github.com/mamadbah2/kitchenledger/internal/repository"
)

const dateKeyLayout = "2006-01-02"

type recipeKey struct{ menuItemID, ingredientID string }

type salesKey struct{ date, menuItemID string }

type state struct {
	ingredients map[string]models.Ingredient
	menuItems   map[string]models.MenuItem
	recipes     map[recipeKey]models.RecipeLine
	sales       map[salesKey]models.SalesRecord
	expenses    map[string]models.Expense
	categories  map[string]models.Category
	vendors     map[string]models.Vendor
	rules       map[string]models.MappingRule
	payroll     map[string]models.PayrollRecord
	invoices    map[string]models.Invoice
	ledger      []models.LedgerLine
	batches     map[string]models.PaymentBatch
	payments    []models.VendorPayment
}

func newState() *state {
	return &state{
		ingredients: make(map[string]models.Ingredient),
		menuItems:   make(map[string]models.MenuItem),
		recipes:     make(map[recipeKey]models.RecipeLine),
		sales:       make(map[salesKey]models.SalesRecord),
		expenses:    make(map[string]models.Expense),
		categories:  make(map[string]models.Category),
		vendors:     make(map[string]models.Vendor),
		rules:       make(map[string]models.MappingRule),
		payroll:     make(map[string]models.PayrollRecord),
		invoices:    make(map[string]models.Invoice),
		batches:     make(map[string]models.PaymentBatch),
	}
}

func (s *state) clone() *state {
	out := &state{
		ingredients: copyMap(s.ingredients),
		menuItems:   copyMap(s.menuItems),
		recipes:     copyMap(s.recipes),
		sales:       copyMap(s.sales),
		expenses:    make(map[string]models.Expense, len(s.expenses)),
		categories:  copyMap(s.categories),
		vendors:     copyMap(s.vendors),
		rules:       copyMap(s.rules),
		payroll:     copyMap(s.payroll),
		invoices:    copyMap(s.invoices),
		ledger:      append([]models.LedgerLine(nil), s.ledger...),
		batches:     make(map[string]models.PaymentBatch, len(s.batches)),
		payments:    append([]models.VendorPayment(nil), s.payments...),
	}
	for id, exp := range s.expenses {
		out.expenses[id] = copyExpense(exp)
	}
	for id, b := range s.batches {
		b.Items = append([]models.PaymentItem(nil), b.Items...)
		out.batches[id] = b
	}
	return out
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyExpense(exp models.Expense) models.Expense {
	exp.Lines = append([]models.ExpenseLineItem(nil), exp.Lines...)
	return exp
}

// Store implements repository.Store in memory. It is safe for concurrent use.
type Store struct {
	mu   *sync.Mutex
	data *state
	inTx bool
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{mu: &sync.Mutex{}, data: newState()}
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// InTx serializes fn against every other access and rolls the state back when fn fails.
func (s *Store) InTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&Store{mu: s.mu, data: s.data, inTx: true}); err != nil {
		*s.data = *snapshot
		return err
	}
	return nil
}

func (s *Store) GetIngredient(ctx context.Context, id string) (models.Ingredient, error) {
	defer s.lock()()
	ing, ok := s.data.ingredients[id]
	if !ok {
		return models.Ingredient{}, apperr.NotFound("ingredient", id)
	}
	return ing, nil
}

func (s *Store) ListIngredients(ctx context.Context) ([]models.Ingredient, error) {
	defer s.lock()()
	return sortedValues(s.data.ingredients, func(a, b models.Ingredient) bool { return a.ID < b.ID }), nil
}

func (s *Store) SaveIngredient(ctx context.Context, ing models.Ingredient) error {
	defer s.lock()()
	s.data.ingredients[ing.ID] = ing
	return nil
}

func (s *Store) GetMenuItem(ctx context.Context, id string) (models.MenuItem, error) {
	defer s.lock()()
	item, ok := s.data.menuItems[id]
	if !ok {
		return models.MenuItem{}, apperr.NotFound("menu item", id)
	}
	return item, nil
}

func (s *Store) ListMenuItems(ctx context.Context) ([]models.MenuItem, error) {
	defer s.lock()()
	return sortedValues(s.data.menuItems, func(a, b models.MenuItem) bool { return a.ID < b.ID }), nil
}

func (s *Store) SaveMenuItem(ctx context.Context, item models.MenuItem) error {
	defer s.lock()()
	s.data.menuItems[item.ID] = item
	return nil
}

func (s *Store) ListRecipeLines(ctx context.Context, menuItemID string) ([]models.RecipeLine, error) {
	defer s.lock()()
	var out []models.RecipeLine
	for k, line := range s.data.recipes {
		if menuItemID == "" || k.menuItemID == menuItemID {
			out = append(out, line)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MenuItemID != out[j].MenuItemID {
			return out[i].MenuItemID < out[j].MenuItemID
		}
		return out[i].IngredientID < out[j].IngredientID
	})
	return out, nil
}

func (s *Store) UpsertRecipeLine(ctx context.Context, line models.RecipeLine) error {
	defer s.lock()()
	s.data.recipes[recipeKey{line.MenuItemID, line.IngredientID}] = line
	return nil
}

func (s *Store) DeleteRecipeLine(ctx context.Context, menuItemID, ingredientID string) error {
	defer s.lock()()
	key := recipeKey{menuItemID, ingredientID}
	if _, ok := s.data.recipes[key]; !ok {
		return apperr.NotFound("recipe line", menuItemID+"/"+ingredientID)
	}
	delete(s.data.recipes, key)
	return nil
}

func (s *Store) UpsertSales(ctx context.Context, rec models.SalesRecord) error {
	defer s.lock()()
	key := salesKey{rec.Date.Format(dateKeyLayout), rec.MenuItemID}
	if rec.QuantitySold == 0 {
		delete(s.data.sales, key)
		return nil
	}
	s.data.sales[key] = rec
	return nil
}

func (s *Store) ListSales(ctx context.Context, start, end time.Time) ([]models.SalesRecord, error) {
	defer s.lock()()
	var out []models.SalesRecord
	for _, rec := range s.data.sales {
		if inRange(rec.Date, start, end) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].MenuItemID < out[j].MenuItemID
	})
	return out, nil
}

func (s *Store) GetExpense(ctx context.Context, id string) (models.Expense, error) {
	defer s.lock()()
	exp, ok := s.data.expenses[id]
	if !ok {
		return models.Expense{}, apperr.NotFound("expense", id)
	}
	return copyExpense(exp), nil
}

func (s *Store) SaveExpense(ctx context.Context, exp models.Expense) error {
	defer s.lock()()
	s.data.expenses[exp.ID] = copyExpense(exp)
	return nil
}

func (s *Store) ListExpenses(ctx context.Context, start, end time.Time) ([]models.Expense, error) {
	defer s.lock()()
	var out []models.Expense
	for _, exp := range s.data.expenses {
		if inRange(exp.Date, start, end) {
			out = append(out, copyExpense(exp))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetExpenseLines(ctx context.Context, ids []string) ([]models.ExpenseLineItem, error) {
	defer s.lock()()
	out := make([]models.ExpenseLineItem, 0, len(ids))
	for _, id := range ids {
		line, ok := s.findLine(id)
		if !ok {
			return nil, apperr.NotFound("expense line", id)
		}
		out = append(out, line)
	}
	return out, nil
}

func (s *Store) UpdateLineMapping(ctx context.Context, line models.ExpenseLineItem) error {
	defer s.lock()()
	exp, ok := s.data.expenses[line.ExpenseID]
	if !ok {
		return apperr.NotFound("expense", line.ExpenseID)
	}
	for i := range exp.Lines {
		if exp.Lines[i].ID != line.ID {
			continue
		}
		exp.Lines[i].MappedIngredientID = line.MappedIngredientID
		exp.Lines[i].MappedCategoryID = line.MappedCategoryID
		exp.Lines[i].MappingConfidence = line.MappingConfidence
		exp.Lines[i].Locked = line.Locked
		return nil
	}
	return apperr.NotFound("expense line", line.ID)
}

func (s *Store) findLine(id string) (models.ExpenseLineItem, bool) {
	for _, exp := range s.data.expenses {
		for _, line := range exp.Lines {
			if line.ID == id {
				return line, true
			}
		}
	}
	return models.ExpenseLineItem{}, false
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	defer s.lock()()
	return sortedValues(s.data.categories, func(a, b models.Category) bool { return a.ID < b.ID }), nil
}

func (s *Store) SaveCategory(ctx context.Context, cat models.Category) error {
	defer s.lock()()
	s.data.categories[cat.ID] = cat
	return nil
}

func (s *Store) ListVendors(ctx context.Context) ([]models.Vendor, error) {
	defer s.lock()()
	return sortedValues(s.data.vendors, func(a, b models.Vendor) bool { return a.ID < b.ID }), nil
}

func (s *Store) SaveVendor(ctx context.Context, v models.Vendor) error {
	defer s.lock()()
	s.data.vendors[v.ID] = v
	return nil
}

func (s *Store) ListMappingRules(ctx context.Context, vendorID string) ([]models.MappingRule, error) {
	defer s.lock()()
	var out []models.MappingRule
	for _, r := range s.data.rules {
		if vendorID == "" || r.VendorID == vendorID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SaveMappingRule(ctx context.Context, rule models.MappingRule) error {
	defer s.lock()()
	s.data.rules[rule.ID] = rule
	return nil
}

func (s *Store) SavePayRun(ctx context.Context, run models.PayRun) error {
	defer s.lock()()
	for _, rec := range run.Records {
		s.data.payroll[rec.ID] = rec
	}
	return nil
}

func (s *Store) ListPayroll(ctx context.Context, start, end time.Time) ([]models.PayrollRecord, error) {
	defer s.lock()()
	var out []models.PayrollRecord
	for _, rec := range s.data.payroll {
		if rec.Overlaps(start, end) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PeriodStart.Equal(out[j].PeriodStart) {
			return out[i].PeriodStart.Before(out[j].PeriodStart)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetInvoice(ctx context.Context, id string) (models.Invoice, error) {
	defer s.lock()()
	inv, ok := s.data.invoices[id]
	if !ok {
		return models.Invoice{}, apperr.NotFound("invoice", id)
	}
	return inv, nil
}

func (s *Store) SaveInvoice(ctx context.Context, inv models.Invoice) error {
	defer s.lock()()
	s.data.invoices[inv.ID] = inv
	return nil
}

func (s *Store) DeleteInvoice(ctx context.Context, id string) error {
	defer s.lock()()
	if _, ok := s.data.invoices[id]; !ok {
		return apperr.NotFound("invoice", id)
	}
	delete(s.data.invoices, id)
	return nil
}

func (s *Store) ListInvoicesByExpense(ctx context.Context, expenseID string) ([]models.Invoice, error) {
	defer s.lock()()
	var out []models.Invoice
	for _, inv := range s.data.invoices {
		if inv.ExpenseID == expenseID {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SaveLedgerLines(ctx context.Context, lines []models.LedgerLine) error {
	defer s.lock()()
	s.data.ledger = append(s.data.ledger, lines...)
	return nil
}

// LedgerLines returns the journal lines recorded for an invoice.
func (s *Store) LedgerLines(invoiceID string) []models.LedgerLine {
	defer s.lock()()
	var out []models.LedgerLine
	for _, l := range s.data.ledger {
		if l.InvoiceID == invoiceID {
			out = append(out, l)
		}
	}
	return out
}

func (s *Store) GetBatch(ctx context.Context, id string) (models.PaymentBatch, error) {
	defer s.lock()()
	b, ok := s.data.batches[id]
	if !ok {
		return models.PaymentBatch{}, apperr.NotFound("payment batch", id)
	}
	b.Items = append([]models.PaymentItem(nil), b.Items...)
	return b, nil
}

func (s *Store) SaveBatch(ctx context.Context, b models.PaymentBatch) error {
	defer s.lock()()
	b.Items = append([]models.PaymentItem(nil), b.Items...)
	s.data.batches[b.ID] = b
	return nil
}

func (s *Store) DeleteBatch(ctx context.Context, id string) error {
	defer s.lock()()
	if _, ok := s.data.batches[id]; !ok {
		return apperr.NotFound("payment batch", id)
	}
	delete(s.data.batches, id)
	return nil
}

func (s *Store) ListBatchesByInvoice(ctx context.Context, invoiceIDs []string) ([]models.PaymentBatch, error) {
	defer s.lock()()
	wanted := make(map[string]struct{}, len(invoiceIDs))
	for _, id := range invoiceIDs {
		wanted[id] = struct{}{}
	}
	var out []models.PaymentBatch
	for _, b := range s.data.batches {
		for _, it := range b.Items {
			if _, ok := wanted[it.InvoiceID]; ok {
				b.Items = append([]models.PaymentItem(nil), b.Items...)
				out = append(out, b)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SaveVendorPayments(ctx context.Context, payments []models.VendorPayment) error {
	defer s.lock()()
	s.data.payments = append(s.data.payments, payments...)
	return nil
}

func (s *Store) ListVendorPayments(ctx context.Context, start, end time.Time) ([]models.VendorPayment, error) {
	defer s.lock()()
	var out []models.VendorPayment
	for _, p := range s.data.payments {
		if inRange(p.PaidOn, start, end) {
			out = append(out, p)
		}
	}
	return out, nil
}

func sortedValues[K comparable, V any](in map[K]V, less func(a, b V) bool) []V {
	out := make([]V, 0, len(in))
	for _, v := range in {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func inRange(t, start, end time.Time) bool {
	d := t.Format(dateKeyLayout)
	return d >= start.Format(dateKeyLayout) && d <= end.Format(dateKeyLayout)
}
