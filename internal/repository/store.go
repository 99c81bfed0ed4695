// Package repository declares the persistence contract of the engine. The postgres package is
// the production implementation and memory backs tests and local runs.
package repository

import (
	"context"
	"time"

	"github.com/mamadbah2/kitchenledger/internal/domain/models"
)

// Store persists engine records. Lookups of a single record return an apperr.NotFoundError when
// it does not exist. Upserts are keyed on natural keys and the last writer wins.
type Store interface {
	// InTx runs fn against a transactional view of the store. Every write made through tx is
	// committed when fn returns nil and discarded otherwise.
	InTx(ctx context.Context, fn func(tx Store) error) error

	GetIngredient(ctx context.Context, id string) (models.Ingredient, error)
	ListIngredients(ctx context.Context) ([]models.Ingredient, error)
	SaveIngredient(ctx context.Context, ing models.Ingredient) error

	GetMenuItem(ctx context.Context, id string) (models.MenuItem, error)
	ListMenuItems(ctx context.Context) ([]models.MenuItem, error)
	SaveMenuItem(ctx context.Context, item models.MenuItem) error

	// ListRecipeLines returns the lines of one menu item, or of every item when menuItemID is empty.
	ListRecipeLines(ctx context.Context, menuItemID string) ([]models.RecipeLine, error)
	UpsertRecipeLine(ctx context.Context, line models.RecipeLine) error
	DeleteRecipeLine(ctx context.Context, menuItemID, ingredientID string) error

	// UpsertSales writes the (date, menu item) row; a zero quantity deletes it.
	UpsertSales(ctx context.Context, rec models.SalesRecord) error
	ListSales(ctx context.Context, start, end time.Time) ([]models.SalesRecord, error)

	GetExpense(ctx context.Context, id string) (models.Expense, error)
	SaveExpense(ctx context.Context, exp models.Expense) error
	ListExpenses(ctx context.Context, start, end time.Time) ([]models.Expense, error)
	GetExpenseLines(ctx context.Context, ids []string) ([]models.ExpenseLineItem, error)
	// UpdateLineMapping stores the mapping fields and lock flag of an existing line.
	UpdateLineMapping(ctx context.Context, line models.ExpenseLineItem) error

	ListCategories(ctx context.Context) ([]models.Category, error)
	SaveCategory(ctx context.Context, cat models.Category) error
	ListVendors(ctx context.Context) ([]models.Vendor, error)
	SaveVendor(ctx context.Context, v models.Vendor) error
	ListMappingRules(ctx context.Context, vendorID string) ([]models.MappingRule, error)
	SaveMappingRule(ctx context.Context, rule models.MappingRule) error

	SavePayRun(ctx context.Context, run models.PayRun) error
	// ListPayroll returns records whose pay period overlaps [start, end].
	ListPayroll(ctx context.Context, start, end time.Time) ([]models.PayrollRecord, error)

	GetInvoice(ctx context.Context, id string) (models.Invoice, error)
	SaveInvoice(ctx context.Context, inv models.Invoice) error
	DeleteInvoice(ctx context.Context, id string) error
	// ListInvoicesByExpense returns every invoice raised for the expense.
	ListInvoicesByExpense(ctx context.Context, expenseID string) ([]models.Invoice, error)
	SaveLedgerLines(ctx context.Context, lines []models.LedgerLine) error

	GetBatch(ctx context.Context, id string) (models.PaymentBatch, error)
	SaveBatch(ctx context.Context, b models.PaymentBatch) error
	DeleteBatch(ctx context.Context, id string) error
	// ListBatchesByInvoice returns the batches, in any status, that carry one of the invoices.
	ListBatchesByInvoice(ctx context.Context, invoiceIDs []string) ([]models.PaymentBatch, error)
	SaveVendorPayments(ctx context.Context, payments []models.VendorPayment) error
	ListVendorPayments(ctx context.Context, start, end time.Time) ([]models.VendorPayment, error)
}
