// Package payables runs accounts-payable invoices and payment batches through their lifecycles.
// Transitions are pure: they return the next state and never persist anything.
package payables

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/domain/apperr"
	"github.com/mamadbah2/kitchenledger/internal/domain/models"
	"github.com/mamadbah2/kitchenledger/pkg/money"
)

const (
	AccountPayable       = "accounts_payable"
	AccountInventory     = "inventory:food"
	AccountUncategorized = "expense:uncategorized"
	expenseAccountPrefix = "expense:"
)

// Service owns the invoice and batch transitions.
type Service struct {
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// NewService builds the payables state machines. Approval, posting and payment dates come from
// now, or from the wall clock when now is nil.
func NewService(logger *zap.Logger, now func() time.Time) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{logger: logger, now: now, newID: uuid.NewString}
}

// InvoicePatch carries the editable invoice fields. Nil fields are left alone.
type InvoicePatch struct {
	InvoiceNumber *string    `json:"invoice_number"`
	DueDate       *time.Time `json:"due_date"`
}

// NewInvoice drafts an invoice for expense. The total is the sum of the expense lines.
func (s *Service) NewInvoice(expense models.Expense, number string, dueDate time.Time) (models.Invoice, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return models.Invoice{}, apperr.Validation("invoice_number", "is required")
	}
	if len(expense.Lines) == 0 {
		return models.Invoice{}, apperr.Validation("expense", "has no lines")
	}
	total := expenseTotal(expense)
	if total <= 0 {
		return models.Invoice{}, apperr.Validation("total", "must be positive")
	}
	if !dueDate.IsZero() && dueDate.Before(expense.Date) {
		return models.Invoice{}, apperr.Validation("due_date", "must not be before the invoice date")
	}

	return models.Invoice{
		ID:            s.newID(),
		ExpenseID:     expense.ID,
		VendorID:      expense.VendorID,
		InvoiceNumber: number,
		InvoiceDate:   expense.Date,
		DueDate:       dueDate,
		Total:         total,
		Status:        models.InvoiceDraft,
	}, nil
}

// Approve moves a draft invoice to approved.
func (s *Service) Approve(inv models.Invoice) (models.Invoice, error) {
	if inv.Status != models.InvoiceDraft {
		return inv, apperr.Conflict("invoice", inv.ID, string(inv.Status), "approve")
	}
	now := s.now().UTC()
	inv.Status = models.InvoiceApproved
	inv.ApprovedAt = &now
	return inv, nil
}

// Reject closes a draft or approved invoice.
func (s *Service) Reject(inv models.Invoice, reason string) (models.Invoice, error) {
	if inv.Status != models.InvoiceDraft && inv.Status != models.InvoiceApproved {
		return inv, apperr.Conflict("invoice", inv.ID, string(inv.Status), "reject")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return inv, apperr.Validation("reason", "is required")
	}
	inv.Status = models.InvoiceRejected
	inv.RejectionReason = reason
	return inv, nil
}

// Post moves an approved invoice to posted and returns the journal lines to record with it. The
// lines debit one account per target of the expense lines and credit accounts payable with the
// invoice total, so debits always equal credits.
func (s *Service) Post(inv models.Invoice, expense models.Expense) (models.Invoice, []models.LedgerLine, error) {
	if inv.Status != models.InvoiceApproved {
		return inv, nil, apperr.Conflict("invoice", inv.ID, string(inv.Status), "post")
	}
	if expense.ID != inv.ExpenseID {
		return inv, nil, apperr.Validation("expense", "does not belong to invoice "+inv.ID)
	}
	if total := expenseTotal(expense); total != inv.Total {
		return inv, nil, apperr.Validation("total", "expense lines no longer add up to the invoice total")
	}

	now := s.now().UTC()
	lines := s.ledgerLines(inv, expense, now)

	inv.Status = models.InvoicePosted
	inv.PostedAt = &now
	s.logger.Info("invoice posted", zap.String("invoice_id", inv.ID), zap.Float64("total", inv.Total), zap.Int("ledger_lines", len(lines)))
	return inv, lines, nil
}

// Update applies patch. Posted and rejected invoices are closed to edits.
func (s *Service) Update(inv models.Invoice, patch InvoicePatch) (models.Invoice, error) {
	if inv.Status == models.InvoicePosted || inv.Status == models.InvoiceRejected {
		return inv, apperr.Conflict("invoice", inv.ID, string(inv.Status), "update")
	}
	if patch.InvoiceNumber != nil {
		number := strings.TrimSpace(*patch.InvoiceNumber)
		if number == "" {
			return inv, apperr.Validation("invoice_number", "is required")
		}
		inv.InvoiceNumber = number
	}
	if patch.DueDate != nil {
		if patch.DueDate.Before(inv.InvoiceDate) {
			return inv, apperr.Validation("due_date", "must not be before the invoice date")
		}
		inv.DueDate = *patch.DueDate
	}
	return inv, nil
}

// CanDelete reports a ConflictError for posted invoices.
func CanDelete(inv models.Invoice) error {
	if inv.Status == models.InvoicePosted {
		return apperr.Conflict("invoice", inv.ID, string(inv.Status), "delete")
	}
	return nil
}

func (s *Service) ledgerLines(inv models.Invoice, expense models.Expense, date time.Time) []models.LedgerLine {
	byAccount := make(map[string]*money.Accumulator)
	for _, l := range expense.Lines {
		account := AccountUncategorized
		switch {
		case l.MappedIngredientID != "":
			account = AccountInventory
		case l.MappedCategoryID != "":
			account = expenseAccountPrefix + l.MappedCategoryID
		}
		acc, ok := byAccount[account]
		if !ok {
			acc = &money.Accumulator{}
			byAccount[account] = acc
		}
		acc.Add(l.LineTotal)
	}

	accounts := make([]string, 0, len(byAccount))
	for a := range byAccount {
		accounts = append(accounts, a)
	}
	sort.Strings(accounts)

	memo := "invoice " + inv.InvoiceNumber
	out := make([]models.LedgerLine, 0, len(accounts)+1)
	for _, a := range accounts {
		amount := byAccount[a].Total()
		line := models.LedgerLine{ID: s.newID(), InvoiceID: inv.ID, Account: a, Memo: memo, Date: date}
		if amount >= 0 {
			line.Debit = amount
		} else {
			line.Credit = -amount
		}
		out = append(out, line)
	}
	out = append(out, models.LedgerLine{ID: s.newID(), InvoiceID: inv.ID, Account: AccountPayable, Credit: inv.Total, Memo: memo, Date: date})
	return out
}

func expenseTotal(expense models.Expense) float64 {
	var total money.Accumulator
	for _, l := range expense.Lines {
		total.Add(l.LineTotal)
	}
	return total.Total()
}

// Balanced reports whether debits equal credits to the cent.
func Balanced(lines []models.LedgerLine) bool {
	var debit, credit money.Accumulator
	for _, l := range lines {
		debit.Add(l.Debit)
		credit.Add(l.Credit)
	}
	return debit.Total() == credit.Total()
}
