package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/mamadbah2/kitchenledger/internal/domain/models"
	"github.com/mamadbah2/kitchenledger/internal/repository"
	"github.com/mamadbah2/kitchenledger/internal/service/payables"
)

// CreateInvoice opens a draft invoice for an expense.
func (s *Service) CreateInvoice(ctx context.Context, expenseID, number string, dueDate time.Time) (models.Invoice, error) {
	exp, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return models.Invoice{}, err
	}
	inv, err := s.payables.NewInvoice(exp, number, dueDate)
	if err != nil {
		return models.Invoice{}, err
	}
	if err := s.store.SaveInvoice(ctx, inv); err != nil {
		return models.Invoice{}, fmt.Errorf("save invoice: %w", err)
	}
	return inv, nil
}

// ApproveInvoice moves a draft invoice to approved.
func (s *Service) ApproveInvoice(ctx context.Context, id string) (models.Invoice, error) {
	return s.transitionInvoice(ctx, id, s.payables.Approve)
}

// RejectInvoice rejects a draft or approved invoice.
func (s *Service) RejectInvoice(ctx context.Context, id, reason string) (models.Invoice, error) {
	return s.transitionInvoice(ctx, id, func(inv models.Invoice) (models.Invoice, error) {
		return s.payables.Reject(inv, reason)
	})
}

// UpdateInvoice edits the number or due date of an open invoice.
func (s *Service) UpdateInvoice(ctx context.Context, id string, patch payables.InvoicePatch) (models.Invoice, error) {
	return s.transitionInvoice(ctx, id, func(inv models.Invoice) (models.Invoice, error) {
		return s.payables.Update(inv, patch)
	})
}

// PostInvoice posts an approved invoice and stores its ledger lines with it.
func (s *Service) PostInvoice(ctx context.Context, id string) (models.Invoice, []models.LedgerLine, error) {
	var (
		out   models.Invoice
		lines []models.LedgerLine
	)
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		inv, err := tx.GetInvoice(ctx, id)
		if err != nil {
			return err
		}
		exp, err := tx.GetExpense(ctx, inv.ExpenseID)
		if err != nil {
			return err
		}
		posted, ledger, err := s.payables.Post(inv, exp)
		if err != nil {
			return err
		}
		if err := tx.SaveInvoice(ctx, posted); err != nil {
			return fmt.Errorf("save invoice: %w", err)
		}
		if err := tx.SaveLedgerLines(ctx, ledger); err != nil {
			return fmt.Errorf("save ledger lines: %w", err)
		}
		out, lines = posted, ledger
		return nil
	})
	if err != nil {
		return models.Invoice{}, nil, err
	}
	return out, lines, nil
}

// DeleteInvoice removes an invoice that has not been posted.
func (s *Service) DeleteInvoice(ctx context.Context, id string) error {
	return s.store.InTx(ctx, func(tx repository.Store) error {
		inv, err := tx.GetInvoice(ctx, id)
		if err != nil {
			return err
		}
		if err := payables.CanDelete(inv); err != nil {
			return err
		}
		return tx.DeleteInvoice(ctx, id)
	})
}

func (s *Service) transitionInvoice(ctx context.Context, id string, fn func(models.Invoice) (models.Invoice, error)) (models.Invoice, error) {
	var out models.Invoice
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		inv, err := tx.GetInvoice(ctx, id)
		if err != nil {
			return err
		}
		next, err := fn(inv)
		if err != nil {
			return err
		}
		if err := tx.SaveInvoice(ctx, next); err != nil {
			return fmt.Errorf("save invoice: %w", err)
		}
		out = next
		return nil
	})
	return out, err
}

// CreateBatch groups posted invoices into a draft payment batch. An invoice already carried by
// another batch, paid or not, is refused.
func (s *Service) CreateBatch(ctx context.Context, invoiceIDs []string) (models.PaymentBatch, error) {
	var out models.PaymentBatch
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		invoices := make([]models.Invoice, 0, len(invoiceIDs))
		for _, id := range invoiceIDs {
			inv, err := tx.GetInvoice(ctx, id)
			if err != nil {
				return err
			}
			invoices = append(invoices, inv)
		}
		existing, err := tx.ListBatchesByInvoice(ctx, invoiceIDs)
		if err != nil {
			return fmt.Errorf("load batches: %w", err)
		}
		b, err := s.payables.NewBatch(invoices, existing)
		if err != nil {
			return err
		}
		if err := tx.SaveBatch(ctx, b); err != nil {
			return fmt.Errorf("save batch: %w", err)
		}
		out = b
		return nil
	})
	if err != nil {
		return models.PaymentBatch{}, err
	}
	return out, nil
}

// ApproveBatch approves a draft batch.
func (s *Service) ApproveBatch(ctx context.Context, id string) (models.PaymentBatch, error) {
	var out models.PaymentBatch
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		b, err := tx.GetBatch(ctx, id)
		if err != nil {
			return err
		}
		if out, err = s.payables.ApproveBatch(b); err != nil {
			return err
		}
		return tx.SaveBatch(ctx, out)
	})
	return out, err
}

// ProcessBatch cuts sequential checks from checkStart and records the vendor payments.
func (s *Service) ProcessBatch(ctx context.Context, id string, checkStart int) (models.PaymentBatch, []models.VendorPayment, error) {
	var (
		out      models.PaymentBatch
		payments []models.VendorPayment
	)
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		b, err := tx.GetBatch(ctx, id)
		if err != nil {
			return err
		}
		if out, payments, err = s.payables.ProcessBatch(b, checkStart); err != nil {
			return err
		}
		if err := tx.SaveBatch(ctx, out); err != nil {
			return fmt.Errorf("save batch: %w", err)
		}
		if err := tx.SaveVendorPayments(ctx, payments); err != nil {
			return fmt.Errorf("save vendor payments: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.PaymentBatch{}, nil, err
	}
	return out, payments, nil
}

// DeleteBatch removes a draft batch.
func (s *Service) DeleteBatch(ctx context.Context, id string) error {
	return s.store.InTx(ctx, func(tx repository.Store) error {
		b, err := tx.GetBatch(ctx, id)
		if err != nil {
			return err
		}
		if err := payables.CanDeleteBatch(b); err != nil {
			return err
		}
		return tx.DeleteBatch(ctx, id)
	})
}
