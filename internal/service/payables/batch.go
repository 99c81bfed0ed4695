package payables

import (
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/domain/apperr"
	"github.com/mamadbah2/kitchenledger/internal/domain/models"
)

// NewBatch drafts a payment batch paying each invoice in full. Only posted invoices can be paid,
// an invoice appears at most once and never in more than one batch. existing holds the stored
// batches that already carry any of the invoices.
func (s *Service) NewBatch(invoices []models.Invoice, existing []models.PaymentBatch) (models.PaymentBatch, error) {
	if len(invoices) == 0 {
		return models.PaymentBatch{}, apperr.Validation("invoices", "at least one invoice is required")
	}

	claimed := make(map[string]models.BatchStatus)
	for _, b := range existing {
		for _, it := range b.Items {
			claimed[it.InvoiceID] = b.Status
		}
	}

	seen := make(map[string]struct{}, len(invoices))
	items := make([]models.PaymentItem, 0, len(invoices))
	for _, inv := range invoices {
		if inv.Status != models.InvoicePosted {
			return models.PaymentBatch{}, apperr.Conflict("invoice", inv.ID, string(inv.Status), "pay")
		}
		if status, ok := claimed[inv.ID]; ok {
			state := "batched"
			if status == models.BatchCompleted {
				state = "paid"
			}
			return models.PaymentBatch{}, apperr.Conflict("invoice", inv.ID, state, "pay")
		}
		if _, dup := seen[inv.ID]; dup {
			return models.PaymentBatch{}, apperr.Validation("invoices", "invoice "+inv.ID+" listed twice")
		}
		seen[inv.ID] = struct{}{}
		items = append(items, models.PaymentItem{InvoiceID: inv.ID, VendorID: inv.VendorID, Amount: inv.Total})
	}

	return models.PaymentBatch{ID: s.newID(), Status: models.BatchDraft, Items: items}, nil
}

// ApproveBatch moves a draft batch to approved.
func (s *Service) ApproveBatch(b models.PaymentBatch) (models.PaymentBatch, error) {
	if b.Status != models.BatchDraft {
		return b, apperr.Conflict("payment batch", b.ID, string(b.Status), "approve")
	}
	now := s.now().UTC()
	b.Status = models.BatchApproved
	b.ApprovedAt = &now
	return b, nil
}

// ProcessBatch cuts one check per item, numbered sequentially from checkStart in item order, and
// completes the batch. The batch passes through processing; callers persist only the completed
// state together with the returned payments.
func (s *Service) ProcessBatch(b models.PaymentBatch, checkStart int) (models.PaymentBatch, []models.VendorPayment, error) {
	if b.Status != models.BatchApproved {
		return b, nil, apperr.Conflict("payment batch", b.ID, string(b.Status), "process")
	}
	if checkStart <= 0 {
		return b, nil, apperr.Validation("check_start_number", "must be positive")
	}

	b.Status = models.BatchProcessing
	b.CheckStartNumber = checkStart
	now := s.now().UTC()

	items := make([]models.PaymentItem, len(b.Items))
	payments := make([]models.VendorPayment, 0, len(b.Items))
	for i, item := range b.Items {
		item.CheckNumber = checkStart + i
		items[i] = item
		payments = append(payments, models.VendorPayment{
			BatchID:     b.ID,
			InvoiceID:   item.InvoiceID,
			VendorID:    item.VendorID,
			Amount:      item.Amount,
			CheckNumber: item.CheckNumber,
			PaidOn:      now,
		})
	}
	b.Items = items

	b.Status = models.BatchCompleted
	b.ProcessedAt = &now
	s.logger.Info("payment batch processed",
		zap.String("batch_id", b.ID),
		zap.Int("checks", len(payments)),
		zap.Int("first_check", checkStart))
	return b, payments, nil
}

// CanDeleteBatch reports a ConflictError unless the batch is still a draft.
func CanDeleteBatch(b models.PaymentBatch) error {
	if b.Status != models.BatchDraft {
		return apperr.Conflict("payment batch", b.ID, string(b.Status), "delete")
	}
	return nil
}
