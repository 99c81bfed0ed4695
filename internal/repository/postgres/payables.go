package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mamadbah2/kitchenledger/internal/domain/apperr"
	"github.com/mamadbah2/kitchenledger/internal/domain/models"
)

const payrollColumns = `id, pay_run_id, employee_id, employee_name, period_start, period_end,
	regular_hours, overtime_hours, hourly_rate, tips,
	gross_pay, federal_withholding, state_withholding, social_security, medicare, total_withholding, net_pay,
	employer_social_security, employer_medicare, futa, suta, employer_taxes, total_employer_cost, posted_at`

// SavePayRun stores a run and its records. Records are immutable, so a second save of the same
// run fails on the primary key.
func (s *Store) SavePayRun(ctx context.Context, run models.PayRun) error {
	return s.atomic(ctx, func(db querier) error {
		if _, err := db.Exec(ctx, `
			INSERT INTO pay_runs (id, period_start, period_end, total_gross, total_net, total_employer_cost)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, run.ID, run.PeriodStart, run.PeriodEnd, run.TotalGross, run.TotalNet, run.TotalEmployerCost); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, r := range run.Records {
			batch.Queue(`INSERT INTO payroll_records (`+payrollColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`,
				r.ID, r.PayRunID, r.EmployeeID, r.EmployeeName, r.PeriodStart, r.PeriodEnd,
				r.RegularHours, r.OvertimeHours, r.HourlyRate, r.Tips,
				r.GrossPay, r.FederalWithholding, r.StateWithholding, r.SocialSecurity, r.Medicare, r.TotalWithholding, r.NetPay,
				r.EmployerSocialSecurity, r.EmployerMedicare, r.FUTA, r.SUTA, r.EmployerTaxes, r.TotalEmployerCost, r.PostedAt)
		}
		return sendBatch(ctx, db, batch)
	})
}

func (s *Store) ListPayroll(ctx context.Context, start, end time.Time) ([]models.PayrollRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+payrollColumns+` FROM payroll_records
		WHERE period_end >= $1 AND period_start <= $2
		ORDER BY period_start, employee_id, id
	`, start, end)
	return collect(rows, err, func(row scanner) (models.PayrollRecord, error) {
		var r models.PayrollRecord
		err := row.Scan(&r.ID, &r.PayRunID, &r.EmployeeID, &r.EmployeeName, &r.PeriodStart, &r.PeriodEnd,
			&r.RegularHours, &r.OvertimeHours, &r.HourlyRate, &r.Tips,
			&r.GrossPay, &r.FederalWithholding, &r.StateWithholding, &r.SocialSecurity, &r.Medicare, &r.TotalWithholding, &r.NetPay,
			&r.EmployerSocialSecurity, &r.EmployerMedicare, &r.FUTA, &r.SUTA, &r.EmployerTaxes, &r.TotalEmployerCost, &r.PostedAt)
		r.PeriodStart, r.PeriodEnd, r.PostedAt = r.PeriodStart.UTC(), r.PeriodEnd.UTC(), r.PostedAt.UTC()
		return r, err
	})
}

const invoiceColumns = `id, expense_id, vendor_id, invoice_number, invoice_date, due_date, total, status,
	approved_at, posted_at, rejection_reason`

func scanInvoice(row scanner) (models.Invoice, error) {
	var (
		inv models.Invoice
		due *time.Time
	)
	if err := row.Scan(&inv.ID, &inv.ExpenseID, &inv.VendorID, &inv.InvoiceNumber, &inv.InvoiceDate, &due, &inv.Total, &inv.Status,
		&inv.ApprovedAt, &inv.PostedAt, &inv.RejectionReason); err != nil {
		return models.Invoice{}, err
	}
	inv.InvoiceDate = inv.InvoiceDate.UTC()
	inv.DueDate = deref(due)
	inv.ApprovedAt, inv.PostedAt = utcPtr(inv.ApprovedAt), utcPtr(inv.PostedAt)
	return inv, nil
}

func (s *Store) GetInvoice(ctx context.Context, id string) (models.Invoice, error) {
	inv, err := scanInvoice(s.db.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		return models.Invoice{}, lookupErr(err, "invoice", id)
	}
	return inv, nil
}

func (s *Store) ListInvoicesByExpense(ctx context.Context, expenseID string) ([]models.Invoice, error) {
	rows, err := s.db.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE expense_id = $1 ORDER BY id`, expenseID)
	return collect(rows, err, scanInvoice)
}

func (s *Store) SaveInvoice(ctx context.Context, inv models.Invoice) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO invoices (id, expense_id, vendor_id, invoice_number, invoice_date, due_date, total, status,
			approved_at, posted_at, rejection_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			invoice_number = EXCLUDED.invoice_number,
			due_date = EXCLUDED.due_date,
			status = EXCLUDED.status,
			approved_at = EXCLUDED.approved_at,
			posted_at = EXCLUDED.posted_at,
			rejection_reason = EXCLUDED.rejection_reason
	`, inv.ID, inv.ExpenseID, inv.VendorID, inv.InvoiceNumber, inv.InvoiceDate, nullTime(inv.DueDate), inv.Total, inv.Status,
		inv.ApprovedAt, inv.PostedAt, inv.RejectionReason)
	return err
}

func (s *Store) DeleteInvoice(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("invoice", id)
	}
	return nil
}

func (s *Store) SaveLedgerLines(ctx context.Context, lines []models.LedgerLine) error {
	batch := &pgx.Batch{}
	for _, l := range lines {
		batch.Queue(`
			INSERT INTO ledger_lines (id, invoice_id, account, debit, credit, memo, entry_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, l.ID, l.InvoiceID, l.Account, l.Debit, l.Credit, l.Memo, l.Date)
	}
	return sendBatch(ctx, s.db, batch)
}

func (s *Store) GetBatch(ctx context.Context, id string) (models.PaymentBatch, error) {
	var b models.PaymentBatch
	err := s.db.QueryRow(ctx, `
		SELECT id, status, check_start_number, approved_at, processed_at FROM payment_batches WHERE id = $1
	`, id).Scan(&b.ID, &b.Status, &b.CheckStartNumber, &b.ApprovedAt, &b.ProcessedAt)
	if err != nil {
		return models.PaymentBatch{}, lookupErr(err, "payment batch", id)
	}
	b.ApprovedAt, b.ProcessedAt = utcPtr(b.ApprovedAt), utcPtr(b.ProcessedAt)

	rows, err := s.db.Query(ctx, `
		SELECT invoice_id, vendor_id, amount, check_number FROM payment_items
		WHERE batch_id = $1 ORDER BY position
	`, id)
	b.Items, err = collect(rows, err, func(row scanner) (models.PaymentItem, error) {
		var it models.PaymentItem
		err := row.Scan(&it.InvoiceID, &it.VendorID, &it.Amount, &it.CheckNumber)
		return it, err
	})
	if err != nil {
		return models.PaymentBatch{}, err
	}
	return b, nil
}

// SaveBatch replaces the batch and its items.
func (s *Store) SaveBatch(ctx context.Context, b models.PaymentBatch) error {
	return s.atomic(ctx, func(db querier) error {
		if _, err := db.Exec(ctx, `
			INSERT INTO payment_batches (id, status, check_start_number, approved_at, processed_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				status = EXCLUDED.status,
				check_start_number = EXCLUDED.check_start_number,
				approved_at = EXCLUDED.approved_at,
				processed_at = EXCLUDED.processed_at
		`, b.ID, b.Status, b.CheckStartNumber, b.ApprovedAt, b.ProcessedAt); err != nil {
			return err
		}
		if _, err := db.Exec(ctx, `DELETE FROM payment_items WHERE batch_id = $1`, b.ID); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for i, it := range b.Items {
			batch.Queue(`
				INSERT INTO payment_items (batch_id, invoice_id, vendor_id, amount, check_number, position)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, b.ID, it.InvoiceID, it.VendorID, it.Amount, it.CheckNumber, i)
		}
		return sendBatch(ctx, db, batch)
	})
}

func (s *Store) DeleteBatch(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM payment_batches WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("payment batch", id)
	}
	return nil
}

func (s *Store) ListBatchesByInvoice(ctx context.Context, invoiceIDs []string) ([]models.PaymentBatch, error) {
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT batch_id FROM payment_items WHERE invoice_id = ANY($1) ORDER BY batch_id
	`, invoiceIDs)
	ids, err := collect(rows, err, func(row scanner) (string, error) {
		var id string
		err := row.Scan(&id)
		return id, err
	})
	if err != nil {
		return nil, err
	}

	out := make([]models.PaymentBatch, 0, len(ids))
	for _, id := range ids {
		b, err := s.GetBatch(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *Store) SaveVendorPayments(ctx context.Context, payments []models.VendorPayment) error {
	batch := &pgx.Batch{}
	for _, p := range payments {
		batch.Queue(`
			INSERT INTO vendor_payments (batch_id, invoice_id, vendor_id, amount, check_number, paid_on)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, p.BatchID, p.InvoiceID, p.VendorID, p.Amount, p.CheckNumber, p.PaidOn)
	}
	return sendBatch(ctx, s.db, batch)
}

func (s *Store) ListVendorPayments(ctx context.Context, start, end time.Time) ([]models.VendorPayment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT batch_id, invoice_id, vendor_id, amount, check_number, paid_on
		FROM vendor_payments
		WHERE paid_on BETWEEN $1 AND $2
		ORDER BY paid_on, check_number
	`, start, end)
	return collect(rows, err, func(row scanner) (models.VendorPayment, error) {
		var p models.VendorPayment
		err := row.Scan(&p.BatchID, &p.InvoiceID, &p.VendorID, &p.Amount, &p.CheckNumber, &p.PaidOn)
		p.PaidOn = p.PaidOn.UTC()
		return p, err
	})
}
