package models

import "time"

// InvoiceStatus is the AP invoice lifecycle state.
type InvoiceStatus string

const (
	InvoiceDraft    InvoiceStatus = "draft"
	InvoiceApproved InvoiceStatus = "approved"
	InvoicePosted   InvoiceStatus = "posted"
	InvoiceRejected InvoiceStatus = "rejected"
)

// Invoice is an accounts-payable invoice built from an expense.
type Invoice struct {
	ID              string        `json:"id"`
	ExpenseID       string        `json:"expense_id"`
	VendorID        string        `json:"vendor_id"`
	InvoiceNumber   string        `json:"invoice_number"`
	InvoiceDate     time.Time     `json:"invoice_date"`
	DueDate         time.Time     `json:"due_date"`
	Total           float64       `json:"total"`
	Status          InvoiceStatus `json:"status"`
	ApprovedAt      *time.Time    `json:"approved_at,omitempty"`
	PostedAt        *time.Time    `json:"posted_at,omitempty"`
	RejectionReason string        `json:"rejection_reason,omitempty"`
}

// LedgerLine is one journal line generated when an invoice is posted. The journal itself is
// kept by an external ledger.
type LedgerLine struct {
	ID        string    `json:"id"`
	InvoiceID string    `json:"invoice_id"`
	Account   string    `json:"account"`
	Debit     float64   `json:"debit"`
	Credit    float64   `json:"credit"`
	Memo      string    `json:"memo,omitempty"`
	Date      time.Time `json:"date"`
}

// BatchStatus is the payment batch lifecycle state.
type BatchStatus string

const (
	BatchDraft      BatchStatus = "draft"
	BatchApproved   BatchStatus = "approved"
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
)

// PaymentItem pays one posted invoice.
type PaymentItem struct {
	InvoiceID   string  `json:"invoice_id"`
	VendorID    string  `json:"vendor_id"`
	Amount      float64 `json:"amount"`
	CheckNumber int     `json:"check_number,omitempty"`
}

// PaymentBatch groups invoice payments cut as sequential checks.
type PaymentBatch struct {
	ID               string        `json:"id"`
	Status           BatchStatus   `json:"status"`
	Items            []PaymentItem `json:"items"`
	CheckStartNumber int           `json:"check_start_number,omitempty"`
	ApprovedAt       *time.Time    `json:"approved_at,omitempty"`
	ProcessedAt      *time.Time    `json:"processed_at,omitempty"`
}

// VendorPayment is a completed payment to a vendor.
type VendorPayment struct {
	BatchID     string    `json:"batch_id"`
	InvoiceID   string    `json:"invoice_id"`
	VendorID    string    `json:"vendor_id"`
	Amount      float64   `json:"amount"`
	CheckNumber int       `json:"check_number"`
	PaidOn      time.Time `json:"paid_on"`
}
