package models

import "time"

// Vendor supplies ingredients or services.
type Vendor struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Is1099Eligible bool   `json:"is_1099_eligible"`
}

// CategoryGroup decides which P&L bucket a category rolls into.
type CategoryGroup string

const (
	GroupOperating CategoryGroup = "operating"
	GroupMarketing CategoryGroup = "marketing"
	GroupCOGS      CategoryGroup = "cogs"
	GroupOther     CategoryGroup = "other"
)

// Category is an expense category.
type Category struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Group         CategoryGroup `json:"group"`
	ScheduleCLine string        `json:"schedule_c_line,omitempty"`
	Deleted       bool          `json:"deleted"`
}

// Expense is a vendor invoice or receipt.
type Expense struct {
	ID       string            `json:"id"`
	VendorID string            `json:"vendor_id"`
	Date     time.Time         `json:"date"`
	Lines    []ExpenseLineItem `json:"lines"`
}

// ExpenseLineItem is one raw line of an expense. A line maps to an ingredient or a category,
// never both. Locked lines were mapped by a person and are never touched by the auto-mapper.
type ExpenseLineItem struct {
	ID                 string  `json:"id"`
	ExpenseID          string  `json:"expense_id"`
	VendorID           string  `json:"vendor_id"`
	RawVendorCode      string  `json:"raw_vendor_code"`
	RawDescription     string  `json:"raw_description"`
	Quantity           float64 `json:"quantity"`
	UnitPrice          float64 `json:"unit_price"`
	LineTotal          float64 `json:"line_total"`
	MappedIngredientID string  `json:"mapped_ingredient_id,omitempty"`
	MappedCategoryID   string  `json:"mapped_category_id,omitempty"`
	MappingConfidence  float64 `json:"mapping_confidence"`
	Locked             bool    `json:"locked"`
}

// IsMapped reports whether the line points at an ingredient or a category.
func (l ExpenseLineItem) IsMapped() bool {
	return l.MappedIngredientID != "" || l.MappedCategoryID != ""
}

// MatchType enumerates how a mapping rule is compared against a line.
type MatchType string

const (
	MatchExactCode MatchType = "exact_code"
	MatchExactDesc MatchType = "exact_desc"
	MatchContains  MatchType = "contains"
	MatchRegex     MatchType = "regex"
)

// MappingRule classifies lines of one vendor into an ingredient XOR a category.
type MappingRule struct {
	ID           string    `json:"id"`
	VendorID     string    `json:"vendor_id"`
	MatchType    MatchType `json:"match_type"`
	MatchValue   string    `json:"match_value"`
	IngredientID string    `json:"ingredient_id,omitempty"`
	CategoryID   string    `json:"category_id,omitempty"`
	Active       bool      `json:"active"`
	Priority     int       `json:"priority"` // tie-break within one match type, lower first
}
