package models

import "time"

// Ingredient is a purchasable input priced per purchase unit and consumed in usage units.
type Ingredient struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	VendorID             string     `json:"vendor_id,omitempty"`
	PurchasePrice        float64    `json:"purchase_price"`
	PurchaseUnit         string     `json:"purchase_unit"`
	UsageUnit            string     `json:"usage_unit"`
	UnitConversionFactor float64    `json:"unit_conversion_factor"` // usage units per purchase unit
	YieldPercent         float64    `json:"yield_percent"`          // usable fraction, 0 < v <= 1
	LastPriceUpdate      *time.Time `json:"last_price_update,omitempty"`
	Deleted              bool       `json:"deleted"`
}

// RecipeLine is the quantity of one ingredient used per plate of a menu item.
// (MenuItemID, IngredientID) is unique.
type RecipeLine struct {
	MenuItemID   string  `json:"menu_item_id"`
	IngredientID string  `json:"ingredient_id"`
	QuantityUsed float64 `json:"quantity_used"`
}

// MenuCategory groups revenue lines on the P&L.
type MenuCategory string

const (
	MenuFood     MenuCategory = "food"
	MenuBeverage MenuCategory = "beverage"
	MenuAlcohol  MenuCategory = "alcohol"
	MenuCatering MenuCategory = "catering"
	MenuOther    MenuCategory = "other"
)

// MenuItem is a sellable plate.
type MenuItem struct {
	ID                       string       `json:"id"`
	Name                     string       `json:"name"`
	Category                 MenuCategory `json:"category"`
	SellingPrice             float64      `json:"selling_price"`
	QFactor                  float64      `json:"q_factor"`
	TargetCostPercent        float64      `json:"target_cost_percent"`
	EstimatedPrepTimeMinutes float64      `json:"estimated_prep_time_minutes"`
}

// SalesRecord is the quantity of one menu item sold on one day. (Date, MenuItemID) is unique and
// a zero quantity is never stored.
type SalesRecord struct {
	Date         time.Time `json:"date"`
	MenuItemID   string    `json:"menu_item_id"`
	QuantitySold int       `json:"quantity_sold"`
	Discounts    float64   `json:"discounts"` // comps and discounts given on this item that day
}
