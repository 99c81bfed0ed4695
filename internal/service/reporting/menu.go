package reporting

import (
	"sort"

	"github.com/mamadbah2/kitchenledger/internal/domain/apperr"
	"github.com/mamadbah2/kitchenledger/internal/service/costing"
	"github.com/mamadbah2/kitchenledger/pkg/money"
)

// Quadrant is the menu engineering class of an item.
type Quadrant string

const (
	Champion     Quadrant = "champion"      // high velocity, high margin
	HiddenGem    Quadrant = "hidden_gem"    // low velocity, high margin
	VolumeDriver Quadrant = "volume_driver" // high velocity, low margin
	NeedsReview  Quadrant = "needs_review"  // low velocity, low margin
)

// MenuPerformance is how one menu item sold over a range.
type MenuPerformance struct {
	MenuItemID        string   `json:"menu_item_id"`
	Name              string   `json:"name"`
	QuantitySold      int      `json:"quantity_sold"`
	Revenue           float64  `json:"revenue"`
	UnitMargin        float64  `json:"unit_margin"` // selling price - plate cost
	TotalMargin       float64  `json:"total_margin"`
	FoodCostPercent   *float64 `json:"food_cost_percent"`
	TargetCostPercent float64  `json:"target_cost_percent"`
	CostConfigured    bool     `json:"cost_configured"`
	Quadrant          Quadrant `json:"quadrant,omitempty"`
}

// MenuPerformance reports every menu item, sold or not, over the range. Items are ordered by ID.
func (s *Service) MenuPerformance(in Input, r Range) ([]MenuPerformance, error) {
	sold := make(map[string]int)
	for _, sale := range in.Sales {
		if !r.Contains(sale.Date) || sale.QuantitySold <= 0 {
			continue
		}
		if _, ok := in.MenuItems[sale.MenuItemID]; !ok {
			return nil, apperr.NotFound("menu item", sale.MenuItemID)
		}
		sold[sale.MenuItemID] += sale.QuantitySold
	}

	out := make([]MenuPerformance, 0, len(in.MenuItems))
	for id, item := range in.MenuItems {
		lines := in.Recipes[id]
		plate := money.Round(costing.PlateCost(item, lines))
		margin := money.Sub(item.SellingPrice, plate)
		qty := sold[id]
		out = append(out, MenuPerformance{
			MenuItemID:        id,
			Name:              item.Name,
			QuantitySold:      qty,
			Revenue:           money.Mul(float64(qty), item.SellingPrice),
			UnitMargin:        margin,
			TotalMargin:       money.Mul(float64(qty), margin),
			FoodCostPercent:   money.Percent(plate, item.SellingPrice),
			TargetCostPercent: item.TargetCostPercent,
			CostConfigured:    len(lines) > 0,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MenuItemID < out[j].MenuItemID })
	return out, nil
}

// Classify places one item given the menu averages. Values at the average count as high.
func Classify(quantity int, margin, avgQuantity, avgMargin float64) Quadrant {
	highVelocity := float64(quantity) >= avgQuantity
	highMargin := margin >= avgMargin
	switch {
	case highVelocity && highMargin:
		return Champion
	case highMargin:
		return HiddenGem
	case highVelocity:
		return VolumeDriver
	default:
		return NeedsReview
	}
}

// ClassifyMenu assigns a quadrant to each item against the average velocity and unit margin of
// the whole slice. The input is not modified.
func ClassifyMenu(items []MenuPerformance) []MenuPerformance {
	if len(items) == 0 {
		return nil
	}

	var qty, margin float64
	for _, it := range items {
		qty += float64(it.QuantitySold)
		margin += it.UnitMargin
	}
	avgQty := qty / float64(len(items))
	avgMargin := margin / float64(len(items))

	out := make([]MenuPerformance, len(items))
	for i, it := range items {
		it.Quadrant = Classify(it.QuantitySold, it.UnitMargin, avgQty, avgMargin)
		out[i] = it
	}
	return out
}

// FoodCostAlerts returns items whose food cost percent exceeds their target. Items without a
// recipe or without a target are never reported.
func FoodCostAlerts(items []MenuPerformance) []MenuPerformance {
	var out []MenuPerformance
	for _, it := range items {
		if !it.CostConfigured || it.TargetCostPercent <= 0 || it.FoodCostPercent == nil {
			continue
		}
		if *it.FoodCostPercent > it.TargetCostPercent {
			out = append(out, it)
		}
	}
	return out
}
