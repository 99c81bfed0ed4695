package mapping

import (
	"sort"
	"strings"

	"github.com/mamadbah2/kitchenledger/internal/domain/apperr"
	"github.com/mamadbah2/kitchenledger/internal/domain/models"
)

// Policy assigns a fixed confidence to each match kind.
type Policy map[models.MatchType]float64

// DefaultPolicy reflects how specific each match kind is. It is a starting default and may be
// recalibrated.
func DefaultPolicy() Policy {
	return Policy{
		models.MatchExactCode: 1.0,
		models.MatchExactDesc: 0.9,
		models.MatchContains:  0.6,
		models.MatchRegex:     0.7,
	}
}

// matcher pairs a match kind with its predicate.
type matcher struct {
	kind models.MatchType
	test func(e *Engine, rule models.MappingRule, line models.ExpenseLineItem) bool
}

// precedence lists the match kinds from most to least specific.
var precedence = [...]matcher{
	{kind: models.MatchExactCode, test: func(_ *Engine, r models.MappingRule, l models.ExpenseLineItem) bool {
		return equalFoldTrimmed(r.MatchValue, l.RawVendorCode)
	}},
	{kind: models.MatchExactDesc, test: func(_ *Engine, r models.MappingRule, l models.ExpenseLineItem) bool {
		return equalFoldTrimmed(r.MatchValue, l.RawDescription)
	}},
	{kind: models.MatchContains, test: func(_ *Engine, r models.MappingRule, l models.ExpenseLineItem) bool {
		needle := strings.ToLower(strings.TrimSpace(r.MatchValue))
		return needle != "" && strings.Contains(strings.ToLower(l.RawDescription), needle)
	}},
	{kind: models.MatchRegex, test: (*Engine).matchRegex},
}

func rank(kind models.MatchType) int {
	for i, m := range precedence {
		if m.kind == kind {
			return i
		}
	}
	return -1
}

func equalFoldTrimmed(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}

// ValidateRule checks that a rule has a known match kind, a value and exactly one target.
func ValidateRule(rule models.MappingRule) error {
	if rank(rule.MatchType) < 0 {
		return apperr.Validation("match_type", "unknown match type "+string(rule.MatchType))
	}
	if strings.TrimSpace(rule.MatchValue) == "" {
		return apperr.Validation("match_value", "must not be empty")
	}
	if (rule.IngredientID == "") == (rule.CategoryID == "") {
		return apperr.Validation("target", "rule must target an ingredient or a category")
	}
	return nil
}

// orderRules keeps the active rules of vendorID in evaluation order: match kind precedence,
// then priority, then ID.
func orderRules(rules []models.MappingRule, vendorID string) []models.MappingRule {
	out := make([]models.MappingRule, 0, len(rules))
	for _, r := range rules {
		if r.Active && r.VendorID == vendorID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := rank(out[i].MatchType), rank(out[j].MatchType)
		if ri != rj {
			return ri < rj
		}
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Catalog is the snapshot of live mapping targets.
type Catalog struct {
	Ingredients map[string]models.Ingredient
	Categories  map[string]models.Category
}

// resolve returns a NotFoundError when the rule's target is missing or soft-deleted.
func (c Catalog) resolve(rule models.MappingRule) error {
	if rule.IngredientID != "" {
		ing, ok := c.Ingredients[rule.IngredientID]
		if !ok || ing.Deleted {
			return apperr.NotFound("ingredient", rule.IngredientID)
		}
		return nil
	}
	cat, ok := c.Categories[rule.CategoryID]
	if !ok || cat.Deleted {
		return apperr.NotFound("category", rule.CategoryID)
	}
	return nil
}
