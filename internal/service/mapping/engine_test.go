package mapping

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mamadbah2/kitchenledger/internal/domain/apperr"
	"github.com/mamadbah2/kitchenledger/internal/domain/models"
)

const sysco = "vendor-sysco"

func testCatalog() Catalog {
	return Catalog{
		Ingredients: map[string]models.Ingredient{
			"ing-chicken": {ID: "ing-chicken", Name: "Chicken breast"},
			"ing-thighs":  {ID: "ing-thighs", Name: "Chicken thighs"},
			"ing-retired": {ID: "ing-retired", Name: "Old sauce", Deleted: true},
		},
		Categories: map[string]models.Category{
			"cat-paper":    {ID: "cat-paper", Name: "Paper goods", Group: models.GroupOperating},
			"cat-cleaning": {ID: "cat-cleaning", Name: "Cleaning", Group: models.GroupOperating},
		},
	}
}

func line(id, code, desc string) models.ExpenseLineItem {
	return models.ExpenseLineItem{ID: id, VendorID: sysco, RawVendorCode: code, RawDescription: desc, LineTotal: 10}
}

func TestMatchPrecedenceExactCodeWinsOverContains(t *testing.T) {
	t.Parallel()

	rules := []models.MappingRule{
		{ID: "r-contains", VendorID: sysco, MatchType: models.MatchContains, MatchValue: "chix brst", IngredientID: "ing-thighs", Active: true},
		{ID: "r-code", VendorID: sysco, MatchType: models.MatchExactCode, MatchValue: "  SY-1001 ", IngredientID: "ing-chicken", Active: true},
	}

	res, err := NewEngine(50*time.Millisecond, nil, nil).Match(line("l1", "sy-1001", "CHIX BRST BNLS 40LB"), rules, testCatalog())
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, "r-code", res.RuleID)
	require.Equal(t, "ing-chicken", res.IngredientID)
	require.Equal(t, 1.0, res.Confidence)
}

func TestMatchKindsAndConfidence(t *testing.T) {
	t.Parallel()

	engine := NewEngine(50*time.Millisecond, nil, nil)

	tests := []struct {
		name       string
		rule       models.MappingRule
		line       models.ExpenseLineItem
		wantMatch  bool
		confidence float64
	}{
		{
			name:       "exact description ignores case and spaces",
			rule:       models.MappingRule{MatchType: models.MatchExactDesc, MatchValue: "napkins 500ct"},
			line:       line("l", "", "  NAPKINS 500CT "),
			wantMatch:  true,
			confidence: 0.9,
		},
		{
			name:       "contains",
			rule:       models.MappingRule{MatchType: models.MatchContains, MatchValue: "bleach"},
			line:       line("l", "", "CLOROX BLEACH 6/1GAL"),
			wantMatch:  true,
			confidence: 0.6,
		},
		{
			name:       "regex",
			rule:       models.MappingRule{MatchType: models.MatchRegex, MatchValue: `^towel(s)?\s+\d+`},
			line:       line("l", "", "Towels 12 pack"),
			wantMatch:  true,
			confidence: 0.7,
		},
		{
			name: "exact description does not match substrings",
			rule: models.MappingRule{MatchType: models.MatchExactDesc, MatchValue: "napkins"},
			line: line("l", "", "NAPKINS 500CT"),
		},
		{
			name: "exact code does not match empty code",
			rule: models.MappingRule{MatchType: models.MatchExactCode, MatchValue: "X1"},
			line: line("l", "", "X1"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rule := tc.rule
			rule.ID, rule.VendorID, rule.CategoryID, rule.Active = "r", sysco, "cat-paper", true

			res, err := engine.Match(tc.line, []models.MappingRule{rule}, testCatalog())
			require.NoError(t, err)
			if !tc.wantMatch {
				require.Nil(t, res)
				return
			}
			require.NotNil(t, res)
			require.Equal(t, tc.confidence, res.Confidence)
			require.Equal(t, "cat-paper", res.CategoryID)
		})
	}
}

func TestMatchIgnoresOtherVendorsAndInactiveRules(t *testing.T) {
	t.Parallel()

	rules := []models.MappingRule{
		{ID: "other-vendor", VendorID: "vendor-usfoods", MatchType: models.MatchContains, MatchValue: "chix", IngredientID: "ing-chicken", Active: true},
		{ID: "inactive", VendorID: sysco, MatchType: models.MatchContains, MatchValue: "chix", IngredientID: "ing-chicken"},
	}

	res, err := NewEngine(50*time.Millisecond, nil, nil).Match(line("l1", "", "CHIX BRST"), rules, testCatalog())
	require.NoError(t, err)
	require.Nil(t, res)
}

func TestMatchPriorityBreaksTiesWithinKind(t *testing.T) {
	t.Parallel()

	rules := []models.MappingRule{
		{ID: "b", VendorID: sysco, MatchType: models.MatchContains, MatchValue: "chix", IngredientID: "ing-thighs", Active: true, Priority: 5},
		{ID: "a", VendorID: sysco, MatchType: models.MatchContains, MatchValue: "brst", IngredientID: "ing-chicken", Active: true, Priority: 1},
	}

	res, err := NewEngine(50*time.Millisecond, nil, nil).Match(line("l1", "", "CHIX BRST"), rules, testCatalog())
	require.NoError(t, err)
	require.Equal(t, "a", res.RuleID)
}

func TestMatchDanglingTargetReportsNotFound(t *testing.T) {
	t.Parallel()

	rules := []models.MappingRule{
		{ID: "r", VendorID: sysco, MatchType: models.MatchContains, MatchValue: "sauce", IngredientID: "ing-retired", Active: true},
	}

	res, err := NewEngine(50*time.Millisecond, nil, nil).Match(line("l1", "", "HOUSE SAUCE"), rules, testCatalog())
	require.Nil(t, res)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestApplyIsIdempotentAndSkipsLockedLines(t *testing.T) {
	t.Parallel()

	rules := []models.MappingRule{
		{ID: "r-code", VendorID: sysco, MatchType: models.MatchExactCode, MatchValue: "SY-1001", IngredientID: "ing-chicken", Active: true},
		{ID: "r-paper", VendorID: sysco, MatchType: models.MatchContains, MatchValue: "napkin", CategoryID: "cat-paper", Active: true},
		{ID: "r-sauce", VendorID: sysco, MatchType: models.MatchContains, MatchValue: "sauce", IngredientID: "ing-retired", Active: true},
	}

	locked := line("l3", "SY-1001", "CHIX BRST")
	locked.MappedCategoryID = "cat-cleaning"
	locked.MappingConfidence = 0.4
	locked.Locked = true

	lines := []models.ExpenseLineItem{
		line("l1", "SY-1001", "CHIX BRST"),
		line("l2", "", "NAPKINS 500CT"),
		locked,
		line("l4", "", "HOUSE SAUCE"),
		line("l5", "", "MYSTERY ITEM"),
	}

	engine := NewEngine(50*time.Millisecond, nil, nil)
	first := engine.Apply(lines, rules, testCatalog())
	second := engine.Apply(first.Lines, rules, testCatalog())

	require.Equal(t, 2, first.Applied)
	require.Equal(t, 5, first.Total)
	require.Equal(t, 1, first.SkippedLocked)
	require.Equal(t, first.Applied, second.Applied)
	require.Equal(t, first.Total, second.Total)
	require.Equal(t, first.Lines, second.Lines)
	require.Equal(t, first.Mappings, second.Mappings)

	require.Equal(t, "ing-chicken", first.Lines[0].MappedIngredientID)
	require.Equal(t, 1.0, first.Lines[0].MappingConfidence)
	require.Equal(t, "cat-paper", first.Lines[1].MappedCategoryID)
	require.Equal(t, locked, first.Lines[2])
	require.False(t, first.Lines[3].IsMapped(), "dangling target leaves the line unmapped")
	require.Equal(t, 0.0, first.Lines[4].MappingConfidence)
	require.Len(t, first.Mappings, 4, "locked lines produce no mapping to persist")
}

func TestApplyRecomputesStaleAutoMapping(t *testing.T) {
	t.Parallel()

	auto := line("l1", "", "NAPKINS 500CT")
	auto.MappedIngredientID = "ing-chicken"
	auto.MappingConfidence = 0.6

	res := NewEngine(50*time.Millisecond, nil, nil).Apply([]models.ExpenseLineItem{auto}, nil, testCatalog())
	require.Equal(t, 0, res.Applied)
	require.False(t, res.Lines[0].IsMapped())
	require.Equal(t, 0.0, res.Lines[0].MappingConfidence)
}

func TestRegexTimeoutIsTreatedAsNoMatch(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	engine := NewEngine(10*time.Millisecond, nil, zap.New(core))

	rules := []models.MappingRule{
		{ID: "evil", VendorID: sysco, MatchType: models.MatchRegex, MatchValue: `^(a+)+$`, CategoryID: "cat-paper", Active: true},
		{ID: "fallback", VendorID: sysco, MatchType: models.MatchRegex, MatchValue: `a{3}`, CategoryID: "cat-cleaning", Active: true},
	}
	evil := line("l1", "", strings.Repeat("a", 40)+"!")

	started := time.Now()
	res, err := engine.Match(evil, rules, testCatalog())
	require.NoError(t, err)
	require.Less(t, time.Since(started), 5*time.Second)

	require.NotNil(t, res)
	require.Equal(t, "fallback", res.RuleID)
	require.Equal(t, 1, logs.FilterMessage("mapping regex exceeded time budget").Len())
}

func TestInvalidRegexIsSkipped(t *testing.T) {
	t.Parallel()

	rules := []models.MappingRule{
		{ID: "broken", VendorID: sysco, MatchType: models.MatchRegex, MatchValue: `([`, CategoryID: "cat-paper", Active: true},
	}
	res, err := NewEngine(50*time.Millisecond, nil, nil).Match(line("l1", "", "anything"), rules, testCatalog())
	require.NoError(t, err)
	require.Nil(t, res)
}

func TestValidateRule(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateRule(models.MappingRule{MatchType: models.MatchContains, MatchValue: "x", CategoryID: "c"}))
	require.ErrorIs(t, ValidateRule(models.MappingRule{MatchType: "fuzzy", MatchValue: "x", CategoryID: "c"}), apperr.ErrValidation)
	require.ErrorIs(t, ValidateRule(models.MappingRule{MatchType: models.MatchContains, MatchValue: " ", CategoryID: "c"}), apperr.ErrValidation)
	require.ErrorIs(t, ValidateRule(models.MappingRule{MatchType: models.MatchContains, MatchValue: "x", CategoryID: "c", IngredientID: "i"}), apperr.ErrValidation)
	require.ErrorIs(t, ValidateRule(models.MappingRule{MatchType: models.MatchContains, MatchValue: "x"}), apperr.ErrValidation)
}

func TestSuggestRanksBySimilarity(t *testing.T) {
	t.Parallel()

	ingredients := []models.Ingredient{
		{ID: "ing-chicken", Name: "Chicken breast"},
		{ID: "ing-thighs", Name: "Chicken thighs"},
		{ID: "ing-lettuce", Name: "Romaine lettuce"},
		{ID: "ing-gone", Name: "Chicken breasts", Deleted: true},
	}

	got := Suggest(line("l1", "", "CHICKEN BREAST"), ingredients, 2)
	require.Len(t, got, 2)
	require.Equal(t, "ing-chicken", got[0].IngredientID)
	require.Equal(t, 1.0, got[0].Similarity)
	require.Equal(t, "ing-thighs", got[1].IngredientID)

	require.Nil(t, Suggest(line("l2", "", "   "), ingredients, 2))
}
