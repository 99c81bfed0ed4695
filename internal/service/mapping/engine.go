// Package mapping classifies raw invoice lines into ingredients or expense categories using
// vendor-scoped rules.
package mapping

import (
	"errors"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/domain/apperr"
	"github.com/mamadbah2/kitchenledger/internal/domain/models"
)

// Result is the target a line resolved to.
type Result struct {
	RuleID       string           `json:"rule_id"`
	MatchType    models.MatchType `json:"match_type"`
	IngredientID string           `json:"ingredient_id,omitempty"`
	CategoryID   string           `json:"category_id,omitempty"`
	Confidence   float64          `json:"confidence"`
}

// LineMapping is the mapping to persist for one unlocked line. Empty targets clear the line.
type LineMapping struct {
	LineID       string  `json:"line_id"`
	IngredientID string  `json:"ingredient_id,omitempty"`
	CategoryID   string  `json:"category_id,omitempty"`
	Confidence   float64 `json:"confidence"`
}

// BatchResult summarises one Apply call: Applied of Total lines were auto-categorized.
type BatchResult struct {
	Applied       int                      `json:"applied"`
	Total         int                      `json:"total"`
	SkippedLocked int                      `json:"skipped_locked"`
	Mappings      []LineMapping            `json:"mappings"`
	Lines         []models.ExpenseLineItem `json:"lines"`
}

type compiled struct {
	re  *regexp2.Regexp
	err error
}

// Engine evaluates mapping rules. It is safe for concurrent use.
type Engine struct {
	policy       Policy
	regexTimeout time.Duration
	logger       *zap.Logger

	mu       sync.RWMutex
	patterns map[string]compiled
}

// NewEngine builds an Engine. A nil policy uses DefaultPolicy.
func NewEngine(regexTimeout time.Duration, policy Policy, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Engine{
		policy:       policy,
		regexTimeout: regexTimeout,
		logger:       logger,
		patterns:     make(map[string]compiled),
	}
}

// Match returns the first rule that matches line, or nil. Rules of other vendors and inactive
// rules are ignored. When the winning rule points at a missing or deleted target, Match returns
// a NotFoundError and no result.
func (e *Engine) Match(line models.ExpenseLineItem, rules []models.MappingRule, catalog Catalog) (*Result, error) {
	for _, rule := range orderRules(rules, line.VendorID) {
		if err := ValidateRule(rule); err != nil {
			e.logger.Warn("skip malformed mapping rule", zap.String("rule_id", rule.ID), zap.Error(err))
			continue
		}
		m := precedence[rank(rule.MatchType)]
		if !m.test(e, rule, line) {
			continue
		}
		if err := catalog.resolve(rule); err != nil {
			return nil, err
		}
		return &Result{
			RuleID:       rule.ID,
			MatchType:    rule.MatchType,
			IngredientID: rule.IngredientID,
			CategoryID:   rule.CategoryID,
			Confidence:   e.policy[rule.MatchType],
		}, nil
	}
	return nil, nil
}

// Apply maps every unlocked line. Locked lines are returned untouched. Unlocked lines are
// recomputed from the current rules, so running Apply again on unchanged data yields the same
// result. A rule with a dangling target leaves its line unmapped.
func (e *Engine) Apply(lines []models.ExpenseLineItem, rules []models.MappingRule, catalog Catalog) BatchResult {
	res := BatchResult{
		Total: len(lines),
		Lines: make([]models.ExpenseLineItem, 0, len(lines)),
	}

	for _, line := range lines {
		if line.Locked {
			res.SkippedLocked++
			res.Lines = append(res.Lines, line)
			continue
		}

		match, err := e.Match(line, rules, catalog)
		if err != nil {
			if !errors.Is(err, apperr.ErrNotFound) {
				e.logger.Error("mapping evaluation failed", zap.String("line_id", line.ID), zap.Error(err))
			} else {
				e.logger.Warn("mapping rule target missing, line left unmapped", zap.String("line_id", line.ID), zap.Error(err))
			}
			match = nil
		}

		line.MappedIngredientID, line.MappedCategoryID, line.MappingConfidence = "", "", 0
		if match != nil {
			line.MappedIngredientID = match.IngredientID
			line.MappedCategoryID = match.CategoryID
			line.MappingConfidence = match.Confidence
			res.Applied++
		}

		res.Lines = append(res.Lines, line)
		res.Mappings = append(res.Mappings, LineMapping{
			LineID:       line.ID,
			IngredientID: line.MappedIngredientID,
			CategoryID:   line.MappedCategoryID,
			Confidence:   line.MappingConfidence,
		})
	}

	e.logger.Debug("mappings applied", zap.Int("applied", res.Applied), zap.Int("total", res.Total), zap.Int("locked", res.SkippedLocked))
	return res
}

// matchRegex evaluates the rule pattern against the description within the engine's time
// budget. Timeouts and invalid patterns count as non-matching.
func (e *Engine) matchRegex(rule models.MappingRule, line models.ExpenseLineItem) bool {
	re, err := e.compile(rule.MatchValue)
	if err != nil {
		e.logger.Warn("invalid mapping regex", zap.String("rule_id", rule.ID), zap.String("pattern", rule.MatchValue), zap.Error(err))
		return false
	}

	ok, err := re.MatchString(line.RawDescription)
	if err != nil {
		e.logger.Warn("mapping regex exceeded time budget",
			zap.String("rule_id", rule.ID),
			zap.String("pattern", rule.MatchValue),
			zap.Duration("timeout", e.regexTimeout),
			zap.Error(err))
		return false
	}
	return ok
}

func (e *Engine) compile(pattern string) (*regexp2.Regexp, error) {
	e.mu.RLock()
	c, ok := e.patterns[pattern]
	e.mu.RUnlock()
	if ok {
		return c.re, c.err
	}

	re, err := regexp2.Compile(pattern, regexp2.IgnoreCase)
	if err == nil {
		re.MatchTimeout = e.regexTimeout
	}

	e.mu.Lock()
	e.patterns[pattern] = compiled{re: re, err: err}
	e.mu.Unlock()
	return re, err
}

// CheckPattern reports whether pattern compiles as a rule regex.
func (e *Engine) CheckPattern(pattern string) error {
	if _, err := e.compile(pattern); err != nil {
		return apperr.Validation("match_value", "invalid regex: "+err.Error())
	}
	return nil
}
