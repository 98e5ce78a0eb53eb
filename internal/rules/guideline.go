package rules

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/opensource-finance/claimcast/internal/domain"
)

// ErrInvalidGuideline is returned by ValidateGuideline.
var ErrInvalidGuideline = errors.New("invalid guideline")

// GuidelineEngine scores underwriting guidelines from rule results.
type GuidelineEngine struct {
	mu         sync.RWMutex
	guidelines map[string]*domain.Guideline
}

// NewGuidelineEngine creates an empty guideline engine.
func NewGuidelineEngine() *GuidelineEngine {
	return &GuidelineEngine{
		guidelines: make(map[string]*domain.Guideline),
	}
}

// LoadGuidelines replaces the loaded guidelines with the enabled ones given.
func (e *GuidelineEngine) LoadGuidelines(guidelines []*domain.Guideline) {
	loaded := make(map[string]*domain.Guideline, len(guidelines))
	for _, g := range guidelines {
		if g.Enabled {
			loaded[g.ID] = g
		}
	}

	e.mu.Lock()
	e.guidelines = loaded
	e.mu.Unlock()
}

// ReloadGuidelines is LoadGuidelines under the name used by the reload endpoints.
func (e *GuidelineEngine) ReloadGuidelines(guidelines []*domain.Guideline) {
	e.LoadGuidelines(guidelines)
}

// GetLoadedGuidelines returns the loaded guidelines ordered by ID.
func (e *GuidelineEngine) GetLoadedGuidelines() []*domain.Guideline {
	e.mu.RLock()
	result := make([]*domain.Guideline, 0, len(e.guidelines))
	for _, g := range e.guidelines {
		result = append(result, g)
	}
	e.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// GuidelineCount returns the number of loaded guidelines.
func (e *GuidelineEngine) GuidelineCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.guidelines)
}

// OutcomeScore normalizes a rule outcome to 0-1 for guideline weighting.
// Declines count fully, adjustments half, everything else nothing.
func OutcomeScore(outcome string) float64 {
	switch outcome {
	case domain.RuleOutcomeDecline:
		return 1
	case domain.RuleOutcomeAdjust:
		return 0.5
	default:
		return 0
	}
}

// Evaluate scores every loaded guideline. A guideline's score is the sum
// of normalized outcome × weight over its rules that were evaluated; it
// triggers at or above its decline threshold. Results are ordered by ID.
func (e *GuidelineEngine) Evaluate(ruleResults []domain.RuleResult) []domain.GuidelineResult {
	guidelines := e.GetLoadedGuidelines()
	if len(guidelines) == 0 {
		return nil
	}

	byRule := make(map[string]domain.RuleResult, len(ruleResults))
	for _, r := range ruleResults {
		byRule[r.RuleID] = r
	}

	results := make([]domain.GuidelineResult, 0, len(guidelines))
	for _, g := range guidelines {
		results = append(results, evaluateGuideline(g, byRule))
	}
	return results
}

// EvaluateGuideline scores one loaded guideline by ID.
func (e *GuidelineEngine) EvaluateGuideline(guidelineID string, ruleResults []domain.RuleResult) (*domain.GuidelineResult, bool) {
	e.mu.RLock()
	g, ok := e.guidelines[guidelineID]
	e.mu.RUnlock()
	if !ok {
		return nil, false
	}

	byRule := make(map[string]domain.RuleResult, len(ruleResults))
	for _, r := range ruleResults {
		byRule[r.RuleID] = r
	}
	result := evaluateGuideline(g, byRule)
	return &result, true
}

// Triggered returns only the guidelines at or above their threshold.
func (e *GuidelineEngine) Triggered(ruleResults []domain.RuleResult) []domain.GuidelineResult {
	var triggered []domain.GuidelineResult
	for _, r := range e.Evaluate(ruleResults) {
		if r.Triggered {
			triggered = append(triggered, r)
		}
	}
	return triggered
}

func evaluateGuideline(g *domain.Guideline, byRule map[string]domain.RuleResult) domain.GuidelineResult {
	start := time.Now()

	result := domain.GuidelineResult{
		GuidelineID:   g.ID,
		GuidelineName: g.Name,
		Threshold:     g.DeclineThreshold,
		Rules:         make([]domain.RuleResult, 0, len(g.Rules)),
		Contributions: make([]domain.RuleContribution, 0, len(g.Rules)),
	}

	var total float64
	for _, rw := range g.Rules {
		rr, ok := byRule[rw.RuleID]
		if !ok {
			continue
		}

		score := OutcomeScore(rr.Outcome)
		contribution := score * rw.Weight
		total += contribution

		result.Rules = append(result.Rules, rr)
		result.Contributions = append(result.Contributions, domain.RuleContribution{
			RuleID:       rw.RuleID,
			RuleScore:    score,
			Weight:       rw.Weight,
			Contribution: contribution,
		})
	}

	result.Score = total
	result.Triggered = len(result.Contributions) > 0 && total >= g.DeclineThreshold
	result.ProcessMs = time.Since(start).Milliseconds()
	return result
}

// ValidateGuideline checks a guideline before it is stored.
func ValidateGuideline(g *domain.Guideline) error {
	if g == nil {
		return errGuideline("guideline is required")
	}
	if g.ID == "" {
		return errGuideline("guideline id is required")
	}
	if len(g.Rules) == 0 {
		return errGuideline("guideline %s: at least one rule is required", g.ID)
	}
	if g.DeclineThreshold <= 0 || g.DeclineThreshold > 1 {
		return errGuideline("guideline %s: decline threshold must be in (0, 1]", g.ID)
	}
	seen := make(map[string]bool, len(g.Rules))
	for _, rw := range g.Rules {
		if rw.RuleID == "" {
			return errGuideline("guideline %s: rule id is required", g.ID)
		}
		if seen[rw.RuleID] {
			return errGuideline("guideline %s: rule %s listed twice", g.ID, rw.RuleID)
		}
		seen[rw.RuleID] = true
		if rw.Weight < 0 || rw.Weight > 1 {
			return errGuideline("guideline %s: weight of %s must be in [0, 1]", g.ID, rw.RuleID)
		}
	}
	return nil
}

func errGuideline(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidGuideline, fmt.Sprintf(format, args...))
}

// Close unloads all guidelines.
func (e *GuidelineEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.guidelines = make(map[string]*domain.Guideline)
	return nil
}
