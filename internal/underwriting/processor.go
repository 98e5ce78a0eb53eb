// Package underwriting turns forecasts into renewal decisions.
// The Processor aggregates rule and guideline results; the Pipeline runs
// a forecast request end to end.
package underwriting

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/opensource-finance/claimcast/internal/domain"
	"github.com/opensource-finance/claimcast/internal/rules"
)

// Premium adjustment bounds for ADJUST decisions, in percent.
const (
	MinPremiumAdjustment = -10.0
	MaxPremiumAdjustment = 30.0
)

// Processor aggregates rule results and produces a renewal decision.
type Processor struct {
	// Weighted rule score (0-1) above which an accept becomes an adjust
	AdjustThreshold float64

	// Risk-score fallback used when no rule results are available
	DeclineRiskScore int
	AdjustRiskScore  int

	// Mode selects whether rule declines stand on their own
	Mode domain.DecisionMode

	now func() time.Time
}

// NewProcessor creates a processor from underwriting settings. Zero
// values fall back to the defaults of domain.DefaultConfig.
func NewProcessor(cfg domain.UnderwritingConfig, mode domain.DecisionMode) *Processor {
	def := domain.DefaultConfig().Underwriting
	if cfg.AdjustThreshold <= 0 {
		cfg.AdjustThreshold = def.AdjustThreshold
	}
	if cfg.DeclineRiskScore <= 0 {
		cfg.DeclineRiskScore = def.DeclineRiskScore
	}
	if cfg.AdjustRiskScore <= 0 {
		cfg.AdjustRiskScore = def.AdjustRiskScore
	}
	if mode == "" {
		mode = domain.ModeScoring
	}
	return &Processor{
		AdjustThreshold:  cfg.AdjustThreshold,
		DeclineRiskScore: cfg.DeclineRiskScore,
		AdjustRiskScore:  cfg.AdjustRiskScore,
		Mode:             mode,
		now:              time.Now,
	}
}

// DecisionInput contains all data needed for a decision.
type DecisionInput struct {
	Forecast         *domain.Forecast
	RuleResults      []domain.RuleResult
	GuidelineResults []domain.GuidelineResult
}

// Process evaluates rule and guideline results and produces a decision.
func (p *Processor) Process(ctx context.Context, input *DecisionInput) *domain.RenewalDecision {
	d := &domain.RenewalDecision{
		Status:           domain.DecisionAccept,
		RuleResults:      input.RuleResults,
		GuidelineResults: input.GuidelineResults,
		DecidedAt:        p.now().UTC(),
	}
	if d.RuleResults == nil {
		d.RuleResults = []domain.RuleResult{}
	}

	agg := aggregate(input.RuleResults)
	d.Score = round2(agg.Score)

	if agg.Evaluated == 0 {
		d.Reasons = append(d.Reasons, agg.Reasons...)
		p.fallback(d, input.Forecast)
	} else {
		p.decide(d, agg, input.GuidelineResults)
	}

	if d.Status == domain.DecisionAdjust {
		d.PremiumAdjustmentPct = premiumAdjustment(input.Forecast)
	}
	return d
}

func (p *Processor) decide(d *domain.RenewalDecision, agg *AggregateResult, guidelines []domain.GuidelineResult) {
	var triggered []domain.GuidelineResult
	for _, g := range guidelines {
		if g.Triggered {
			triggered = append(triggered, g)
		}
	}

	d.Reasons = append(d.Reasons, agg.Reasons...)
	for _, g := range triggered {
		name := g.GuidelineName
		if name == "" {
			name = g.GuidelineID
		}
		d.Reasons = append(d.Reasons, fmt.Sprintf("guideline %s triggered (score %.2f >= %.2f)", name, g.Score, g.Threshold))
	}

	switch {
	case len(triggered) > 0:
		d.Status = domain.DecisionDecline
	case agg.Declined > 0 && p.Mode != domain.ModeGuideline:
		d.Status = domain.DecisionDecline
	case agg.Declined > 0 || agg.Adjusted > 0 || agg.Score >= p.AdjustThreshold:
		// In guideline mode a rule decline without a guideline is an adjust
		d.Status = domain.DecisionAdjust
	}
}

// fallback decides from the forecast risk score alone.
func (p *Processor) fallback(d *domain.RenewalDecision, f *domain.Forecast) {
	if f == nil {
		return
	}
	score := f.RiskScore.Score
	switch {
	case score >= p.DeclineRiskScore:
		d.Status = domain.DecisionDecline
		d.Reasons = append(d.Reasons, fmt.Sprintf("risk score %d >= %d", score, p.DeclineRiskScore))
	case score >= p.AdjustRiskScore:
		d.Status = domain.DecisionAdjust
		d.Reasons = append(d.Reasons, fmt.Sprintf("risk score %d >= %d", score, p.AdjustRiskScore))
	}
	d.Score = round2(float64(score) / 100)
}

// AggregateResult holds the aggregated rule outcomes.
type AggregateResult struct {
	Score       float64 // weighted mean outcome score, 0-1
	TotalWeight float64
	Evaluated   int
	Adjusted    int
	Declined    int
	Errors      int
	Reasons     []string
}

// aggregate computes the weighted outcome score of rule results.
// Rules that failed to evaluate are counted but carry no weight.
func aggregate(results []domain.RuleResult) *AggregateResult {
	agg := &AggregateResult{}

	for _, r := range results {
		if r.Outcome == domain.RuleOutcomeError {
			agg.Errors++
			agg.Reasons = append(agg.Reasons, fmt.Sprintf("rule %s failed to evaluate", r.RuleID))
			continue
		}

		weight := r.Weight
		if weight <= 0 {
			weight = 1.0
		}
		agg.Evaluated++
		agg.Score += rules.OutcomeScore(r.Outcome) * weight
		agg.TotalWeight += weight

		switch r.Outcome {
		case domain.RuleOutcomeDecline:
			agg.Declined++
		case domain.RuleOutcomeAdjust:
			agg.Adjusted++
		default:
			continue
		}
		if r.Reason != "" {
			agg.Reasons = append(agg.Reasons, r.Reason)
		}
	}

	if agg.TotalWeight > 0 {
		agg.Score = agg.Score / agg.TotalWeight
	}
	return agg
}

// premiumAdjustment picks the largest product recommendation, or derives
// one from the risk score when no product asks for an increase.
func premiumAdjustment(f *domain.Forecast) float64 {
	if f == nil {
		return 0
	}
	pct := f.MaxPremiumAdjustment()
	if pct <= 0 {
		pct = float64(f.RiskScore.Score) / 100 * MaxPremiumAdjustment
	}
	return round1(math.Max(MinPremiumAdjustment, math.Min(MaxPremiumAdjustment, pct)))
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }

// ShouldDecline returns true if the decision declines the renewal.
func ShouldDecline(d *domain.RenewalDecision) bool {
	return d != nil && d.Status == domain.DecisionDecline
}
