// Package rules evaluates renewal rules written in CEL against forecasts
// and aggregates them into underwriting guidelines.
package rules

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/opensource-finance/claimcast/internal/domain"
)

const defaultMaxWorkers = 10

// Engine is the CEL-based renewal rule engine.
type Engine struct {
	mu            sync.RWMutex
	env           *cel.Env
	compiledRules map[string]*CompiledRule
	maxWorkers    int
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Config  *domain.RuleConfig
	Program cel.Program
}

// NewEngine creates a rule engine evaluating at most maxWorkers rules at once.
func NewEngine(maxWorkers int) (*Engine, error) {
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}

	env, err := cel.NewEnv(celVariables()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:           env,
		compiledRules: make(map[string]*CompiledRule),
		maxWorkers:    maxWorkers,
	}, nil
}

// ValidateRule compiles a rule without loading it.
func (e *Engine) ValidateRule(cfg *domain.RuleConfig) error {
	if cfg == nil {
		return fmt.Errorf("rule config is required")
	}
	_, err := e.compileRule(cfg)
	return err
}

// LoadRule compiles and loads a rule, replacing any rule with the same ID.
func (e *Engine) LoadRule(cfg *domain.RuleConfig) error {
	compiled, err := e.compileRule(cfg)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.compiledRules[cfg.ID] = compiled
	e.mu.Unlock()
	return nil
}

// LoadRules compiles and loads every enabled rule.
func (e *Engine) LoadRules(configs []*domain.RuleConfig) error {
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		if err := e.LoadRule(cfg); err != nil {
			return err
		}
	}
	return nil
}

// ReloadRules atomically replaces the loaded rule set. On a compile error
// the previous set stays loaded.
func (e *Engine) ReloadRules(configs []*domain.RuleConfig) error {
	newRules := make(map[string]*CompiledRule, len(configs))
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		compiled, err := e.compileRule(cfg)
		if err != nil {
			return err
		}
		newRules[cfg.ID] = compiled
	}

	e.mu.Lock()
	e.compiledRules = newRules
	e.mu.Unlock()
	return nil
}

// EvaluateAll evaluates every loaded rule against the forecast in parallel.
// Results are ordered by rule ID.
func (e *Engine) EvaluateAll(ctx context.Context, tenantID string, f *domain.Forecast) ([]domain.RuleResult, error) {
	if f == nil {
		return nil, fmt.Errorf("forecast is required")
	}

	rules := e.snapshot()
	if len(rules) == 0 {
		return nil, nil
	}

	activation := Activation(f)
	results := make([]domain.RuleResult, len(rules))

	var wg sync.WaitGroup
	sem := make(chan struct{}, e.maxWorkers)

	for i, rule := range rules {
		wg.Add(1)
		go func(idx int, r *CompiledRule) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[idx] = errorResult(r, tenantID, f.ID, ctx.Err(), time.Now())
				return
			}
			defer func() { <-sem }()

			results[idx] = e.evaluateRule(ctx, r, activation, tenantID, f.ID)
		}(i, rule)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func (e *Engine) snapshot() []*CompiledRule {
	e.mu.RLock()
	rules := make([]*CompiledRule, 0, len(e.compiledRules))
	for _, rule := range e.compiledRules {
		rules = append(rules, rule)
	}
	e.mu.RUnlock()

	sort.Slice(rules, func(i, j int) bool { return rules[i].Config.ID < rules[j].Config.ID })
	return rules
}

func (e *Engine) evaluateRule(ctx context.Context, rule *CompiledRule, activation map[string]any, tenantID, forecastID string) domain.RuleResult {
	start := time.Now()

	out, _, err := rule.Program.ContextEval(ctx, activation)
	if err != nil {
		return errorResult(rule, tenantID, forecastID, err, start)
	}

	score := toScore(out)
	outcome, reason := matchBand(score, rule.Config.Bands)

	return domain.RuleResult{
		RuleID:     rule.Config.ID,
		TenantID:   tenantID,
		ForecastID: forecastID,
		Outcome:    outcome,
		Score:      score,
		Reason:     reason,
		Weight:     rule.Config.Weight,
		ProcessMs:  time.Since(start).Milliseconds(),
	}
}

func errorResult(rule *CompiledRule, tenantID, forecastID string, err error, start time.Time) domain.RuleResult {
	return domain.RuleResult{
		RuleID:     rule.Config.ID,
		TenantID:   tenantID,
		ForecastID: forecastID,
		Outcome:    domain.RuleOutcomeError,
		Reason:     fmt.Sprintf("evaluation error: %v", err),
		Weight:     rule.Config.Weight,
		ProcessMs:  time.Since(start).Milliseconds(),
	}
}

// toScore converts a CEL value to a numeric score. true is 1, false is 0.
func toScore(val ref.Val) float64 {
	switch v := val.(type) {
	case types.Bool:
		if v {
			return 1
		}
		return 0
	case types.Double:
		return float64(v)
	case types.Int:
		return float64(v)
	default:
		return 0
	}
}

// matchBand returns the outcome of the first band containing score.
// Lower limits are inclusive and upper limits exclusive; a nil limit is
// unbounded. A score outside every band is accepted.
func matchBand(score float64, bands []domain.RuleBand) (string, string) {
	for _, band := range bands {
		if band.LowerLimit != nil && score < *band.LowerLimit {
			continue
		}
		if band.UpperLimit != nil && score >= *band.UpperLimit {
			continue
		}
		return band.Outcome, band.Reason
	}
	return domain.RuleOutcomeAccept, "no matching band"
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiledRules)
}

// GetLoadedRules returns the loaded rule configurations ordered by ID.
func (e *Engine) GetLoadedRules() []*domain.RuleConfig {
	rules := e.snapshot()
	configs := make([]*domain.RuleConfig, len(rules))
	for i, r := range rules {
		configs[i] = r.Config
	}
	return configs
}

// Close unloads all rules.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiledRules = make(map[string]*CompiledRule)
	return nil
}

func (e *Engine) compileRule(cfg *domain.RuleConfig) (*CompiledRule, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("rule id is required")
	}
	if err := validateBands(cfg); err != nil {
		return nil, err
	}

	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
	}

	outputType := ast.OutputType()
	if outputType != cel.BoolType && outputType != cel.DoubleType && outputType != cel.IntType {
		return nil, fmt.Errorf("rule %s: expression must return bool, int, or double, got %s", cfg.ID, outputType)
	}

	program, err := e.env.Program(ast, cel.InterruptCheckFrequency(100))
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", cfg.ID, err)
	}

	return &CompiledRule{
		Config:  cfg,
		Program: program,
	}, nil
}

func validateBands(cfg *domain.RuleConfig) error {
	for i, band := range cfg.Bands {
		switch band.Outcome {
		case domain.RuleOutcomeAccept, domain.RuleOutcomeAdjust, domain.RuleOutcomeDecline:
		default:
			return fmt.Errorf("rule %s: band %d has unknown outcome %q", cfg.ID, i, band.Outcome)
		}
		if band.LowerLimit != nil && band.UpperLimit != nil && *band.LowerLimit >= *band.UpperLimit {
			return fmt.Errorf("rule %s: band %d lower limit must be below upper limit", cfg.ID, i)
		}
	}
	return nil
}
