package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/opensource-finance/claimcast/internal/domain"
	"github.com/opensource-finance/claimcast/internal/rules"
)

// GlobalTenantID is used for rules and guidelines that apply to all tenants.
const GlobalTenantID = "*"

// LoadRuleSets loads stored rules and guidelines into the engines. The
// built-in rule set is used when none are stored.
func (h *Handler) LoadRuleSets(ctx context.Context) (int, int, error) {
	ruleConfigs := rules.DefaultRules()
	guidelines := rules.DefaultGuidelines()

	if h.repo != nil {
		stored, err := h.repo.ListRuleConfigs(ctx, GlobalTenantID)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to list rules: %w", err)
		}
		if len(stored) > 0 {
			ruleConfigs = stored

			storedGuidelines, err := h.repo.ListGuidelines(ctx, GlobalTenantID)
			if err != nil {
				return 0, 0, fmt.Errorf("failed to list guidelines: %w", err)
			}
			guidelines = storedGuidelines
		}
	}

	if err := h.engine.ReloadRules(ruleConfigs); err != nil {
		return 0, 0, err
	}
	h.guidelines.ReloadGuidelines(guidelines)
	return h.engine.RulesCount(), h.guidelines.GuidelineCount(), nil
}

// ListRules returns all loaded rules from the engine.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	loadedRules := h.engine.GetLoadedRules()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules": loadedRules,
		"count": len(loadedRules),
	})
}

// GetRule retrieves a rule by ID from the loaded engine rules.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "id")

	for _, rule := range h.engine.GetLoadedRules() {
		if rule.ID == ruleID {
			writeJSON(w, http.StatusOK, rule)
			return
		}
	}

	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "rule not found",
	})
}

// CreateRuleRequest is the request body for creating a rule.
type CreateRuleRequest struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Version     string            `json:"version,omitempty"`
	Expression  string            `json:"expression"`
	Bands       []domain.RuleBand `json:"bands"`
	Weight      float64           `json:"weight"`
	Enabled     bool              `json:"enabled"`
}

// CreateRule validates a rule and saves it to the database.
// Without a repository the rule is loaded straight into the engine;
// otherwise POST /rules/reload applies it.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRuleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.ID == "" || req.Name == "" || req.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id, name, and expression are required",
		})
		return
	}
	if req.Weight < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "weight must not be negative",
		})
		return
	}
	if req.Version == "" {
		req.Version = "1.0.0"
	}

	ruleConfig := &domain.RuleConfig{
		ID:          req.ID,
		TenantID:    GlobalTenantID,
		Name:        req.Name,
		Description: req.Description,
		Version:     req.Version,
		Expression:  req.Expression,
		Bands:       req.Bands,
		Weight:      req.Weight,
		Enabled:     req.Enabled,
	}

	if err := h.engine.ValidateRule(ruleConfig); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid rule: " + err.Error(),
		})
		return
	}

	message := "Rule created. Call POST /rules/reload to apply changes."
	if h.repo != nil {
		if err := h.repo.SaveRuleConfig(ctx, GlobalTenantID, ruleConfig); err != nil {
			slog.Error("failed to save rule config", "id", ruleConfig.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save rule",
			})
			return
		}
	} else if ruleConfig.Enabled {
		if err := h.engine.LoadRule(ruleConfig); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "invalid rule: " + err.Error(),
			})
			return
		}
		message = "Rule created and loaded."
	}

	slog.Info("rule created", "id", ruleConfig.ID, "name", ruleConfig.Name)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"rule":    ruleConfig,
		"message": message,
	})
}

// ReloadRules reloads all rules from the database into the engine.
// This enables hot-reloading without server restart.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	dbRules, err := h.repo.ListRuleConfigs(ctx, GlobalTenantID)
	if err != nil {
		slog.Error("failed to list rules from database", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load rules from database",
		})
		return
	}

	source := "database"
	if len(dbRules) == 0 {
		dbRules = rules.DefaultRules()
		source = "defaults"
	}

	if err := h.engine.ReloadRules(dbRules); err != nil {
		slog.Error("failed to reload rules into engine", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload rules: " + err.Error(),
		})
		return
	}

	slog.Info("rules reloaded", "count", h.engine.RulesCount(), "source", source)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "rules reloaded successfully",
		"count":   h.engine.RulesCount(),
		"source":  source,
	})
}

// GuidelineRequest is the request body for creating or updating a guideline.
type GuidelineRequest struct {
	ID               string                       `json:"id"`
	Name             string                       `json:"name"`
	Description      string                       `json:"description,omitempty"`
	Rules            []domain.GuidelineRuleWeight `json:"rules"`
	DeclineThreshold float64                      `json:"declineThreshold"`
	Enabled          bool                         `json:"enabled"`
}

// ListGuidelines returns all loaded guidelines.
func (h *Handler) ListGuidelines(w http.ResponseWriter, r *http.Request) {
	guidelines := h.guidelines.GetLoadedGuidelines()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"guidelines": guidelines,
		"count":      len(guidelines),
	})
}

// GetGuideline retrieves a guideline by ID.
func (h *Handler) GetGuideline(w http.ResponseWriter, r *http.Request) {
	guidelineID := chi.URLParam(r, "id")

	for _, g := range h.guidelines.GetLoadedGuidelines() {
		if g.ID == guidelineID {
			writeJSON(w, http.StatusOK, g)
			return
		}
	}

	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "guideline not found",
	})
}

// CreateGuideline creates a new guideline and saves it to the database.
func (h *Handler) CreateGuideline(w http.ResponseWriter, r *http.Request) {
	var req GuidelineRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "name is required",
		})
		return
	}

	h.saveGuideline(w, r, req, http.StatusCreated, "Guideline created. Call POST /guidelines/reload to apply changes.")
}

// UpdateGuideline replaces an existing guideline.
func (h *Handler) UpdateGuideline(w http.ResponseWriter, r *http.Request) {
	var req GuidelineRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	req.ID = chi.URLParam(r, "id")

	h.saveGuideline(w, r, req, http.StatusOK, "Guideline updated. Call POST /guidelines/reload to apply changes.")
}

func (h *Handler) saveGuideline(w http.ResponseWriter, r *http.Request, req GuidelineRequest, status int, message string) {
	ctx := r.Context()
	now := h.now().UTC()

	guideline := &domain.Guideline{
		ID:               req.ID,
		TenantID:         GlobalTenantID,
		Name:             req.Name,
		Description:      req.Description,
		Version:          "1.0.0",
		Rules:            req.Rules,
		DeclineThreshold: req.DeclineThreshold,
		Enabled:          req.Enabled,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := rules.ValidateGuideline(guideline); err != nil {
		writeError(w, err)
		return
	}

	loaded := make(map[string]bool)
	for _, rule := range h.engine.GetLoadedRules() {
		loaded[rule.ID] = true
	}
	var totalWeight float64
	for _, rw := range guideline.Rules {
		if !loaded[rw.RuleID] {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("rule_id '%s' does not exist in rule engine", rw.RuleID),
			})
			return
		}
		totalWeight += rw.Weight
	}

	// Allow 0.01 tolerance
	if totalWeight < 0.99 || totalWeight > 1.01 {
		slog.Warn("guideline weights do not sum to 1.0",
			"guideline_id", guideline.ID,
			"total_weight", totalWeight,
		)
	}

	if h.repo != nil {
		if existing, err := h.repo.GetGuideline(ctx, GlobalTenantID, guideline.ID); err == nil && !existing.CreatedAt.IsZero() {
			guideline.CreatedAt = existing.CreatedAt
		}
		if err := h.repo.SaveGuideline(ctx, GlobalTenantID, guideline); err != nil {
			slog.Error("failed to save guideline", "id", guideline.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save guideline",
			})
			return
		}
	} else {
		current := h.guidelines.GetLoadedGuidelines()
		next := make([]*domain.Guideline, 0, len(current)+1)
		for _, g := range current {
			if g.ID != guideline.ID {
				next = append(next, g)
			}
		}
		h.guidelines.ReloadGuidelines(append(next, guideline))
		message = "Guideline saved and loaded."
	}

	slog.Info("guideline saved", "id", guideline.ID, "name", guideline.Name)
	writeJSON(w, status, map[string]interface{}{
		"guideline": guideline,
		"message":   message,
	})
}

// DeleteGuideline deletes a guideline and auto-reloads the engine.
func (h *Handler) DeleteGuideline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	guidelineID := chi.URLParam(r, "id")

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	if err := h.repo.DeleteGuideline(ctx, GlobalTenantID, guidelineID); err != nil {
		writeError(w, err)
		return
	}

	dbGuidelines, err := h.repo.ListGuidelines(ctx, GlobalTenantID)
	if err != nil {
		slog.Error("failed to reload guidelines after delete", "error", err)
	} else {
		h.guidelines.ReloadGuidelines(dbGuidelines)
	}

	slog.Info("guideline deleted", "id", guidelineID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Guideline deleted and engine reloaded.",
	})
}

// ReloadGuidelines reloads all guidelines from the database into the engine.
func (h *Handler) ReloadGuidelines(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	dbGuidelines, err := h.repo.ListGuidelines(ctx, GlobalTenantID)
	if err != nil {
		slog.Error("failed to list guidelines from database", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load guidelines from database",
		})
		return
	}

	h.guidelines.ReloadGuidelines(dbGuidelines)

	slog.Info("guidelines reloaded from database", "count", h.guidelines.GuidelineCount())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "guidelines reloaded successfully",
		"count":   h.guidelines.GuidelineCount(),
	})
}
