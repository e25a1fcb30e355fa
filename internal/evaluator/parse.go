package evaluator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cocheuno/HawkOps-sub002/internal/model"
)

// StripFences removes a surrounding markdown code fence, with or without a
// language tag, and any prose before the first '{' or after the last '}'.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		// Drop the language tag line ("json", "JSON", ...).
		if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	s = strings.TrimSpace(s)

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start > 0 && end > start {
		s = s[start : end+1]
	} else if start == 0 && end > 0 {
		s = s[:end+1]
	}
	return s
}

// parseJSON decodes a model response into dest after stripping fences.
func parseJSON(response string, dest any) error {
	cleaned := StripFences(response)
	if cleaned == "" {
		return fmt.Errorf("empty response")
	}
	if err := json.Unmarshal([]byte(cleaned), dest); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

// wireVerdict keeps approve optional so a missing field is detectable.
type wireVerdict struct {
	Approve   *bool  `json:"approve"`
	Notes     string `json:"notes"`
	Reasoning string `json:"reasoning"`
}

// ParseChangeVerdict parses a change review response. The approve field
// is required; notes default to the reasoning when omitted.
func ParseChangeVerdict(response string) (ChangeVerdict, error) {
	var w wireVerdict
	if err := parseJSON(response, &w); err != nil {
		return ChangeVerdict{}, unavailable("parse", err)
	}
	if w.Approve == nil {
		return ChangeVerdict{}, unavailable("validate", fmt.Errorf("missing approve field"))
	}
	notes := strings.TrimSpace(w.Notes)
	if notes == "" {
		notes = strings.TrimSpace(w.Reasoning)
	}
	return ChangeVerdict{
		Approve:   *w.Approve,
		Notes:     notes,
		Reasoning: strings.TrimSpace(w.Reasoning),
		Source:    SourceAI,
	}, nil
}

// ParseTechnicalAssessment parses a technical review response.
func ParseTechnicalAssessment(response string) (TechnicalAssessment, error) {
	var a TechnicalAssessment
	if err := parseJSON(response, &a); err != nil {
		return TechnicalAssessment{}, unavailable("parse", err)
	}
	a.Recommendation = strings.ToLower(strings.TrimSpace(a.Recommendation))
	if a.Recommendation != "approve" && a.Recommendation != "reject" {
		return TechnicalAssessment{}, unavailable("validate", fmt.Errorf("unrecognized recommendation %q", a.Recommendation))
	}
	a.Notes = strings.TrimSpace(a.Notes)
	if a.Notes == "" {
		return TechnicalAssessment{}, unavailable("validate", fmt.Errorf("empty notes"))
	}
	a.RiskLevel = normalizeRisk(a.RiskLevel)
	a.Source = SourceAI
	return a, nil
}

// ParsePlanDraft parses a plan generation response. At least one step
// is required.
func ParsePlanDraft(response string) (PlanDraft, error) {
	var d PlanDraft
	if err := parseJSON(response, &d); err != nil {
		return PlanDraft{}, unavailable("parse", err)
	}
	steps := d.Steps[:0]
	for _, s := range d.Steps {
		if s = strings.TrimSpace(s); s != "" {
			steps = append(steps, s)
		}
	}
	if len(steps) == 0 {
		return PlanDraft{}, unavailable("validate", fmt.Errorf("plan has no steps"))
	}
	d.Steps = steps
	d.Title = strings.TrimSpace(d.Title)
	d.RiskLevel = normalizeRisk(d.RiskLevel)
	d.Source = SourceAI
	return d, nil
}

// normalizeRisk maps unknown or missing risk levels to medium.
func normalizeRisk(r model.RiskLevel) model.RiskLevel {
	switch v := model.RiskLevel(strings.ToLower(strings.TrimSpace(string(r)))); v {
	case model.RiskLow, model.RiskMedium, model.RiskHigh, model.RiskCritical:
		return v
	default:
		return model.RiskMedium
	}
}
