package evaluator

import (
	"fmt"
	"strings"

	"github.com/cocheuno/HawkOps-sub002/internal/model"
)

// DefaultMinPlanLength is the shortest implementation or rollback plan,
// counted after trimming whitespace, that counts as documented.
const DefaultMinPlanLength = 20

// Fallback is the rule-based evaluator. Its methods are total: they always
// return a verdict and never panic on missing fields.
type Fallback struct {
	MinPlanLength int
}

func (f Fallback) minLen() int {
	if f.MinPlanLength <= 0 {
		return DefaultMinPlanLength
	}
	return f.MinPlanLength
}

func (f Fallback) documented(s *string) bool {
	return model.TextLen(s) >= f.minLen()
}

func approve(notes, reasoning string) ChangeVerdict {
	return ChangeVerdict{Approve: true, Notes: notes, Reasoning: reasoning, Source: SourceFallback}
}

func reject(notes, reasoning string) ChangeVerdict {
	return ChangeVerdict{Approve: false, Notes: notes, Reasoning: reasoning, Source: SourceFallback}
}

// ReviewChange decides a change without a model.
func (f Fallback) ReviewChange(req ChangeReviewRequest) ChangeVerdict {
	c := req.Change

	if c.ChangeType == model.ChangeStandard && c.RiskLevel == model.RiskLow {
		return approve("Rule-based review: standard low-risk change is pre-approved.",
			"standard change with low risk")
	}

	if c.ChangeType == model.ChangeEmergency {
		if req.Personality == model.PersonalityCautious {
			return reject("Rule-based review: rejected, insufficient documentation for an emergency change.",
				"cautious review of emergency change")
		}
		return approve("Rule-based review: emergency change approved to restore service; post-implementation review required.",
			"emergency change")
	}

	var missing []string
	if !f.documented(c.ImplementationPlan) {
		missing = append(missing, "implementation plan")
	}
	if !f.documented(c.RollbackPlan) {
		missing = append(missing, "rollback plan")
	}
	if len(missing) > 0 {
		return reject(
			fmt.Sprintf("Rule-based review: rejected, missing or incomplete %s.", strings.Join(missing, " and ")),
			"documentation deficiency")
	}

	if c.RiskLevel.IsElevated() && model.TextLen(c.TechnicalReview) == 0 && req.Personality != model.PersonalityAggressive {
		return reject("Rule-based review: rejected, high-risk change requires a technical review before approval.",
			"elevated risk without technical review")
	}

	return approve("Rule-based review: implementation and rollback plans are documented.",
		"documentation complete")
}

// TechnicalReview produces a checklist-style assessment.
func (f Fallback) TechnicalReview(req TechnicalReviewRequest) TechnicalAssessment {
	c := req.Change
	var findings []string
	ok := true

	if f.documented(c.ImplementationPlan) {
		findings = append(findings, "implementation plan documented")
	} else {
		findings = append(findings, "implementation plan missing or too brief")
		ok = false
	}
	if f.documented(c.RollbackPlan) {
		findings = append(findings, "rollback plan documented")
	} else {
		findings = append(findings, "rollback plan missing or too brief")
		ok = false
	}
	if n := len(c.AffectedServices); n > 3 {
		findings = append(findings, fmt.Sprintf("wide blast radius (%d services)", n))
		if req.Personality == model.PersonalityCautious {
			ok = false
		}
	}
	if c.RiskLevel.IsElevated() {
		findings = append(findings, "elevated risk: schedule in a maintenance window with on-call support")
	}

	rec := "approve"
	if !ok {
		rec = "reject"
	}
	risk := c.RiskLevel
	if risk == "" {
		risk = model.RiskMedium
	}
	return TechnicalAssessment{
		Recommendation: rec,
		Notes:          "Technical checklist: " + strings.Join(findings, "; ") + ".",
		RiskLevel:      risk,
		Source:         SourceFallback,
	}
}

// DraftPlan returns a generic remediation template for the incident.
func (f Fallback) DraftPlan(req PlanRequest) PlanDraft {
	inc := req.Incident
	steps := []string{
		fmt.Sprintf("Confirm scope and business impact of %s", inc.Label()),
		"Collect diagnostics and recent changes from affected services",
		"Apply the least invasive remediation and monitor for regressions",
		"Verify service restoration with the reporting users",
		"Record root cause and follow-up actions",
	}
	if req.Personality == model.PersonalityCautious {
		steps = append(steps[:2:2], append([]string{"Prepare and test a rollback before changing production"}, steps[2:]...)...)
	}
	risk := model.RiskMedium
	if inc.Priority == model.PriorityCritical {
		risk = model.RiskHigh
	}
	return PlanDraft{
		Title:     "Remediation plan for " + inc.Label(),
		Steps:     steps,
		RiskLevel: risk,
		Source:    SourceFallback,
	}
}
