package evaluator

import (
	"fmt"
	"strings"

	"github.com/cocheuno/HawkOps-sub002/internal/model"
)

// jsonOnly is appended to every system instruction.
const jsonOnly = `Respond with a single JSON object and nothing else: no markdown, no code fences, no commentary.`

const cabSystem = `You are a member of the Change Advisory Board of an IT service organization
in a training simulation. You review change requests and decide whether
they may proceed. Weigh risk, documentation quality and business urgency.
` + jsonOnly + `
Schema: {"approve": boolean, "notes": string, "reasoning": string}`

const techReviewSystem = `You are a senior engineer in technical operations reviewing a change request
before it goes to the Change Advisory Board. Assess technical feasibility,
rollback safety and risk.
` + jsonOnly + `
Schema: {"recommendation": "approve" | "reject", "notes": string, "riskLevel": "low" | "medium" | "high" | "critical"}`

const planSystem = `You are a technical operations engineer drafting a remediation plan for an
incident in a training simulation. Keep steps concrete and ordered.
` + jsonOnly + `
Schema: {"title": string, "steps": [string], "riskLevel": "low" | "medium" | "high" | "critical"}`

var personalityHints = map[model.Personality]string{
	model.PersonalityCautious:   "You are risk-averse: prefer rejecting anything that is poorly documented.",
	model.PersonalityBalanced:   "You balance delivery speed against operational risk.",
	model.PersonalityAggressive: "You favour speed of delivery and accept moderate risk.",
}

func optional(s *string) string {
	if model.TextLen(s) == 0 {
		return "(none provided)"
	}
	return strings.TrimSpace(*s)
}

func formatChangePrompt(req ChangeReviewRequest) string {
	c := req.Change
	var b strings.Builder
	fmt.Fprintf(&b, "Change %s: %s\n", c.Label(), c.Title)
	fmt.Fprintf(&b, "Type: %s\nRisk: %s\nReview type: %s\n", c.ChangeType, c.RiskLevel, req.ReviewType)
	if len(c.AffectedServices) > 0 {
		fmt.Fprintf(&b, "Affected services: %s\n", strings.Join(c.AffectedServices, ", "))
	}
	if c.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", c.Description)
	}
	fmt.Fprintf(&b, "Implementation plan: %s\n", optional(c.ImplementationPlan))
	fmt.Fprintf(&b, "Rollback plan: %s\n", optional(c.RollbackPlan))
	fmt.Fprintf(&b, "Technical review: %s\n", optional(c.TechnicalReview))
	if len(req.Recommendations) > 0 {
		fmt.Fprintf(&b, "Current situation: %s\n", strings.Join(req.Recommendations, "; "))
	}
	b.WriteString(personalityHints[req.Personality])
	return b.String()
}

func formatTechReviewPrompt(req TechnicalReviewRequest) string {
	c := req.Change
	var b strings.Builder
	fmt.Fprintf(&b, "Change %s: %s\n", c.Label(), c.Title)
	fmt.Fprintf(&b, "Type: %s\nDeclared risk: %s\n", c.ChangeType, c.RiskLevel)
	if len(c.AffectedServices) > 0 {
		fmt.Fprintf(&b, "Affected services: %s\n", strings.Join(c.AffectedServices, ", "))
	}
	fmt.Fprintf(&b, "Implementation plan: %s\n", optional(c.ImplementationPlan))
	fmt.Fprintf(&b, "Rollback plan: %s\n", optional(c.RollbackPlan))
	b.WriteString(personalityHints[req.Personality])
	return b.String()
}

func formatPlanPrompt(req PlanRequest) string {
	inc := req.Incident
	var b strings.Builder
	fmt.Fprintf(&b, "Incident %s: %s\n", inc.Label(), inc.Title)
	fmt.Fprintf(&b, "Priority: %s\nSLA: %s\n", inc.Priority, inc.SLA)
	if inc.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", inc.Description)
	}
	b.WriteString(personalityHints[req.Personality])
	return b.String()
}
