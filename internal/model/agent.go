package model

import (
	"fmt"
	"strings"
)

// AgentRole identifies which part of the support organization an agent plays.
type AgentRole string

const (
	RoleServiceDesk AgentRole = "service_desk"
	RoleTechOps     AgentRole = "tech_ops"
	RoleManagement  AgentRole = "management"
)

// AllRoles returns every playable role in orchestrator start order.
func AllRoles() []AgentRole {
	return []AgentRole{RoleServiceDesk, RoleTechOps, RoleManagement}
}

// ParseRole normalizes a role name. Hyphens and case are ignored so that
// "Service-Desk" and "service_desk" resolve to the same role.
func ParseRole(s string) (AgentRole, error) {
	r := AgentRole(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	switch r {
	case RoleServiceDesk, RoleTechOps, RoleManagement:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Personality tunes thresholds and overrides in the decision rules.
type Personality string

const (
	PersonalityCautious   Personality = "cautious"
	PersonalityBalanced   Personality = "balanced"
	PersonalityAggressive Personality = "aggressive"
)

// ParsePersonality normalizes a personality name.
func ParsePersonality(s string) (Personality, error) {
	p := Personality(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PersonalityCautious, PersonalityBalanced, PersonalityAggressive:
		return p, nil
	case "":
		return PersonalityBalanced, nil
	default:
		return "", fmt.Errorf("unknown personality %q", s)
	}
}
