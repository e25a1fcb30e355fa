package policy

import (
	"strings"

	"github.com/cocheuno/HawkOps-sub002/internal/model"
)

// Terms that put an incident beyond the service desk.
var escalationTerms = []string{
	"outage", "database", "server", "network down", "security", "breach",
	"malware", "ransomware", "infrastructure", "data center", "firewall",
	"ddos", "corruption",
}

// Terms the service desk is expected to handle itself.
var deskTerms = []string{
	"password", "reset", "access", "login", "account", "printer", "email",
	"vpn", "wifi", "connectivity", "help", "how to", "install", "locked",
}

// Resolvable reports whether the service desk can close inc itself.
// Escalation terms win over desk terms. When neither matches, aggressive
// agents take low and medium priority work, everyone else only low.
func Resolvable(inc model.Incident, p model.Personality) bool {
	text := strings.ToLower(inc.Title + "\n" + inc.Description)
	if containsAny(text, escalationTerms) {
		return false
	}
	if containsAny(text, deskTerms) {
		return true
	}
	switch inc.Priority {
	case model.PriorityLow:
		return true
	case model.PriorityMedium:
		return p == model.PersonalityAggressive
	default:
		return false
	}
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
