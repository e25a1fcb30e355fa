// Package perception projects a full game snapshot into the role-specific
// view an agent decides on.
package perception

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/cocheuno/HawkOps-sub002/internal/model"
	"github.com/cocheuno/HawkOps-sub002/internal/sla"
)

// Options identify who is perceiving.
type Options struct {
	Role        model.AgentRole
	Personality model.Personality
	TeamID      string
	Clock       sla.Clock
}

// Build is a pure transform of snap into a Perception observed at now.
// The returned value shares no slices with snap.
func Build(opts Options, snap model.Snapshot, now time.Time) model.Perception {
	p := model.Perception{
		Role:        opts.Role,
		Personality: opts.Personality,
		TeamID:      opts.TeamID,
		ObservedAt:  now,
	}

	visible := make([]model.PerceivedIncident, 0, len(snap.Incidents))
	for _, inc := range sortedByCreation(snap.Incidents) {
		if !inc.Status.IsActive() {
			continue
		}
		if opts.Role != model.RoleManagement && !ownedBy(inc, opts.TeamID) {
			continue
		}
		visible = append(visible, model.PerceivedIncident{
			Incident: inc,
			SLA:      opts.Clock.Classify(inc.SLADeadline, now),
		})
	}

	for _, inc := range visible {
		if inc.Priority.IsUrgent() || inc.AtRisk() {
			p.UrgentIncidents = append(p.UrgentIncidents, inc)
			if inc.Breached() {
				p.BreachedCount++
			}
		}
	}

	switch opts.Role {
	case model.RoleServiceDesk:
		p.PendingWork = visible
	case model.RoleTechOps:
		p.PendingWork = visible
		p.ReviewQueue = awaitingTechnicalReview(snap.ChangeRequests)
		p.PlanQueue = lackingPlan(visible, snap.Plans)
		p.Plans = append([]model.ImplementationPlan(nil), snap.Plans...)
	case model.RoleManagement:
		p.ReviewQueue = awaitingCAB(snap.ChangeRequests)
	}

	active := len(p.PendingWork)
	if opts.Role == model.RoleManagement {
		active = len(p.ReviewQueue) + len(p.UrgentIncidents)
	}
	p.Health = model.TeamHealth{
		Budget:      snap.Team.Budget,
		Morale:      snap.Team.Morale,
		ActiveItems: active,
		Workload:    Classify(opts.Role, active),
	}
	p.Recommendations = recommend(p, snap.Team)
	return p
}

func ownedBy(inc model.Incident, teamID string) bool {
	return inc.AssignedTeamID == "" || teamID == "" || inc.AssignedTeamID == teamID
}

// sortedByCreation returns a copy of incidents ordered by CreatedAt. The
// sort is stable so equal timestamps keep server order.
func sortedByCreation(in []model.Incident) []model.Incident {
	out := append([]model.Incident(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func sortedChanges(in []model.ChangeRequest, keep func(model.ChangeRequest) bool) []model.ChangeRequest {
	var out []model.ChangeRequest
	for _, cr := range in {
		if keep(cr) {
			out = append(out, cr)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func awaitingCAB(in []model.ChangeRequest) []model.ChangeRequest {
	return sortedChanges(in, func(cr model.ChangeRequest) bool {
		if cr.Status != model.ChangePending {
			return false
		}
		return cr.WorkflowState == model.WorkflowPendingCAB || cr.WorkflowState == model.WorkflowReviewComplete
	})
}

func awaitingTechnicalReview(in []model.ChangeRequest) []model.ChangeRequest {
	return sortedChanges(in, func(cr model.ChangeRequest) bool {
		return cr.Status == model.ChangePending &&
			cr.WorkflowState == model.WorkflowUnderReview &&
			model.TextLen(cr.TechnicalReview) == 0
	})
}

func lackingPlan(visible []model.PerceivedIncident, plans []model.ImplementationPlan) []model.PerceivedIncident {
	planned := make(map[uuid.UUID]bool, len(plans))
	for _, pl := range plans {
		if pl.Status != model.PlanRejected {
			planned[pl.IncidentID] = true
		}
	}
	var out []model.PerceivedIncident
	for _, inc := range visible {
		if inc.Status == model.StatusInProgress && inc.Priority.IsUrgent() && !planned[inc.ID] {
			out = append(out, inc)
		}
	}
	return out
}

func recommend(p model.Perception, team model.Team) []string {
	var recs []string
	if p.BreachedCount > 0 {
		recs = append(recs, fmt.Sprintf("%d incident(s) have breached SLA; escalate or resolve immediately", p.BreachedCount))
	}
	if p.Health.Workload == model.WorkloadOverloaded {
		recs = append(recs, fmt.Sprintf("workload is overloaded (%d active items); focus on critical work", p.Health.ActiveItems))
	}
	if team.Morale > 0 && team.Morale < 40 {
		recs = append(recs, fmt.Sprintf("team morale is low (%d); avoid risky changes", team.Morale))
	}
	if team.StartingBudget > 0 && team.Budget < 0.2*team.StartingBudget {
		recs = append(recs, "budget below 20% of starting funds")
	}
	if p.Role == model.RoleManagement && len(p.ReviewQueue) > 0 {
		recs = append(recs, fmt.Sprintf("%d change request(s) awaiting CAB review", len(p.ReviewQueue)))
	}
	return recs
}
