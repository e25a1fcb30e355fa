package perception

import "github.com/cocheuno/HawkOps-sub002/internal/model"

// thresholds are inclusive upper bounds for low, medium and high.
type thresholds struct{ low, medium, high int }

// Front-line spans of control are tighter than management's.
var (
	frontLineThresholds  = thresholds{low: 3, medium: 6, high: 10}
	managementThresholds = thresholds{low: 5, medium: 12, high: 20}
)

// Classify buckets an active item count using the role's thresholds.
func Classify(role model.AgentRole, active int) model.Workload {
	t := frontLineThresholds
	if role == model.RoleManagement {
		t = managementThresholds
	}
	switch {
	case active <= t.low:
		return model.WorkloadLow
	case active <= t.medium:
		return model.WorkloadMedium
	case active <= t.high:
		return model.WorkloadHigh
	default:
		return model.WorkloadOverloaded
	}
}
