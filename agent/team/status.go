package team

import "slices"

type MemberStatus struct {
	Name         string   `json:"name"`
	Capabilities []string `json:"capabilities"`
	Assigned     int      `json:"assigned"`
	Completed    int      `json:"completed"`
	Failed       int      `json:"failed"`
	// SuccessRate is a percentage.
	SuccessRate float64 `json:"success_rate"`
}

type Status struct {
	Team         string         `json:"team"`
	Policy       string         `json:"conflict_policy"`
	Members      []MemberStatus `json:"members"`
	Goals        []GoalInfo     `json:"goals"`
	GoalRuns     int            `json:"goal_runs"`
	GoalRunsFail int            `json:"goal_runs_failed"`
}

func (l *Leader) Status() Status {
	goals := l.Goals()

	l.mu.RLock()
	defer l.mu.RUnlock()

	members := make([]MemberStatus, 0, len(l.order))
	for _, name := range l.order {
		m := l.members[name]
		members = append(members, MemberStatus{
			Name:         m.name,
			Capabilities: slices.Clone(m.capabilities),
			Assigned:     m.assigned,
			Completed:    m.completed,
			Failed:       m.failed,
			SuccessRate:  m.successRate(),
		})
	}

	return Status{
		Team:         l.name,
		Policy:       l.policy.String(),
		Members:      members,
		Goals:        goals,
		GoalRuns:     l.runs,
		GoalRunsFail: l.runsFailed,
	}
}
