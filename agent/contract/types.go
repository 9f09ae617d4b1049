package contract

import "time"

type (
	Input  map[string]any
	Output map[string]any
)

// Snapshot is the persisted form of an agent's state bag.
type Snapshot struct {
	Name        string         `json:"name"`
	Initialized bool           `json:"initialized"`
	State       map[string]any `json:"state"`
	Timestamp   time.Time      `json:"timestamp"`
}

type StepResult struct {
	Capability string `json:"capability"`
	Agent      string `json:"agent,omitempty"`
	Success    bool   `json:"success"`
	Output     Output `json:"output,omitempty"`
	Error      string `json:"error,omitempty"`
}

type Summary struct {
	Total       int     `json:"total"`
	Succeeded   int     `json:"succeeded"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
}

type GoalResult struct {
	Goal    string       `json:"goal"`
	RunID   string       `json:"run_id,omitempty"`
	Team    string       `json:"team,omitempty"`
	Steps   []StepResult `json:"steps"`
	Summary Summary      `json:"summary"`
}

// Summarize counts step outcomes. SuccessRate is 0 for an empty run.
func Summarize(steps []StepResult) Summary {
	s := Summary{Total: len(steps)}
	for _, st := range steps {
		if st.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	if s.Total > 0 {
		s.SuccessRate = float64(s.Succeeded) / float64(s.Total)
	}
	return s
}

type ToolRequest struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

type ToolResult struct {
	Tool   string `json:"tool"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}
