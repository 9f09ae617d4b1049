package goalnode

import (
	"fmt"

	contractx "github.com/tanpawarit/agent-teams/agent/contract"
)

func FinalizeResult(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Fatal != nil {
		return GraphOutput{Fatal: in.Fatal}, nil
	}

	return GraphOutput{
		Result: &contractx.GoalResult{
			Goal:    in.Goal,
			RunID:   in.RunID,
			Team:    in.Team,
			Steps:   in.Steps,
			Summary: contractx.Summarize(in.Steps),
		},
	}, nil
}
