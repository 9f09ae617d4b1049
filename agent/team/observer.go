package team

import (
	"context"

	contractx "github.com/tanpawarit/agent-teams/agent/contract"
)

// Observer is told about every finished step and goal. Calls happen on the
// goroutine running the goal, so implementations should not block.
type Observer interface {
	OnStep(ctx context.Context, runID, goal string, res contractx.StepResult)
	OnGoal(ctx context.Context, res contractx.GoalResult)
}

// ObserverFuncs adapts plain functions; either may be nil.
type ObserverFuncs struct {
	Step func(ctx context.Context, runID, goal string, res contractx.StepResult)
	Goal func(ctx context.Context, res contractx.GoalResult)
}

func (f ObserverFuncs) OnStep(ctx context.Context, runID, goal string, res contractx.StepResult) {
	if f.Step != nil {
		f.Step(ctx, runID, goal, res)
	}
}

func (f ObserverFuncs) OnGoal(ctx context.Context, res contractx.GoalResult) {
	if f.Goal != nil {
		f.Goal(ctx, res)
	}
}
