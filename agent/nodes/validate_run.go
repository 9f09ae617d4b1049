// Package goalnode holds the lambda bodies of a compiled goal graph. Each
// function takes the run state, does one thing to it and hands it on.
package goalnode

import (
	"context"
	"errors"
	"maps"
	"strings"
	"time"

	contractx "github.com/tanpawarit/agent-teams/agent/contract"
)

var (
	ErrInvalidRunID = errors.New("run id is empty")
	ErrInvalidGoal  = errors.New("goal name is empty")
)

type GraphInput struct {
	RunID  string
	Goal   string
	Team   string
	Values map[string]any
}

type GraphOutput struct {
	Result *contractx.GoalResult
	// Fatal is a configuration error that aborted the run; Result is nil.
	Fatal error
}

// Lookup resolves a capability to the member name and executor serving it.
type Lookup func(capability string) (string, contractx.Executor, error)

type StepSpec struct {
	Capability string
	Input      func(values map[string]any) contractx.Input
	Exports    []string
}

type GraphState struct {
	RunID string
	Goal  string
	Team  string
	Now   time.Time

	// Values is private to the run: seeded from the caller, extended by exports.
	Values map[string]any
	Steps  []contractx.StepResult
	Fatal  error

	OnStep func(ctx context.Context, res contractx.StepResult)
}

func ValidateRun(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	runID := strings.TrimSpace(in.RunID)
	if runID == "" {
		return nil, ErrInvalidRunID
	}
	goal := strings.TrimSpace(in.Goal)
	if goal == "" {
		return nil, ErrInvalidGoal
	}

	values := make(map[string]any, len(in.Values))
	maps.Copy(values, in.Values)

	return &GraphState{
		RunID:  runID,
		Goal:   goal,
		Team:   in.Team,
		Now:    nowFn().UTC(),
		Values: values,
		Steps:  make([]contractx.StepResult, 0, 4),
	}, nil
}
