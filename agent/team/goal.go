package team

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
	nodex "github.com/tanpawarit/agent-teams/agent/nodes"
)

// Step names a capability and how the running context feeds it.
type Step struct {
	Capability  string
	Description string
	// Input derives the step input from a copy of the run values. Nil passes
	// the values through unchanged.
	Input func(values map[string]any) contractx.Input
	// Exports lists output fields merged into the run values on success.
	// "*" exports everything.
	Exports []string
}

type Goal struct {
	Name        string
	Description string
	Steps       []Step
}

type GoalInfo struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Capabilities []string `json:"capabilities"`
}

type compiledGoal struct {
	goal   Goal
	runner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]
}

// DefineGoal compiles goal into a step graph. Capabilities are resolved at
// run time, so members may be registered after their goals.
func (l *Leader) DefineGoal(goal Goal) error {
	goal.Name = strings.TrimSpace(goal.Name)
	if goal.Name == "" {
		return fmt.Errorf("%w: goal name is empty", contractx.ErrValidation)
	}
	for i, step := range goal.Steps {
		if strings.TrimSpace(step.Capability) == "" {
			return fmt.Errorf("%w: goal %s step %d has no capability", contractx.ErrValidation, goal.Name, i)
		}
	}

	runner, err := l.compileGoalGraph(context.Background(), goal)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.goals[goal.Name]; !ok {
		l.goalOrder = append(l.goalOrder, goal.Name)
	}
	l.goals[goal.Name] = &compiledGoal{goal: goal, runner: runner}
	return nil
}

func (l *Leader) Goals() []GoalInfo {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]GoalInfo, 0, len(l.goalOrder))
	for _, name := range l.goalOrder {
		g := l.goals[name].goal
		caps := make([]string, 0, len(g.Steps))
		for _, s := range g.Steps {
			caps = append(caps, s.Capability)
		}
		out = append(out, GoalInfo{Name: g.Name, Description: g.Description, Capabilities: caps})
	}
	return out
}

func (l *Leader) HasGoal(name string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.goals[name]
	return ok
}
