package team

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
	nodex "github.com/tanpawarit/agent-teams/agent/nodes"
)

func (l *Leader) compileGoalGraph(
	ctx context.Context,
	goal Goal,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_run",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			st, err := nodex.ValidateRun(in, l.now)
			if err != nil {
				return nil, err
			}
			st.OnStep = func(ctx context.Context, res contractx.StepResult) {
				l.recordStep(ctx, st.RunID, st.Goal, res)
			}
			return st, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_run: %w", err)
	}

	prev := "validate_run"
	edges := make([][2]string, 0, len(goal.Steps)+2)
	edges = append(edges, [2]string{compose.START, prev})

	for i, step := range goal.Steps {
		nodeName := fmt.Sprintf("step_%02d_%s", i, step.Capability)
		spec := nodex.StepSpec{
			Capability: step.Capability,
			Input:      step.Input,
			Exports:    step.Exports,
		}
		if err := graph.AddLambdaNode(nodeName,
			compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
				return nodex.RunStep(ctx, in, spec, l.beginStep)
			}),
		); err != nil {
			return nil, fmt.Errorf("add node %s: %w", nodeName, err)
		}
		edges = append(edges, [2]string{prev, nodeName})
		prev = nodeName
	}

	if err := graph.AddLambdaNode("finalize_result",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeResult(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_result: %w", err)
	}
	edges = append(edges,
		[2]string{prev, "finalize_result"},
		[2]string{"finalize_result", compose.END},
	)

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(l.name+"."+goal.Name))
	if err != nil {
		return nil, fmt.Errorf("compile goal graph %s: %w", goal.Name, err)
	}
	return runner, nil
}
