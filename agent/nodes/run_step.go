package goalnode

import (
	"context"
	"fmt"
	"maps"

	contractx "github.com/tanpawarit/agent-teams/agent/contract"
)

// RunStep resolves and executes one step. A lookup miss is recorded as the
// run's fatal error and every later step passes through untouched; an
// execution failure becomes an unsuccessful StepResult and the run goes on.
func RunStep(
	ctx context.Context,
	in *GraphState,
	spec StepSpec,
	lookup Lookup,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Fatal != nil {
		return in, nil
	}

	agentName, exec, err := lookup(spec.Capability)
	if err != nil {
		in.Fatal = err
		return in, nil
	}

	res := contractx.StepResult{
		Capability: spec.Capability,
		Agent:      agentName,
	}

	out, err := execute(ctx, exec, deriveInput(spec, in.Values))
	if err != nil {
		res.Error = err.Error()
	} else {
		res.Success = true
		res.Output = out
		exportFields(in.Values, out, spec.Exports)
	}

	in.Steps = append(in.Steps, res)
	if in.OnStep != nil {
		in.OnStep(ctx, res)
	}
	return in, nil
}

func execute(ctx context.Context, exec contractx.Executor, in contractx.Input) (out contractx.Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: panic: %v", contractx.ErrExecution, r)
		}
	}()
	return exec.Execute(ctx, in)
}

func deriveInput(spec StepSpec, values map[string]any) contractx.Input {
	if spec.Input != nil {
		if in := spec.Input(maps.Clone(values)); in != nil {
			return in
		}
		return contractx.Input{}
	}
	return contractx.Input(maps.Clone(values))
}

// exportFields copies the named output fields into the run values. "*"
// exports the whole output.
func exportFields(values map[string]any, out contractx.Output, exports []string) {
	for _, key := range exports {
		if key == "*" {
			maps.Copy(values, out)
			return
		}
		if v, ok := out[key]; ok {
			values[key] = v
		}
	}
}
