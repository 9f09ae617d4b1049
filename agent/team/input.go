package team

import (
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
)

// Set returns a Step.Input that passes the run values through with fields
// laid on top.
func Set(fields map[string]any) func(map[string]any) contractx.Input {
	return func(values map[string]any) contractx.Input {
		in := make(contractx.Input, len(values)+len(fields))
		for k, v := range values {
			in[k] = v
		}
		for k, v := range fields {
			in[k] = v
		}
		return in
	}
}

// Pick returns a Step.Input holding only keys from the run values, plus
// fields. Missing keys are skipped.
func Pick(fields map[string]any, keys ...string) func(map[string]any) contractx.Input {
	return func(values map[string]any) contractx.Input {
		in := make(contractx.Input, len(keys)+len(fields))
		for _, k := range keys {
			if v, ok := values[k]; ok {
				in[k] = v
			}
		}
		for k, v := range fields {
			in[k] = v
		}
		return in
	}
}
