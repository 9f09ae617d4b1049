// Package tool exposes the small local tools a model may call during a chat
// turn.
package tool

import (
	"context"
	"fmt"
	"sort"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
)

const (
	ToolMathEvaluate = "math.evaluate"
	ToolUnitConvert  = "unit.convert"
)

type Executor func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error)

type runner func(tool string, args map[string]any) (contractx.ToolResult, error)

type definition struct {
	info *schema.ToolInfo
	run  runner
}

var catalog = map[string]definition{
	ToolMathEvaluate: {
		info: &schema.ToolInfo{
			Name: ToolMathEvaluate,
			Desc: "Evaluate an arithmetic expression with + - * / % ^ and parentheses.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"expression": {Type: schema.String, Desc: "Expression to evaluate", Required: true},
			}),
		},
		run: executeMathTool,
	},
	ToolUnitConvert: {
		info: &schema.ToolInfo{
			Name: ToolUnitConvert,
			Desc: "Convert a kitchen quantity between units of the same kind (mass or volume).",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"value": {Type: schema.Number, Desc: "Quantity to convert", Required: true},
				"from":  {Type: schema.String, Desc: "Source unit, e.g. g, oz, cup", Required: true},
				"to":    {Type: schema.String, Desc: "Target unit", Required: true},
			}),
		},
		run: executeUnitTool,
	},
}

// Build returns tool infos and an executor limited to names. Unknown names
// are ignored. With no names every tool is offered.
func Build(names ...string) ([]*schema.ToolInfo, Executor) {
	if len(names) == 0 {
		names = Names()
	}

	allowed := make(map[string]definition, len(names))
	infos := make([]*schema.ToolInfo, 0, len(names))
	for _, name := range names {
		def, ok := catalog[name]
		if !ok {
			continue
		}
		if _, dup := allowed[name]; dup {
			continue
		}
		allowed[name] = def
		infos = append(infos, def.info)
	}

	return infos, newExecutor(allowed)
}

func Names() []string {
	out := make([]string, 0, len(catalog))
	for name := range catalog {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func newExecutor(allowed map[string]definition) Executor {
	return func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error) {
		def, ok := allowed[tool]
		if !ok {
			return unavailable(tool), nil
		}
		return def.run(tool, args)
	}
}

func unavailable(tool string) contractx.ToolResult {
	return contractx.ToolResult{
		Tool:  tool,
		Error: fmt.Sprintf("tool=%s is unavailable", tool),
	}
}
