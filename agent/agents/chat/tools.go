package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
	logx "github.com/tanpawarit/agent-teams/pkg/logger"
)

// callTools runs each requested tool and returns one tool message per call.
// Tool failures are reported back to the model rather than aborting the turn.
func (a *Agent) callTools(ctx context.Context, calls []schema.ToolCall) ([]*schema.Message, []contractx.ToolRequest, error) {
	msgs := make([]*schema.Message, 0, len(calls))
	reqs := make([]contractx.ToolRequest, 0, len(calls))

	for _, call := range calls {
		req, err := toToolRequest(call)
		if err != nil {
			return nil, nil, err
		}
		reqs = append(reqs, req)

		res, err := a.runTool(ctx, req.Tool, req.Args)
		if err != nil {
			res = contractx.ToolResult{Tool: req.Tool, Error: err.Error()}
		}
		a.Event(logx.LevelDebug).Str("tool", req.Tool).Str("tool_error", res.Error).Msg("tool called")

		payload, err := json.Marshal(res)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: marshal tool result: %v", contractx.ErrValidation, err)
		}
		msgs = append(msgs, schema.ToolMessage(string(payload), call.ID))
	}
	return msgs, reqs, nil
}

func toToolRequest(call schema.ToolCall) (contractx.ToolRequest, error) {
	tool := strings.TrimSpace(call.Function.Name)
	if tool == "" {
		return contractx.ToolRequest{}, fmt.Errorf("%w: tool call name is empty", contractx.ErrValidation)
	}

	args := map[string]any{}
	if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return contractx.ToolRequest{}, fmt.Errorf("%w: invalid tool args for tool=%s: %v", contractx.ErrValidation, tool, err)
		}
	}
	return contractx.ToolRequest{Tool: tool, Args: args}, nil
}
