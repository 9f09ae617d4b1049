package llm

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
)

type Completer struct {
	runner compose.Runnable[map[string]any, string]
}

var _ contractx.Completer = (*Completer)(nil)

func NewCompleter(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	graphName string,
) (*Completer, error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(escapeFString(systemPrompt)),
		schema.UserMessage("{input}"),
	)

	graph := compose.NewGraph[map[string]any, string]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add completer prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add completer model node: %w", err)
	}
	if err := graph.AddLambdaNode("content",
		compose.InvokableLambda(func(ctx context.Context, msg *schema.Message) (string, error) {
			if msg == nil {
				return "", fmt.Errorf("%w: empty model response", contractx.ErrModelInvoke)
			}
			return strings.TrimSpace(msg.Content), nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add completer content node: %w", err)
	}

	edges := [][2]string{
		{compose.START, "prompt"},
		{"prompt", "model"},
		{"model", "content"},
		{"content", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add completer edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("compile completer graph: %w", err)
	}
	return &Completer{runner: runner}, nil
}

func (c *Completer) Complete(ctx context.Context, input string) (string, error) {
	out, err := c.runner.Invoke(ctx, map[string]any{
		"input": input,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if out == "" {
		return "", fmt.Errorf("%w: model returned empty content", contractx.ErrModelInvoke)
	}
	return out, nil
}

// System prompts are literal text; FString would otherwise read braces as variables.
func escapeFString(s string) string {
	s = strings.ReplaceAll(s, "{", "{{")
	return strings.ReplaceAll(s, "}", "}}")
}
