package llm

import (
	"context"
	"fmt"
	"sync"

	einomodel "github.com/cloudwego/eino/components/model"
	openaisdk "github.com/openai/openai-go"
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
	openrouterx "github.com/tanpawarit/agent-teams/pkg/openrouter"
)

// Source hands out chat models per area. Agents receive it at construction
// and resolve their model lazily during Initialize.
type Source interface {
	ChatModel(ctx context.Context, area string) (einomodel.ToolCallingChatModel, error)
	Client(area string) *openaisdk.Client
}

type Provider struct {
	cfg Config

	mu     sync.Mutex
	models map[string]einomodel.ToolCallingChatModel
}

var _ Source = (*Provider)(nil)

func NewProvider(cfg Config) *Provider {
	return &Provider{
		cfg:    cfg,
		models: make(map[string]einomodel.ToolCallingChatModel),
	}
}

func (p *Provider) ChatModel(ctx context.Context, area string) (einomodel.ToolCallingChatModel, error) {
	if p == nil || !p.cfg.Enabled() {
		return nil, contractx.ErrModelAbsent
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if m, ok := p.models[area]; ok {
		return m, nil
	}

	conf := p.cfg.OpenRouterFor(area)
	m, err := conf.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s model: %v", contractx.ErrModelInvoke, area, err)
	}
	p.models[area] = m
	return m, nil
}

func (p *Provider) Client(area string) *openaisdk.Client {
	if p == nil {
		return nil
	}
	return openrouterx.NewClient(p.cfg.OpenRouterFor(area))
}

// CompleterFor is a convenience for agents that only need single-shot text.
func CompleterFor(ctx context.Context, src Source, area, systemPrompt string) (contractx.Completer, error) {
	if src == nil {
		return nil, contractx.ErrModelAbsent
	}
	m, err := src.ChatModel(ctx, area)
	if err != nil {
		return nil, err
	}
	return NewCompleter(ctx, m, systemPrompt, area+".completer")
}
