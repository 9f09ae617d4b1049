// Package shopify answers store questions and summarises orders from the
// Shopify Admin API. Without shop credentials it serves placeholder data.
package shopify

import (
	"context"
	"fmt"
	"strings"

	"github.com/tanpawarit/agent-teams/agent/base"
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
	llmx "github.com/tanpawarit/agent-teams/agent/llm"
	logx "github.com/tanpawarit/agent-teams/pkg/logger"
)

const (
	ActionOrders   = "orders"
	ActionSupport  = "support"
	ActionProducts = "products"

	defaultOrderLimit = 50
)

var defaultEscalation = []string{"speak to a human", "human agent", "manager", "complaint", "lawyer"}

type Config struct {
	Name      string
	StoreName string
	Client    ClientConfig
	Models    llmx.Source
	// Policies holds store texts keyed by returns, shipping, support_email
	// and support_phone.
	Policies           map[string]string
	EscalationKeywords []string
	LogLevel           string
}

type Agent struct {
	*base.Agent

	cfg        Config
	client     *Client
	escalation []string
	writer     contractx.Completer
}

var _ contractx.Agent = (*Agent)(nil)

func New(cfg Config) *Agent {
	if cfg.Name == "" {
		cfg.Name = "shopify"
	}
	if cfg.StoreName == "" {
		cfg.StoreName = "our store"
	}
	if cfg.Policies == nil {
		cfg.Policies = map[string]string{}
	}
	keywords := cfg.EscalationKeywords
	if len(keywords) == 0 {
		keywords = defaultEscalation
	}

	a := &Agent{cfg: cfg, escalation: lower(keywords)}
	a.Agent = base.New(cfg.Name,
		base.WithLogLevel(logx.ParseLevel(cfg.LogLevel)),
		base.WithSetup(a.setup),
		base.WithTeardown(func(context.Context) error {
			a.client = nil
			a.writer = nil
			return nil
		}),
	)
	return a
}

func (a *Agent) setup(ctx context.Context) error {
	client, err := NewClient(a.cfg.Client)
	if err != nil {
		return err
	}
	a.client = client
	if client == nil {
		a.Log(logx.LevelWarn, "shop credentials missing, serving placeholder data")
	}

	if a.cfg.Models == nil {
		return nil
	}
	writer, err := llmx.CompleterFor(ctx, a.cfg.Models, llmx.AreaChat, a.systemPrompt())
	if err != nil {
		a.Log(logx.LevelWarn, "support replies fall back to templates: "+err.Error())
		return nil
	}
	a.writer = writer
	return nil
}

// Execute dispatches on "action"; without one, a "message" means support
// and anything else means order processing.
func (a *Agent) Execute(ctx context.Context, in contractx.Input) (contractx.Output, error) {
	if err := a.Initialize(ctx); err != nil {
		return nil, err
	}

	action := strings.ToLower(in.String("action"))
	if action == "" {
		if in.String("message") != "" {
			action = ActionSupport
		} else {
			action = ActionOrders
		}
	}

	switch action {
	case ActionOrders:
		return a.processOrders(ctx, in)
	case ActionSupport:
		return a.support(ctx, in)
	case ActionProducts:
		return a.products(ctx, in)
	default:
		return nil, fmt.Errorf("%w: unknown shopify action %q", contractx.ErrValidation, action)
	}
}

func (a *Agent) systemPrompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the customer support assistant for %s. Be friendly, concise and accurate.\n", a.cfg.StoreName)
	b.WriteString("Only state order or product facts that appear in the provided context.\n")
	for _, key := range []string{"returns", "shipping"} {
		if v := a.cfg.Policies[key]; v != "" {
			fmt.Fprintf(&b, "%s policy: %s\n", key, v)
		}
	}
	return b.String()
}

func lower(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
