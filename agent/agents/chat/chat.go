// Package chat is a multi-turn conversational agent. History lives in a
// session store owned by the caller; the model may call local tools.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tanpawarit/agent-teams/agent/base"
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
	llmx "github.com/tanpawarit/agent-teams/agent/llm"
	promptx "github.com/tanpawarit/agent-teams/agent/prompt"
	sessionx "github.com/tanpawarit/agent-teams/agent/session"
	toolx "github.com/tanpawarit/agent-teams/agent/tool"
	logx "github.com/tanpawarit/agent-teams/pkg/logger"
)

const (
	ProviderMock  = "mock"
	ProviderModel = "openrouter"

	defaultSession    = "default"
	defaultMaxHistory = 10
	maxToolRounds     = 4
)

type Config struct {
	Name         string
	Provider     string
	SystemPrompt string
	// MaxHistory bounds stored user/assistant messages; the system prompt
	// is never part of the history.
	MaxHistory int
	// Tools limits the local tools offered to the model; nil offers all,
	// an empty non-nil slice offers none.
	Tools    []string
	Models   llmx.Source
	Sessions sessionx.Store
	LogLevel string
}

type Agent struct {
	*base.Agent

	provider     string
	systemPrompt string
	maxHistory   int
	toolNames    []string
	models       llmx.Source
	sessions     sessionx.Store
	now          func() time.Time

	model    einomodel.ToolCallingChatModel
	runTool  toolx.Executor
	hasTools bool
}

var _ contractx.Agent = (*Agent)(nil)

func New(cfg Config) *Agent {
	name := cfg.Name
	if name == "" {
		name = "chat"
	}
	prompt := strings.TrimSpace(cfg.SystemPrompt)
	if prompt == "" {
		prompt = promptx.LoadPromptSet().Chat
	}
	maxHistory := cfg.MaxHistory
	if maxHistory <= 0 {
		maxHistory = defaultMaxHistory
	}
	sessions := cfg.Sessions
	if sessions == nil {
		sessions = sessionx.NewMemoryStore(sessionx.DefaultTTL)
	}

	a := &Agent{
		provider:     strings.ToLower(strings.TrimSpace(cfg.Provider)),
		systemPrompt: prompt,
		maxHistory:   maxHistory,
		toolNames:    cfg.Tools,
		models:       cfg.Models,
		sessions:     sessions,
		now:          time.Now,
	}
	if a.provider == "" {
		a.provider = ProviderModel
	}
	a.Agent = base.New(name,
		base.WithLogLevel(logx.ParseLevel(cfg.LogLevel)),
		base.WithSetup(a.setup),
		base.WithTeardown(a.teardown),
	)
	return a
}

func (a *Agent) setup(ctx context.Context) error {
	if a.provider == ProviderMock {
		return nil
	}
	if a.models == nil {
		return contractx.ErrModelAbsent
	}

	m, err := a.models.ChatModel(ctx, llmx.AreaChat)
	if err != nil {
		return err
	}

	if a.toolNames != nil && len(a.toolNames) == 0 {
		a.model = m
		return nil
	}
	infos, exec := toolx.Build(a.toolNames...)
	if len(infos) == 0 {
		a.model = m
		return nil
	}
	bound, err := m.WithTools(infos)
	if err != nil {
		return fmt.Errorf("%w: bind chat tools: %v", contractx.ErrModelInvoke, err)
	}
	a.model = bound
	a.runTool = exec
	a.hasTools = true
	return nil
}

func (a *Agent) teardown(ctx context.Context) error {
	a.model = nil
	a.runTool = nil
	a.hasTools = false
	return nil
}

// Execute answers input "message" (or "customer_message") within session
// "session_id".
func (a *Agent) Execute(ctx context.Context, in contractx.Input) (contractx.Output, error) {
	if err := a.Initialize(ctx); err != nil {
		return nil, err
	}

	message := in.String("message")
	if message == "" {
		message = in.String("customer_message")
	}
	if message == "" {
		message = in.String("inquiry")
	}
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", contractx.ErrValidation)
	}
	sessionID := in.StringOr("session_id", defaultSession)

	sess, err := a.sessions.Load(ctx, sessionID)
	if errors.Is(err, sessionx.ErrNotFound) {
		sess = sessionx.New(sessionID, a.now())
	} else if err != nil {
		return nil, err
	}

	var (
		reply     string
		toolCalls []contractx.ToolRequest
	)
	if a.provider == ProviderMock {
		reply = "Mock response to: " + message
	} else {
		reply, toolCalls, err = a.converse(ctx, sess, message)
		if err != nil {
			return nil, err
		}
	}

	sess.Append(sessionx.RoleUser, message, a.now())
	sess.Append(sessionx.RoleAssistant, reply, a.now())
	sess.Trim(a.maxHistory)
	if err := a.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}

	out := contractx.Output{
		"response":       reply,
		"session_id":     sessionID,
		"history_length": len(sess.Messages),
		"provider":       a.provider,
	}
	if len(toolCalls) > 0 {
		out["tool_calls"] = toolCalls
	}
	return out, nil
}

// History returns the stored messages of a session, oldest first.
// Unknown sessions fail with session.ErrNotFound.
func (a *Agent) History(ctx context.Context, sessionID string) ([]map[string]any, error) {
	sess, err := a.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(sess.Messages))
	for _, m := range sess.Messages {
		out = append(out, map[string]any{
			"role":      m.Role,
			"content":   m.Content,
			"timestamp": m.At.Format(time.RFC3339),
		})
	}
	return out, nil
}

func (a *Agent) Reset(ctx context.Context, sessionID string) error {
	return a.sessions.Delete(ctx, sessionID)
}

func (a *Agent) converse(ctx context.Context, sess *sessionx.Session, message string) (string, []contractx.ToolRequest, error) {
	msgs := make([]*schema.Message, 0, len(sess.Messages)+2)
	msgs = append(msgs, schema.SystemMessage(a.systemPrompt))
	for _, m := range sess.Messages {
		switch m.Role {
		case sessionx.RoleUser:
			msgs = append(msgs, schema.UserMessage(m.Content))
		case sessionx.RoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(m.Content, nil))
		}
	}
	msgs = append(msgs, schema.UserMessage(message))

	var calls []contractx.ToolRequest
	for round := 0; ; round++ {
		resp, err := a.model.Generate(ctx, msgs)
		if err != nil {
			return "", nil, fmt.Errorf("%w: chat generate: %v", contractx.ErrModelInvoke, err)
		}
		if resp == nil {
			return "", nil, fmt.Errorf("%w: empty chat response", contractx.ErrModelInvoke)
		}
		if len(resp.ToolCalls) == 0 || !a.hasTools {
			reply := strings.TrimSpace(resp.Content)
			if reply == "" {
				return "", nil, fmt.Errorf("%w: empty chat response", contractx.ErrModelInvoke)
			}
			return reply, calls, nil
		}
		if round >= maxToolRounds {
			return "", nil, fmt.Errorf("%w: tool loop exceeded %d rounds", contractx.ErrModelInvoke, maxToolRounds)
		}

		msgs = append(msgs, resp)
		results, reqs, err := a.callTools(ctx, resp.ToolCalls)
		if err != nil {
			return "", nil, err
		}
		calls = append(calls, reqs...)
		msgs = append(msgs, results...)
	}
}
