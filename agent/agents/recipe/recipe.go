// Package recipe is the bakery recipe specialist: scaling, allergen checks,
// substitutions, nutrition, optimisation advice and a small recipe book.
package recipe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/tanpawarit/agent-teams/agent/base"
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
	llmx "github.com/tanpawarit/agent-teams/agent/llm"
	promptx "github.com/tanpawarit/agent-teams/agent/prompt"
	logx "github.com/tanpawarit/agent-teams/pkg/logger"
)

var (
	ErrMissingServings = errors.New("recipe missing servings")
	ErrMissingRecipe   = errors.New("recipe is required")
	ErrUnknownAction   = errors.New("unknown recipe action")
)

const (
	ActionScale      = "scale"
	ActionAllergens  = "allergens"
	ActionSubstitute = "substitute"
	ActionNutrition  = "nutrition"
	ActionOptimize   = "optimize"
	ActionSearch     = "search"
	ActionSave       = "save"
)

type Config struct {
	Name     string
	Models   llmx.Source
	LogLevel string
	// Recipes seeds the recipe book used by search.
	Recipes []Recipe
}

type Agent struct {
	*base.Agent

	models  llmx.Source
	advisor contractx.Completer
	facts   *llmx.Structured[Nutrition]
}

var _ contractx.Agent = (*Agent)(nil)

func New(cfg Config) *Agent {
	name := cfg.Name
	if name == "" {
		name = "recipe"
	}
	a := &Agent{models: cfg.Models}
	a.Agent = base.New(name,
		base.WithLogLevel(logx.ParseLevel(cfg.LogLevel)),
		base.WithSetup(a.setup),
		base.WithTeardown(a.teardown),
	)
	for _, r := range cfg.Recipes {
		a.store(r)
	}
	return a
}

func (a *Agent) setup(ctx context.Context) error {
	m, err := a.chatModel(ctx)
	if errors.Is(err, contractx.ErrModelAbsent) {
		a.Log(logx.LevelInfo, "no model configured, running with local tables only")
		return nil
	}
	if err != nil {
		return err
	}

	prompts := promptx.LoadPromptSet()
	advisor, err := llmx.NewCompleter(ctx, m, prompts.Recipe, "recipe.advisor")
	if err != nil {
		return err
	}
	facts, err := llmx.NewStructured[Nutrition](ctx, m, prompts.Recipe, "recipe.nutrition")
	if err != nil {
		return err
	}
	a.advisor = advisor
	a.facts = facts
	return nil
}

func (a *Agent) chatModel(ctx context.Context) (einomodel.ToolCallingChatModel, error) {
	if a.models == nil {
		return nil, contractx.ErrModelAbsent
	}
	return a.models.ChatModel(ctx, llmx.AreaRecipe)
}

func (a *Agent) teardown(ctx context.Context) error {
	a.advisor = nil
	a.facts = nil
	return nil
}

// Execute dispatches on input "action", defaulting to scale.
func (a *Agent) Execute(ctx context.Context, in contractx.Input) (contractx.Output, error) {
	if err := a.Initialize(ctx); err != nil {
		return nil, err
	}

	action := strings.ToLower(in.StringOr("action", ActionScale))
	a.Event(logx.LevelDebug).Str("action", action).Msg("recipe request")

	switch action {
	case ActionScale:
		return a.scale(in)
	case ActionAllergens:
		return a.allergens(in)
	case ActionSubstitute:
		return a.substitute(ctx, in)
	case ActionNutrition:
		return a.nutrition(ctx, in)
	case ActionOptimize:
		return a.optimize(ctx, in)
	case ActionSearch:
		return a.search(in)
	case ActionSave:
		return a.save(in)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
}
