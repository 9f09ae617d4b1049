// Package factory builds team leaders and their members from team files.
package factory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/agent-teams/agent/agents/chat"
	"github.com/tanpawarit/agent-teams/agent/agents/content"
	"github.com/tanpawarit/agent-teams/agent/agents/dataproc"
	"github.com/tanpawarit/agent-teams/agent/agents/forecast"
	"github.com/tanpawarit/agent-teams/agent/agents/recipe"
	"github.com/tanpawarit/agent-teams/agent/agents/report"
	"github.com/tanpawarit/agent-teams/agent/agents/segmentation"
	shopagent "github.com/tanpawarit/agent-teams/agent/agents/shopify"
	"github.com/tanpawarit/agent-teams/agent/agents/voice"
	"github.com/tanpawarit/agent-teams/agent/agents/voicechat"
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
	llmx "github.com/tanpawarit/agent-teams/agent/llm"
	sessionx "github.com/tanpawarit/agent-teams/agent/session"
	"github.com/tanpawarit/agent-teams/agent/state"
	"github.com/tanpawarit/agent-teams/agent/team"
	"github.com/tanpawarit/agent-teams/agent/teams/bakery"
	"github.com/tanpawarit/agent-teams/agent/teams/repository"
	shopteam "github.com/tanpawarit/agent-teams/agent/teams/shopify"
)

const (
	KindRecipe        = "recipe_management"
	KindForecast      = "sales_forecasting"
	KindChat          = "chat"
	KindSynthesis     = "voice_synthesis"
	KindTranscription = "voice_transcription"
	KindShopify       = "shopify"
	KindSegmentation  = "customer_segmentation"
	KindReport        = "production_report"
	KindContent       = "content"
	KindVoiceChat     = "voice_chat"
	KindDataProcessor = "data_processing"
)

var ErrUnknownTeamType = errors.New("unknown team type")

var definers = map[string]func(*team.Leader) (*team.Leader, error){
	bakery.Name:     bakery.Define,
	shopteam.Name:   shopteam.Define,
	repository.Name: repository.Define,
}

// contentCapabilities maps content kinds onto the capabilities teams ask for.
var contentCapabilities = map[string]string{
	"marketing":     "marketing",
	"social":        shopteam.CapSocialMedia,
	"email":         shopteam.CapEmailCampaign,
	"faq":           "faq",
	"code_review":   repository.CapCodeReview,
	"release_notes": repository.CapReleaseNotes,
	"documentation": repository.CapDocumentation,
}

// Deps are shared by every member a factory builds.
type Deps struct {
	Models   llmx.Source
	Sessions sessionx.Store
	// Logger defaults to the global logger.
	Logger    *zerolog.Logger
	Observers []team.Observer
	// ConflictPolicy applies when the team file names none.
	ConflictPolicy team.ConflictPolicy
}

type Member struct {
	Name         string
	Type         string
	Capabilities []string
	Agent        contractx.Executor
}

// Team is a built leader plus the members registered on it.
type Team struct {
	Leader  *team.Leader
	Type    string
	Members []Member
}

type persister interface {
	Persist(ctx context.Context, store contractx.SnapshotStore) error
	Recall(ctx context.Context, store contractx.SnapshotStore) error
}

// Build creates the leader for cfg and registers its members. Unknown member
// types are logged and skipped.
func Build(cfg TeamConfig, deps Deps) (*Team, error) {
	define, ok := definers[cfg.TeamType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTeamType, cfg.TeamType)
	}

	policy := deps.ConflictPolicy
	if cfg.ConflictPolicy != "" {
		p, err := team.ParseConflictPolicy(cfg.ConflictPolicy)
		if err != nil {
			return nil, err
		}
		policy = p
	}

	logger := log.Logger
	if deps.Logger != nil {
		logger = *deps.Logger
	}

	name := cfg.Name
	if name == "" {
		name = cfg.TeamType
	}
	opts := []team.Option{team.WithConflictPolicy(policy), team.WithLogger(logger)}
	for _, o := range deps.Observers {
		opts = append(opts, team.WithObserver(o))
	}
	l, err := define(team.New(name, opts...))
	if err != nil {
		return nil, err
	}

	t := &Team{Leader: l, Type: cfg.TeamType}
	for i, mc := range cfg.Members {
		exec, caps, err := newMember(mc, deps)
		if errors.Is(err, errUnknownMember) {
			logger.Warn().Str("team", name).Str("type", mc.Type).Int("index", i).Msg("skipping unknown member type")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("member %d (%s): %w", i, mc.Type, err)
		}
		if len(mc.Capabilities) > 0 {
			caps = mc.Capabilities
		}
		memberName := mc.Name
		if memberName == "" {
			memberName = mc.Type
		}
		if err := l.RegisterAgent(memberName, exec, caps...); err != nil {
			return nil, fmt.Errorf("register %s: %w", memberName, err)
		}
		t.Members = append(t.Members, Member{Name: memberName, Type: mc.Type, Capabilities: caps, Agent: exec})
	}

	logger.Info().Str("team", name).Str("type", cfg.TeamType).Int("members", len(t.Members)).Msg("team built")
	return t, nil
}

// Recall restores every member that keeps state. Missing snapshots are not
// errors.
func (t *Team) Recall(ctx context.Context, store contractx.SnapshotStore) error {
	var errs []error
	for _, m := range t.Members {
		p, ok := m.Agent.(persister)
		if !ok {
			continue
		}
		if err := p.Recall(ctx, store); err != nil && !errors.Is(err, state.ErrNotFound) {
			errs = append(errs, fmt.Errorf("recall %s: %w", m.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (t *Team) Persist(ctx context.Context, store contractx.SnapshotStore) error {
	var errs []error
	for _, m := range t.Members {
		if p, ok := m.Agent.(persister); ok {
			if err := p.Persist(ctx, store); err != nil {
				errs = append(errs, fmt.Errorf("persist %s: %w", m.Name, err))
			}
		}
	}
	return errors.Join(errs...)
}

var errUnknownMember = errors.New("unknown member type")

func newMember(mc MemberConfig, deps Deps) (contractx.Executor, []string, error) {
	kind := strings.ToLower(strings.TrimSpace(mc.Type))
	raw := mc.Config
	if raw == nil {
		raw = map[string]any{}
	}

	switch kind {
	case KindRecipe:
		var o recipeOptions
		if err := decode(raw, &o); err != nil {
			return nil, nil, err
		}
		a := recipe.New(recipe.Config{Name: mc.Name, Models: deps.Models, LogLevel: o.LogLevel, Recipes: o.Recipes})
		return a, []string{bakery.CapRecipeScale, bakery.CapRecipeAllergens, bakery.CapRecipeNutrition, bakery.CapRecipeSubstitute}, nil

	case KindForecast:
		var o forecastOptions
		if err := decode(raw, &o); err != nil {
			return nil, nil, err
		}
		a := forecast.New(forecast.Config{Name: mc.Name, Models: deps.Models, LogLevel: o.LogLevel, Horizon: o.Horizon})
		return a, []string{bakery.CapSalesForecasting}, nil

	case KindChat:
		var o chatOptions
		if err := decode(raw, &o); err != nil {
			return nil, nil, err
		}
		if o.Provider == "" && deps.Models == nil {
			o.Provider = chat.ProviderMock
		}
		a := chat.New(chat.Config{
			Name:         mc.Name,
			Provider:     o.Provider,
			SystemPrompt: o.SystemPrompt,
			MaxHistory:   o.MaxHistory,
			Tools:        o.Tools,
			Models:       deps.Models,
			Sessions:     deps.Sessions,
			LogLevel:     o.LogLevel,
		})
		return a, []string{bakery.CapCustomerSupport}, nil

	case KindSynthesis, KindTranscription:
		var o voiceOptions
		if err := decode(raw, &o); err != nil {
			return nil, nil, err
		}
		client := voice.ClientConfig{
			Provider:   o.Provider,
			APIKey:     o.APIKey,
			BaseURL:    o.BaseURL,
			Timeout:    o.Timeout,
			MaxRetries: o.MaxRetries,
			Models:     deps.Models,
		}
		if kind == KindSynthesis {
			a := voice.NewSynthesizer(voice.SynthesisConfig{
				ClientConfig: client,
				Name:         mc.Name,
				Model:        o.Model,
				Voice:        o.Voice,
				Format:       o.Format,
				Speed:        o.Speed,
				OutputDir:    o.OutputDir,
				LogLevel:     o.LogLevel,
			})
			return a, []string{KindSynthesis}, nil
		}
		a := voice.NewTranscriber(voice.TranscriptionConfig{
			ClientConfig: client,
			Name:         mc.Name,
			Model:        o.Model,
			Language:     o.Language,
			LogLevel:     o.LogLevel,
		})
		return a, []string{KindTranscription}, nil

	case KindVoiceChat:
		var o voiceChatOptions
		if err := decode(raw, &o); err != nil {
			return nil, nil, err
		}
		if o.ChatProvider == "" && deps.Models == nil {
			o.ChatProvider = chat.ProviderMock
		}
		a := voicechat.New(voicechat.Config{
			Name: mc.Name,
			Voice: voice.ClientConfig{
				Provider:   o.Provider,
				APIKey:     o.APIKey,
				BaseURL:    o.BaseURL,
				Timeout:    o.Timeout,
				MaxRetries: o.MaxRetries,
				Models:     deps.Models,
			},
			ChatProvider: o.ChatProvider,
			SystemPrompt: o.SystemPrompt,
			MaxHistory:   o.MaxHistory,
			SpeechVoice:  o.Voice,
			Speed:        o.Speed,
			Language:     o.Language,
			OutputDir:    o.OutputDir,
			Models:       deps.Models,
			Sessions:     deps.Sessions,
			LogLevel:     o.LogLevel,
		})
		return a, []string{KindVoiceChat}, nil

	case KindShopify:
		var o shopifyOptions
		if err := decode(raw, &o); err != nil {
			return nil, nil, err
		}
		a := shopagent.New(shopagent.Config{
			Name:      mc.Name,
			StoreName: o.StoreName,
			Client: shopagent.ClientConfig{
				ShopDomain:  o.ShopDomain,
				AccessToken: o.AccessToken,
				APIVersion:  o.APIVersion,
				Timeout:     o.Timeout,
				MaxRetries:  o.MaxRetries,
				BaseURL:     o.BaseURL,
			},
			Models:             deps.Models,
			Policies:           o.Policies,
			EscalationKeywords: o.EscalationKeywords,
			LogLevel:           o.LogLevel,
		})
		return a, []string{shopteam.CapOrderProcessing, shopteam.CapCustomerSupport}, nil

	case KindSegmentation:
		var o segmentationOptions
		if err := decode(raw, &o); err != nil {
			return nil, nil, err
		}
		a := segmentation.New(segmentation.Config{Name: mc.Name, Rules: o.rules(), LogLevel: o.LogLevel})
		return a, []string{shopteam.CapCustomerSegmentation}, nil

	case KindReport:
		var o reportOptions
		if err := decode(raw, &o); err != nil {
			return nil, nil, err
		}
		a := report.New(report.Config{
			Name:           mc.Name,
			BufferPercent:  o.BufferPercent,
			UnitCosts:      o.UnitCosts,
			UnitPrices:     o.UnitPrices,
			Format:         o.Format,
			IncludeDetails: o.IncludeDetails,
			OutputDir:      o.OutputDir,
			LogLevel:       o.LogLevel,
		})
		return a, []string{bakery.CapProductionReport}, nil

	case KindDataProcessor:
		var o dataOptions
		if err := decode(raw, &o); err != nil {
			return nil, nil, err
		}
		a := dataproc.New(dataproc.Config{
			Name:       mc.Name,
			Pipeline:   o.Pipeline,
			SkipStats:  o.SkipStats,
			StatsField: o.StatsField,
			DataDir:    o.DataDir,
			LogLevel:   o.LogLevel,
		})
		return a, []string{KindDataProcessor}, nil

	case KindContent:
		var o contentOptions
		if err := decode(raw, &o); err != nil {
			return nil, nil, err
		}
		a := content.New(content.Config{
			Name:        mc.Name,
			Kinds:       o.Kinds,
			DefaultKind: o.DefaultKind,
			Context:     o.Context,
			Models:      deps.Models,
			CacheSize:   o.CacheSize,
			LogLevel:    o.LogLevel,
		})
		kinds := o.Kinds
		if len(kinds) == 0 {
			kinds = content.Kinds
		}
		caps := make([]string, 0, len(kinds))
		for _, k := range kinds {
			if c, ok := contentCapabilities[k]; ok {
				caps = append(caps, c)
			}
		}
		return a, caps, nil

	default:
		return nil, nil, fmt.Errorf("%w: %s", errUnknownMember, mc.Type)
	}
}

// rules fills unset thresholds from the defaults.
func (o segmentationOptions) rules() segmentation.Rules {
	r := segmentation.DefaultRules()
	if o.VIPSpend > 0 {
		r.VIPSpend = o.VIPSpend
	}
	if o.LoyalOrders > 0 {
		r.LoyalOrders = o.LoyalOrders
	}
	if o.AtRiskDays > 0 {
		r.AtRiskDays = o.AtRiskDays
	}
	if o.NewDays > 0 {
		r.NewDays = o.NewDays
	}
	if o.NewMaxOrders > 0 {
		r.NewMaxOrders = o.NewMaxOrders
	}
	return r
}
