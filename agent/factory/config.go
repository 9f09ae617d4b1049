package factory

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/tanpawarit/agent-teams/agent/agents/dataproc"
	"github.com/tanpawarit/agent-teams/agent/agents/recipe"
	configx "github.com/tanpawarit/agent-teams/pkg/config"
)

// TeamConfig is the document a team file holds.
type TeamConfig struct {
	TeamType       string         `json:"team_type"`
	Name           string         `json:"name,omitempty"`
	ConflictPolicy string         `json:"conflict_policy,omitempty"`
	LeaderConfig   map[string]any `json:"leader_config,omitempty"`
	Members        []MemberConfig `json:"members"`
}

type MemberConfig struct {
	Type         string         `json:"type"`
	Name         string         `json:"name"`
	Capabilities []string       `json:"capabilities,omitempty"`
	Config       map[string]any `json:"config,omitempty"`
}

// Load reads a YAML or JSON team file with ${VAR} references expanded.
func Load(path string) (TeamConfig, error) {
	raw, err := configx.ReadFile(path)
	if err != nil {
		return TeamConfig{}, err
	}
	return Parse(raw)
}

func Parse(raw map[string]any) (TeamConfig, error) {
	var cfg TeamConfig
	if err := decode(raw, &cfg); err != nil {
		return TeamConfig{}, fmt.Errorf("decode team config: %w", err)
	}
	cfg.TeamType = strings.TrimSpace(cfg.TeamType)
	if cfg.TeamType == "" {
		return TeamConfig{}, fmt.Errorf("team config has no team_type")
	}
	// leader_config may carry the team name and policy too.
	if cfg.Name == "" {
		cfg.Name, _ = cfg.LeaderConfig["name"].(string)
	}
	if cfg.ConflictPolicy == "" {
		cfg.ConflictPolicy, _ = cfg.LeaderConfig["conflict_policy"].(string)
	}
	return cfg, nil
}

func decode(in any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

type recipeOptions struct {
	LogLevel string          `json:"log_level"`
	Recipes  []recipe.Recipe `json:"recipes"`
}

type forecastOptions struct {
	LogLevel string `json:"log_level"`
	Horizon  int    `json:"forecast_days"`
}

type chatOptions struct {
	LogLevel     string   `json:"log_level"`
	Provider     string   `json:"provider"`
	SystemPrompt string   `json:"system_prompt"`
	MaxHistory   int      `json:"max_history"`
	Tools        []string `json:"tools"`
}

type voiceOptions struct {
	LogLevel   string        `json:"log_level"`
	Provider   string        `json:"provider"`
	APIKey     string        `json:"api_key"`
	BaseURL    string        `json:"base_url"`
	Timeout    time.Duration `json:"timeout"`
	MaxRetries int           `json:"max_retries"`
	Model      string        `json:"model"`
	// synthesis
	Voice     string  `json:"voice"`
	Format    string  `json:"format"`
	Speed     float64 `json:"speed"`
	OutputDir string  `json:"output_dir"`
	// transcription
	Language string `json:"language"`
}

type voiceChatOptions struct {
	LogLevel     string        `json:"log_level"`
	Provider     string        `json:"provider"`
	APIKey       string        `json:"api_key"`
	BaseURL      string        `json:"base_url"`
	Timeout      time.Duration `json:"timeout"`
	MaxRetries   int           `json:"max_retries"`
	Voice        string        `json:"voice"`
	Speed        float64       `json:"speed"`
	Language     string        `json:"language"`
	OutputDir    string        `json:"output_dir"`
	ChatProvider string        `json:"chat_provider"`
	SystemPrompt string        `json:"system_prompt"`
	MaxHistory   int           `json:"max_history"`
}

type dataOptions struct {
	dataproc.Pipeline `json:",squash"`

	LogLevel   string `json:"log_level"`
	SkipStats  bool   `json:"skip_stats"`
	StatsField string `json:"stats_field"`
	DataDir    string `json:"data_dir"`
}

type shopifyOptions struct {
	LogLevel           string            `json:"log_level"`
	StoreName          string            `json:"store_name"`
	ShopDomain         string            `json:"shop_domain"`
	AccessToken        string            `json:"access_token"`
	APIVersion         string            `json:"api_version"`
	BaseURL            string            `json:"base_url"`
	Timeout            time.Duration     `json:"timeout"`
	MaxRetries         int               `json:"max_retries"`
	Policies           map[string]string `json:"policies"`
	EscalationKeywords []string          `json:"escalation_keywords"`
}

type segmentationOptions struct {
	LogLevel     string  `json:"log_level"`
	VIPSpend     float64 `json:"vip_spend"`
	LoyalOrders  int     `json:"loyal_orders"`
	AtRiskDays   int     `json:"at_risk_days"`
	NewDays      int     `json:"new_days"`
	NewMaxOrders int     `json:"new_max_orders"`
}

type reportOptions struct {
	LogLevel       string             `json:"log_level"`
	BufferPercent  *int               `json:"buffer_percent"`
	UnitCosts      map[string]float64 `json:"unit_costs"`
	UnitPrices     map[string]float64 `json:"unit_prices"`
	Format         string             `json:"format"`
	IncludeDetails bool               `json:"include_details"`
	OutputDir      string             `json:"output_dir"`
}

type contentOptions struct {
	LogLevel    string   `json:"log_level"`
	Kinds       []string `json:"kinds"`
	DefaultKind string   `json:"default_kind"`
	Context     string   `json:"context"`
	CacheSize   int      `json:"cache_size"`
}
