package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/agent-teams/agent/contract"
	openrouterx "github.com/tanpawarit/agent-teams/pkg/openrouter"
)

// Areas group agents that share a model override.
const (
	AreaChat     = "chat"
	AreaRecipe   = "recipe"
	AreaForecast = "forecast"
	AreaContent  = "content"
	AreaVoice    = "voice"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	MaxRetries         int           `envconfig:"MAX_RETRIES" split_words:"true" default:"2"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	// area:model pairs, e.g. "chat:openai/gpt-4o-mini,content:anthropic/claude-3.5-haiku"
	ModelOverrides       map[string]string  `envconfig:"MODEL_OVERRIDES" split_words:"true"`
	TemperatureOverrides map[string]float32 `envconfig:"TEMPERATURE_OVERRIDES" split_words:"true"`
}

// Enabled reports whether enough is configured to build a model. Agents fall
// back to local behavior when it is false.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != "" && strings.TrimSpace(c.Model) != ""
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

func (c Config) OpenRouterFor(area string) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	if v := strings.TrimSpace(c.ModelOverrides[area]); v != "" {
		modelName = v
	}
	temp := c.Temperature
	if v, ok := c.TemperatureOverrides[area]; ok && v >= 0 {
		temp = v
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		MaxRetries:         c.MaxRetries,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
