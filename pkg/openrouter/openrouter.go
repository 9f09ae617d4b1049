package openrouter

import (
	"context"
	"fmt"
	"strings"
	"time"

	openaimodel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// LLMBuilder is satisfied by anything that can hand an agent a chat model.
type LLMBuilder interface {
	New(ctx context.Context) (model.ToolCallingChatModel, error)
}

var _ LLMBuilder = (*Config)(nil)

// noReasoning lists models whose reasoning traces must be switched off,
// otherwise they leak into structured replies.
var noReasoning = map[string]bool{
	"x-ai/grok-4.1-fast": true,
}

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true"`
	MaxCompletionToken *int          `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	MaxRetries         int           `envconfig:"MAX_RETRIES" split_words:"true" default:"2"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`
}

// New builds an eino chat model for agents that talk through prompt graphs.
func (c *Config) New(ctx context.Context) (model.ToolCallingChatModel, error) {
	conf, err := c.chatModelConfig()
	if err != nil {
		return nil, err
	}
	m, err := openaimodel.NewChatModel(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("openrouter: create chat model: %w", err)
	}
	return m, nil
}

func (c *Config) chatModelConfig() (*openaimodel.ChatModelConfig, error) {
	name := strings.TrimSpace(c.Model)
	if name == "" {
		return nil, fmt.Errorf("openrouter: model is required")
	}

	temperature := c.Temperature
	conf := &openaimodel.ChatModelConfig{
		BaseURL:     strings.TrimRight(c.BaseURL, "/"),
		APIKey:      strings.TrimSpace(c.APIKey),
		Model:       name,
		MaxTokens:   c.MaxCompletionToken,
		Temperature: &temperature,
		Timeout:     c.Timeout,
	}
	if noReasoning[name] {
		conf.ExtraFields = map[string]any{
			"reasoning": map[string]any{"exclude": true, "effort": "none"},
		}
	}
	return conf, nil
}

// NewClient returns a raw SDK client for the audio endpoints, which the chat
// model surface does not cover. It is nil when no API key is set.
func NewClient(cfg Config) *openaisdk.Client {
	opts := cfg.requestOptions()
	if opts == nil {
		return nil
	}
	client := openaisdk.NewClient(opts...)
	return &client
}

func (c Config) requestOptions() []option.RequestOption {
	key := strings.TrimSpace(c.APIKey)
	if key == "" {
		return nil
	}

	opts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithMaxRetries(c.MaxRetries),
	}
	if base := strings.TrimRight(c.BaseURL, "/"); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	if c.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(c.Timeout))
	}
	// OpenRouter attribution headers.
	if c.SiteURL != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", c.SiteURL))
	}
	if c.SiteName != "" {
		opts = append(opts, option.WithHeader("X-Title", c.SiteName))
	}
	return opts
}
