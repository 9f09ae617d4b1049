// Package voice converts between text and audio through the OpenAI audio
// endpoints. The mock provider needs no credentials.
package voice

import (
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	llmx "github.com/tanpawarit/agent-teams/agent/llm"
	openrouterx "github.com/tanpawarit/agent-teams/pkg/openrouter"
)

const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"

	defaultBaseURL  = "https://api.openai.com/v1"
	defaultLanguage = "en"
)

// Voices lists the speech voices the OpenAI endpoint accepts.
var Voices = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}

// ClientConfig selects how an audio agent reaches its provider. An explicit
// APIKey wins over the shared model source.
type ClientConfig struct {
	Provider   string
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	Models     llmx.Source
}

func (c ClientConfig) provider() string {
	p := strings.ToLower(strings.TrimSpace(c.Provider))
	if p == "" {
		return ProviderOpenAI
	}
	return p
}

func (c ClientConfig) client() *openaisdk.Client {
	if strings.TrimSpace(c.APIKey) != "" {
		base := strings.TrimSpace(c.BaseURL)
		if base == "" {
			base = defaultBaseURL
		}
		return openrouterx.NewClient(openrouterx.Config{
			BaseURL:    base,
			APIKey:     c.APIKey,
			Timeout:    c.Timeout,
			MaxRetries: c.MaxRetries,
		})
	}
	if c.Models != nil {
		return c.Models.Client(llmx.AreaVoice)
	}
	return nil
}
