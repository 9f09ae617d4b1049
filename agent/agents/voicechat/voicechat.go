// Package voicechat runs a spoken conversation turn: transcribe the caller,
// answer through the chat agent, then speak the answer.
package voicechat

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/tanpawarit/agent-teams/agent/agents/chat"
	"github.com/tanpawarit/agent-teams/agent/agents/voice"
	"github.com/tanpawarit/agent-teams/agent/base"
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
	llmx "github.com/tanpawarit/agent-teams/agent/llm"
	sessionx "github.com/tanpawarit/agent-teams/agent/session"
	logx "github.com/tanpawarit/agent-teams/pkg/logger"
)

const (
	minSpeed = 0.25
	maxSpeed = 4.0

	defaultVoice = "nova"
)

type Config struct {
	Name string
	// Voice reaches the speech and transcription endpoints.
	Voice voice.ClientConfig
	// ChatProvider is chat.ProviderMock or chat.ProviderModel.
	ChatProvider string
	SystemPrompt string
	MaxHistory   int
	SpeechVoice  string
	Speed        float64
	Language     string
	OutputDir    string
	Models       llmx.Source
	Sessions     sessionx.Store
	LogLevel     string
}

type Agent struct {
	*base.Agent

	listen *voice.Transcriber
	talk   *chat.Agent
	speak  *voice.Synthesizer

	mu    sync.RWMutex
	voice string
	speed float64
}

var _ contractx.Agent = (*Agent)(nil)

func New(cfg Config) *Agent {
	name := cfg.Name
	if name == "" {
		name = "voice_chat"
	}
	speechVoice := strings.TrimSpace(cfg.SpeechVoice)
	if speechVoice == "" {
		speechVoice = defaultVoice
	}
	speed := cfg.Speed
	if speed == 0 {
		speed = 1
	}

	a := &Agent{
		listen: voice.NewTranscriber(voice.TranscriptionConfig{
			ClientConfig: cfg.Voice,
			Name:         name + "_transcription",
			Language:     cfg.Language,
			LogLevel:     cfg.LogLevel,
		}),
		talk: chat.New(chat.Config{
			Name:         name + "_chat",
			Provider:     cfg.ChatProvider,
			SystemPrompt: cfg.SystemPrompt,
			MaxHistory:   cfg.MaxHistory,
			Tools:        []string{},
			Models:       cfg.Models,
			Sessions:     cfg.Sessions,
			LogLevel:     cfg.LogLevel,
		}),
		speak: voice.NewSynthesizer(voice.SynthesisConfig{
			ClientConfig: cfg.Voice,
			Name:         name + "_synthesis",
			Voice:        speechVoice,
			OutputDir:    cfg.OutputDir,
			LogLevel:     cfg.LogLevel,
		}),
		voice: speechVoice,
		speed: clampSpeed(speed),
	}
	a.Agent = base.New(name,
		base.WithLogLevel(logx.ParseLevel(cfg.LogLevel)),
		base.WithSetup(a.setup),
		base.WithTeardown(a.teardown),
	)
	return a
}

// setup initializes every stage up front so a missing key fails the whole
// agent rather than half a turn.
func (a *Agent) setup(ctx context.Context) error {
	for _, stage := range []contractx.Agent{a.listen, a.talk, a.speak} {
		if err := stage.Initialize(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (a *Agent) teardown(ctx context.Context) error {
	var first error
	for _, stage := range []contractx.Agent{a.listen, a.talk, a.speak} {
		if err := stage.Cleanup(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// SetVoice switches the speech voice for later turns.
func (a *Agent) SetVoice(v string) error {
	v = strings.ToLower(strings.TrimSpace(v))
	if !slices.Contains(voice.Voices, v) {
		return fmt.Errorf("%w: unknown voice %q", contractx.ErrValidation, v)
	}
	a.mu.Lock()
	a.voice = v
	a.mu.Unlock()
	return nil
}

// SetSpeed clamps speed into the range the speech endpoint accepts.
func (a *Agent) SetSpeed(speed float64) float64 {
	speed = clampSpeed(speed)
	a.mu.Lock()
	a.speed = speed
	a.mu.Unlock()
	return speed
}

func (a *Agent) Settings() (string, float64) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.voice, a.speed
}

func (a *Agent) History(ctx context.Context, sessionID string) ([]map[string]any, error) {
	return a.talk.History(ctx, sessionID)
}

// ClearHistory forgets a session; the voice settings are kept.
func (a *Agent) ClearHistory(ctx context.Context, sessionID string) error {
	return a.talk.Reset(ctx, sessionID)
}

// Execute takes "audio_file" or "audio" for a spoken turn, or "text" for a
// typed one. Audio is synthesized unless "return_audio" is false.
func (a *Agent) Execute(ctx context.Context, in contractx.Input) (contractx.Output, error) {
	if err := a.Initialize(ctx); err != nil {
		return nil, err
	}

	userText := in.String("text")
	if userText == "" {
		userText = in.String("message")
	}
	if userText == "" {
		heard, err := a.listen.Execute(ctx, contractx.Input{
			"audio_file": in["audio_file"],
			"audio":      in["audio"],
			"language":   in["language"],
		})
		if err != nil {
			return nil, err
		}
		userText = contractx.Input(heard).String("text")
		if userText == "" {
			return nil, fmt.Errorf("%w: transcription was empty", contractx.ErrValidation)
		}
	}

	sessionID := in.StringOr("session_id", "default")
	reply, err := a.talk.Execute(ctx, contractx.Input{"message": userText, "session_id": sessionID})
	if err != nil {
		return nil, err
	}
	aiText := contractx.Input(reply).String("response")

	out := contractx.Output{
		"user_text":  userText,
		"ai_text":    aiText,
		"session_id": sessionID,
	}

	if ret, ok := in["return_audio"].(bool); !ok || ret {
		speechVoice, speed := a.Settings()
		spoken, err := a.speak.Execute(ctx, contractx.Input{
			"text":        aiText,
			"voice":       in.StringOr("voice", speechVoice),
			"speed":       speed,
			"output_file": in["output_file"],
		})
		if err != nil {
			return nil, err
		}
		out["audio_file"] = spoken["audio_file"]
	}

	history, err := a.talk.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out["conversation_history"] = history

	a.Event(logx.LevelInfo).
		Str("session_id", sessionID).
		Bool("audio", out["audio_file"] != nil).
		Msg("voice turn completed")
	return out, nil
}

func clampSpeed(speed float64) float64 {
	return min(max(speed, minSpeed), maxSpeed)
}
