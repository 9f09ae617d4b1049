package voice

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/tanpawarit/agent-teams/agent/base"
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
	logx "github.com/tanpawarit/agent-teams/pkg/logger"
)

type TranscriptionConfig struct {
	ClientConfig

	Name     string
	Model    string
	Language string
	LogLevel string
}

// Transcriber turns an audio file into text.
type Transcriber struct {
	*base.Agent

	cfg    TranscriptionConfig
	client *openaisdk.Client
}

var _ contractx.Agent = (*Transcriber)(nil)

func NewTranscriber(cfg TranscriptionConfig) *Transcriber {
	if cfg.Name == "" {
		cfg.Name = "voice_transcription"
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	if cfg.Language == "" {
		cfg.Language = defaultLanguage
	}

	t := &Transcriber{cfg: cfg}
	t.Agent = base.New(cfg.Name,
		base.WithLogLevel(logx.ParseLevel(cfg.LogLevel)),
		base.WithSetup(t.setup),
		base.WithTeardown(func(context.Context) error {
			t.client = nil
			return nil
		}),
	)
	return t
}

func (t *Transcriber) setup(ctx context.Context) error {
	switch t.cfg.provider() {
	case ProviderMock:
		return nil
	case ProviderOpenAI:
		t.client = t.cfg.client()
		if t.client == nil {
			return fmt.Errorf("%w: transcription api key is not configured", contractx.ErrModelAbsent)
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported transcription provider %q", contractx.ErrValidation, t.cfg.Provider)
	}
}

// Execute reads "audio_file" (a path) or raw "audio" bytes.
func (t *Transcriber) Execute(ctx context.Context, in contractx.Input) (contractx.Output, error) {
	if err := t.Initialize(ctx); err != nil {
		return nil, err
	}

	path := strings.TrimSpace(in.String("audio_file"))
	raw, _ := in["audio"].([]byte)
	if path == "" && len(raw) == 0 {
		return nil, fmt.Errorf("%w: audio_file or audio is required", contractx.ErrValidation)
	}
	language := in.StringOr("language", t.cfg.Language)

	if t.cfg.provider() == ProviderMock {
		label := path
		if label == "" {
			label = "audio_bytes"
		}
		return contractx.Output{
			"text":       "Mock transcription of: " + label,
			"language":   language,
			"confidence": 0.95,
		}, nil
	}

	if path == "" {
		tmp, err := spill(raw)
		if err != nil {
			return nil, err
		}
		defer os.Remove(tmp)
		path = tmp
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open audio: %v", contractx.ErrIO, err)
	}
	defer f.Close()

	res, err := t.client.Audio.Transcriptions.New(ctx, openaisdk.AudioTranscriptionNewParams{
		File:     f,
		Model:    openaisdk.AudioModel(t.cfg.Model),
		Language: openaisdk.String(language),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: transcription request: %v", contractx.ErrProvider, err)
	}

	t.Event(logx.LevelInfo).Str("file", filepath.Base(path)).Int("chars", len(res.Text)).Msg("audio transcribed")
	return contractx.Output{
		"text":     strings.TrimSpace(res.Text),
		"language": language,
	}, nil
}

func spill(raw []byte) (string, error) {
	f, err := os.CreateTemp("", "stt_*.mp3")
	if err != nil {
		return "", fmt.Errorf("%w: create temp audio: %v", contractx.ErrIO, err)
	}
	if _, err := f.Write(raw); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("%w: write temp audio: %v", contractx.ErrIO, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("%w: close temp audio: %v", contractx.ErrIO, err)
	}
	return f.Name(), nil
}
