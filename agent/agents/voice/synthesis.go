package voice

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/OneOfOne/xxhash"
	openaisdk "github.com/openai/openai-go"
	"github.com/tanpawarit/agent-teams/agent/base"
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
	logx "github.com/tanpawarit/agent-teams/pkg/logger"
)

const (
	minSpeed = 0.25
	maxSpeed = 4.0
)

type SynthesisConfig struct {
	ClientConfig

	Name      string
	Model     string
	Voice     string
	Format    string
	Speed     float64
	OutputDir string
	LogLevel  string
}

// Synthesizer writes speech for input "text" to an audio file.
type Synthesizer struct {
	*base.Agent

	cfg    SynthesisConfig
	client *openaisdk.Client
}

var _ contractx.Agent = (*Synthesizer)(nil)

func NewSynthesizer(cfg SynthesisConfig) *Synthesizer {
	if cfg.Name == "" {
		cfg.Name = "voice_synthesis"
	}
	if cfg.Model == "" {
		cfg.Model = "tts-1"
	}
	if cfg.Voice == "" {
		cfg.Voice = "alloy"
	}
	if cfg.Format == "" {
		cfg.Format = "mp3"
	}
	if cfg.Speed == 0 {
		cfg.Speed = 1
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = os.TempDir()
	}

	s := &Synthesizer{cfg: cfg}
	s.Agent = base.New(cfg.Name,
		base.WithLogLevel(logx.ParseLevel(cfg.LogLevel)),
		base.WithSetup(s.setup),
		base.WithTeardown(func(context.Context) error {
			s.client = nil
			return nil
		}),
	)
	return s
}

func (s *Synthesizer) setup(ctx context.Context) error {
	switch s.cfg.provider() {
	case ProviderMock:
		return nil
	case ProviderOpenAI:
		s.client = s.cfg.client()
		if s.client == nil {
			return fmt.Errorf("%w: speech api key is not configured", contractx.ErrModelAbsent)
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported speech provider %q", contractx.ErrValidation, s.cfg.Provider)
	}
}

// Execute accepts "text" plus optional "voice", "speed" and "output_file".
func (s *Synthesizer) Execute(ctx context.Context, in contractx.Input) (contractx.Output, error) {
	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(in.String("text"))
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", contractx.ErrValidation)
	}
	voice := in.StringOr("voice", s.cfg.Voice)
	speed, ok := in.Float("speed")
	if !ok || speed == 0 {
		speed = s.cfg.Speed
	}
	if speed < minSpeed || speed > maxSpeed {
		return nil, fmt.Errorf("%w: speed %.2f outside %.2f..%.2f", contractx.ErrValidation, speed, minSpeed, maxSpeed)
	}

	path := in.String("output_file")
	if path == "" {
		path = s.outputPath(text)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create audio dir: %v", contractx.ErrIO, err)
	}

	var err error
	if s.cfg.provider() == ProviderMock {
		err = os.WriteFile(path, []byte("Mock audio data for: "+text), 0o644)
		if err != nil {
			err = fmt.Errorf("%w: write audio: %v", contractx.ErrIO, err)
		}
	} else {
		err = s.synthesize(ctx, text, voice, speed, path)
	}
	if err != nil {
		return nil, err
	}

	s.Event(logx.LevelInfo).Str("file", path).Str("voice", voice).Msg("speech generated")
	return contractx.Output{
		"audio_file": path,
		"voice":      voice,
		"format":     s.cfg.Format,
		"provider":   s.cfg.provider(),
	}, nil
}

func (s *Synthesizer) synthesize(ctx context.Context, text, voice string, speed float64, path string) error {
	resp, err := s.client.Audio.Speech.New(ctx, openaisdk.AudioSpeechNewParams{
		Input:          text,
		Model:          openaisdk.SpeechModel(s.cfg.Model),
		Voice:          openaisdk.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: openaisdk.AudioSpeechNewParamsResponseFormat(s.cfg.Format),
		Speed:          openaisdk.Float(speed),
	})
	if err != nil {
		return fmt.Errorf("%w: speech request: %v", contractx.ErrProvider, err)
	}
	defer resp.Body.Close()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create audio file: %v", contractx.ErrIO, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: write audio: %v", contractx.ErrIO, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close audio file: %v", contractx.ErrIO, err)
	}
	return nil
}

// outputPath names generated audio after the text so repeated requests
// overwrite rather than accumulate.
func (s *Synthesizer) outputPath(text string) string {
	sum := strconv.FormatUint(xxhash.ChecksumString64(text), 16)
	return filepath.Join(s.cfg.OutputDir, "tts_"+sum+"."+s.cfg.Format)
}
