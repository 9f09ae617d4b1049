package voice

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/agent-teams/agent/contract"
)

func TestMockSynthesisWritesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewSynthesizer(SynthesisConfig{ClientConfig: ClientConfig{Provider: ProviderMock}, OutputDir: dir})

	out, err := s.Execute(context.Background(), contractx.Input{"text": "Fresh bread at 7am"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	path := out["audio_file"].(string)
	if filepath.Dir(path) != dir || !strings.HasSuffix(path, ".mp3") {
		t.Fatalf("unexpected audio path: %s", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read audio: %v", err)
	}
	if string(raw) != "Mock audio data for: Fresh bread at 7am" {
		t.Fatalf("unexpected audio payload: %q", raw)
	}

	again, err := s.Execute(context.Background(), contractx.Input{"text": "Fresh bread at 7am"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if again["audio_file"] != path {
		t.Fatalf("same text must map to the same file: %v vs %v", again["audio_file"], path)
	}
}

func TestSynthesisValidation(t *testing.T) {
	t.Parallel()

	s := NewSynthesizer(SynthesisConfig{ClientConfig: ClientConfig{Provider: ProviderMock}, OutputDir: t.TempDir()})
	if _, err := s.Execute(context.Background(), contractx.Input{}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for missing text, got %v", err)
	}
	if _, err := s.Execute(context.Background(), contractx.Input{"text": "hi", "speed": 9.0}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for speed, got %v", err)
	}
}

func TestSynthesisWithoutKeyFailsInitialize(t *testing.T) {
	t.Parallel()

	s := NewSynthesizer(SynthesisConfig{})
	err := s.Initialize(context.Background())
	if !errors.Is(err, contractx.ErrInitialization) || !errors.Is(err, contractx.ErrModelAbsent) {
		t.Fatalf("Initialize() error = %v", err)
	}
	if s.Initialized() {
		t.Fatal("agent must stay uninitialized")
	}
}

func TestOpenAISynthesis(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3-audio"))
	}))
	t.Cleanup(server.Close)

	target := filepath.Join(t.TempDir(), "out", "hello.mp3")
	s := NewSynthesizer(SynthesisConfig{
		ClientConfig: ClientConfig{APIKey: "sk-test", BaseURL: server.URL},
		Voice:        "nova",
	})
	out, err := s.Execute(context.Background(), contractx.Input{"text": "hello", "output_file": target, "speed": 1.25})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if gotPath != "/audio/speech" || gotAuth != "Bearer sk-test" {
		t.Fatalf("unexpected request path=%s auth=%s", gotPath, gotAuth)
	}
	for _, want := range []string{`"input":"hello"`, `"voice":"nova"`, `"model":"tts-1"`, `"speed":1.25`} {
		if !strings.Contains(gotBody, want) {
			t.Fatalf("request body %s missing %s", gotBody, want)
		}
	}
	raw, err := os.ReadFile(target)
	if err != nil || string(raw) != "ID3-audio" {
		t.Fatalf("audio file = %q, err = %v", raw, err)
	}
	if out["voice"] != "nova" {
		t.Fatalf("unexpected voice: %v", out["voice"])
	}
}

func TestMockTranscription(t *testing.T) {
	t.Parallel()

	tr := NewTranscriber(TranscriptionConfig{ClientConfig: ClientConfig{Provider: ProviderMock}})
	out, err := tr.Execute(context.Background(), contractx.Input{"audio_file": "order.mp3"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out["text"] != "Mock transcription of: order.mp3" || out["language"] != "en" {
		t.Fatalf("unexpected output: %#v", out)
	}

	if _, err := tr.Execute(context.Background(), contractx.Input{}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestOpenAITranscription(t *testing.T) {
	t.Parallel()

	var gotPath, gotModel, gotFile string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotModel = r.FormValue("model")
		if f, _, err := r.FormFile("file"); err == nil {
			raw, _ := io.ReadAll(f)
			gotFile = string(raw)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":" two dozen bagels "}`))
	}))
	t.Cleanup(server.Close)

	tr := NewTranscriber(TranscriptionConfig{ClientConfig: ClientConfig{APIKey: "sk-test", BaseURL: server.URL}})
	out, err := tr.Execute(context.Background(), contractx.Input{"audio": []byte("RIFF-audio")})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if gotPath != "/audio/transcriptions" || gotModel != "whisper-1" || gotFile != "RIFF-audio" {
		t.Fatalf("unexpected request path=%s model=%s file=%q", gotPath, gotModel, gotFile)
	}
	if out["text"] != "two dozen bagels" {
		t.Fatalf("unexpected text: %v", out["text"])
	}
}

func TestOpenAITranscriptionProviderError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	audio := filepath.Join(t.TempDir(), "a.mp3")
	if err := os.WriteFile(audio, []byte("x"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	tr := NewTranscriber(TranscriptionConfig{ClientConfig: ClientConfig{APIKey: "sk-bad", BaseURL: server.URL}})
	if _, err := tr.Execute(context.Background(), contractx.Input{"audio_file": audio}); !errors.Is(err, contractx.ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
}
