// Package content writes copy (marketing, social posts, e-mail, FAQ answers,
// code reviews, release notes, docs) from embedded prompt templates.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/tanpawarit/agent-teams/agent/base"
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
	llmx "github.com/tanpawarit/agent-teams/agent/llm"
	promptx "github.com/tanpawarit/agent-teams/agent/prompt"
	logx "github.com/tanpawarit/agent-teams/pkg/logger"
)

const defaultCacheSize = 128

// Kinds lists every content kind with a bundled template.
var Kinds = []string{
	promptx.ContentMarketing,
	promptx.ContentSocial,
	promptx.ContentEmail,
	promptx.ContentFAQ,
	promptx.ContentCodeReview,
	promptx.ContentReleaseNotes,
	promptx.ContentDocumentation,
}

type Config struct {
	Name string
	// Kinds limits what this agent writes; empty means every kind.
	Kinds []string
	// DefaultKind applies when the input names none; defaults to the first kind.
	DefaultKind string
	// Context is prepended to every request, e.g. brand voice or store facts.
	Context string
	Models  llmx.Source
	// CacheSize bounds remembered responses; negative disables the cache.
	CacheSize int
	LogLevel  string
}

type Agent struct {
	*base.Agent

	cfg      Config
	kinds    []string
	writers  map[string]contractx.Completer
	cache    *cache
	sanitize *bluemonday.Policy
}

var _ contractx.Agent = (*Agent)(nil)

func New(cfg Config) *Agent {
	if cfg.Name == "" {
		cfg.Name = "content"
	}
	kinds := cfg.Kinds
	if len(kinds) == 0 {
		kinds = Kinds
	}
	if cfg.DefaultKind == "" {
		cfg.DefaultKind = kinds[0]
	}
	size := cfg.CacheSize
	if size == 0 {
		size = defaultCacheSize
	}

	a := &Agent{
		cfg:      cfg,
		kinds:    kinds,
		cache:    newCache(size),
		sanitize: bluemonday.UGCPolicy(),
	}
	a.Agent = base.New(cfg.Name,
		base.WithLogLevel(logx.ParseLevel(cfg.LogLevel)),
		base.WithSetup(a.setup),
		base.WithTeardown(func(context.Context) error {
			a.writers = nil
			return nil
		}),
	)
	return a
}

func (a *Agent) setup(ctx context.Context) error {
	templates := promptx.LoadPromptSet().Content
	for _, k := range a.kinds {
		if _, ok := templates[k]; !ok {
			return fmt.Errorf("%w: no template for content kind %q", contractx.ErrValidation, k)
		}
	}
	if a.cfg.Models == nil {
		a.Log(logx.LevelWarn, "no model configured, content requests will fail")
		return nil
	}

	m, err := a.cfg.Models.ChatModel(ctx, llmx.AreaContent)
	if err != nil {
		a.Log(logx.LevelWarn, "content model unavailable: "+err.Error())
		return nil
	}

	writers := make(map[string]contractx.Completer, len(a.kinds))
	for _, k := range a.kinds {
		w, err := llmx.NewCompleter(ctx, m, templates[k], "content."+k)
		if err != nil {
			return err
		}
		writers[k] = w
	}
	a.writers = writers
	return nil
}

// Execute writes content of "kind" from the remaining input fields.
func (a *Agent) Execute(ctx context.Context, in contractx.Input) (contractx.Output, error) {
	if err := a.Initialize(ctx); err != nil {
		return nil, err
	}

	kind := strings.ToLower(in.StringOr("kind", a.cfg.DefaultKind))
	if !a.serves(kind) {
		return nil, fmt.Errorf("%w: %s does not write %q content", contractx.ErrValidation, a.Name(), kind)
	}

	request := a.render(in)
	if strings.TrimSpace(request) == "" {
		return nil, fmt.Errorf("%w: nothing to write about", contractx.ErrValidation)
	}

	text, cached := a.cache.get(kind, request)
	if !cached {
		w := a.writers[kind]
		if w == nil {
			return nil, fmt.Errorf("%w: %s content needs a model", contractx.ErrModelAbsent, kind)
		}
		var err error
		text, err = w.Complete(ctx, request)
		if err != nil {
			return nil, err
		}
		a.cache.put(kind, request, text)
	}
	a.Event(logx.LevelDebug).Str("kind", kind).Bool("cached", cached).Msg("content written")

	out := contractx.Output{"kind": kind, "content": text, "cached": cached}
	switch kind {
	case promptx.ContentEmail:
		subject, body := splitSubject(text)
		out["subject"] = subject
		out["html"] = a.sanitize.Sanitize(body)
	case promptx.ContentSocial:
		out["platform"] = in.StringOr("platform", "instagram")
	}
	return out, nil
}

func (a *Agent) serves(kind string) bool {
	for _, k := range a.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// render turns input fields into "key: value" lines in key order.
func (a *Agent) render(in contractx.Input) string {
	keys := make([]string, 0, len(in))
	for k := range in {
		if k == "kind" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	if a.cfg.Context != "" {
		b.WriteString(a.cfg.Context)
		b.WriteString("\n\n")
	}
	for _, k := range keys {
		v := valueText(in[k])
		if v == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", k, v)
	}
	return strings.TrimSpace(b.String())
}

func valueText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case fmt.Stringer:
		return t.String()
	case bool, int, int64, float32, float64:
		return fmt.Sprint(t)
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(raw)
	}
}

// splitSubject separates a leading "Subject: ..." line from the body.
func splitSubject(text string) (string, string) {
	first, rest, _ := strings.Cut(strings.TrimSpace(text), "\n")
	if subject, ok := strings.CutPrefix(strings.TrimSpace(first), "Subject:"); ok {
		return strings.TrimSpace(subject), strings.TrimSpace(rest)
	}
	return "", strings.TrimSpace(text)
}
