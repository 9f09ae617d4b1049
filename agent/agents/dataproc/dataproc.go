// Package dataproc validates, filters, transforms and summarises records
// without a model. Pipelines are declarative so team files can carry them.
package dataproc

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"

	"github.com/mitchellh/mapstructure"
	"github.com/tanpawarit/agent-teams/agent/base"
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
	logx "github.com/tanpawarit/agent-teams/pkg/logger"
)

// Pipeline runs validators, then filters, then transformations.
type Pipeline struct {
	Validators      []Rule `json:"validators"`
	Filters         []Rule `json:"filters"`
	Transformations []Step `json:"transformations"`
}

func (p Pipeline) check() error {
	for _, r := range slices.Concat(p.Validators, p.Filters) {
		if err := r.check(); err != nil {
			return err
		}
	}
	for _, s := range p.Transformations {
		if err := s.check(); err != nil {
			return err
		}
	}
	return nil
}

type Config struct {
	Name     string
	Pipeline Pipeline
	// SkipStats turns off the summary unless a call asks for it.
	SkipStats bool
	// StatsField names the numeric field summarised for lists of objects.
	StatsField string
	// DataDir resolves relative input and output paths.
	DataDir  string
	LogLevel string
}

type Agent struct {
	*base.Agent

	cfg Config

	mu       sync.RWMutex
	pipeline Pipeline
}

var _ contractx.Agent = (*Agent)(nil)

func New(cfg Config) *Agent {
	if cfg.Name == "" {
		cfg.Name = "data_processor"
	}
	a := &Agent{cfg: cfg, pipeline: clonePipeline(cfg.Pipeline)}
	a.Agent = base.New(cfg.Name,
		base.WithLogLevel(logx.ParseLevel(cfg.LogLevel)),
		base.WithSetup(func(context.Context) error { return a.Pipeline().check() }),
	)
	return a
}

func (a *Agent) AddValidator(r Rule) error {
	if err := r.check(); err != nil {
		return err
	}
	a.mu.Lock()
	a.pipeline.Validators = append(a.pipeline.Validators, r)
	a.mu.Unlock()
	return nil
}

func (a *Agent) AddFilter(r Rule) error {
	if err := r.check(); err != nil {
		return err
	}
	a.mu.Lock()
	a.pipeline.Filters = append(a.pipeline.Filters, r)
	a.mu.Unlock()
	return nil
}

func (a *Agent) AddTransformation(s Step) error {
	if err := s.check(); err != nil {
		return err
	}
	a.mu.Lock()
	a.pipeline.Transformations = append(a.pipeline.Transformations, s)
	a.mu.Unlock()
	return nil
}

// Reset empties the pipeline, including the configured steps.
func (a *Agent) Reset() {
	a.mu.Lock()
	a.pipeline = Pipeline{}
	a.mu.Unlock()
	a.Event(logx.LevelInfo).Msg("pipeline reset")
}

func (a *Agent) Pipeline() Pipeline {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return clonePipeline(a.pipeline)
}

// Execute processes "data" or the contents of "input_file". Extra
// "validators", "filters" and "transformations" apply to this call only.
// "output_file" saves the result; "include_stats" overrides SkipStats.
func (a *Agent) Execute(ctx context.Context, in contractx.Input) (contractx.Output, error) {
	if err := a.Initialize(ctx); err != nil {
		return nil, err
	}

	p := a.Pipeline()
	var extra Pipeline
	if err := decode(map[string]any(in), &extra); err != nil {
		return nil, fmt.Errorf("%w: pipeline: %v", contractx.ErrValidation, err)
	}
	if err := extra.check(); err != nil {
		return nil, err
	}
	p.Validators = append(p.Validators, extra.Validators...)
	p.Filters = append(p.Filters, extra.Filters...)
	p.Transformations = append(p.Transformations, extra.Transformations...)

	data, ok := in["data"]
	if path := in.String("input_file"); path != "" {
		loaded, err := Load(a.resolve(path))
		if err != nil {
			return nil, err
		}
		data, ok = loaded, true
	}
	if !ok {
		return nil, fmt.Errorf("%w: data or input_file is required", contractx.ErrValidation)
	}
	data = normalize(data)

	result, err := p.Run(data)
	if err != nil {
		return nil, err
	}

	out := contractx.Output{
		"data":         result,
		"input_count":  count(data),
		"output_count": count(result),
	}
	withStats := !a.cfg.SkipStats
	if v, ok := in["include_stats"].(bool); ok {
		withStats = v
	}
	if withStats {
		out["stats"] = Stats(result, in.StringOr("stats_field", a.cfg.StatsField))
	}
	if path := in.String("output_file"); path != "" {
		path = a.resolve(path)
		if err := Save(path, result); err != nil {
			return nil, err
		}
		out["output_file"] = path
	}

	a.Set("last_count", count(result))
	a.Event(logx.LevelInfo).
		Int("in", count(data)).
		Int("out", count(result)).
		Msg("data processed")
	return out, nil
}

// Run applies p to data. Lists are processed item by item; a scalar or
// object that fails a filter becomes nil.
func (p Pipeline) Run(data any) (any, error) {
	items, isList := data.([]any)
	if !isList {
		items = []any{data}
	}

	for i, item := range items {
		for _, r := range p.Validators {
			if !r.match(item) {
				if isList {
					return nil, fmt.Errorf("%w: item %d fails %s", contractx.ErrValidation, i, r)
				}
				return nil, fmt.Errorf("%w: data fails %s", contractx.ErrValidation, r)
			}
		}
	}

	kept := make([]any, 0, len(items))
	for _, item := range items {
		if keep(p.Filters, item) {
			kept = append(kept, item)
		}
	}

	for i := range kept {
		for _, s := range p.Transformations {
			v, err := s.apply(kept[i])
			if err != nil {
				return nil, err
			}
			kept[i] = v
		}
	}

	if isList {
		return kept, nil
	}
	if len(kept) == 0 {
		return nil, nil
	}
	return kept[0], nil
}

func keep(filters []Rule, item any) bool {
	for _, r := range filters {
		if !r.match(item) {
			return false
		}
	}
	return true
}

func (a *Agent) resolve(path string) string {
	if a.cfg.DataDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(a.cfg.DataDir, path)
}

func decode(in any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

// normalize turns typed Go slices and maps from callers into the []any and
// map[string]any shapes the rules understand.
func normalize(data any) any {
	switch v := data.(type) {
	case contractx.Input:
		return map[string]any(v)
	case contractx.Output:
		return map[string]any(v)
	}
	if list := (contractx.Input{"v": data}).Slice("v"); list != nil {
		return list
	}
	return data
}

func count(data any) int {
	switch v := data.(type) {
	case nil:
		return 0
	case []any:
		return len(v)
	}
	return 1
}

func clonePipeline(p Pipeline) Pipeline {
	return Pipeline{
		Validators:      append([]Rule(nil), p.Validators...),
		Filters:         append([]Rule(nil), p.Filters...),
		Transformations: append([]Step(nil), p.Transformations...),
	}
}
