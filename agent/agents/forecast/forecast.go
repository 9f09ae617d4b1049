// Package forecast predicts daily demand from a sales history.
package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/tanpawarit/agent-teams/agent/base"
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
	llmx "github.com/tanpawarit/agent-teams/agent/llm"
	promptx "github.com/tanpawarit/agent-teams/agent/prompt"
	logx "github.com/tanpawarit/agent-teams/pkg/logger"
)

const (
	defaultHorizon = 30
	// window is both the moving-average span and the minimum history the
	// model path needs.
	window = 7

	MethodSimpleAverage = "simple_average"
	MethodModel         = "model"
)

var ErrNoSalesData = errors.New("sales data is required")

type Config struct {
	Name     string
	Models   llmx.Source
	LogLevel string
	// Horizon is the default forecast_days.
	Horizon int
}

type Agent struct {
	*base.Agent

	models  llmx.Source
	horizon int
	analyst *llmx.Structured[modelForecast]
}

var _ contractx.Agent = (*Agent)(nil)

type modelForecast struct {
	DailyForecast []float64 `json:"daily_forecast"`
	Trend         string    `json:"trend"`
	Confidence    string    `json:"confidence"`
	Notes         string    `json:"notes"`
}

func New(cfg Config) *Agent {
	name := cfg.Name
	if name == "" {
		name = "forecast"
	}
	horizon := cfg.Horizon
	if horizon <= 0 {
		horizon = defaultHorizon
	}
	a := &Agent{models: cfg.Models, horizon: horizon}
	a.Agent = base.New(name,
		base.WithLogLevel(logx.ParseLevel(cfg.LogLevel)),
		base.WithSetup(a.setup),
	)
	return a
}

func (a *Agent) setup(ctx context.Context) error {
	if a.models == nil {
		return nil
	}
	m, err := a.models.ChatModel(ctx, llmx.AreaForecast)
	if errors.Is(err, contractx.ErrModelAbsent) {
		return nil
	}
	if err != nil {
		return err
	}
	analyst, err := llmx.NewStructured[modelForecast](ctx, m, promptx.LoadPromptSet().Forecast, "forecast.analyst")
	if err != nil {
		return err
	}
	a.analyst = analyst
	return nil
}

// Execute reads historical_data (or sales_data) and returns a forecast map
// under "forecast" for later steps to export.
func (a *Agent) Execute(ctx context.Context, in contractx.Input) (contractx.Output, error) {
	if err := a.Initialize(ctx); err != nil {
		return nil, err
	}

	history, err := salesSeries(in)
	if err != nil {
		return nil, err
	}
	days := in.IntOr("forecast_days", a.horizon)
	if days <= 0 {
		return nil, fmt.Errorf("%w: forecast_days must be positive", contractx.ErrValidation)
	}

	var fc Forecast
	if a.analyst != nil && len(history) >= window {
		fc, err = a.modelForecast(ctx, history, days)
		if err != nil {
			a.Log(logx.LevelWarn, "model forecast failed, using moving average: "+err.Error())
			fc = SimpleAverage(history, days)
		}
	} else {
		fc = SimpleAverage(history, days)
	}

	a.Set("last_forecast", fc.AverageDaily)
	a.Event(logx.LevelDebug).Str("method", fc.Method).Int("days", days).Float64("average_daily", fc.AverageDaily).Msg("forecast ready")

	return contractx.Output{
		"forecast": fc.toMap(),
		"trend":    fc.Trend,
	}, nil
}

func (a *Agent) modelForecast(ctx context.Context, history []float64, days int) (Forecast, error) {
	payload, err := json.Marshal(map[string]any{
		"history":       history,
		"forecast_days": days,
	})
	if err != nil {
		return Forecast{}, fmt.Errorf("%w: marshal forecast payload: %v", contractx.ErrValidation, err)
	}

	out, err := a.analyst.Run(ctx, string(payload))
	if err != nil {
		return Forecast{}, err
	}
	if len(out.DailyForecast) == 0 {
		return Forecast{}, fmt.Errorf("%w: empty daily_forecast", contractx.ErrModelInvoke)
	}

	daily := fitLength(out.DailyForecast, days)
	return newForecast(daily, MethodModel, normalizeTrend(out.Trend), strings.ToLower(out.Confidence), out.Notes), nil
}

// salesSeries accepts numbers or objects carrying quantity, sales, units or
// total.
func salesSeries(in contractx.Input) ([]float64, error) {
	raw := in.Slice("historical_data")
	if len(raw) == 0 {
		raw = in.Slice("sales_data")
	}
	if len(raw) == 0 {
		return nil, ErrNoSalesData
	}

	out := make([]float64, 0, len(raw))
	for i, item := range raw {
		if v, ok := contractx.Number(item); ok {
			out = append(out, v)
			continue
		}
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: sales point %d has unsupported type %T", contractx.ErrValidation, i, item)
		}
		found := false
		for _, key := range []string{"quantity", "sales", "units", "total"} {
			if v, ok := contractx.Number(m[key]); ok {
				out = append(out, v)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: sales point %d has no quantity", contractx.ErrValidation, i)
		}
	}
	return out, nil
}

func fitLength(daily []float64, days int) []float64 {
	out := make([]float64, days)
	for i := range out {
		if i < len(daily) {
			out[i] = math.Max(0, daily[i])
		} else {
			out[i] = out[i-1]
		}
	}
	return out
}
