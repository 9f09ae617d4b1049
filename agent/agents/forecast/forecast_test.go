package forecast

import (
	"context"
	"errors"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	openaisdk "github.com/openai/openai-go"
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
)

type fakeChatModel struct {
	reply string
	err   error
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (f *fakeChatModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return f, nil
}

type fakeSource struct {
	model einomodel.ToolCallingChatModel
}

func (f fakeSource) ChatModel(ctx context.Context, area string) (einomodel.ToolCallingChatModel, error) {
	return f.model, nil
}

func (f fakeSource) Client(area string) *openaisdk.Client {
	return nil
}

func TestSimpleAverageUsesLastSeven(t *testing.T) {
	t.Parallel()

	history := []any{100, 100, 10, 10, 10, 10, 10, 10, 10}
	out, err := New(Config{}).Execute(context.Background(), contractx.Input{
		"sales_data":    history,
		"forecast_days": 3,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	fc := out["forecast"].(map[string]any)
	if fc["average_daily"] != 10.0 || fc["total"] != 30.0 || fc["days"] != 3 {
		t.Fatalf("unexpected forecast: %#v", fc)
	}
	if fc["method"] != MethodSimpleAverage || fc["confidence"] != "low" {
		t.Fatalf("unexpected method: %#v", fc)
	}
	if out["trend"] != "decreasing" {
		t.Fatalf("trend = %v, want decreasing", out["trend"])
	}
}

func TestShortHistoryDefaultsHorizon(t *testing.T) {
	t.Parallel()

	out, err := New(Config{}).Execute(context.Background(), contractx.Input{
		"historical_data": []any{
			map[string]any{"date": "2024-01-01", "quantity": 4.0},
			map[string]any{"date": "2024-01-02", "sales": 6.0},
		},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	fc := out["forecast"].(map[string]any)
	if fc["days"] != defaultHorizon || fc["average_daily"] != 5.0 {
		t.Fatalf("unexpected forecast: %#v", fc)
	}
}

func TestModelForecastAndFallback(t *testing.T) {
	t.Parallel()

	history := []any{5, 6, 7, 8, 9, 10, 11}

	model := &fakeChatModel{reply: `{"daily_forecast":[12,13],"trend":"up","confidence":"High","notes":"weekend bump"}`}
	out, err := New(Config{Models: fakeSource{model: model}}).Execute(context.Background(), contractx.Input{
		"sales_data":    history,
		"forecast_days": 3,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	fc := out["forecast"].(map[string]any)
	daily := fc["daily"].([]float64)
	if fc["method"] != MethodModel || len(daily) != 3 || daily[2] != 13 {
		t.Fatalf("unexpected model forecast: %#v", fc)
	}
	if fc["trend"] != "increasing" || fc["confidence"] != "high" {
		t.Fatalf("unexpected labels: %#v", fc)
	}

	broken := &fakeChatModel{err: errors.New("rate limited")}
	out, err = New(Config{Models: fakeSource{model: broken}}).Execute(context.Background(), contractx.Input{
		"sales_data": history,
	})
	if err != nil {
		t.Fatalf("Execute() fallback error = %v", err)
	}
	if out["forecast"].(map[string]any)["method"] != MethodSimpleAverage {
		t.Fatal("expected moving-average fallback when the model fails")
	}
}

func TestMissingSalesData(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}).Execute(context.Background(), contractx.Input{})
	if !errors.Is(err, ErrNoSalesData) {
		t.Fatalf("expected ErrNoSalesData, got %v", err)
	}

	_, err = New(Config{}).Execute(context.Background(), contractx.Input{"sales_data": []any{"x"}})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
