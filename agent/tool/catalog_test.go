package tool

import (
	"context"
	"testing"
)

func TestBuildAllTools(t *testing.T) {
	t.Parallel()

	infos, executor := Build()
	if len(infos) != 2 {
		t.Fatalf("expected 2 tool infos, got %d", len(infos))
	}
	if infos[0].Name != ToolMathEvaluate || infos[1].Name != ToolUnitConvert {
		t.Fatalf("unexpected tools: %s, %s", infos[0].Name, infos[1].Name)
	}
	if executor == nil {
		t.Fatal("executor must not be nil")
	}
}

func TestBuildRestrictsExecutor(t *testing.T) {
	t.Parallel()

	infos, executor := Build(ToolMathEvaluate, "missing.tool")
	if len(infos) != 1 {
		t.Fatalf("expected 1 tool info, got %d", len(infos))
	}

	out, err := executor(context.Background(), ToolUnitConvert, map[string]any{"value": 1.0, "from": "cup", "to": "ml"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Error == "" {
		t.Fatal("expected unavailable error for a tool outside the set")
	}
}

func TestMathEvaluate(t *testing.T) {
	t.Parallel()

	_, executor := Build()
	out, err := executor(context.Background(), ToolMathEvaluate, map[string]any{
		"expression": "2 + 3 * (4 - 1)",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Error != "" {
		t.Fatalf("unexpected tool error: %s", out.Error)
	}
	result, ok := out.Result.(Evaluation)
	if !ok {
		t.Fatalf("unexpected result type: %T", out.Result)
	}
	if result.Result != 11 {
		t.Fatalf("unexpected result: %v", result.Result)
	}
}

func TestMathEvaluateInvalidExpression(t *testing.T) {
	t.Parallel()

	_, executor := Build()
	out, err := executor(context.Background(), ToolMathEvaluate, map[string]any{
		"expression": "2 + abc",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Error == "" {
		t.Fatal("expected validation error")
	}
}

func TestUnitConvert(t *testing.T) {
	t.Parallel()

	got, err := Convert(2, "kg", "grams")
	if err != nil || got != 2000 {
		t.Fatalf("Convert(2 kg->g) = %v, %v", got, err)
	}

	got, err = Convert(1, "cup", "ml")
	if err != nil || got != 236.59 {
		t.Fatalf("Convert(1 cup->ml) = %v, %v", got, err)
	}

	if _, err := Convert(1, "cup", "g"); err == nil {
		t.Fatal("expected error converting volume to mass")
	}

	_, executor := Build()
	out, _ := executor(context.Background(), ToolUnitConvert, map[string]any{"value": "16", "from": "oz", "to": "lb"})
	conv, ok := out.Result.(Conversion)
	if !ok || conv.Result != 1 {
		t.Fatalf("unexpected conversion: %#v (%s)", out.Result, out.Error)
	}
}

func TestEvaluatePrecedence(t *testing.T) {
	t.Parallel()

	cases := map[string]float64{
		"2^3^2":        512,
		"-2^2":         4,
		"10 % 4":       2,
		"250 * 12 / 8": 375,
		"2 - -3":       5,
		"2^-1":         0.5,
	}
	for expr, want := range cases {
		got, err := Evaluate(expr)
		if err != nil {
			t.Fatalf("Evaluate(%q) error = %v", expr, err)
		}
		if got != want {
			t.Fatalf("Evaluate(%q) = %v, want %v", expr, got, want)
		}
	}

	for _, bad := range []string{"1/0", "(1+2", "1 +", "1 2"} {
		if _, err := Evaluate(bad); err == nil {
			t.Fatalf("Evaluate(%q) expected error", bad)
		}
	}
}
