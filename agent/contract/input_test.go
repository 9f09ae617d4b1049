package contract

import "testing"

func TestInputCoercion(t *testing.T) {
	t.Parallel()

	in := Input{
		"name":     "  croissant ",
		"servings": "12",
		"days":     7.0,
		"recipe":   map[string]any{"servings": 4},
		"forecast": Output{"average_daily": 10.0},
		"sales":    []float64{1, 2},
	}

	if got := in.String("name"); got != "croissant" {
		t.Fatalf("String() = %q", got)
	}
	if f, ok := in.Float("servings"); !ok || f != 12 {
		t.Fatalf("Float(servings) = %v, %v", f, ok)
	}
	if got := in.IntOr("days", 30); got != 7 {
		t.Fatalf("IntOr(days) = %d", got)
	}
	if got := in.IntOr("missing", 30); got != 30 {
		t.Fatalf("IntOr(missing) = %d", got)
	}
	if in.Map("recipe") == nil || in.Map("forecast") == nil {
		t.Fatal("expected nested maps")
	}
	if len(in.Slice("sales")) != 2 {
		t.Fatal("expected typed slice to convert")
	}
	if got := in.StringOr("action", "scale"); got != "scale" {
		t.Fatalf("StringOr() = %q", got)
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	if s := Summarize(nil); s.Total != 0 || s.SuccessRate != 0 {
		t.Fatalf("unexpected empty summary: %+v", s)
	}

	s := Summarize([]StepResult{{Success: true}, {Success: false}, {Success: true}, {Success: true}})
	if s.Total != 4 || s.Succeeded != 3 || s.Failed != 1 || s.SuccessRate != 0.75 {
		t.Fatalf("unexpected summary: %+v", s)
	}
}
