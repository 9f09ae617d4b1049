package dataproc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/agent-teams/agent/contract"
)

func orders() []any {
	return []any{
		map[string]any{"cake": "opera", "qty": 3.0, "price": 12.0},
		map[string]any{"cake": "tart", "qty": 0.0, "price": 4.5},
		map[string]any{"cake": "eclair", "qty": 6.0, "price": 2.0},
	}
}

func TestPipelineFromConfig(t *testing.T) {
	t.Parallel()

	a := New(Config{
		Pipeline: Pipeline{
			Validators: []Rule{{Field: "cake", Op: "not_empty"}},
			Filters:    []Rule{{Field: "qty", Op: "gt", Value: 0}},
			Transformations: []Step{
				{Field: "price", Op: "multiply", Value: 1.1},
				{Field: "price", Op: "round", Value: 2},
				{Field: "cake", Op: "upper"},
			},
		},
		StatsField: "qty",
	})

	out, err := a.Execute(context.Background(), contractx.Input{"data": orders()})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	want := []any{
		map[string]any{"cake": "OPERA", "qty": 3.0, "price": 13.2},
		map[string]any{"cake": "ECLAIR", "qty": 6.0, "price": 2.2},
	}
	if !reflect.DeepEqual(out["data"], want) {
		t.Fatalf("data = %v", out["data"])
	}
	if out["input_count"] != 3 || out["output_count"] != 2 {
		t.Fatalf("counts = %v / %v", out["input_count"], out["output_count"])
	}
	stats := out["stats"].(map[string]any)
	if stats["sum"] != 9.0 || stats["avg"] != 4.5 || stats["min"] != 3.0 || stats["max"] != 6.0 {
		t.Fatalf("stats = %v", stats)
	}
}

func TestValidationFailureNamesTheItem(t *testing.T) {
	t.Parallel()

	a := New(Config{})
	_, err := a.Execute(context.Background(), contractx.Input{
		"data":       orders(),
		"validators": []any{map[string]any{"field": "qty", "op": "gte", "value": "1"}},
	})
	if !errors.Is(err, contractx.ErrValidation) || !strings.Contains(err.Error(), "item 1") {
		t.Fatalf("Execute() error = %v", err)
	}

	if err := a.AddFilter(Rule{Field: "qty", Op: "between"}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown op, got %v", err)
	}
	if err := a.AddTransformation(Step{Field: "qty", Op: "add", Value: "lots"}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for a non-numeric add, got %v", err)
	}
}

func TestScalarData(t *testing.T) {
	t.Parallel()

	a := New(Config{})
	if err := a.AddFilter(Rule{Op: "gt", Value: 10}); err != nil {
		t.Fatalf("AddFilter() error = %v", err)
	}
	if err := a.AddTransformation(Step{Op: "add", Value: 5}); err != nil {
		t.Fatalf("AddTransformation() error = %v", err)
	}

	out, err := a.Execute(context.Background(), contractx.Input{"data": 20})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out["data"] != 25.0 {
		t.Fatalf("data = %v", out["data"])
	}

	out, err = a.Execute(context.Background(), contractx.Input{"data": 4, "include_stats": false})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out["data"] != nil || out["output_count"] != 0 {
		t.Fatalf("filtered scalar should be nil, got %v", out["data"])
	}
	if _, ok := out["stats"]; ok {
		t.Fatal("stats were not requested")
	}

	a.Reset()
	if p := a.Pipeline(); len(p.Filters)+len(p.Transformations) != 0 {
		t.Fatalf("pipeline after Reset() = %+v", p)
	}
}

func TestNumberListStats(t *testing.T) {
	t.Parallel()

	stats := Stats([]any{4.0, "x", 10, 1.0}, "")
	if stats["count"] != 4 || stats["sum"] != 15.0 || stats["avg"] != 5.0 || stats["min"] != 1.0 {
		t.Fatalf("stats = %v", stats)
	}
	if stats := Stats(map[string]any{"a": 1}, ""); stats["type"] != "object" || stats["count"] != 1 {
		t.Fatalf("object stats = %v", stats)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := "cake,qty\nopera,3\ntart,0\neclair,6\n"
	if err := os.WriteFile(filepath.Join(dir, "orders.csv"), []byte(src), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	a := New(Config{DataDir: dir})
	out, err := a.Execute(context.Background(), contractx.Input{
		"input_file":      "orders.csv",
		"output_file":     "out/kept.csv",
		"filters":         []any{map[string]any{"field": "qty", "op": "ne", "value": 0}},
		"transformations": []any{map[string]any{"field": "cake", "op": "rename", "to": "product"}},
		"stats_field":     "qty",
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out["stats"].(map[string]any)["sum"] != 9.0 {
		t.Fatalf("stats = %v", out["stats"])
	}

	raw, err := os.ReadFile(filepath.Join(dir, "out", "kept.csv"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(raw) != "product,qty\nopera,3\neclair,6\n" {
		t.Fatalf("csv = %q", raw)
	}
}

func TestJSONFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "in.json")
	if err := Save(path, []any{map[string]any{"cake": "opera"}}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(data, []any{map[string]any{"cake": "opera"}}) {
		t.Fatalf("Load() = %v", data)
	}

	if _, err := Load(filepath.Join(dir, "in.xml")); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for xml, got %v", err)
	}
	if err := Save(filepath.Join(dir, "bad.csv"), 42); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for scalar csv, got %v", err)
	}
	if _, err := Load(filepath.Join(dir, "missing.json")); !errors.Is(err, contractx.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}
