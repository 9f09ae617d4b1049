package team

import "testing"

func TestSetOverlaysFields(t *testing.T) {
	t.Parallel()

	values := map[string]any{"recipe": "bread", "action": "search"}
	in := Set(map[string]any{"action": "scale"})(values)
	if in["recipe"] != "bread" || in["action"] != "scale" {
		t.Fatalf("unexpected input: %#v", in)
	}
	if values["action"] != "search" {
		t.Fatal("Set must not modify the run values")
	}
}

func TestPickKeepsOnlyNamedKeys(t *testing.T) {
	t.Parallel()

	in := Pick(map[string]any{"kind": "faq"}, "question", "missing")(map[string]any{
		"question": "open on sunday?",
		"orders":   []any{1, 2},
	})
	if len(in) != 2 || in["question"] != "open on sunday?" || in["kind"] != "faq" {
		t.Fatalf("unexpected input: %#v", in)
	}
}
