package repository

import (
	"context"
	"sync"
	"testing"

	contractx "github.com/tanpawarit/agent-teams/agent/contract"
	promptx "github.com/tanpawarit/agent-teams/agent/prompt"
)

type writer struct {
	mu     sync.Mutex
	inputs []contractx.Input
}

func (w *writer) Execute(ctx context.Context, in contractx.Input) (contractx.Output, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.inputs = append(w.inputs, in)
	return contractx.Output{"content": "written for " + in.String("kind")}, nil
}

func TestReviewPRFeedsKindsAndChangeFields(t *testing.T) {
	t.Parallel()

	l, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	w := &writer{}
	if err := l.RegisterAgent("Writer", w, CapCodeReview, CapDocumentation); err != nil {
		t.Fatalf("RegisterAgent() error = %v", err)
	}

	res, err := l.ExecuteGoal(context.Background(), "review_pr", map[string]any{
		"title":  "Add retry to checkout",
		"diff":   "+retry()",
		"secret": "should not leak",
	})
	if err != nil {
		t.Fatalf("ExecuteGoal() error = %v", err)
	}
	if res.Summary.SuccessRate != 1 {
		t.Fatalf("unexpected summary: %+v", res.Summary)
	}

	if len(w.inputs) != 2 {
		t.Fatalf("writer called %d times, want 2", len(w.inputs))
	}
	review, docs := w.inputs[0], w.inputs[1]
	if review["kind"] != promptx.ContentCodeReview || docs["kind"] != promptx.ContentDocumentation {
		t.Fatalf("kinds = %v, %v", review["kind"], docs["kind"])
	}
	if _, ok := review["secret"]; ok {
		t.Fatalf("review received unlisted field: %#v", review)
	}
	if review["title"] != "Add retry to checkout" || review["diff"] != "+retry()" {
		t.Fatalf("review input = %#v", review)
	}
}

func TestPreReleaseWithoutReleaseNotesMember(t *testing.T) {
	t.Parallel()

	l, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := l.RegisterAgent("Reviewer", &writer{}, CapCodeReview); err != nil {
		t.Fatalf("RegisterAgent() error = %v", err)
	}

	if _, err := l.ExecuteGoal(context.Background(), "pre_release", map[string]any{"version": "1.2.0"}); err == nil {
		t.Fatal("expected an error for the missing release_notes member")
	}
}
