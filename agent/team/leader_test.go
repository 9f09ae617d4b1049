package team

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
)

type fakeAgent struct {
	mu    sync.Mutex
	calls []contractx.Input
	out   contractx.Output
	err   error
}

func (f *fakeAgent) Execute(ctx context.Context, in contractx.Input) (contractx.Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, in)
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

func (f *fakeAgent) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newLeader(opts ...Option) *Leader {
	opts = append([]Option{WithLogger(zerolog.Nop())}, opts...)
	return New("test", opts...)
}

func planProduction(t *testing.T, l *Leader) {
	t.Helper()
	err := l.DefineGoal(Goal{
		Name: "plan_production",
		Steps: []Step{
			{Capability: "sales_forecasting", Exports: []string{"forecast"}},
			{Capability: "recipe_scale"},
		},
	})
	if err != nil {
		t.Fatalf("DefineGoal() error = %v", err)
	}
}

func TestExecuteGoalAllSucceed(t *testing.T) {
	t.Parallel()

	l := newLeader()
	forecast := &fakeAgent{out: contractx.Output{"forecast": 42.0}}
	recipe := &fakeAgent{out: contractx.Output{"scaled": true}}
	if err := l.RegisterAgent("Forecast", forecast, "sales_forecasting"); err != nil {
		t.Fatalf("RegisterAgent() error = %v", err)
	}
	if err := l.RegisterAgent("Recipe", recipe, "recipe_scale"); err != nil {
		t.Fatalf("RegisterAgent() error = %v", err)
	}
	planProduction(t, l)

	res, err := l.ExecuteGoal(context.Background(), "plan_production", map[string]any{
		"sales_data": []any{1, 2, 3},
		"recipe":     map[string]any{"servings": 4},
	})
	if err != nil {
		t.Fatalf("ExecuteGoal() error = %v", err)
	}

	want := contractx.Summary{Total: 2, Succeeded: 2, Failed: 0, SuccessRate: 1.0}
	if res.Summary != want {
		t.Fatalf("summary = %+v, want %+v", res.Summary, want)
	}
	if res.Steps[0].Capability != "sales_forecasting" || res.Steps[1].Capability != "recipe_scale" {
		t.Fatalf("steps out of order: %+v", res.Steps)
	}
	if res.RunID == "" || res.Team != "test" {
		t.Fatalf("missing run metadata: %+v", res)
	}

	// the recipe step sees the forecast exported by the first step
	if got := recipe.calls[0]["forecast"]; got != 42.0 {
		t.Fatalf("recipe input forecast = %v, want 42", got)
	}
}

func TestExecuteGoalFailureDoesNotHaltLaterSteps(t *testing.T) {
	t.Parallel()

	l := newLeader()
	_ = l.RegisterAgent("Forecast", &fakeAgent{out: contractx.Output{}}, "sales_forecasting")
	_ = l.RegisterAgent("Recipe", &fakeAgent{err: errors.New("recipe missing servings")}, "recipe_scale")
	planProduction(t, l)

	res, err := l.ExecuteGoal(context.Background(), "plan_production", nil)
	if err != nil {
		t.Fatalf("ExecuteGoal() error = %v", err)
	}

	step := res.Steps[1]
	if step.Capability != "recipe_scale" || step.Success || step.Error != "recipe missing servings" {
		t.Fatalf("unexpected failed step: %+v", step)
	}
	if res.Summary.SuccessRate != 0.5 {
		t.Fatalf("success_rate = %v, want 0.5", res.Summary.SuccessRate)
	}
	if res.Summary.Succeeded+res.Summary.Failed != res.Summary.Total {
		t.Fatalf("inconsistent summary: %+v", res.Summary)
	}
}

func TestExecuteGoalFirstFailsSecondRuns(t *testing.T) {
	t.Parallel()

	l := newLeader()
	a := &fakeAgent{err: errors.New("provider down")}
	b := &fakeAgent{out: contractx.Output{"ok": true}}
	_ = l.RegisterAgent("A", a, "a")
	_ = l.RegisterAgent("B", b, "b")
	if err := l.DefineGoal(Goal{Name: "ab", Steps: []Step{{Capability: "a"}, {Capability: "b"}}}); err != nil {
		t.Fatalf("DefineGoal() error = %v", err)
	}

	res, err := l.ExecuteGoal(context.Background(), "ab", nil)
	if err != nil {
		t.Fatalf("ExecuteGoal() error = %v", err)
	}
	if len(res.Steps) != 2 || res.Steps[0].Success || !res.Steps[1].Success {
		t.Fatalf("unexpected steps: %+v", res.Steps)
	}
}

func TestExecuteGoalAllFail(t *testing.T) {
	t.Parallel()

	l := newLeader()
	_ = l.RegisterAgent("A", &fakeAgent{err: errors.New("x")}, "a", "b")
	_ = l.DefineGoal(Goal{Name: "ab", Steps: []Step{{Capability: "a"}, {Capability: "b"}}})

	res, err := l.ExecuteGoal(context.Background(), "ab", nil)
	if err != nil {
		t.Fatalf("ExecuteGoal() error = %v", err)
	}
	if res.Summary.SuccessRate != 0 || res.Summary.Failed != 2 || len(res.Steps) != 2 {
		t.Fatalf("unexpected summary: %+v", res.Summary)
	}
}

func TestExecuteGoalEmpty(t *testing.T) {
	t.Parallel()

	l := newLeader()
	if err := l.DefineGoal(Goal{Name: "noop"}); err != nil {
		t.Fatalf("DefineGoal() error = %v", err)
	}
	res, err := l.ExecuteGoal(context.Background(), "noop", nil)
	if err != nil {
		t.Fatalf("ExecuteGoal() error = %v", err)
	}
	if res.Summary.Total != 0 || res.Summary.SuccessRate != 0 {
		t.Fatalf("unexpected summary: %+v", res.Summary)
	}
}

func TestExecuteGoalUnregisteredCapabilityAborts(t *testing.T) {
	t.Parallel()

	l := newLeader()
	forecast := &fakeAgent{out: contractx.Output{}}
	after := &fakeAgent{out: contractx.Output{}}
	_ = l.RegisterAgent("Forecast", forecast, "sales_forecasting")
	_ = l.RegisterAgent("After", after, "after")
	_ = l.DefineGoal(Goal{Name: "g", Steps: []Step{
		{Capability: "sales_forecasting"},
		{Capability: "recipe_scale"},
		{Capability: "after"},
	}})

	res, err := l.ExecuteGoal(context.Background(), "g", nil)
	if !errors.Is(err, contractx.ErrUnregisteredCapability) {
		t.Fatalf("expected ErrUnregisteredCapability, got %v", err)
	}
	if res != nil {
		t.Fatalf("expected no result, got %+v", res)
	}
	if after.callCount() != 0 {
		t.Fatal("steps after the missing capability must not run")
	}
}

func TestExecuteGoalUnknownGoal(t *testing.T) {
	t.Parallel()

	l := newLeader()
	a := &fakeAgent{}
	_ = l.RegisterAgent("A", a, "a")

	_, err := l.ExecuteGoal(context.Background(), "nope", nil)
	if !errors.Is(err, contractx.ErrUnknownGoal) {
		t.Fatalf("expected ErrUnknownGoal, got %v", err)
	}
	if a.callCount() != 0 {
		t.Fatal("no step may run for an unknown goal")
	}
}

func TestExecuteGoalDoesNotMutateCallerValues(t *testing.T) {
	t.Parallel()

	l := newLeader()
	_ = l.RegisterAgent("A", &fakeAgent{out: contractx.Output{"added": 1}}, "a")
	_ = l.DefineGoal(Goal{Name: "g", Steps: []Step{{Capability: "a", Exports: []string{"*"}}}})

	values := map[string]any{"seed": 1}
	if _, err := l.ExecuteGoal(context.Background(), "g", values); err != nil {
		t.Fatalf("ExecuteGoal() error = %v", err)
	}
	if _, ok := values["added"]; ok {
		t.Fatal("caller values were mutated")
	}
}

func TestStepInputDerivation(t *testing.T) {
	t.Parallel()

	l := newLeader()
	a := &fakeAgent{out: contractx.Output{}}
	_ = l.RegisterAgent("A", a, "a")
	_ = l.DefineGoal(Goal{Name: "g", Steps: []Step{{
		Capability: "a",
		Input: func(values map[string]any) contractx.Input {
			return contractx.Input{"action": "scale", "recipe": values["recipe"]}
		},
	}}})

	if _, err := l.ExecuteGoal(context.Background(), "g", map[string]any{"recipe": "bread", "other": 1}); err != nil {
		t.Fatalf("ExecuteGoal() error = %v", err)
	}
	in := a.calls[0]
	if in["action"] != "scale" || in["recipe"] != "bread" {
		t.Fatalf("unexpected input: %#v", in)
	}
	if _, ok := in["other"]; ok {
		t.Fatal("derived input must only carry mapped fields")
	}
}

func TestConflictPolicies(t *testing.T) {
	t.Parallel()

	first := &fakeAgent{}
	second := &fakeAgent{}

	last := newLeader()
	_ = last.RegisterAgent("first", first, "c")
	_ = last.RegisterAgent("second", second, "c")
	if got, _ := last.Resolve("c"); got != second {
		t.Fatal("last_wins should resolve to the second agent")
	}
	if st := last.Status(); len(st.Members[0].Capabilities) != 0 {
		t.Fatalf("first member should lose the capability: %+v", st.Members[0])
	}

	firstWins := newLeader(WithConflictPolicy(ConflictFirstWins))
	_ = firstWins.RegisterAgent("first", first, "c")
	_ = firstWins.RegisterAgent("second", second, "c")
	if got, _ := firstWins.Resolve("c"); got != first {
		t.Fatal("first_wins should keep the first agent")
	}

	strict := newLeader(WithConflictPolicy(ConflictError))
	_ = strict.RegisterAgent("first", first, "c")
	if err := strict.RegisterAgent("second", second, "c", "d"); !errors.Is(err, contractx.ErrCapabilityConflict) {
		t.Fatalf("expected ErrCapabilityConflict, got %v", err)
	}
	if _, err := strict.Resolve("d"); !errors.Is(err, contractx.ErrUnregisteredCapability) {
		t.Fatal("a rejected registration must not register anything")
	}
}

func TestConflictErrorTrimsCapabilities(t *testing.T) {
	t.Parallel()

	first := &fakeAgent{}
	second := &fakeAgent{}
	l := newLeader(WithConflictPolicy(ConflictError))
	if err := l.RegisterAgent("first", first, "recipe_scale"); err != nil {
		t.Fatalf("RegisterAgent() error = %v", err)
	}
	if err := l.RegisterAgent("second", second, " recipe_scale "); !errors.Is(err, contractx.ErrCapabilityConflict) {
		t.Fatalf("expected ErrCapabilityConflict for a padded capability, got %v", err)
	}
	exec, err := l.Resolve("recipe_scale")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if exec != first {
		t.Fatal("the rejected registration replaced the owner")
	}
}

func TestParseConflictPolicy(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]ConflictPolicy{
		"":           ConflictLastWins,
		"first_wins": ConflictFirstWins,
		"ERROR":      ConflictError,
	} {
		got, err := ParseConflictPolicy(in)
		if err != nil || got != want {
			t.Fatalf("ParseConflictPolicy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseConflictPolicy("random"); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestResolveUnregistered(t *testing.T) {
	t.Parallel()

	_, err := newLeader().Resolve("ghost")
	if !errors.Is(err, contractx.ErrUnregisteredCapability) {
		t.Fatalf("expected ErrUnregisteredCapability, got %v", err)
	}
}

func TestObserversAndStatus(t *testing.T) {
	t.Parallel()

	var steps []contractx.StepResult
	var goals []contractx.GoalResult
	l := newLeader(
		WithRunIDs(func() string { return "run-42" }),
		WithObserver(ObserverFuncs{
			Step: func(ctx context.Context, runID, goal string, res contractx.StepResult) {
				if runID != "run-42" || goal != "ab" {
					t.Errorf("unexpected event run=%s goal=%s", runID, goal)
				}
				steps = append(steps, res)
			},
			Goal: func(ctx context.Context, res contractx.GoalResult) {
				goals = append(goals, res)
			},
		}),
	)
	_ = l.RegisterAgent("A", &fakeAgent{out: contractx.Output{}}, "a")
	_ = l.RegisterAgent("B", &fakeAgent{err: errors.New("x")}, "b")
	_ = l.DefineGoal(Goal{Name: "ab", Description: "both", Steps: []Step{{Capability: "a"}, {Capability: "b"}}})

	if _, err := l.ExecuteGoal(context.Background(), "ab", nil); err != nil {
		t.Fatalf("ExecuteGoal() error = %v", err)
	}
	if len(steps) != 2 || len(goals) != 1 || goals[0].RunID != "run-42" {
		t.Fatalf("unexpected events: steps=%d goals=%d", len(steps), len(goals))
	}

	st := l.Status()
	if st.GoalRuns != 1 || st.GoalRunsFail != 1 {
		t.Fatalf("unexpected run counters: %+v", st)
	}
	if st.Members[0].Completed != 1 || st.Members[0].SuccessRate != 100 {
		t.Fatalf("unexpected member A status: %+v", st.Members[0])
	}
	if st.Members[1].Failed != 1 || st.Members[1].SuccessRate != 0 {
		t.Fatalf("unexpected member B status: %+v", st.Members[1])
	}
	if len(st.Goals) != 1 || st.Goals[0].Capabilities[1] != "b" {
		t.Fatalf("unexpected goals: %+v", st.Goals)
	}
}

func TestConcurrentExecuteGoal(t *testing.T) {
	t.Parallel()

	l := newLeader()
	_ = l.RegisterAgent("A", &fakeAgent{out: contractx.Output{"v": 1}}, "a")
	_ = l.DefineGoal(Goal{Name: "g", Steps: []Step{{Capability: "a", Exports: []string{"v"}}}})

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := l.ExecuteGoal(context.Background(), "g", map[string]any{"i": i})
			if err != nil {
				errs <- err
				return
			}
			if res.Summary.Total != 1 {
				errs <- errors.New("unexpected total")
			}
		}(i)
		if i == 8 {
			_ = l.RegisterAgent("late", &fakeAgent{}, "late")
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent run error = %v", err)
	}
	if got := l.Status().GoalRuns; got != 16 {
		t.Fatalf("goal runs = %d, want 16", got)
	}
}

type lifecycleAgent struct {
	fakeAgent
	initErr  error
	inits    int
	cleanups int
}

func (a *lifecycleAgent) Initialize(ctx context.Context) error {
	a.inits++
	return a.initErr
}

func (a *lifecycleAgent) Cleanup(ctx context.Context) error {
	a.cleanups++
	return nil
}

func TestInitializeAndCleanupMembers(t *testing.T) {
	t.Parallel()

	l := newLeader()
	good := &lifecycleAgent{}
	bad := &lifecycleAgent{initErr: errors.New("no key")}
	_ = l.RegisterAgent("good", good, "a")
	_ = l.RegisterAgent("bad", bad, "b")
	_ = l.RegisterAgent("plain", &fakeAgent{}, "c")

	if err := l.Initialize(context.Background()); err == nil {
		t.Fatal("expected joined initialization error")
	}
	if good.inits != 1 || bad.inits != 1 {
		t.Fatal("every lifecycle member should be initialized")
	}
	if err := l.Cleanup(context.Background()); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if good.cleanups != 1 || bad.cleanups != 1 {
		t.Fatal("every lifecycle member should be cleaned up")
	}
}
