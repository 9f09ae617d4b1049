package team

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
	nodex "github.com/tanpawarit/agent-teams/agent/nodes"
)

type Option func(*Leader)

func WithConflictPolicy(p ConflictPolicy) Option {
	return func(l *Leader) {
		l.policy = p
	}
}

func WithObserver(o Observer) Option {
	return func(l *Leader) {
		if o != nil {
			l.observers = append(l.observers, o)
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(l *Leader) {
		l.log = logger.With().Str("team", l.name).Logger()
	}
}

func WithRunIDs(fn func() string) Option {
	return func(l *Leader) {
		if fn != nil {
			l.newRunID = fn
		}
	}
}

// Leader owns the capability registry and goal table of one team. It is safe
// for concurrent ExecuteGoal calls and late registration.
type Leader struct {
	name     string
	policy   ConflictPolicy
	log      zerolog.Logger
	now      func() time.Time
	newRunID func() string

	mu           sync.RWMutex
	members      map[string]*member
	order        []string
	capabilities map[string]string
	goals        map[string]*compiledGoal
	goalOrder    []string
	observers    []Observer

	runs       int
	runsFailed int
}

func New(name string, opts ...Option) *Leader {
	l := &Leader{
		name:         name,
		policy:       ConflictLastWins,
		log:          log.Logger.With().Str("team", name).Logger(),
		now:          time.Now,
		newRunID:     uuid.NewString,
		members:      make(map[string]*member),
		capabilities: make(map[string]string),
		goals:        make(map[string]*compiledGoal),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

func (l *Leader) Name() string {
	return l.name
}

func (l *Leader) Subscribe(o Observer) {
	if o == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, o)
}

// ExecuteGoal runs the named goal against values. Configuration errors
// (unknown goal, unregistered capability) return no result; failing steps
// are recorded in the result instead.
func (l *Leader) ExecuteGoal(ctx context.Context, goal string, values map[string]any) (*contractx.GoalResult, error) {
	l.mu.RLock()
	cg, ok := l.goals[goal]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", contractx.ErrUnknownGoal, goal)
	}

	runID := l.newRunID()
	logger := l.log.With().Str("goal", goal).Str("run_id", runID).Logger()
	logger.Info().Int("steps", len(cg.goal.Steps)).Msg("goal started")

	out, err := cg.runner.Invoke(ctx, nodex.GraphInput{
		RunID:  runID,
		Goal:   goal,
		Team:   l.name,
		Values: values,
	})
	if err != nil {
		l.countRun(false)
		return nil, fmt.Errorf("run goal %s: %w", goal, err)
	}
	if out.Fatal != nil {
		l.countRun(false)
		logger.Error().Err(out.Fatal).Msg("goal aborted")
		return nil, out.Fatal
	}

	res := out.Result
	l.countRun(res.Summary.Failed == 0)
	logger.Info().
		Int("succeeded", res.Summary.Succeeded).
		Int("failed", res.Summary.Failed).
		Float64("success_rate", res.Summary.SuccessRate).
		Msg("goal finished")

	for _, o := range l.snapshotObservers() {
		o.OnGoal(ctx, *res)
	}
	return res, nil
}

// Initialize brings up every member that has a lifecycle. A failing member
// is logged and reported but does not stop the others.
func (l *Leader) Initialize(ctx context.Context) error {
	var errs []error
	for _, m := range l.snapshotMembers() {
		initer, ok := m.agent.(contractx.Initializer)
		if !ok {
			continue
		}
		if err := initer.Initialize(ctx); err != nil {
			l.log.Warn().Err(err).Str("agent", m.name).Msg("member failed to initialize")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (l *Leader) Cleanup(ctx context.Context) error {
	var errs []error
	for _, m := range l.snapshotMembers() {
		c, ok := m.agent.(contractx.Cleaner)
		if !ok {
			continue
		}
		if err := c.Cleanup(ctx); err != nil {
			l.log.Warn().Err(err).Str("agent", m.name).Msg("member cleanup failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (l *Leader) beginStep(capability string) (string, contractx.Executor, error) {
	name, exec, err := l.lookup(capability)
	if err != nil {
		return "", nil, err
	}
	l.mu.Lock()
	if m := l.members[name]; m != nil {
		m.assigned++
	}
	l.mu.Unlock()
	return name, exec, nil
}

func (l *Leader) recordStep(ctx context.Context, runID, goal string, res contractx.StepResult) {
	l.mu.Lock()
	if m := l.members[res.Agent]; m != nil {
		if res.Success {
			m.completed++
		} else {
			m.failed++
		}
	}
	l.mu.Unlock()

	ev := l.log.Debug()
	if !res.Success {
		ev = l.log.Warn().Str("error", res.Error)
	}
	ev.Str("run_id", runID).Str("goal", goal).Str("capability", res.Capability).Str("agent", res.Agent).Bool("success", res.Success).Msg("step finished")

	for _, o := range l.snapshotObservers() {
		o.OnStep(ctx, runID, goal, res)
	}
}

func (l *Leader) countRun(ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs++
	if !ok {
		l.runsFailed++
	}
}

func (l *Leader) snapshotMembers() []*member {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*member, 0, len(l.order))
	for _, name := range l.order {
		out = append(out, l.members[name])
	}
	return out
}

func (l *Leader) snapshotObservers() []Observer {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Observer(nil), l.observers...)
}
