// Package base carries the lifecycle every specialist embeds: initialize,
// execute, cleanup, a private state bag and leveled logging.
package base

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
	logx "github.com/tanpawarit/agent-teams/pkg/logger"
)

type Hook func(ctx context.Context) error

type Option func(*Agent)

func WithLogLevel(level logx.Level) Option {
	return func(a *Agent) {
		a.level = level
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(a *Agent) {
		a.log = l.With().Str("agent", a.name).Logger()
	}
}

// WithSetup registers the hook run once per Initialize transition.
func WithSetup(fn Hook) Option {
	return func(a *Agent) {
		a.setup = fn
	}
}

func WithTeardown(fn Hook) Option {
	return func(a *Agent) {
		a.teardown = fn
	}
}

type Agent struct {
	name  string
	level logx.Level
	log   zerolog.Logger

	setup    Hook
	teardown Hook

	// life serializes Initialize/Cleanup so hooks may touch the state bag.
	life        sync.Mutex
	mu          sync.RWMutex
	initialized bool
	state       map[string]any
}

func New(name string, opts ...Option) *Agent {
	a := &Agent{
		name:  name,
		level: logx.LevelInfo,
		log:   logx.ForAgent(name),
		state: make(map[string]any),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

func (a *Agent) Name() string {
	return a.name
}

func (a *Agent) Level() logx.Level {
	return a.level
}

func (a *Agent) Initialized() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.initialized
}

// Initialize runs the setup hook on the first call. Later calls are no-ops
// until Cleanup resets the agent.
func (a *Agent) Initialize(ctx context.Context) error {
	a.life.Lock()
	defer a.life.Unlock()

	if a.Initialized() {
		return nil
	}

	if a.setup != nil {
		if err := a.setup(ctx); err != nil {
			a.Log(logx.LevelError, "initialization failed: "+err.Error())
			return fmt.Errorf("%w: %s: %w", contractx.ErrInitialization, a.name, err)
		}
	}

	a.mu.Lock()
	a.initialized = true
	a.mu.Unlock()

	a.Log(logx.LevelInfo, "initialized")
	return nil
}

func (a *Agent) Execute(ctx context.Context, in contractx.Input) (contractx.Output, error) {
	return nil, fmt.Errorf("%w: %s", contractx.ErrNotImplemented, a.name)
}

// Cleanup always leaves the agent uninitialized; a teardown error is
// reported but does not keep it alive.
func (a *Agent) Cleanup(ctx context.Context) error {
	a.life.Lock()
	defer a.life.Unlock()

	var err error
	if a.teardown != nil {
		err = a.teardown(ctx)
	}

	a.mu.Lock()
	a.initialized = false
	a.mu.Unlock()

	if err != nil {
		a.Log(logx.LevelWarn, "cleanup finished with error: "+err.Error())
		return fmt.Errorf("cleanup %s: %w", a.name, err)
	}
	a.Log(logx.LevelInfo, "cleaned up")
	return nil
}

// Event returns a zerolog event for level, or nil when the agent is
// configured below it. Methods on a nil event are no-ops.
func (a *Agent) Event(level logx.Level) *zerolog.Event {
	if level > a.level {
		return nil
	}
	return a.log.WithLevel(level.Zerolog())
}

func (a *Agent) Log(level logx.Level, msg string) {
	a.Event(level).Msg(msg)
}

type lifecycle interface {
	contractx.Initializer
	contractx.Cleaner
}

// Use initializes a, runs fn and cleans a up on every exit path, panics
// included. A cleanup error is returned only when fn succeeded.
func Use[A lifecycle](ctx context.Context, a A, fn func(ctx context.Context, a A) error) (err error) {
	if err := a.Initialize(ctx); err != nil {
		return err
	}
	defer func() {
		if cerr := a.Cleanup(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(ctx, a)
}
