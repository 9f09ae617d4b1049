package contract

import "context"

// Executor is the only shape the team layer relies on.
type Executor interface {
	Execute(ctx context.Context, in Input) (Output, error)
}

type Initializer interface {
	Initialize(ctx context.Context) error
}

type Cleaner interface {
	Cleanup(ctx context.Context) error
}

// Agent is a full lifecycle participant: a named executor that can be set up and torn down.
type Agent interface {
	Executor
	Initializer
	Cleaner
	Name() string
}

// Completer turns one rendered user input into model text.
type Completer interface {
	Complete(ctx context.Context, input string) (string, error)
}

type SnapshotStore interface {
	Load(ctx context.Context, name string) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
	Delete(ctx context.Context, name string) error
}
