package base

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"time"

	contractx "github.com/tanpawarit/agent-teams/agent/contract"
	logx "github.com/tanpawarit/agent-teams/pkg/logger"
)

func (a *Agent) Get(key string) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.state[key]
	return v, ok
}

func (a *Agent) Set(key string, val any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state[key] = val
}

func (a *Agent) Delete(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.state, key)
}

// State returns a shallow copy of the state bag.
func (a *Agent) State() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return maps.Clone(a.state)
}

func (a *Agent) Snapshot() *contractx.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return &contractx.Snapshot{
		Name:        a.name,
		Initialized: a.initialized,
		State:       maps.Clone(a.state),
		Timestamp:   time.Now().UTC(),
	}
}

// Restore replaces the state bag. The initialized flag is left alone.
func (a *Agent) Restore(snap *contractx.Snapshot) {
	next := make(map[string]any)
	if snap != nil && snap.State != nil {
		next = maps.Clone(snap.State)
	}
	a.mu.Lock()
	a.state = next
	a.mu.Unlock()
}

func (a *Agent) SaveState(path string) error {
	payload, err := json.MarshalIndent(a.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal %s state: %v", contractx.ErrFormat, a.name, err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: %v", contractx.ErrIO, err)
		}
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("%w: %v", contractx.ErrIO, err)
	}

	a.Log(logx.LevelDebug, "state saved to "+path)
	return nil
}

func (a *Agent) LoadState(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", contractx.ErrIO, err)
	}

	var snap contractx.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return fmt.Errorf("%w: %s: %v", contractx.ErrFormat, path, err)
	}

	a.Restore(&snap)
	a.Log(logx.LevelDebug, "state loaded from "+path)
	return nil
}

// Persist saves the current snapshot through an external store.
func (a *Agent) Persist(ctx context.Context, store contractx.SnapshotStore) error {
	if store == nil {
		return fmt.Errorf("%w: nil snapshot store", contractx.ErrIO)
	}
	return store.Save(ctx, a.Snapshot())
}

func (a *Agent) Recall(ctx context.Context, store contractx.SnapshotStore) error {
	if store == nil {
		return fmt.Errorf("%w: nil snapshot store", contractx.ErrIO)
	}
	snap, err := store.Load(ctx, a.name)
	if err != nil {
		return err
	}
	a.Restore(snap)
	return nil
}
