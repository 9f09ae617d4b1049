// Package state persists agent snapshots outside the process.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/agent-teams/agent/contract"
)

var (
	ErrNotFound     = errors.New("snapshot not found")
	ErrNilSnapshot  = errors.New("snapshot is nil")
	ErrInvalidAgent = errors.New("agent name is empty")
)

// Store is the persistence contract behind base.Agent Persist and Recall.
type Store = contractx.SnapshotStore

func validName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidAgent
	}
	return nil
}

// prepare validates snap and normalises its timestamp before encoding.
func prepare(snap *contractx.Snapshot) error {
	if snap == nil {
		return ErrNilSnapshot
	}
	if err := validName(snap.Name); err != nil {
		return err
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now().UTC()
	} else {
		snap.Timestamp = snap.Timestamp.UTC()
	}
	if snap.State == nil {
		snap.State = map[string]any{}
	}
	return nil
}

func decode(raw []byte) (*contractx.Snapshot, error) {
	var snap contractx.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("%w: decode snapshot: %v", contractx.ErrFormat, err)
	}
	if err := validName(snap.Name); err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrFormat, err)
	}
	if snap.State == nil {
		snap.State = map[string]any{}
	}
	return &snap, nil
}
