package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	contractx "github.com/tanpawarit/agent-teams/agent/contract"
)

// FileStore keeps one JSON file per agent under a directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("state directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create state dir: %v", contractx.ErrIO, err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) Load(_ context.Context, name string) (*contractx.Snapshot, error) {
	path, err := f.path(name)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read snapshot: %v", contractx.ErrIO, err)
	}
	return decode(raw)
}

// Save writes through a temp file so a crash never leaves a torn snapshot.
func (f *FileStore) Save(_ context.Context, snap *contractx.Snapshot) error {
	if err := prepare(snap); err != nil {
		return err
	}
	path, err := f.path(snap.Name)
	if err != nil {
		return err
	}

	payload, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal snapshot: %v", contractx.ErrFormat, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("%w: write snapshot: %v", contractx.ErrIO, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: replace snapshot: %v", contractx.ErrIO, err)
	}
	return nil
}

func (f *FileStore) Delete(_ context.Context, name string) error {
	path, err := f.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: delete snapshot: %v", contractx.ErrIO, err)
	}
	return nil
}

func (f *FileStore) path(name string) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	clean := filepath.Base(filepath.Clean("/" + strings.TrimSpace(name)))
	if clean == "/" || clean == "." {
		return "", ErrInvalidAgent
	}
	return filepath.Join(f.dir, clean+".json"), nil
}
