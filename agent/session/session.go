// Package session stores chat histories keyed by session id.
package session

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound       = errors.New("session not found")
	ErrNilSession     = errors.New("session is nil")
	ErrInvalidSession = errors.New("session id is empty")
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

type Session struct {
	ID        string    `json:"id"`
	Messages  []Message `json:"messages"`
	UpdatedAt time.Time `json:"updated_at"`
}

func New(id string, now time.Time) *Session {
	return &Session{ID: id, UpdatedAt: now.UTC()}
}

func (s *Session) Append(role, content string, now time.Time) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content, At: now.UTC()})
	s.UpdatedAt = now.UTC()
}

// Trim keeps the newest max messages. max <= 0 keeps everything.
func (s *Session) Trim(max int) {
	if max <= 0 || len(s.Messages) <= max {
		return
	}
	s.Messages = append([]Message(nil), s.Messages[len(s.Messages)-max:]...)
}

// Store is owned by the caller and handed to agents; entries expire after
// the backend's TTL.
type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

func validID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidSession
	}
	return nil
}
