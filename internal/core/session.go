package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// SessionContext is the file a session most recently uploaded and its analysis.
type SessionContext struct {
	FileName string
	Content  string
	Analysis string
}

// Prompt renders the context block placed ahead of the user message.
func (s *SessionContext) Prompt() string {
	if s == nil || s.FileName == "" {
		return ""
	}
	return fmt.Sprintf("Current file being analyzed: %s\n\nFile content:\n%s\n\nPrevious analysis:\n%s\n\n---",
		s.FileName, s.Content, s.Analysis)
}

// SessionStore keeps one SessionContext per session id, expiring idle sessions.
type SessionStore struct {
	items *gocache.Cache
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{items: gocache.New(ttl, ttl/2+time.Minute)}
}

// Get returns the context for id, or nil. Reading refreshes the ttl.
func (s *SessionStore) Get(id string) *SessionContext {
	if id == "" {
		return nil
	}
	v, ok := s.items.Get(id)
	if !ok {
		return nil
	}
	sc := v.(SessionContext)
	s.items.SetDefault(id, sc)
	return &sc
}

func (s *SessionStore) Set(id string, sc SessionContext) {
	s.items.SetDefault(id, sc)
}

func (s *SessionStore) Clear(id string) {
	s.items.Delete(id)
}

// EnsureID returns id, or a fresh session id when id is empty.
func EnsureID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}
