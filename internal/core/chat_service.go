package core

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"gwi.com/aiclone/internal/store"
	"gwi.com/aiclone/internal/utils"
)

const (
	DefaultUserName     = "User"
	DefaultHistoryLimit = 50
	DefaultLearnedLimit = 50
	DefaultQueriesLimit = 100
	AllQueriesLimit     = 200

	voiceMaxChars      = 300
	voiceSentences     = 3
	queryPreviewChars  = 100
	queryDateLayout    = "02/01/2006 15:04"
	voiceEmptyResponse = "Xin lỗi, tôi không nghe rõ. Bạn có thể nói lại không?"
)

type ChatReply struct {
	UserMessage string
	AIResponse  string
	Source      Source
	SessionID   string
	Timestamp   time.Time
}

// UserQuery is a history entry shaped for the admin views.
type UserQuery struct {
	ID        string    `json:"id"`
	Username  string    `json:"username,omitempty"`
	Question  string    `json:"query"`
	Answer    string    `json:"response,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Date      string    `json:"date"`
}

type ChatService struct {
	resolver *Resolver
	history  store.HistoryStore
	sessions *SessionStore
	learned  *LearnedService
	logger   logrus.FieldLogger
}

func NewChatService(resolver *Resolver, history store.HistoryStore, sessions *SessionStore, learned *LearnedService, logger logrus.FieldLogger) *ChatService {
	return &ChatService{
		resolver: resolver,
		history:  history,
		sessions: sessions,
		learned:  learned,
		logger:   logger,
	}
}

// Chat resolves text and appends the exchange to history. A failed append is logged only.
func (s *ChatService) Chat(ctx context.Context, text, userName, sessionID string) ChatReply {
	if strings.TrimSpace(userName) == "" {
		userName = DefaultUserName
	}
	res := s.resolver.Resolve(ctx, text, s.sessions.Get(sessionID))

	now := time.Now().UTC()
	entry := &store.HistoryEntry{
		UserMessage: text,
		AIResponse:  res.Answer,
		UserName:    userName,
		CreatedAt:   now,
		Timestamp:   now,
	}
	if err := s.history.AppendHistory(ctx, entry); err != nil {
		s.logger.WithError(err).WithField("user", userName).Warn("failed to append history entry")
	}

	return ChatReply{
		UserMessage: text,
		AIResponse:  res.Answer,
		Source:      res.Source,
		SessionID:   sessionID,
		Timestamp:   now,
	}
}

// VoiceChat resolves message with the session's file context and shortens
// answers longer than voiceMaxChars characters to their first sentences.
func (s *ChatService) VoiceChat(ctx context.Context, message, sessionID string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return voiceEmptyResponse
	}

	answer := s.resolver.Resolve(ctx, message, s.sessions.Get(sessionID)).Answer
	if utf8.RuneCountInString(answer) > voiceMaxChars {
		answer = utils.FirstSentences(answer, voiceSentences)
	}
	return answer
}

// History returns up to limit entries, oldest first.
func (s *ChatService) History(ctx context.Context, limit int) ([]store.HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	entries, err := s.history.RecentHistory(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	out := make([]store.HistoryEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

func (s *ChatService) ClearHistory(ctx context.Context) (int64, error) {
	return s.history.ClearHistory(ctx)
}

// ClearCache empties the response cache and returns its size afterwards.
func (s *ChatService) ClearCache() int {
	s.resolver.Cache().Clear()
	return s.resolver.Cache().Len()
}

func (s *ChatService) ListLearned(ctx context.Context, limit int) ([]store.LearnedQA, error) {
	if limit <= 0 {
		limit = DefaultLearnedLimit
	}
	return s.learned.List(ctx, limit)
}

func (s *ChatService) DeleteLearned(ctx context.Context, question string) error {
	return s.learned.Delete(ctx, question)
}

// UserQueries lists what username asked, newest first.
func (s *ChatService) UserQueries(ctx context.Context, username string, limit int) ([]UserQuery, error) {
	if limit <= 0 {
		limit = DefaultQueriesLimit
	}
	entries, err := s.history.HistoryByUser(ctx, username, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load queries for %s: %w", username, err)
	}
	return toQueries(entries, false), nil
}

// AllQueries lists the most recent questions from every user, newest first.
func (s *ChatService) AllQueries(ctx context.Context) ([]UserQuery, error) {
	entries, err := s.history.RecentHistory(ctx, AllQueriesLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load queries: %w", err)
	}
	return toQueries(entries, true), nil
}

// toQueries shapes entries for the admin views. The cross-user listing
// carries the asker instead of the answer preview.
func toQueries(entries []store.HistoryEntry, crossUser bool) []UserQuery {
	out := make([]UserQuery, 0, len(entries))
	for _, e := range entries {
		q := UserQuery{
			ID:        e.ID,
			Question:  e.UserMessage,
			Timestamp: e.Timestamp,
			Date:      e.Timestamp.Format(queryDateLayout),
		}
		if crossUser {
			q.Username = e.UserName
		} else {
			q.Answer = utils.Preview(e.AIResponse, queryPreviewChars)
		}
		out = append(out, q)
	}
	return out
}
