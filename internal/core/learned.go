package core

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gwi.com/aiclone/internal/common"
	"gwi.com/aiclone/internal/store"
)

const learnedConfidence = 0.9

// LearnedService persists learned QA entries and mirrors them into the matcher.
type LearnedService struct {
	store   store.LearnedStore
	matcher *QAMatcher
	cache   *ResponseCache
	logger  logrus.FieldLogger
}

func NewLearnedService(s store.LearnedStore, matcher *QAMatcher, cache *ResponseCache, logger logrus.FieldLogger) *LearnedService {
	return &LearnedService{store: s, matcher: matcher, cache: cache, logger: logger}
}

// Preload appends every persisted entry to the matcher, oldest first.
func (l *LearnedService) Preload(ctx context.Context) (int, error) {
	entries, err := l.store.ListLearned(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to load learned qa: %w", err)
	}
	for i := len(entries) - 1; i >= 0; i-- {
		l.matcher.Learn(entries[i].Question, entries[i].Answer)
	}
	return len(entries), nil
}

func (l *LearnedService) Record(ctx context.Context, question, answer string, confidence float64) error {
	err := l.store.UpsertLearned(ctx, store.LearnedQA{
		Question:   question,
		Answer:     answer,
		Confidence: confidence,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	l.matcher.Learn(question, answer)
	return nil
}

func (l *LearnedService) List(ctx context.Context, limit int) ([]store.LearnedQA, error) {
	entries, err := l.store.ListLearned(ctx, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []store.LearnedQA{}
	}
	return entries, nil
}

// Delete removes the entry from storage and the matcher, then drops every
// cached answer since any of them may have come from the deleted entry.
func (l *LearnedService) Delete(ctx context.Context, question string) error {
	deleted, err := l.store.DeleteLearned(ctx, question)
	if err != nil {
		return err
	}
	l.matcher.Forget(question)
	l.cache.Clear()
	if !deleted {
		return common.NotFound("Learned entry not found")
	}
	return nil
}
