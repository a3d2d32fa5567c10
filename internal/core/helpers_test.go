package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"gwi.com/aiclone/internal/store"
)

type fakeProvider struct {
	name    string
	answer  string
	err     error
	mu      sync.Mutex
	prompts []string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.answer, f.err
}

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeProvider) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

func okProvider(name, answer string) *fakeProvider {
	return &fakeProvider{name: name, answer: answer}
}

func failingProvider(name string) *fakeProvider {
	return &fakeProvider{name: name, err: errors.New(name + " is down")}
}

type fakeSearcher struct {
	results string
	err     error
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string) (string, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}

type fakeAnalyzer struct {
	answer      string
	err         error
	imageCalls  int
	docPrompts  []string
	imagePrompt string
	imageMIME   string
}

func (f *fakeAnalyzer) AnalyzeImage(_ context.Context, prompt, mimeType string, _ []byte) (string, error) {
	f.imageCalls++
	f.imagePrompt, f.imageMIME = prompt, mimeType
	return f.answer, f.err
}

func (f *fakeAnalyzer) SummarizeDocument(_ context.Context, prompt string) (string, error) {
	f.docPrompts = append(f.docPrompts, prompt)
	return f.answer, f.err
}

func nullLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	return logger
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

type resolverFixture struct {
	resolver *Resolver
	cache    *ResponseCache
	matcher  *QAMatcher
	metrics  *Metrics
}

func newResolverFixture(opts ResolverOptions, pairs ...QAPair) resolverFixture {
	cache := NewResponseCache(time.Hour, 100)
	matcher := NewQAMatcher(pairs)
	metrics := NewMetrics(prometheus.NewRegistry())
	return resolverFixture{
		resolver: NewResolver(cache, matcher, opts, metrics, nullLogger()),
		cache:    cache,
		matcher:  matcher,
		metrics:  metrics,
	}
}
