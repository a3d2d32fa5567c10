package core

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gwi.com/aiclone/internal/common"
	"gwi.com/aiclone/internal/utils"
)

const FallbackAnswer = "I don't quite understand. Can you ask again?"

type Source string

const (
	SourceCache     Source = "cache"
	SourcePrimary   Source = "primary"
	SourceSecondary Source = "secondary"
	SourceFuzzy     Source = "fuzzy"
	SourceFallback  Source = "fallback"
)

type Resolution struct {
	Answer string
	Source Source
}

// Resolver answers a message by trying, in order: the response cache, the
// primary provider, the secondary provider, the fuzzy matcher and finally
// a fixed fallback. Every non-cache answer is written back to the cache.
type Resolver struct {
	cache     *ResponseCache
	primary   Provider
	secondary Provider
	matcher   *QAMatcher
	searcher  Searcher
	threshold float64
	timeout   time.Duration
	metrics   *Metrics
	logger    logrus.FieldLogger
}

type ResolverOptions struct {
	Primary   Provider // optional
	Secondary Provider // optional
	Searcher  Searcher // optional
	Threshold float64
	Timeout   time.Duration
}

func NewResolver(cache *ResponseCache, matcher *QAMatcher, opts ResolverOptions, metrics *Metrics, logger logrus.FieldLogger) *Resolver {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultMatchThreshold
	}
	return &Resolver{
		cache:     cache,
		primary:   opts.Primary,
		secondary: opts.Secondary,
		matcher:   matcher,
		searcher:  opts.Searcher,
		threshold: opts.Threshold,
		timeout:   opts.Timeout,
		metrics:   metrics,
		logger:    logger,
	}
}

func (r *Resolver) Cache() *ResponseCache { return r.cache }

func (r *Resolver) Resolve(ctx context.Context, message string, session *SessionContext) Resolution {
	start := time.Now()
	res := r.resolve(ctx, message, session)

	r.metrics.Resolutions.WithLabelValues(string(res.Source)).Inc()
	r.metrics.ResolutionDuration.Observe(time.Since(start).Seconds())
	r.metrics.CacheEntries.Set(float64(r.cache.Len()))
	return res
}

func (r *Resolver) resolve(ctx context.Context, message string, session *SessionContext) Resolution {
	log := r.logger.WithField("question", utils.Preview(message, 30))

	if cached, ok := r.cache.Get(message); ok {
		log.Debug("cache hit")
		return Resolution{Answer: cached, Source: SourceCache}
	}

	prompt := r.buildPrompt(ctx, message, session)

	answer, err := r.ask(ctx, r.primary, prompt)
	if err == nil {
		return r.remember(message, answer, SourcePrimary)
	}
	log.WithError(err).Warn("primary provider failed, trying secondary")

	answer, err = r.ask(ctx, r.secondary, prompt)
	if err == nil {
		return r.remember(message, answer, SourceSecondary)
	}
	log.WithError(err).Warn("secondary provider failed, trying fuzzy match")

	if answer, score, ok := r.matcher.FindBestAnswer(message, r.threshold); ok {
		log.WithField("score", score).Info("fuzzy match hit")
		return r.remember(message, answer, SourceFuzzy)
	}

	log.Info("no tier produced an answer, using fallback")
	return r.remember(message, FallbackAnswer, SourceFallback)
}

func (r *Resolver) remember(message, answer string, src Source) Resolution {
	r.cache.Set(message, answer)
	return Resolution{Answer: answer, Source: src}
}

// ask calls p under the resolver timeout. Any failure is reported as upstream unavailability.
func (r *Resolver) ask(ctx context.Context, p Provider, prompt string) (string, error) {
	if p == nil {
		return "", common.NewError(common.ErrUpstreamUnavailable, "provider not configured")
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	answer, err := p.Generate(ctx, prompt)
	if err == nil && strings.TrimSpace(answer) == "" {
		err = common.NewError(common.ErrUpstreamUnavailable, "empty answer")
	}
	if err != nil {
		r.metrics.ProviderFailures.WithLabelValues(p.Name()).Inc()
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

func (r *Resolver) buildPrompt(ctx context.Context, message string, session *SessionContext) string {
	contextBlock := session.Prompt()

	if results := r.searchResults(ctx, message); results != "" {
		return personaSystemPrompt + "\n" + contextBlock +
			"\nRecent search results:\n" + results +
			"\n\nUser question: " + message +
			"\n\nBased on the search results and your knowledge, provide a helpful answer."
	}
	return personaSystemPrompt + "\n" + contextBlock + "\nUser: " + message
}

// searchResults is best effort; failures only cost the results block.
func (r *Resolver) searchResults(ctx context.Context, message string) string {
	if r.searcher == nil || !NeedsSearch(message) {
		return ""
	}
	results, err := r.searcher.Search(ctx, message)
	switch {
	case err != nil:
		r.metrics.SearchRequests.WithLabelValues("error").Inc()
		r.logger.WithError(err).Debug("web search failed")
		return ""
	case results == "":
		r.metrics.SearchRequests.WithLabelValues("empty").Inc()
		return ""
	default:
		r.metrics.SearchRequests.WithLabelValues("ok").Inc()
		return results
	}
}
