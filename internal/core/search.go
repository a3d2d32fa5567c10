package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"gwi.com/aiclone/internal/utils"
)

// searchKeywords mark queries that benefit from fresh web results:
// interrogatives, how-to and recency markers, plus a few topical phrases.
var searchKeywords = []string{
	"cách", "làm sao", "gì", "ai", "nào", "lúc nào", "khi nào",
	"ở đâu", "phương pháp", "bí quyết", "mẹo", "tips",
	"mới nhất", "hiện tại", "hôm nay", "tin tức",
	"tán gái", "chiếm trái tim", "cách nói chuyện",
}

// NeedsSearch reports whether query contains any search keyword.
func NeedsSearch(query string) bool {
	return utils.ContainsAny(strings.ToLower(query), searchKeywords)
}

// Searcher returns a text block of web results, or "" when nothing useful was found.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// DuckDuckGoSearcher queries the DuckDuckGo Instant Answer API.
type DuckDuckGoSearcher struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
}

func NewDuckDuckGoSearcher(endpoint string, timeout time.Duration, perSecond int) *DuckDuckGoSearcher {
	if perSecond <= 0 {
		perSecond = 1
	}
	return &DuckDuckGoSearcher{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Limit(perSecond), perSecond),
	}
}

type instantAnswer struct {
	AbstractText  string            `json:"AbstractText"`
	RelatedTopics []json.RawMessage `json:"RelatedTopics"`
}

type relatedTopic struct {
	Text string `json:"Text"`
}

var errSearchThrottled = errors.New("search rate limit reached")

func (d *DuckDuckGoSearcher) Search(ctx context.Context, query string) (string, error) {
	if !d.limiter.Allow() {
		return "", errSearchThrottled
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_redirect", "1")
	params.Set("no_html", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create search request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search API error (status %d)", resp.StatusCode)
	}

	var answer instantAnswer
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return "", fmt.Errorf("failed to decode search response: %w", err)
	}
	return formatInstantAnswer(answer), nil
}

func formatInstantAnswer(answer instantAnswer) string {
	var results []string
	if answer.AbstractText != "" {
		results = append(results, "Summary: "+utils.Truncate(answer.AbstractText, 300))
	}

	topics := answer.RelatedTopics
	if len(topics) > 3 {
		topics = topics[:3]
	}
	for _, raw := range topics {
		// grouped topics have no Text and are skipped
		var topic relatedTopic
		if err := json.Unmarshal(raw, &topic); err != nil || topic.Text == "" {
			continue
		}
		results = append(results, utils.Truncate(topic.Text, 200))
	}
	return strings.Join(results, "\n\n")
}
