// Package duckduckgo implements the web search tool on top of DuckDuckGo's
// lite HTML interface.
package duckduckgo

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/longkey1/searchchat/internal/searchchat"
)

const (
	ToolName        = "Search"
	ToolDescription = "A wrapper around DuckDuckGo Search. Useful for when you need to answer questions about current events. Input should be a search query."

	DefaultEndpoint = "https://lite.duckduckgo.com/lite/"
	userAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxAttempts     = 4
	maxBackoff      = 30 * time.Second
)

var (
	linkPattern    = regexp.MustCompile(`<a[^>]*class=['"]result-link['"][^>]*href=['"]([^'"]+)['"][^>]*>([^<]+)</a>`)
	linkPattern2   = regexp.MustCompile(`<a[^>]*href=['"]([^'"]+)['"][^>]*class=['"]result-link['"][^>]*>([^<]+)</a>`)
	snippetPattern = regexp.MustCompile(`<td[^>]*class=['"]result-snippet['"][^>]*>([^<]+(?:<[^>]+>[^<]*</[^>]+>)*[^<]*)</td>`)
	anyLinkPattern = regexp.MustCompile(`<a[^>]+href=['"]([^'"]+)['"][^>]*>([^<]+)</a>`)
	tagPattern     = regexp.MustCompile(`<[^>]+>`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// limiter spaces requests at least interval apart.
type limiter struct {
	mu       sync.Mutex
	last     time.Time
	interval time.Duration
}

// sharedLimiter holds every default Searcher to one query per second.
var sharedLimiter = &limiter{interval: time.Second}

func (l *limiter) wait(ctx context.Context) error {
	l.mu.Lock()
	if wait := time.Until(l.last.Add(l.interval)); wait > 0 {
		l.mu.Unlock()
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
		l.mu.Lock()
	}
	l.last = time.Now()
	l.mu.Unlock()
	return nil
}

// Result is one parsed search hit.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// Searcher is the DuckDuckGo search tool.
type Searcher struct {
	client   *http.Client
	endpoint string
	limiter  *limiter
	backoff  time.Duration
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithHTTPClient overrides the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Searcher) {
		if c != nil {
			s.client = c
		}
	}
}

// WithEndpoint points the searcher at another lite endpoint.
func WithEndpoint(endpoint string) Option {
	return func(s *Searcher) {
		if endpoint != "" {
			s.endpoint = endpoint
		}
	}
}

// WithMinInterval gives the searcher its own rate limit instead of the
// process-wide one.
func WithMinInterval(d time.Duration) Option {
	return func(s *Searcher) { s.limiter = &limiter{interval: d} }
}

// WithBackoff sets the first delay after an HTTP 429. It doubles on every
// retry.
func WithBackoff(d time.Duration) Option {
	return func(s *Searcher) { s.backoff = d }
}

// New creates a Searcher with a modest timeout.
func New(opts ...Option) *Searcher {
	s := &Searcher{
		client:   &http.Client{Timeout: 15 * time.Second},
		endpoint: DefaultEndpoint,
		limiter:  sharedLimiter,
		backoff:  time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Searcher) Name() string        { return ToolName }
func (s *Searcher) Description() string { return ToolDescription }

// Invoke returns the best result for query as title, snippet and link.
func (s *Searcher) Invoke(ctx context.Context, query string) (string, error) {
	results, err := s.Search(ctx, query)
	if err != nil {
		return "", searchchat.NewToolFailure(ToolName, query, err)
	}
	if len(results) == 0 {
		return "", searchchat.NewToolFailure(ToolName, query, searchchat.ErrNoResults)
	}
	return format(results[0]), nil
}

// Search scrapes up to five results for query.
func (s *Searcher) Search(ctx context.Context, query string) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query is empty")
	}
	if err := s.limiter.wait(ctx); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("q", query)

	var resp *http.Response
	delay := s.backoff
	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err = s.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			break
		}
		resp.Body.Close()
		if attempt >= maxAttempts {
			return nil, fmt.Errorf("duckduckgo rate limited after %d attempts", attempt)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		if delay < maxBackoff {
			delay *= 2
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return parseResults(string(body)), nil
}

func format(r Result) string {
	var b strings.Builder
	b.WriteString(r.Title)
	if r.Snippet != "" {
		b.WriteString("\n")
		b.WriteString(r.Snippet)
	}
	b.WriteString("\n")
	b.WriteString(r.URL)
	return b.String()
}

func parseResults(page string) []Result {
	matches := linkPattern.FindAllStringSubmatch(page, -1)
	if len(matches) == 0 {
		matches = linkPattern2.FindAllStringSubmatch(page, -1)
	}
	snippets := snippetPattern.FindAllStringSubmatch(page, -1)

	var results []Result
	for i, m := range matches {
		link := strings.TrimSpace(m[1])
		title := cleanHTML(m[2])
		if link == "" || title == "" {
			continue
		}
		snippet := ""
		if i < len(snippets) {
			snippet = cleanHTML(snippets[i][1])
		}
		results = append(results, Result{Title: title, URL: link, Snippet: snippet})
		if len(results) >= 5 {
			break
		}
	}
	if len(results) == 0 {
		results = fallbackParse(page)
	}
	return results
}

// fallbackParse collects external links when the result markup changed.
func fallbackParse(page string) []Result {
	var results []Result
	seen := make(map[string]bool)
	for _, m := range anyLinkPattern.FindAllStringSubmatch(page, -1) {
		link := strings.TrimSpace(m[1])
		title := cleanHTML(m[2])

		if strings.Contains(link, "duckduckgo.com") ||
			strings.HasPrefix(link, "/") ||
			strings.HasPrefix(link, "#") ||
			strings.HasPrefix(link, "javascript:") {
			continue
		}
		if len(title) < 5 || seen[link] {
			continue
		}
		seen[link] = true

		results = append(results, Result{Title: title, URL: link})
		if len(results) >= 5 {
			break
		}
	}
	return results
}

func cleanHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}
