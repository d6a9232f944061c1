// Package arxiv implements the preprint lookup tool on the arXiv Atom API.
package arxiv

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/longkey1/searchchat/internal/searchchat"
)

const (
	ToolName        = "arxiv"
	ToolDescription = "A wrapper around Arxiv.org Useful for when you need to answer questions about Physics, Mathematics, Computer Science, Quantitative Biology, Quantitative Finance, Statistics, Electrical Engineering, and Economics from scientific articles on arxiv.org. Input should be a search query."

	DefaultEndpoint = "https://export.arxiv.org/api/query"
	DefaultTopK     = 1
	DefaultMaxChars = 200
	maxQueryLength  = 300
)

var (
	idPattern    = regexp.MustCompile(`^(\d{4}\.\d{4,5}(v\d+)?|[a-z\-]+(\.[A-Z]{2})?/\d{7}(v\d+)?)$`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// Entry is one paper from the feed.
type Entry struct {
	ID        string   `xml:"id"`
	Published string   `xml:"published"`
	Title     string   `xml:"title"`
	Summary   string   `xml:"summary"`
	Authors   []Author `xml:"author"`
}

// Author is an entry author.
type Author struct {
	Name string `xml:"name"`
}

type feed struct {
	Entries []Entry `xml:"entry"`
}

// Client is the arXiv tool.
type Client struct {
	HTTPClient *http.Client
	Endpoint   string
	TopK       int
	MaxChars   int
}

// New creates a client. Zero limits fall back to DefaultTopK and
// DefaultMaxChars.
func New(topK, maxChars int) *Client {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		Endpoint:   DefaultEndpoint,
		TopK:       topK,
		MaxChars:   maxChars,
	}
}

func (c *Client) Name() string        { return ToolName }
func (c *Client) Description() string { return ToolDescription }

// Invoke formats the top entries and cuts the text to MaxChars.
func (c *Client) Invoke(ctx context.Context, query string) (string, error) {
	entries, err := c.Search(ctx, query)
	if err != nil {
		return "", searchchat.NewToolFailure(ToolName, query, err)
	}
	if len(entries) == 0 {
		return "", searchchat.NewToolFailure(ToolName, query, searchchat.ErrNoResults)
	}

	docs := make([]string, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, e.format())
	}
	return searchchat.Truncate(strings.Join(docs, "\n\n"), c.MaxChars), nil
}

// Search queries arXiv. A query made only of arXiv identifiers is looked up
// by ID, anything else is a full-text search.
func (c *Client) Search(ctx context.Context, query string) ([]Entry, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query is empty")
	}

	params := url.Values{
		"start":       {"0"},
		"max_results": {fmt.Sprint(c.TopK)},
	}
	if ids, ok := identifiers(query); ok {
		params.Set("id_list", strings.Join(ids, ","))
	} else {
		cleaned := strings.NewReplacer(":", "", "-", "").Replace(query)
		params.Set("search_query", "all:"+searchchat.Truncate(cleaned, maxQueryLength))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv http %d", resp.StatusCode)
	}

	var f feed
	if err := xml.NewDecoder(resp.Body).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode arxiv feed: %w", err)
	}

	entries := make([]Entry, 0, len(f.Entries))
	for _, e := range f.Entries {
		if strings.Contains(e.ID, "arxiv.org/api/errors") {
			return nil, fmt.Errorf("arxiv api error: %s", clean(e.Summary))
		}
		if clean(e.Title) == "" {
			continue
		}
		entries = append(entries, e)
		if len(entries) >= c.TopK {
			break
		}
	}
	return entries, nil
}

func identifiers(query string) ([]string, bool) {
	fields := strings.Fields(query)
	for _, f := range fields {
		if !idPattern.MatchString(f) {
			return nil, false
		}
	}
	return fields, len(fields) > 0
}

func (e Entry) format() string {
	names := make([]string, 0, len(e.Authors))
	for _, a := range e.Authors {
		names = append(names, clean(a.Name))
	}
	published := strings.TrimSpace(e.Published)
	if len(published) >= 10 {
		published = published[:10]
	}
	return fmt.Sprintf("Published: %s\nTitle: %s\nAuthors: %s\nSummary: %s",
		published, clean(e.Title), strings.Join(names, ", "), clean(e.Summary))
}

func clean(s string) string {
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}
