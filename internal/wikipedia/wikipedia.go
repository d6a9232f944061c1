// Package wikipedia implements the encyclopedia lookup tool on the
// MediaWiki action API.
package wikipedia

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/longkey1/searchchat/internal/searchchat"
	"github.com/tidwall/gjson"
)

const (
	ToolName        = "wikipedia"
	ToolDescription = "A wrapper around Wikipedia. Useful for when you need to answer general questions about people, places, companies, facts, historical events, or other subjects. Input should be a search query."

	DefaultEndpoint = "https://en.wikipedia.org/w/api.php"
	DefaultTopK     = 1
	DefaultMaxChars = 200
	maxQueryLength  = 300
	userAgent       = "searchchat/1.0 (https://github.com/longkey1/searchchat)"
)

// Page is one looked-up article.
type Page struct {
	Title   string
	Summary string
}

// Client is the Wikipedia tool.
type Client struct {
	HTTPClient *http.Client
	Endpoint   string
	TopK       int
	MaxChars   int
}

// New creates a client with the given result and length limits. Zero values
// fall back to DefaultTopK and DefaultMaxChars.
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

// Invoke returns "Page: <title>\nSummary: <extract>" blocks for the top
// results, cut to MaxChars.
func (c *Client) Invoke(ctx context.Context, query string) (string, error) {
	pages, err := c.Lookup(ctx, query)
	if err != nil {
		return "", searchchat.NewToolFailure(ToolName, query, err)
	}
	if len(pages) == 0 {
		return "", searchchat.NewToolFailure(ToolName, query, searchchat.ErrNoResults)
	}

	blocks := make([]string, 0, len(pages))
	for _, p := range pages {
		blocks = append(blocks, fmt.Sprintf("Page: %s\nSummary: %s", p.Title, p.Summary))
	}
	return searchchat.Truncate(strings.Join(blocks, "\n\n"), c.MaxChars), nil
}

// Lookup searches for query and fetches the intro of each of the top pages.
// Pages without an extract are skipped.
func (c *Client) Lookup(ctx context.Context, query string) ([]Page, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query is empty")
	}
	query = searchchat.Truncate(query, maxQueryLength)

	body, err := c.get(ctx, url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {fmt.Sprint(c.TopK)},
		"srprop":   {""},
	})
	if err != nil {
		return nil, err
	}

	var pages []Page
	for _, title := range gjson.GetBytes(body, "query.search.#.title").Array() {
		page, err := c.page(ctx, title.String())
		if err != nil {
			return nil, err
		}
		if page.Summary == "" {
			continue
		}
		pages = append(pages, page)
	}
	return pages, nil
}

func (c *Client) page(ctx context.Context, title string) (Page, error) {
	body, err := c.get(ctx, url.Values{
		"action":      {"query"},
		"prop":        {"extracts"},
		"exintro":     {"1"},
		"explaintext": {"1"},
		"redirects":   {"1"},
		"titles":      {title},
	})
	if err != nil {
		return Page{}, err
	}

	page := gjson.GetBytes(body, "query.pages.0")
	if page.Get("missing").Bool() {
		return Page{Title: title}, nil
	}
	resolved := page.Get("title").String()
	if resolved == "" {
		resolved = title
	}
	return Page{
		Title:   resolved,
		Summary: strings.TrimSpace(page.Get("extract").String()),
	}, nil
}

func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	params.Set("format", "json")
	params.Set("formatversion", "2")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wikipedia http %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("wikipedia returned invalid JSON")
	}
	if info := gjson.GetBytes(body, "error.info"); info.Exists() {
		return nil, fmt.Errorf("wikipedia api error: %s", info.String())
	}
	return body, nil
}
