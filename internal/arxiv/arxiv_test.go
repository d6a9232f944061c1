package arxiv

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/longkey1/searchchat/internal/searchchat"
)

const attentionFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title type="html">ArXiv Query</title>
  <entry>
    <id>http://arxiv.org/abs/1706.03762v7</id>
    <published>2017-06-12T17:57:34Z</published>
    <title>Attention Is All You
      Need</title>
    <summary>  The dominant sequence transduction models are based on complex recurrent or
convolutional neural networks in an encoder-decoder configuration.</summary>
    <author><name>Ashish Vaswani</name></author>
    <author><name>Noam Shazeer</name></author>
  </entry>
</feed>`

const emptyFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom"><title>ArXiv Query</title></feed>`

const errorFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/api/errors#incorrect_id_format_for_1234</id>
    <title>Error</title>
    <summary>incorrect id format for 1234</summary>
  </entry>
</feed>`

func serve(t *testing.T, body string, check func(r *http.Request)) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/atom+xml")
		w.Write([]byte(body))
	}))
}

func newTestClient(endpoint string, maxChars int) *Client {
	c := New(1, maxChars)
	c.Endpoint = endpoint
	return c
}

func TestInvoke(t *testing.T) {
	srv := serve(t, attentionFeed, func(r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("search_query"); got != "all:attention transformers" {
			t.Errorf("search_query = %q", got)
		}
		if got := q.Get("max_results"); got != "1" {
			t.Errorf("max_results = %q", got)
		}
	})
	defer srv.Close()

	got, err := newTestClient(srv.URL, 1000).Invoke(context.Background(), "attention: transformers")
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	want := "Published: 2017-06-12\nTitle: Attention Is All You Need\nAuthors: Ashish Vaswani, Noam Shazeer\n" +
		"Summary: The dominant sequence transduction models are based on complex recurrent or convolutional neural networks in an encoder-decoder configuration."
	if got != want {
		t.Errorf("Invoke() =\n%q\nwant\n%q", got, want)
	}
}

func TestInvokeTruncates(t *testing.T) {
	srv := serve(t, attentionFeed, nil)
	defer srv.Close()

	c := New(0, 0)
	c.Endpoint = srv.URL
	got, err := c.Invoke(context.Background(), "attention")
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if n := len([]rune(got)); n != DefaultMaxChars {
		t.Errorf("len(Invoke()) = %d, want %d", n, DefaultMaxChars)
	}
	if !strings.HasPrefix(got, "Published: 2017-06-12\nTitle: Attention Is All You Need") {
		t.Errorf("Invoke() = %q", got)
	}
}

func TestIDLookup(t *testing.T) {
	srv := serve(t, attentionFeed, func(r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("id_list"); got != "1706.03762" {
			t.Errorf("id_list = %q", got)
		}
		if q.Get("search_query") != "" {
			t.Errorf("search_query set for an id lookup")
		}
	})
	defer srv.Close()

	if _, err := newTestClient(srv.URL, 200).Invoke(context.Background(), "1706.03762"); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
}

func TestIdentifiers(t *testing.T) {
	tests := []struct {
		query string
		ok    bool
	}{
		{"1706.03762", true},
		{"1706.03762v7 2107.05580", true},
		{"hep-th/9901001", true},
		{"math.GT/0309136", true},
		{"attention is all you need", false},
		{"1706.03762 transformers", false},
	}
	for _, tt := range tests {
		if _, ok := identifiers(tt.query); ok != tt.ok {
			t.Errorf("identifiers(%q) ok = %v, want %v", tt.query, ok, tt.ok)
		}
	}
}

func TestInvokeFailures(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  int
		query   string
		wantErr error
		wantMsg string
	}{
		{name: "no results", body: emptyFeed, status: http.StatusOK, query: "qwxzv", wantErr: searchchat.ErrNoResults},
		{name: "api error", body: errorFeed, status: http.StatusOK, query: "1234", wantMsg: "incorrect id format"},
		{name: "http error", body: "", status: http.StatusServiceUnavailable, query: "x", wantMsg: "arxiv http 503"},
		{name: "bad xml", body: "<feed><entry>", status: http.StatusOK, query: "x", wantMsg: "decode"},
		{name: "empty query", body: emptyFeed, status: http.StatusOK, query: "  ", wantMsg: "query is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL, 200).Invoke(context.Background(), tt.query)
			var tf *searchchat.ToolFailure
			if !errors.As(err, &tf) || tf.Tool != ToolName {
				t.Fatalf("Invoke() error = %v, want *ToolFailure", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Invoke() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Invoke() error = %v, want it to mention %q", err, tt.wantMsg)
			}
		})
	}
}
