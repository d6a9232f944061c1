package groq

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/longkey1/searchchat/internal/searchchat"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	ProviderName      = "groq"
	DefaultBaseURL    = "https://api.groq.com/openai/v1"
	DefaultModel      = "llama3-8b-8192"
	DefaultMaxRetries = 2
)

// Config holds what a Client needs to talk to Groq.
type Config struct {
	BaseURL    string
	Token      searchchat.Credential
	Model      string
	MaxRetries int
	HTTPClient *http.Client // nil uses the SDK default
}

// Client implements searchchat.Model on Groq's OpenAI-compatible API.
type Client struct {
	client openai.Client
	model  string
}

// NewClient creates a client. It fails with searchchat.ErrCredential for an
// empty token and performs no network activity.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Token.Validate(); err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}

	opts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(cfg.Token.Reveal()),
		option.WithMaxRetries(retries),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Client{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

// Model returns the model name requests are sent to.
func (c *Client) Model() string {
	return c.model
}

// Stream sends req as a streaming chat completion and forwards each content
// delta to ch. ch is closed when Stream returns.
func (c *Client) Stream(ctx context.Context, req searchchat.Request, ch chan<- searchchat.Chunk) error {
	defer close(ch)

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    toParams(req),
		Temperature: openai.Float(0),
	}
	if len(req.Stop) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: req.Stop}
	}

	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		select {
		case ch <- searchchat.Chunk{Delta: delta}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := stream.Err(); err != nil {
		return classify(ctx, err)
	}
	return nil
}

// Verify performs a cheap authenticated call so a bad key is reported
// before the first question.
func (c *Client) Verify(ctx context.Context) error {
	if _, err := c.client.Models.List(ctx); err != nil {
		return classify(ctx, err)
	}
	return nil
}

// ListModels returns the model IDs available to the credential, sorted.
func (c *Client) ListModels(ctx context.Context) ([]searchchat.ModelInfo, error) {
	page, err := c.client.Models.List(ctx)
	if err != nil {
		return nil, classify(ctx, err)
	}

	models := make([]searchchat.ModelInfo, 0, len(page.Data))
	for _, m := range page.Data {
		models = append(models, searchchat.ModelInfo{
			ID:          m.ID,
			Description: m.OwnedBy,
			IsDefault:   m.ID == DefaultModel,
		})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

func toParams(req searchchat.Request) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case searchchat.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}
	return msgs
}

// classify maps SDK and transport errors onto searchchat.ModelError.
// Context errors pass through unchanged.
func classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &searchchat.ModelError{
			Kind:       kindForStatus(apiErr.StatusCode),
			StatusCode: apiErr.StatusCode,
			Message:    apiMessage(apiErr),
			Err:        err,
		}
	}
	return &searchchat.ModelError{
		Kind:    searchchat.KindNetwork,
		Message: fmt.Sprintf("request to %s failed", ProviderName),
		Err:     err,
	}
}

func kindForStatus(status int) searchchat.ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return searchchat.KindAuthentication
	case status == http.StatusTooManyRequests:
		return searchchat.KindRateLimit
	case status >= 500:
		return searchchat.KindServiceUnavailable
	default:
		return searchchat.KindUnknown
	}
}

func apiMessage(apiErr *openai.Error) string {
	if msg := strings.TrimSpace(apiErr.Message); msg != "" {
		return msg
	}
	return http.StatusText(apiErr.StatusCode)
}
