// Package n8n proxies diffs to the n8n automation workflows that draft commit
// messages and review code.
package n8n

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"resty.dev/v3"

	"github.com/emilythestrangee/git-forum/backend/internal/metrics"
)

const (
	DefaultTimeout  = 30 * time.Second
	DefaultLanguage = "javascript"
	MaxDiffLines    = 2000

	maxBodyExcerpt = 500
	truncateMarker = "\n... (Diff truncated)"
)

var (
	// ErrNotConfigured means the workflow URL is unset.
	ErrNotConfigured = errors.New("n8n workflow not configured")
	ErrUpstream      = errors.New("n8n upstream error")
)

type Config struct {
	CommitGenURL  string
	CodeReviewURL string
	SecretKey     string
	Timeout       time.Duration
}

// Review is the outcome of the code review workflow.
type Review struct {
	Issues   []json.RawMessage `json:"issues"`
	Markdown string            `json:"markdown"`
}

type envelope struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data"`
	Markdown string          `json:"markdown"`
	Error    string          `json:"error"`
	Message  string          `json:"message"`
}

type Client struct {
	client *resty.Client
	cfg    Config
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-auth-token", cfg.SecretKey)

	return &Client{client: client, cfg: cfg}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// GenerateCommitMessage asks the commit workflow for a message describing diff.
func (c *Client) GenerateCommitMessage(ctx context.Context, filename, diff string) (string, error) {
	env, err := c.post(ctx, "commit_gen", c.cfg.CommitGenURL, map[string]string{
		"filename": filename,
		"diff":     diff,
	})
	if err != nil {
		return "", err
	}

	var data struct {
		CommitMessage string `json:"commit_message"`
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return "", fmt.Errorf("%w: decode commit message: %w", ErrUpstream, err)
		}
	}
	return data.CommitMessage, nil
}

// ReviewCode runs the review workflow. An empty lang means javascript.
func (c *Client) ReviewCode(ctx context.Context, filename, diff, lang string) (Review, error) {
	if lang == "" {
		lang = DefaultLanguage
	}

	env, err := c.post(ctx, "code_review", c.cfg.CodeReviewURL, map[string]string{
		"filename": filename,
		"diff":     diff,
		"lang":     lang,
	})
	if err != nil {
		return Review{}, err
	}

	review := Review{Issues: []json.RawMessage{}, Markdown: env.Markdown}
	if len(env.Data) > 0 {
		var data struct {
			Issues []json.RawMessage `json:"issues"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return Review{}, fmt.Errorf("%w: decode review: %w", ErrUpstream, err)
		}
		if data.Issues != nil {
			review.Issues = data.Issues
		}
	}
	return review, nil
}

func (c *Client) post(ctx context.Context, workflow, url string, payload any) (envelope, error) {
	if url == "" {
		return envelope{}, fmt.Errorf("%w: %s", ErrNotConfigured, workflow)
	}

	res, err := c.client.R().
		WithContext(ctx).
		SetBody(payload).
		Post(url)
	if err != nil {
		metrics.N8NRequests.WithLabelValues(workflow, "error").Inc()
		return envelope{}, fmt.Errorf("%w: %s: %w", ErrUpstream, workflow, err)
	}

	status := res.StatusCode()
	metrics.N8NRequests.WithLabelValues(workflow, strconv.Itoa(status)).Inc()

	body := res.Bytes()

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return envelope{}, fmt.Errorf("%w: %s returned non-JSON response (%d). Body: %s",
			ErrUpstream, workflow, status, excerpt(body))
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		if msg == "" {
			msg = "status " + strconv.Itoa(status)
		}
		return envelope{}, fmt.Errorf("%w: %s: %s", ErrUpstream, workflow, msg)
	}
	return env, nil
}

func excerpt(body []byte) string {
	if len(body) > maxBodyExcerpt {
		body = body[:maxBodyExcerpt]
	}
	return string(body)
}

// TruncateDiff keeps the first maxLines lines of diff.
func TruncateDiff(diff string, maxLines int) string {
	if diff == "" {
		return ""
	}
	lines := strings.Split(diff, "\n")
	if len(lines) <= maxLines {
		return diff
	}
	return strings.Join(lines[:maxLines], "\n") + truncateMarker
}
