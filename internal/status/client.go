package status

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/figaro/internal/auth"
	"github.com/vovakirdan/figaro/internal/metrics"
	"github.com/vovakirdan/figaro/internal/model"
	"github.com/vovakirdan/figaro/internal/store"
)

// ErrDisabled is returned when no status endpoint is configured.
var ErrDisabled = errors.New("status endpoint not configured")

const maxErrorBody = 512

// HTTPError is returned when the endpoint answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status endpoint returned %d", e.StatusCode)
	}
	return fmt.Sprintf("status endpoint returned %d: %s", e.StatusCode, e.Body)
}

// Client posts status changes to the upstream endpoint.
type Client struct {
	url      string
	http     *http.Client
	jwt      *auth.JWTConfig
	statuses store.StatusStore
	metrics  metrics.Collector
	log      *zerolog.Logger
}

// Options configures a Client. Only URL is required.
type Options struct {
	URL      string
	Timeout  time.Duration
	JWT      *auth.JWTConfig
	Statuses store.StatusStore
	Metrics  metrics.Collector
	HTTP     *http.Client
}

// NewClient builds a status client.
func NewClient(opts Options, logger *zerolog.Logger) *Client {
	httpClient := opts.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	collector := opts.Metrics
	if collector == nil {
		collector = metrics.Nop()
	}
	return &Client{
		url:      opts.URL,
		http:     httpClient,
		jwt:      opts.JWT,
		statuses: opts.Statuses,
		metrics:  collector,
		log:      logger,
	}
}

// Submit sends exactly one POST with the status change. It never retries.
func (c *Client) Submit(ctx context.Context, change model.StatusChange) error {
	if err := change.Validate(); err != nil {
		c.metrics.IncStatus(metrics.ResultRejected)
		return err
	}
	if c.url == "" {
		c.metrics.IncStatus(metrics.ResultRejected)
		return ErrDisabled
	}

	if err := c.post(ctx, change); err != nil {
		c.metrics.IncStatus(metrics.ResultFailed)
		c.log.Warn().Err(err).Str("channel_id", change.ChannelID).Bool("ok", change.Ok).Msg("status submission failed")
		return err
	}
	c.metrics.IncStatus(metrics.ResultOK)
	c.log.Info().Str("channel_id", change.ChannelID).Bool("ok", change.Ok).Msg("status submitted")

	if c.statuses != nil {
		err := c.statuses.SaveStatus(ctx, store.ChannelStatus{
			ChannelID: change.ChannelID,
			Ok:        change.Ok,
			UpdatedAt: time.Now(),
		})
		if err != nil {
			// The endpoint accepted the change; the local record is best effort.
			c.log.Warn().Err(err).Str("channel_id", change.ChannelID).Msg("failed to record status")
		}
	}
	return nil
}

func (c *Client) post(ctx context.Context, change model.StatusChange) error {
	body, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.jwt.Enabled() {
		token, err := auth.Issue(c.jwt, change.ChannelID)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
