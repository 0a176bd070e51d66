// Package remote is the JSON-over-HTTP transport shared by the model
// capabilities served out of process (taggers, translators, masked LMs).
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	augotel "github.com/fractal-lba/textaug/pkg/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// RPS limits outgoing requests per second; 0 disables limiting.
	RPS   float64
	Burst int
	// Model is recorded on spans and sent by callers that need it.
	Model string
}

// Client posts JSON documents to a model server.
type Client struct {
	base    string
	model   string
	hc      *http.Client
	limiter *rate.Limiter
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("model server returned %d: %s", e.Status, e.Body)
}

// Temporary reports whether the server asked the caller to back off or failed.
func (e *StatusError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status/100 == 5
}

// New creates a Client. BaseURL is required.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("remote: base url is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		base:  base,
		model: opts.Model,
		hc:    &http.Client{Timeout: timeout},
	}
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = int(opts.RPS*2) + 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}
	return c, nil
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string { return c.base }

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// PostJSON sends in to base+path and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, span := augotel.StartSpan(ctx, "remote.post", augotel.ModelAttributes(c.model, c.base+path, len(body))...)
	defer span.End()

	if err := c.wait(ctx); err != nil {
		augotel.RecordError(span, err)
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		augotel.RecordError(span, err)
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		augotel.RecordError(span, err)
		return err
	}
	defer resp.Body.Close()

	return c.decode(resp, out, span)
}

// GetJSON fetches base+path and decodes the response into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	ctx, span := augotel.StartSpan(ctx, "remote.get", augotel.ModelAttributes(c.model, c.base+path, 0)...)
	defer span.End()

	if err := c.wait(ctx); err != nil {
		augotel.RecordError(span, err)
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		augotel.RecordError(span, err)
		return err
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		augotel.RecordError(span, err)
		return err
	}
	defer resp.Body.Close()

	return c.decode(resp, out, span)
}

// Health checks that the server answers GET /health with a 2xx status.
func (c *Client) Health(ctx context.Context) error {
	if err := c.GetJSON(ctx, "/health", nil); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *Client) decode(resp *http.Response, out any, span trace.Span) error {
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
		augotel.RecordError(span, err)
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<20)).Decode(out); err != nil {
		err = fmt.Errorf("failed to decode response: %w", err)
		augotel.RecordError(span, err)
		return err
	}
	return nil
}
