package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/rshade/batchrun/internal/ingest"
	"github.com/rshade/batchrun/internal/logging"
	"github.com/rshade/batchrun/internal/retry"
)

// DefaultTimeout bounds a single request when none is configured.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response ends up in the error.
const maxErrorBody = 512

// ErrEmptyEndpoint is returned by NewHTTPProcessor for a blank endpoint.
var ErrEmptyEndpoint = errors.New("remote endpoint is required")

// Response is the decoded reply for one record.
type Response struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body,omitempty"`
}

// Option configures an HTTPProcessor.
type Option func(*HTTPProcessor)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *HTTPProcessor) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithHeaders adds static request headers.
func WithHeaders(h map[string]string) Option {
	return func(p *HTTPProcessor) {
		for k, v := range h {
			p.headers.Set(k, v)
		}
	}
}

// WithHTTPClient replaces the pooled default client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *HTTPProcessor) {
		if c != nil {
			p.client = c
		}
	}
}

// HTTPProcessor sends each record to an HTTP endpoint.
type HTTPProcessor struct {
	endpoint string
	client   *http.Client
	headers  http.Header
	timeout  time.Duration
}

// NewHTTPProcessor creates a processor posting to endpoint.
func NewHTTPProcessor(endpoint string, opts ...Option) (*HTTPProcessor, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, ErrEmptyEndpoint
	}
	p := &HTTPProcessor{
		endpoint: endpoint,
		client:   cleanhttp.DefaultPooledClient(),
		headers:  http.Header{},
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Endpoint returns the target URL.
func (p *HTTPProcessor) Endpoint() string { return p.endpoint }

// Process posts rec and returns the decoded response.
func (p *HTTPProcessor) Process(ctx context.Context, rec ingest.Record, index int) (Response, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return Response{}, fmt.Errorf("encoding record %d: %w", index, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("building request: %w", err)
	}
	req.Header = p.headers.Clone()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	log := logging.FromContext(ctx)
	start := time.Now()

	resp, err := p.client.Do(req)
	if err != nil {
		// The caller gave up; surface that instead of asking for a retry.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Response{}, ctxErr
		}
		log.Debug().Err(err).Int("index", index).Msg("request failed")
		return Response{}, retry.Transient(fmt.Errorf("posting record %d: %w", index, err))
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, retry.Transient(fmt.Errorf("reading response for record %d: %w", index, err))
	}

	log.Debug().
		Int("index", index).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("record posted")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Response{}, retry.Service(resp.StatusCode, errorMessage(resp.Status, payload))
	}

	out := Response{StatusCode: resp.StatusCode}
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return out, nil
	}
	if !json.Valid(trimmed) {
		return Response{}, fmt.Errorf("record %d: response is not valid JSON", index)
	}
	out.Body = json.RawMessage(trimmed)
	return out, nil
}

func errorMessage(status string, payload []byte) string {
	msg := strings.TrimSpace(string(payload))
	if msg == "" {
		return status
	}
	if len(msg) > maxErrorBody {
		// Never cut inside a multi-byte rune.
		cut := maxErrorBody
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut] + "..."
	}
	return status + ": " + msg
}

// EchoProcessor returns every record unchanged.
type EchoProcessor struct{}

// Process implements batch.ItemProcessor.
func (EchoProcessor) Process(_ context.Context, rec ingest.Record, _ int) (ingest.Record, error) {
	return rec, nil
}
