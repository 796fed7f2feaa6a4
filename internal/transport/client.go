// Package transport is the single outbound channel to the remote authority.
// It attaches the bearer credential, normalizes the response envelope, and
// raises a distinguished unauthenticated signal on credential rejection.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"jackbear/internal/platform/metrics"
	dErrors "jackbear/pkg/domain-errors"
)

// CredentialSource supplies the current bearer credential, if any.
type CredentialSource interface {
	Token() (string, bool)
}

// Client issues requests against the remote authority. All engine components
// read and write through it and never construct requests themselves.
type Client struct {
	baseURL string
	http    *http.Client
	creds   CredentialSource
	gate    *Gate
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer

	onUnauthenticated func()
}

const defaultTimeout = 10 * time.Second

// Option configures a Client.
type Option func(*Client)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics attaches engine metrics to the client.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithHTTPClient overrides the underlying HTTP client. Used by tests to point
// at an httptest server without a real timeout.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTimeout overrides the per-call timeout when greater than zero.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithUnauthenticatedHandler registers the callback fired exactly once per
// credential rejection. The engine uses it to force a logout and tear down
// all dependent stores.
func WithUnauthenticatedHandler(fn func()) Option {
	return func(c *Client) {
		c.onUnauthenticated = fn
	}
}

// New constructs a Client for the given authority base URL.
func New(baseURL string, creds CredentialSource, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}
	if creds == nil {
		return nil, fmt.Errorf("credential source is required")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		creds:   creds,
		gate:    NewGate(),
		logger:  slog.Default(),
		tracer:  otel.Tracer("jackbear/transport"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// ResetGate re-opens the channel after a new credential is installed.
func (c *Client) ResetGate() {
	c.gate.Reset()
}

// Get issues a GET and decodes the envelope payload into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST with a JSON body and decodes the envelope payload into
// out. Both body and out may be nil.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Do executes one round-trip against the authority. A transport-level failure
// is retried once and then surfaced as a network error; HTTP-level failures
// are mapped onto the domain error taxonomy and never retried.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	// Credential exchange must stay reachable after a teardown, otherwise a
	// tripped gate would lock the user out of logging back in.
	if c.gate.IsOpen() && !isCredentialExchange(path) {
		return dErrors.New(dErrors.CodeUnauthenticated, "")
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "encode request body")
		}
	}

	ctx, span := c.tracer.Start(ctx, "authority.request",
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", routeLabel(path)),
		))
	defer span.End()

	resp, raw, err := c.attempt(ctx, method, path, payload)
	if err != nil {
		// One automatic retry on transport failure, never more.
		if ctx.Err() == nil {
			if c.metrics != nil {
				c.metrics.TransportRetries.Inc()
			}
			c.logger.WarnContext(ctx, "transport retry", "method", method, "path", routeLabel(path), "error", err)
			resp, raw, err = c.attempt(ctx, method, path, payload)
		}
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			c.count(path, "network_error")
			return dErrors.Wrap(err, dErrors.CodeNetwork, "")
		}
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	env := Envelope{Success: resp.StatusCode < 300}
	if len(raw) > 0 {
		// Responses without a body (e.g. cancel) are fine; a malformed body
		// on a 2xx is not.
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			c.count(path, "bad_envelope")
			span.SetStatus(codes.Error, "malformed envelope")
			return dErrors.Wrap(err, dErrors.CodeInternal, "malformed response envelope")
		}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		span.SetStatus(codes.Error, "credential rejected")
		// A 401 from the login or register endpoints is wrong credentials,
		// not a dead session; only authenticated routes trip the gate.
		if isCredentialExchange(path) {
			c.count(path, "invalid_credentials")
			return dErrors.New(dErrors.CodeValidation, env.Message)
		}
		c.count(path, "unauthenticated")
		if c.metrics != nil {
			c.metrics.AuthFailures.Inc()
		}
		if c.gate.Trip() && c.onUnauthenticated != nil {
			c.onUnauthenticated()
		}
		return dErrors.New(dErrors.CodeUnauthenticated, env.Message)
	}

	if resp.StatusCode >= 300 {
		code := codeForStatus(resp.StatusCode)
		c.count(path, string(code))
		span.SetStatus(codes.Error, env.Message)
		return dErrors.New(code, env.Message)
	}

	if out != nil {
		if err := env.Decode(out); err != nil {
			c.count(path, "bad_payload")
			span.SetStatus(codes.Error, "malformed payload")
			return dErrors.Wrap(err, dErrors.CodeInternal, "malformed response payload")
		}
	}

	c.count(path, "ok")
	return nil
}

func (c *Client) attempt(ctx context.Context, method, path string, payload []byte) (*http.Response, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, ok := c.creds.Token(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	return resp, raw, nil
}

func (c *Client) count(path, outcome string) {
	if c.metrics != nil {
		c.metrics.TransportRequests.WithLabelValues(routeLabel(path), outcome).Inc()
	}
}

// isCredentialExchange reports whether path establishes a brand-new
// credential rather than using an existing one.
func isCredentialExchange(path string) bool {
	return strings.HasPrefix(path, "/auth/login") || strings.HasPrefix(path, "/auth/register")
}

// codeForStatus maps authority HTTP statuses onto the domain taxonomy.
func codeForStatus(status int) dErrors.Code {
	switch status {
	case http.StatusBadRequest, http.StatusForbidden, http.StatusUnprocessableEntity:
		return dErrors.CodeValidation
	case http.StatusPaymentRequired:
		return dErrors.CodeInsufficientCredits
	case http.StatusNotFound:
		return dErrors.CodeNotFound
	case http.StatusConflict:
		return dErrors.CodeInvalidState
	case http.StatusBadGateway:
		return dErrors.CodeGateway
	case http.StatusServiceUnavailable:
		return dErrors.CodeUnavailable
	default:
		return dErrors.CodeInternal
	}
}

// routeLabel strips per-entity id segments so metric cardinality stays flat.
func routeLabel(path string) string {
	segs := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(segs) > 2 {
		segs = segs[:2]
	}
	if i := strings.IndexByte(segs[len(segs)-1], '?'); i >= 0 {
		segs[len(segs)-1] = segs[len(segs)-1][:i]
	}
	return "/" + strings.Join(segs, "/")
}
