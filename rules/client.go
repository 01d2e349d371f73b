/*
client.go - HTTP client for the remote rules service

PURPOSE:
  Executes batched calculations: builds the wire document for a
  BatchRequest, posts it, and parses the result into a BatchResponse.
  The client owns the failure policy: a dead service degrades the batch
  to unavailable, it never propagates a transport error to calculators.

FAILURE POLICY:
  - network error / timeout / non-2xx  -> StatusUnavailable
  - undecodable or entity-mismatched   -> StatusMalformed
  Both are logged and counted; neither is an error to the caller.

CONCURRENCY:
  Calculate is safe for concurrent use. Identical requests (same
  fingerprint) within the TTL window are answered from the cache, and
  concurrent identical requests coalesce onto one in-flight call via
  singleflight, which is what guarantees at most one outbound call per
  (unit type, period) group per screen evaluation.
*/
package rules

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const defaultTimeout = 20 * time.Second

// Client talks to the remote rules service. Construct with NewClient;
// the zero value is not usable.
type Client struct {
	url        string
	token      string
	httpClient *http.Client
	logger     *zap.Logger

	ttl      time.Duration
	mu       sync.Mutex
	cache    map[string]cacheEntry
	inFlight singleflight.Group

	now func() time.Time
}

type cacheEntry struct {
	resp    *BatchResponse
	expires time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (timeouts, transport).
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.httpClient = hc } }

// WithBearerToken authenticates requests against the service's private API.
func WithBearerToken(token string) Option { return func(c *Client) { c.token = token } }

// WithCacheTTL sets how long identical batches are answered from cache.
// Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option { return func(c *Client) { c.ttl = ttl } }

// WithLogger attaches a logger; the default is a nop logger.
func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.logger = l } }

func withClock(now func() time.Time) Option { return func(c *Client) { c.now = now } }

// NewClient builds a client for the service at url.
func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:        url,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zap.NewNop(),
		ttl:        time.Minute,
		cache:      map[string]cacheEntry{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Calculate executes one batch. It always returns a usable response:
// failures come back as StatusUnavailable or StatusMalformed so each
// affected calculator can resolve to an ineligibility reason instead of
// the run aborting.
func (c *Client) Calculate(ctx context.Context, req *BatchRequest) *BatchResponse {
	fingerprint := req.Fingerprint()

	if resp, ok := c.cached(fingerprint); ok {
		cacheHits.Inc()
		return resp
	}

	v, err, shared := c.inFlight.Do(fingerprint, func() (any, error) {
		// Double-check under singleflight: a concurrent caller may have
		// populated the cache while we waited.
		if resp, ok := c.cached(fingerprint); ok {
			return resp, nil
		}
		resp := c.post(ctx, req)
		if resp.Status == StatusOK {
			c.store(fingerprint, resp)
		}
		return resp, nil
	})
	if shared {
		coalesced.Inc()
	}
	if err != nil {
		// Do never returns an error here; guard anyway.
		return NewUnavailable(req.Key, req.Screen.ID)
	}
	return v.(*BatchResponse)
}

func (c *Client) post(ctx context.Context, req *BatchRequest) *BatchResponse {
	wire, err := buildWire(req)
	if err != nil {
		c.logger.Warn("rules: request build failed",
			zap.String("batch", req.Key.String()), zap.Error(err))
		remoteCalls.WithLabelValues(outcomeFailed).Inc()
		return NewUnavailable(req.Key, req.Screen.ID)
	}

	body, err := json.Marshal(wire)
	if err != nil {
		remoteCalls.WithLabelValues(outcomeFailed).Inc()
		return NewUnavailable(req.Key, req.Screen.ID)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		remoteCalls.WithLabelValues(outcomeFailed).Inc()
		return NewUnavailable(req.Key, req.Screen.ID)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	started := c.now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("rules: remote call failed",
			zap.String("batch", req.Key.String()),
			zap.Duration("elapsed", c.now().Sub(started)),
			zap.Error(err))
		remoteCalls.WithLabelValues(outcomeFailed).Inc()
		return NewUnavailable(req.Key, req.Screen.ID)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		c.logger.Warn("rules: remote call non-2xx",
			zap.String("batch", req.Key.String()),
			zap.Int("status", httpResp.StatusCode))
		remoteCalls.WithLabelValues(outcomeFailed).Inc()
		return NewUnavailable(req.Key, req.Screen.ID)
	}

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		remoteCalls.WithLabelValues(outcomeFailed).Inc()
		return NewUnavailable(req.Key, req.Screen.ID)
	}

	resp, err := parseResponse(req, raw)
	if err != nil {
		c.logger.Warn("rules: response rejected",
			zap.String("batch", req.Key.String()), zap.Error(err))
		remoteCalls.WithLabelValues(outcomeMalformed).Inc()
		if errors.Is(err, ErrMalformedResponse) {
			return NewMalformed(req.Key, req.Screen.ID)
		}
		return NewUnavailable(req.Key, req.Screen.ID)
	}

	c.logger.Debug("rules: batch complete",
		zap.String("batch", req.Key.String()),
		zap.Int("inputs", len(req.Inputs)),
		zap.Int("outputs", len(req.Outputs)),
		zap.Duration("elapsed", c.now().Sub(started)))
	remoteCalls.WithLabelValues(outcomeOK).Inc()
	return resp
}

func (c *Client) cached(fingerprint string) (*BatchResponse, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[fingerprint]
	if !ok || c.now().After(entry.expires) {
		delete(c.cache, fingerprint)
		return nil, false
	}
	return entry.resp, true
}

func (c *Client) store(fingerprint string, resp *BatchResponse) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[fingerprint] = cacheEntry{resp: resp, expires: c.now().Add(c.ttl)}
}

// String implements fmt.Stringer for log context.
func (c *Client) String() string { return fmt.Sprintf("rules.Client(%s)", c.url) }
