package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// PushClientConfig holds configuration for the pushgateway HTTP client
type PushClientConfig struct {
	Timeout           time.Duration
	MaxRetries        int
	RetryWaitMin      time.Duration
	RetryWaitMax      time.Duration
	RateLimit         float64 // pushes per second
	CircuitBreakerMax int     // consecutive failures before pushes are refused
}

// DefaultPushClientConfig returns recommended defaults
func DefaultPushClientConfig() PushClientConfig {
	return PushClientConfig{
		Timeout:           10 * time.Second,
		MaxRetries:        3,
		RetryWaitMin:      200 * time.Millisecond,
		RetryWaitMax:      5 * time.Second,
		RateLimit:         1,
		CircuitBreakerMax: 5,
	}
}

// PushClient retries failed pushes, spaces them out and stops trying after
// repeated failures until one succeeds again.
type PushClient struct {
	client            *retryablehttp.Client
	limiter           *rate.Limiter
	circuitBreakerMax int

	mu                sync.Mutex
	consecutiveErrors int
	lastError         error
}

// NewPushClient creates a pushgateway client
func NewPushClient(cfg PushClientConfig) *PushClient {
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.CheckRetry = retryPolicy
	retryClient.Logger = nil

	return &PushClient{
		client:            retryClient,
		limiter:           rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		circuitBreakerMax: cfg.CircuitBreakerMax,
	}
}

// Do implements push.HTTPDoer
func (c *PushClient) Do(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	open := c.circuitBreakerMax > 0 && c.consecutiveErrors >= c.circuitBreakerMax
	lastErr := c.lastError
	c.mu.Unlock()
	if open {
		return nil, fmt.Errorf("circuit breaker open: %w", lastErr)
	}

	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	retryReq, err := retryablehttp.FromRequest(req)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(retryReq)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.consecutiveErrors++
		c.lastError = err
		return nil, err
	}
	if resp.StatusCode < 500 {
		c.consecutiveErrors = 0
		c.lastError = nil
	}
	return resp, nil
}

// retryPolicy retries network errors, 429 and 5xx responses
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true, nil
	}
	return false, nil
}
