package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned when the breaker is open and rejects the request.
var ErrCircuitOpen = gobreaker.ErrOpenState

// ErrTooManyRequests is returned while half-open once MaxRequests trial
// requests are already in flight.
var ErrTooManyRequests = gobreaker.ErrTooManyRequests

// Doer executes HTTP requests. Both *Client and *CircuitBreakerClient
// satisfy it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// CircuitBreakerConfig holds configuration for the circuit breaker.
type CircuitBreakerConfig struct {
	// Name labels the breaker in metrics and logs.
	Name string
	// MaxRequests is the number of trial requests let through while half-open.
	MaxRequests uint32
	// Interval clears the closed-state counts periodically; 0 never clears.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration
	// FailureRatio and MinRequests decide when the breaker trips.
	FailureRatio float64
	MinRequests  uint32
}

// DefaultCircuitBreakerConfig returns the defaults used for the commerce API.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

func (c CircuitBreakerConfig) readyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests < c.MinRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= c.FailureRatio
}

// healthy reports whether an outcome counts as a success for the breaker.
// A cancelled request is not held against the API.
func healthy(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

// FallbackFunc answers in place of a rejected request.
type FallbackFunc func(ctx context.Context, err error) (*http.Response, error)

// RespondUnavailable answers a rejected request with a 503 carrying message
// in the API error envelope, so callers see it like any server failure.
func RespondUnavailable(message string) FallbackFunc {
	return func(context.Context, error) (*http.Response, error) {
		body, err := json.Marshal(ErrorBody{Message: message})
		if err != nil {
			return nil, fmt.Errorf("encode fallback body: %w", err)
		}
		return &http.Response{
			Status:        "503 Service Unavailable",
			StatusCode:    http.StatusServiceUnavailable,
			Header:        http.Header{"Content-Type": []string{"application/json"}},
			Body:          io.NopCloser(bytes.NewReader(body)),
			ContentLength: int64(len(body)),
		}, nil
	}
}

// CircuitBreakerClient guards a Client with a gobreaker breaker.
//
// 5xx responses count as failures. Their body is parsed with
// ParseResponseError and returned as the error, so the server message
// survives; the response itself is closed.
type CircuitBreakerClient struct {
	name     string
	client   *Client
	breaker  *gobreaker.CircuitBreaker[*http.Response]
	logger   *slog.Logger
	fallback FallbackFunc
}

// NewCircuitBreakerClient wraps client with a breaker built from cfg.
func NewCircuitBreakerClient(client *Client, cfg CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerClient {
	c := &CircuitBreakerClient{name: cfg.Name, client: client, logger: logger}
	c.breaker = gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:          cfg.Name,
		MaxRequests:   cfg.MaxRequests,
		Interval:      cfg.Interval,
		Timeout:       cfg.Timeout,
		ReadyToTrip:   cfg.readyToTrip,
		IsSuccessful:  healthy,
		OnStateChange: c.stateChanged,
	})
	setBreakerState(cfg.Name, gobreaker.StateClosed)
	return c
}

func (c *CircuitBreakerClient) stateChanged(name string, from, to gobreaker.State) {
	c.logger.Warn("circuit breaker state change",
		slog.String("breaker", name),
		slog.String("from", from.String()),
		slog.String("to", to.String()),
	)
	setBreakerState(name, to)
}

// WithFallback returns a copy that calls fn when the breaker rejects a
// request.
func (c *CircuitBreakerClient) WithFallback(fn FallbackFunc) *CircuitBreakerClient {
	cpy := *c
	cpy.fallback = fn
	return &cpy
}

// Do executes req through the breaker.
func (c *CircuitBreakerClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.client.Do(ctx, req)
		switch {
		case err != nil:
			return nil, err
		case resp.StatusCode >= http.StatusInternalServerError:
			return nil, ParseResponseError(resp, c.name)
		default:
			return resp, nil
		}
	})

	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTooManyRequests) {
		breakerRejections.WithLabelValues(c.name).Inc()
		if c.fallback != nil {
			c.logger.WarnContext(ctx, "circuit breaker open, invoking fallback",
				slog.String("breaker", c.name),
			)
			return c.fallback(ctx, err)
		}
	}
	return resp, err
}

// State returns the current state of the circuit breaker.
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.breaker.State()
}
