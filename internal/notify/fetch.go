// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/onair/internal/config"
	"github.com/tomtom215/onair/internal/logging"
	"github.com/tomtom215/onair/internal/metrics"
)

// maxResponseBody caps how much of a downstream response is kept.
const maxResponseBody = 64 << 10

// Outcome classifies a fetch result.
type Outcome int

const (
	// OutcomeSuccess is a 2xx response.
	OutcomeSuccess Outcome = iota
	// OutcomeTransportFailure covers timeouts, connection errors and non-2xx responses.
	OutcomeTransportFailure
	// OutcomeEntityMissing means the record the work referred to no longer exists.
	OutcomeEntityMissing
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTransportFailure:
		return "transport_failure"
	case OutcomeEntityMissing:
		return "entity_missing"
	default:
		return "unknown"
	}
}

// FailureKind narrows a transport failure.
type FailureKind string

const (
	KindNone        FailureKind = ""
	KindTimeout     FailureKind = "timeout"
	KindConnection  FailureKind = "connection"
	KindHTTPStatus  FailureKind = "http_status"
	KindCircuitOpen FailureKind = "circuit_open"
	KindRateLimited FailureKind = "rate_limited"
	KindRequest     FailureKind = "request"
)

// Request describes one outbound call.
type Request struct {
	// Target names the downstream for metrics, pacing and the circuit breaker.
	Target  string
	URL     string
	Method  string
	Body    []byte
	Headers http.Header
}

// Result is the tagged outcome of a fetch. Transport problems are reported
// here and never as an error.
type Result struct {
	Outcome    Outcome
	Kind       FailureKind
	StatusCode int
	Body       []byte
	Err        error
}

// OK reports whether the calling task should be considered successful.
func (r Result) OK() bool {
	return r.Outcome == OutcomeSuccess || r.Outcome == OutcomeEntityMissing
}

func (r Result) String() string {
	switch r.Outcome {
	case OutcomeTransportFailure:
		if r.Kind == KindHTTPStatus {
			return fmt.Sprintf("%s (%s %d)", r.Outcome, r.Kind, r.StatusCode)
		}
		return fmt.Sprintf("%s (%s: %v)", r.Outcome, r.Kind, r.Err)
	default:
		return r.Outcome.String()
	}
}

// EntityMissing is the result for work whose source record was deleted.
func EntityMissing() Result {
	return Result{Outcome: OutcomeEntityMissing}
}

// AssertionError is raised by test doubles to signal a broken test setup.
// Fetch never converts it into a failure result; it is returned unchanged.
type AssertionError struct {
	Msg string
}

func (e *AssertionError) Error() string {
	return "assertion failed: " + e.Msg
}

// requestError marks failures building the request itself.
type requestError struct{ err error }

func (e *requestError) Error() string { return "build request: " + e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

// statusError marks 5xx responses so they count against the breaker.
type statusError struct{ code int }

func (e *statusError) Error() string { return fmt.Sprintf("server returned %d", e.code) }

type response struct {
	status int
	body   []byte
}

type target struct {
	breaker *gobreaker.CircuitBreaker[*response]
	limiter *rate.Limiter
}

// Fetcher performs bounded outbound HTTP calls. Each target gets its own
// circuit breaker and rate limiter.
type Fetcher struct {
	client *http.Client
	cfg    config.OutboundConfig

	mu      sync.Mutex
	targets map[string]*target
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithTransport replaces the HTTP transport, mainly for tests.
func WithTransport(rt http.RoundTripper) FetcherOption {
	return func(f *Fetcher) { f.client.Transport = rt }
}

// NewFetcher creates a fetcher. A non-positive timeout falls back to 10s so
// no call can block indefinitely.
func NewFetcher(cfg config.OutboundConfig, opts ...FetcherOption) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	f := &Fetcher{
		client:  &http.Client{Timeout: cfg.Timeout},
		cfg:     cfg,
		targets: make(map[string]*target),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fetcher) target(name string) *target {
	f.mu.Lock()
	defer f.mu.Unlock()

	if t, ok := f.targets[name]; ok {
		return t
	}

	failures := f.cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	t := &target{
		breaker: gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    f.cfg.BreakerInterval,
			Timeout:     f.cfg.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			IsSuccessful: func(err error) bool {
				var reqErr *requestError
				var assertErr *AssertionError
				return err == nil || errors.As(err, &reqErr) || errors.As(err, &assertErr)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
				logging.Warn().
					Str("target", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("Outbound circuit breaker changed state")
			},
		}),
	}
	if f.cfg.RatePerSecond > 0 {
		burst := f.cfg.Burst
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(f.cfg.RatePerSecond), burst)
	}
	f.targets[name] = t
	return t
}

// Fetch performs req within the configured timeout.
//
// Every transport problem, including non-2xx responses, comes back as a
// Result with OutcomeTransportFailure. The returned error is non-nil only
// for an *AssertionError raised by the transport, which is passed through
// unmodified.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (Result, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if req.Target == "" {
		req.Target = "default"
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	start := time.Now()
	res, err := f.fetch(ctx, req)
	if err != nil {
		return Result{}, err
	}
	metrics.RecordOutbound(req.Target, outcomeLabel(res), time.Since(start))

	log := logging.Ctx(ctx).With().
		Str("target", req.Target).
		Str("method", req.Method).
		Str("url", req.URL).
		Logger()
	if res.Outcome == OutcomeSuccess {
		log.Info().Int("status", res.StatusCode).Msg("Outbound call succeeded")
	} else {
		log.Error().
			Err(res.Err).
			Str("kind", string(res.Kind)).
			Int("status", res.StatusCode).
			Bytes("body", res.Body).
			Msg("Outbound call failed")
	}
	return res, nil
}

func (f *Fetcher) fetch(ctx context.Context, req Request) (Result, error) {
	t := f.target(req.Target)

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return Result{Outcome: OutcomeTransportFailure, Kind: KindRateLimited, Err: err}, nil
		}
	}

	resp, err := t.breaker.Execute(func() (*response, error) {
		return f.do(ctx, req)
	})

	var assertErr *AssertionError
	if errors.As(err, &assertErr) {
		return Result{}, assertErr
	}

	switch {
	case resp != nil && (resp.status < 200 || resp.status > 299):
		return Result{
			Outcome:    OutcomeTransportFailure,
			Kind:       KindHTTPStatus,
			StatusCode: resp.status,
			Body:       resp.body,
			Err:        err,
		}, nil
	case err != nil:
		return Result{Outcome: OutcomeTransportFailure, Kind: classify(err), Err: err}, nil
	default:
		return Result{Outcome: OutcomeSuccess, StatusCode: resp.status, Body: resp.body}, nil
	}
}

func (f *Fetcher) do(ctx context.Context, req Request) (*response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, &requestError{err: err}
	}
	for k, vs := range req.Headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if f.cfg.UserAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	httpResp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = httpResp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	resp := &response{status: httpResp.StatusCode, body: data}
	if httpResp.StatusCode >= 500 {
		return resp, &statusError{code: httpResp.StatusCode}
	}
	return resp, nil
}

func classify(err error) FailureKind {
	var reqErr *requestError
	var netErr net.Error
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return KindCircuitOpen
	case errors.As(err, &reqErr):
		return KindRequest
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return KindTimeout
	default:
		return KindConnection
	}
}

func outcomeLabel(r Result) string {
	if r.Outcome == OutcomeSuccess {
		return "success"
	}
	return string(r.Kind)
}
