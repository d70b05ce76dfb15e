// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/onair/internal/config"
)

func testOutbound() config.OutboundConfig {
	return config.OutboundConfig{
		Timeout:         2 * time.Second,
		UserAgent:       "onair-test",
		BreakerFailures: 3,
		BreakerTimeout:  time.Minute,
	}
}

func TestFetchSuccess(t *testing.T) {
	t.Parallel()
	var gotUA, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.UserAgent()
		gotMethod = r.Method
		_, _ = w.Write([]byte("queued"))
	}))
	defer srv.Close()

	f := NewFetcher(testOutbound())
	res, err := f.Fetch(context.Background(), Request{Target: "t", URL: srv.URL, Method: http.MethodPost, Body: []byte("a=b")})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if res.Outcome != OutcomeSuccess || res.StatusCode != http.StatusOK || string(res.Body) != "queued" {
		t.Errorf("Fetch() = %+v", res)
	}
	if !res.OK() {
		t.Error("OK() = false for success")
	}
	if gotUA != "onair-test" || gotMethod != http.MethodPost {
		t.Errorf("request UA=%q method=%q", gotUA, gotMethod)
	}
}

func TestFetchNon2xxIsFailureNotError(t *testing.T) {
	t.Parallel()

	for _, code := range []int{http.StatusNotFound, http.StatusBadGateway} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "nope", code)
		}))

		f := NewFetcher(testOutbound())
		res, err := f.Fetch(context.Background(), Request{Target: "t", URL: srv.URL})
		srv.Close()

		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if res.Outcome != OutcomeTransportFailure || res.Kind != KindHTTPStatus || res.StatusCode != code {
			t.Errorf("code %d: Fetch() = %+v", code, res)
		}
		if res.OK() {
			t.Errorf("code %d: OK() = true", code)
		}
	}
}

func TestFetchConnectionError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	f := NewFetcher(testOutbound())
	res, err := f.Fetch(context.Background(), Request{Target: "t", URL: url})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if res.Outcome != OutcomeTransportFailure || res.Kind != KindConnection {
		t.Errorf("Fetch() = %+v, want connection failure", res)
	}
}

func TestFetchTimeout(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	cfg := testOutbound()
	cfg.Timeout = 50 * time.Millisecond
	f := NewFetcher(cfg)

	start := time.Now()
	res, err := f.Fetch(context.Background(), Request{Target: "t", URL: srv.URL})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if res.Kind != KindTimeout {
		t.Errorf("Kind = %q, want %q (%v)", res.Kind, KindTimeout, res.Err)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("Fetch() took %v, timeout not applied", time.Since(start))
	}
}

func TestFetchInvalidRequest(t *testing.T) {
	t.Parallel()
	f := NewFetcher(testOutbound())

	res, err := f.Fetch(context.Background(), Request{Target: "t", URL: "http://[::1", Method: http.MethodGet})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if res.Kind != KindRequest {
		t.Errorf("Kind = %q, want %q", res.Kind, KindRequest)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestFetchPropagatesAssertionError(t *testing.T) {
	t.Parallel()
	want := &AssertionError{Msg: "unexpected call to service URL"}
	f := NewFetcher(testOutbound(), WithTransport(roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, want
	})))

	_, err := f.Fetch(context.Background(), Request{Target: "t", URL: "http://live365.invalid/add_song.cgi"})
	if err != want {
		t.Fatalf("Fetch() error = %v, want the assertion error unchanged", err)
	}
}

func TestFetchCircuitOpens(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewFetcher(testOutbound())
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		res, _ := f.Fetch(ctx, Request{Target: "flaky", URL: srv.URL})
		if res.Kind != KindHTTPStatus {
			t.Fatalf("call %d kind = %q", i, res.Kind)
		}
	}

	res, err := f.Fetch(ctx, Request{Target: "flaky", URL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != KindCircuitOpen {
		t.Errorf("Kind = %q, want %q", res.Kind, KindCircuitOpen)
	}
	if hits.Load() != 3 {
		t.Errorf("server hits = %d, want 3", hits.Load())
	}

	// Other targets are unaffected.
	res, _ = f.Fetch(ctx, Request{Target: "other", URL: srv.URL})
	if res.Kind != KindHTTPStatus {
		t.Errorf("other target kind = %q", res.Kind)
	}
}

func TestFetch4xxDoesNotTripBreaker(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f := NewFetcher(testOutbound())
	for i := 0; i < 5; i++ {
		res, _ := f.Fetch(context.Background(), Request{Target: "missing", URL: srv.URL})
		if res.Kind != KindHTTPStatus {
			t.Fatalf("call %d kind = %q", i, res.Kind)
		}
	}
}

func TestResultString(t *testing.T) {
	t.Parallel()
	r := Result{Outcome: OutcomeTransportFailure, Kind: KindHTTPStatus, StatusCode: 503}
	if got := r.String(); got != "transport_failure (http_status 503)" {
		t.Errorf("String() = %q", got)
	}
	r = Result{Outcome: OutcomeTransportFailure, Kind: KindTimeout, Err: errors.New("deadline")}
	if got := r.String(); got != "transport_failure (timeout: deadline)" {
		t.Errorf("String() = %q", got)
	}
	if !EntityMissing().OK() {
		t.Error("EntityMissing().OK() = false")
	}
}
