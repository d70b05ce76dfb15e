// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

var (
	_ suture.Service = (*HTTPServerService)(nil)
	_ suture.Service = (*TaskQueueService)(nil)
	_ suture.Service = (*StoreGCService)(nil)
)

type fakeHTTPServer struct {
	listenErr error
	shutdowns atomic.Int32
	stop      chan struct{}
	started   chan struct{}
}

func newFakeHTTPServer() *fakeHTTPServer {
	return &fakeHTTPServer{stop: make(chan struct{}), started: make(chan struct{})}
}

func (f *fakeHTTPServer) ListenAndServe() error {
	close(f.started)
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeHTTPServer) Shutdown(context.Context) error {
	f.shutdowns.Add(1)
	close(f.stop)
	return nil
}

func TestHTTPServerServiceGracefulShutdown(t *testing.T) {
	t.Parallel()
	srv := newFakeHTTPServer()
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	<-srv.started
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
	if srv.shutdowns.Load() != 1 {
		t.Errorf("Shutdown called %d times, want 1", srv.shutdowns.Load())
	}
}

func TestHTTPServerServiceListenError(t *testing.T) {
	t.Parallel()
	srv := newFakeHTTPServer()
	srv.listenErr = errors.New("address already in use")

	err := NewHTTPServerService(srv, 0).Serve(context.Background())
	if err == nil || !errors.Is(err, srv.listenErr) {
		t.Errorf("Serve() error = %v, want wrapped listen error", err)
	}
}

type fakeQueue struct {
	err error
}

func (f fakeQueue) Run(ctx context.Context) error {
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return nil
}

func TestTaskQueueService(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewTaskQueueService(fakeQueue{}).Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled: error = %v, want context.Canceled", err)
	}

	boom := errors.New("nats unavailable")
	if err := NewTaskQueueService(fakeQueue{err: boom}).Serve(context.Background()); !errors.Is(err, boom) {
		t.Errorf("router failure: error = %v, want %v", err, boom)
	}

	stopped := fakeQueue{err: nil}
	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	if err := NewTaskQueueService(stopped).Serve(ctx2); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("deadline: error = %v", err)
	}
}

type fakeGC struct {
	runs atomic.Int32
	err  error
}

func (f *fakeGC) RunGC() error {
	f.runs.Add(1)
	return f.err
}

func TestStoreGCService(t *testing.T) {
	t.Parallel()
	gc := &fakeGC{err: errors.New("rewrite failed")}
	svc := NewStoreGCService(gc, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for gc.runs.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("GC ran %d times, want at least 3", gc.runs.Load())
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() error = %v", err)
	}
}

func TestStoreGCServiceRejectsZeroInterval(t *testing.T) {
	t.Parallel()
	if err := NewStoreGCService(&fakeGC{}, 0).Serve(context.Background()); err == nil {
		t.Error("expected error for zero interval")
	}
}
