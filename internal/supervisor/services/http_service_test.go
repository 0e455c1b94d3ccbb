// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeHTTPServer struct {
	serveErr    error
	serveDelay  time.Duration
	shutdownErr error
	shutdowns   atomic.Int32
	release     chan struct{}
}

func (f *fakeHTTPServer) ListenAndServe() error {
	if f.release != nil {
		<-f.release
	} else if f.serveDelay > 0 {
		time.Sleep(f.serveDelay)
	}
	return f.serveErr
}

func (f *fakeHTTPServer) Shutdown(ctx context.Context) error {
	f.shutdowns.Add(1)
	if f.release != nil {
		close(f.release)
	}
	return f.shutdownErr
}

func TestHTTPServiceGracefulShutdown(t *testing.T) {
	srv := &fakeHTTPServer{serveErr: http.ErrServerClosed, release: make(chan struct{})}
	svc := NewHTTPService(srv, "127.0.0.1:0", time.Second, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not return after cancellation")
	}
	if got := srv.shutdowns.Load(); got != 1 {
		t.Errorf("Shutdown called %d times, want 1", got)
	}
}

func TestHTTPServiceServerClosedIsNotAnError(t *testing.T) {
	srv := &fakeHTTPServer{serveErr: http.ErrServerClosed}
	svc := NewHTTPService(srv, "127.0.0.1:0", time.Second, zerolog.Nop())

	if err := svc.Serve(context.Background()); err != nil {
		t.Fatalf("Serve() error = %v, want nil", err)
	}
}

func TestHTTPServicePropagatesListenFailure(t *testing.T) {
	bindErr := errors.New("address already in use")
	srv := &fakeHTTPServer{serveErr: bindErr}
	svc := NewHTTPService(srv, "127.0.0.1:0", time.Second, zerolog.Nop())

	if err := svc.Serve(context.Background()); !errors.Is(err, bindErr) {
		t.Fatalf("Serve() error = %v, want %v", err, bindErr)
	}
}

func TestHTTPServicePropagatesShutdownFailure(t *testing.T) {
	shutdownErr := errors.New("shutdown deadline exceeded")
	srv := &fakeHTTPServer{serveErr: http.ErrServerClosed, shutdownErr: shutdownErr, release: make(chan struct{})}
	svc := NewHTTPService(srv, "127.0.0.1:0", time.Second, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, shutdownErr) {
			t.Fatalf("Serve() error = %v, want %v", err, shutdownErr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not return after cancellation")
	}
}

func TestHTTPServiceString(t *testing.T) {
	svc := NewHTTPService(&fakeHTTPServer{}, "0.0.0.0:8940", time.Second, zerolog.Nop())
	if got := svc.String(); got != "http-service(0.0.0.0:8940)" {
		t.Errorf("String() = %q", got)
	}
}
