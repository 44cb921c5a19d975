// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/palisade/internal/logging"
	"github.com/tomtom215/palisade/internal/metrics"
)

// HTTPServer is the lifecycle slice of *http.Server the wrapper needs.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService bridges http.Server's blocking ListenAndServe to
// suture's context-aware Serve: the listener runs in a goroutine and
// context cancellation triggers a bounded graceful shutdown.
type HTTPServerService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

// NewHTTPServerService wraps the server as a supervised service.
func NewHTTPServerService(server HTTPServer, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve implements suture.Service.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		// The serve context is canceled, so shutdown gets its own.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (h *HTTPServerService) String() string { return "http-server" }

// Runner is a context-bound loop. Satisfied by *audit.Drainer and
// *access.Janitor.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerService adapts a Runner to suture.Service.
type RunnerService struct {
	name   string
	runner Runner
}

// NewRunnerService names and wraps a background loop.
func NewRunnerService(name string, runner Runner) *RunnerService {
	return &RunnerService{name: name, runner: runner}
}

// Serve implements suture.Service.
func (s *RunnerService) Serve(ctx context.Context) error {
	return s.runner.Run(ctx)
}

func (s *RunnerService) String() string { return s.name }

// BadgerGCService periodically runs Badger's value-log garbage
// collection. Badger never reclaims value-log space on its own; the
// loop must call RunValueLogGC.
type BadgerGCService struct {
	db           *badger.DB
	interval     time.Duration
	discardRatio float64
}

// NewBadgerGCService creates the GC loop. Zero interval defaults to
// 10 minutes, zero discard ratio to 0.5.
func NewBadgerGCService(db *badger.DB, interval time.Duration, discardRatio float64) *BadgerGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if discardRatio <= 0 {
		discardRatio = 0.5
	}
	return &BadgerGCService{db: db, interval: interval, discardRatio: discardRatio}
}

// Serve implements suture.Service.
func (s *BadgerGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.collect(ctx)
		}
	}
}

// collect reruns GC until a pass rewrites nothing, since one call
// collects at most one value-log file.
func (s *BadgerGCService) collect(ctx context.Context) {
	for {
		err := s.db.RunValueLogGC(s.discardRatio)
		switch {
		case err == nil:
			metrics.BadgerGCRuns.WithLabelValues("reclaimed").Inc()
		case errors.Is(err, badger.ErrNoRewrite):
			metrics.BadgerGCRuns.WithLabelValues("noop").Inc()
			return
		default:
			metrics.BadgerGCRuns.WithLabelValues("error").Inc()
			logging.CtxErr(ctx, err).Msg("Badger value log GC failed")
			return
		}
	}
}

func (s *BadgerGCService) String() string { return "badger-gc" }
