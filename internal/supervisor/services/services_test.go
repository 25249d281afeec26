// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/triviafeed/internal/catalog"
	"github.com/tomtom215/triviafeed/internal/profiles"
)

var (
	_ suture.Service = (*DecaySweepService)(nil)
	_ suture.Service = (*CatalogRefreshService)(nil)
	_ suture.Service = (*IngestService)(nil)
)

type fakeDecayer struct {
	mu    sync.Mutex
	calls []time.Time
	err   error
}

func (f *fakeDecayer) DecayAll(_ context.Context, now time.Time) (profiles.DecayResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, now)
	return profiles.DecayResult{Decayed: 1}, f.err
}

func (f *fakeDecayer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeRefresher struct {
	calls    atomic.Int32
	err      error
	deadline atomic.Bool
}

func (f *fakeRefresher) Refresh(ctx context.Context) (catalog.RefreshResult, error) {
	f.calls.Add(1)
	if _, ok := ctx.Deadline(); ok {
		f.deadline.Store(true)
	}
	return catalog.RefreshResult{Loaded: 3}, f.err
}

// serveFor runs svc until d elapses and returns Serve's error.
func serveFor(t *testing.T, svc suture.Service, d time.Duration) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	var err error
	select {
	case err = <-errCh:
	case <-time.After(d + 2*time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
	return err
}

func TestDecaySweepService(t *testing.T) {
	t.Run("sweeps on every tick", func(t *testing.T) {
		decayer := &fakeDecayer{}
		fixed := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
		svc := NewDecaySweepService(decayer, 10*time.Millisecond, zerolog.Nop())
		svc.now = func() time.Time { return fixed }

		err := serveFor(t, svc, 120*time.Millisecond)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected DeadlineExceeded, got %v", err)
		}
		if decayer.count() < 2 {
			t.Errorf("expected at least 2 sweeps, got %d", decayer.count())
		}
		decayer.mu.Lock()
		defer decayer.mu.Unlock()
		if !decayer.calls[0].Equal(fixed) {
			t.Errorf("sweep time = %v, want %v", decayer.calls[0], fixed)
		}
	})

	t.Run("keeps running after a failed sweep", func(t *testing.T) {
		decayer := &fakeDecayer{err: errors.New("store offline")}
		svc := NewDecaySweepService(decayer, 10*time.Millisecond, zerolog.Nop())

		_ = serveFor(t, svc, 120*time.Millisecond)
		if decayer.count() < 2 {
			t.Errorf("expected the loop to continue after errors, got %d sweeps", decayer.count())
		}
	})

	t.Run("defaults the interval", func(t *testing.T) {
		svc := NewDecaySweepService(&fakeDecayer{}, 0, zerolog.Nop())
		if svc.interval != DefaultDecaySweepInterval {
			t.Errorf("interval = %v, want %v", svc.interval, DefaultDecaySweepInterval)
		}
		if svc.String() != "decay-sweep" {
			t.Errorf("String() = %q", svc.String())
		}
	})
}

func TestCatalogRefreshService(t *testing.T) {
	t.Run("refreshes with a bounded context", func(t *testing.T) {
		refresher := &fakeRefresher{}
		svc := NewCatalogRefreshService(refresher, 10*time.Millisecond, zerolog.Nop())

		_ = serveFor(t, svc, 120*time.Millisecond)
		if refresher.calls.Load() < 2 {
			t.Errorf("expected at least 2 refreshes, got %d", refresher.calls.Load())
		}
		if !refresher.deadline.Load() {
			t.Error("refresh context had no deadline")
		}
	})

	t.Run("failed refresh does not stop the loop", func(t *testing.T) {
		refresher := &fakeRefresher{err: errors.New("upstream 502")}
		svc := NewCatalogRefreshService(refresher, 10*time.Millisecond, zerolog.Nop())

		err := serveFor(t, svc, 120*time.Millisecond)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected DeadlineExceeded, got %v", err)
		}
		if refresher.calls.Load() < 2 {
			t.Errorf("expected retries on later ticks, got %d calls", refresher.calls.Load())
		}
	})

	t.Run("defaults the interval", func(t *testing.T) {
		svc := NewCatalogRefreshService(&fakeRefresher{}, -time.Second, zerolog.Nop())
		if svc.interval != DefaultCatalogRefreshInterval {
			t.Errorf("interval = %v, want %v", svc.interval, DefaultCatalogRefreshInterval)
		}
	})
}

// fakeRunner blocks in Run until ctx is done, or returns runErr at once.
type fakeRunner struct {
	runErr error
	closed atomic.Int32
}

func (f *fakeRunner) Run(ctx context.Context) error {
	if f.runErr != nil {
		return f.runErr
	}
	<-ctx.Done()
	return nil
}

func (f *fakeRunner) Close() error {
	f.closed.Add(1)
	return nil
}

func TestIngestService(t *testing.T) {
	t.Run("returns context error on shutdown and closes the consumer", func(t *testing.T) {
		runner := &fakeRunner{}
		svc := NewIngestService(func() (IngestRunner, error) { return runner, nil }, zerolog.Nop())

		err := serveFor(t, svc, 50*time.Millisecond)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected DeadlineExceeded, got %v", err)
		}
		if runner.closed.Load() != 1 {
			t.Errorf("Close called %d times, want 1", runner.closed.Load())
		}
	})

	t.Run("reports an unexpected stop", func(t *testing.T) {
		routerErr := errors.New("router failed")
		runner := &fakeRunner{runErr: routerErr}
		svc := NewIngestService(func() (IngestRunner, error) { return runner, nil }, zerolog.Nop())

		if err := svc.Serve(context.Background()); !errors.Is(err, routerErr) {
			t.Errorf("expected router error, got %v", err)
		}
		if runner.closed.Load() != 1 {
			t.Error("consumer was not closed")
		}
	})

	t.Run("factory error is returned", func(t *testing.T) {
		buildErr := errors.New("no topic")
		svc := NewIngestService(func() (IngestRunner, error) { return nil, buildErr }, zerolog.Nop())

		if err := svc.Serve(context.Background()); !errors.Is(err, buildErr) {
			t.Errorf("expected factory error, got %v", err)
		}
	})

	t.Run("supervisor restarts with a fresh consumer", func(t *testing.T) {
		var built atomic.Int32
		svc := NewIngestService(func() (IngestRunner, error) {
			if built.Add(1) == 1 {
				return &fakeRunner{runErr: errors.New("boom")}, nil
			}
			return &fakeRunner{}, nil
		}, zerolog.Nop())

		sup := suture.New("test-sup", suture.Spec{
			FailureThreshold: 5,
			FailureBackoff:   10 * time.Millisecond,
			Timeout:          time.Second,
		})
		sup.Add(svc)

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		<-sup.ServeBackground(ctx)

		if built.Load() < 2 {
			t.Errorf("expected a rebuilt consumer after failure, got %d builds", built.Load())
		}
	})
}
