// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/triviafeed/internal/feed"
	"github.com/tomtom215/triviafeed/internal/metrics"
)

// maxCatalogBytes bounds the size of a catalog document.
const maxCatalogBytes = 64 << 20

// Source loads the full set of candidate items.
type Source interface {
	Load(ctx context.Context) ([]feed.Item, error)
}

// decodeItems accepts either a bare JSON array of items or an object with an
// "items" array.
func decodeItems(data []byte) ([]feed.Item, error) {
	var items []feed.Item
	if err := json.Unmarshal(data, &items); err == nil {
		return items, nil
	}

	var doc struct {
		Items []feed.Item `json:"items"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if doc.Items == nil {
		return nil, errors.New("decode catalog: no items array")
	}
	return doc.Items, nil
}

// FileSource reads the catalog from a JSON file.
type FileSource struct {
	Path string
}

// NewFileSource returns a source reading path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Load implements Source.
func (s *FileSource) Load(ctx context.Context) ([]feed.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return decodeItems(data)
}

// HTTPSourceConfig configures an HTTPSource.
type HTTPSourceConfig struct {
	URL     string
	Timeout time.Duration

	// MaxFailures consecutive failures open the breaker.
	MaxFailures uint32

	// BreakerTimeout is how long the breaker stays open before probing.
	BreakerTimeout time.Duration
}

// HTTPSource fetches the catalog over HTTP behind a circuit breaker, so an
// unavailable upstream is not hammered on every refresh.
type HTTPSource struct {
	url    string
	client *http.Client
	cb     *gobreaker.CircuitBreaker[[]feed.Item]
	logger zerolog.Logger
}

// NewHTTPSource creates an HTTP catalog source.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewHTTPSource(cfg HTTPSourceConfig, logger zerolog.Logger) *HTTPSource {
	s := &HTTPSource{
		url:    cfg.URL,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With().Str("component", "catalog_http").Logger(),
	}

	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	metrics.SetCatalogBreakerState(int(gobreaker.StateClosed))
	s.cb = gobreaker.NewCircuitBreaker[[]feed.Item](gobreaker.Settings{
		Name:        "catalog-source",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("catalog circuit breaker state change")
			metrics.SetCatalogBreakerState(int(to))
		},
	})
	return s
}

// State returns the circuit breaker state.
func (s *HTTPSource) State() gobreaker.State {
	return s.cb.State()
}

// Load implements Source. When the breaker is open it fails fast with an
// error wrapping gobreaker.ErrOpenState.
func (s *HTTPSource) Load(ctx context.Context) ([]feed.Item, error) {
	items, err := s.cb.Execute(func() ([]feed.Item, error) {
		return s.fetch(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch catalog from %s: %w", s.url, err)
	}
	return items, nil
}

func (s *HTTPSource) fetch(ctx context.Context) ([]feed.Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return decodeItems(data)
}
