// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// IngestRunner is the lifecycle of ingest.Consumer.
type IngestRunner interface {
	Run(ctx context.Context) error
	Close() error
}

// IngestFactory builds a consumer ready to Run.
type IngestFactory func() (IngestRunner, error)

// IngestService runs the interaction ingest consumer under supervision.
// A Watermill router runs only once, so every Serve builds a new consumer
// from the factory.
type IngestService struct {
	factory IngestFactory
	logger  zerolog.Logger
	name    string
}

// NewIngestService creates a new ingest service.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewIngestService(factory IngestFactory, logger zerolog.Logger) *IngestService {
	return &IngestService{
		factory: factory,
		logger:  logger.With().Str("service", "ingest").Logger(),
		name:    "ingest-consumer",
	}
}

// Serve implements suture.Service. It returns ctx.Err() on cancellation and
// an error if the consumer stops on its own, which makes suture restart it.
func (s *IngestService) Serve(ctx context.Context) error {
	consumer, err := s.factory()
	if err != nil {
		return fmt.Errorf("build ingest consumer: %w", err)
	}
	defer func() {
		if cerr := consumer.Close(); cerr != nil {
			s.logger.Warn().Err(cerr).Msg("closing ingest consumer")
		}
	}()

	err = consumer.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		err = errors.New("stopped unexpectedly")
	}
	return fmt.Errorf("ingest consumer: %w", err)
}

// String implements fmt.Stringer.
func (s *IngestService) String() string {
	return s.name
}
