// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"

	"github.com/tomtom215/triviafeed/internal/feed"
	"github.com/tomtom215/triviafeed/internal/logging"
	"github.com/tomtom215/triviafeed/internal/metrics"
	"github.com/tomtom215/triviafeed/internal/profiles"
)

// Processing results recorded in metrics.
const (
	resultApplied  = "applied"
	resultRejected = "rejected"
	resultPoisoned = "poisoned"
)

// Recorder applies one interaction to a user's profile.
// Satisfied by *profiles.Manager.
type Recorder interface {
	RecordInteraction(ctx context.Context, userID string, rec feed.InteractionRecord) (feed.WeightChange, error)
}

// PubSub is the transport the consumer reads from and poisons onto.
type PubSub interface {
	message.Publisher
	message.Subscriber
}

// Config holds consumer settings.
type Config struct {
	// Topic is the topic interaction events are published on.
	Topic string

	// CloseTimeout is how long Close waits for in-flight handlers.
	CloseTimeout time.Duration

	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Topic:                "interactions",
		CloseTimeout:         30 * time.Second,
		RetryMaxRetries:      3,
		RetryInitialInterval: 100 * time.Millisecond,
		RetryMaxInterval:     5 * time.Second,
		RetryMultiplier:      2.0,
	}
}

// PoisonTopic returns the topic failed messages are moved to.
func PoisonTopic(topic string) string {
	return topic + ".poison"
}

// NewPubSub creates the in-process transport. bufferSize is the output
// buffer of each subscription.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewPubSub(bufferSize int64, logger zerolog.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: bufferSize},
		logging.NewWatermillLogger(logger.With().Str("component", "ingest-pubsub").Logger()),
	)
}

// Consumer applies interaction events through a Watermill router.
type Consumer struct {
	router   *message.Router
	recorder Recorder
	topic    string
	logger   zerolog.Logger
}

// NewConsumer creates a consumer and registers its handlers. The router does
// not start until Run.
//
// Middleware order, outermost first: poison queue, retry, panic recovery.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewConsumer(cfg Config, pubsub PubSub, recorder Recorder, logger zerolog.Logger) (*Consumer, error) {
	if cfg.Topic == "" {
		return nil, errors.New("ingest: topic is required")
	}
	defaults := DefaultConfig()
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = defaults.CloseTimeout
	}
	if cfg.RetryMultiplier <= 0 {
		cfg.RetryMultiplier = defaults.RetryMultiplier
	}
	if cfg.RetryMaxInterval < cfg.RetryInitialInterval {
		cfg.RetryMaxInterval = cfg.RetryInitialInterval
	}

	logger = logger.With().Str("component", "ingest").Logger()
	wmLogger := logging.NewWatermillLogger(logger)

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	poisonQueue, err := middleware.PoisonQueue(pubsub, PoisonTopic(cfg.Topic))
	if err != nil {
		return nil, fmt.Errorf("create poison queue middleware: %w", err)
	}
	retry := middleware.Retry{
		MaxRetries:      cfg.RetryMaxRetries,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
		Multiplier:      cfg.RetryMultiplier,
		Logger:          wmLogger,
	}
	router.AddMiddleware(poisonQueue, retry.Middleware, middleware.Recoverer)

	c := &Consumer{
		router:   router,
		recorder: recorder,
		topic:    cfg.Topic,
		logger:   logger,
	}
	router.AddConsumerHandler("interaction-consumer", cfg.Topic, pubsub, c.handle)
	router.AddConsumerHandler("interaction-poison-logger", PoisonTopic(cfg.Topic), pubsub, c.handlePoisoned)

	return c, nil
}

// handle applies one event. Permanent failures are logged and acknowledged;
// any other error is returned so the retry middleware can try again.
func (c *Consumer) handle(msg *message.Message) error {
	start := time.Now()
	correlationID := middleware.MessageCorrelationID(msg)

	event, err := decodeEvent(msg.Payload)
	if err != nil {
		c.reject(msg, correlationID, err, start)
		return nil
	}

	ctx := logging.ContextWithCorrelationID(msg.Context(), correlationID)
	ctx = logging.ContextWithUserID(ctx, event.UserID)

	change, err := c.recorder.RecordInteraction(ctx, event.UserID, event.Record)
	if errors.Is(err, profiles.ErrUnknownQuestion) {
		c.reject(msg, correlationID, err, start)
		return nil
	}
	if err != nil {
		return fmt.Errorf("apply interaction for user %s: %w", event.UserID, err)
	}

	metrics.RecordIngestProcessed(resultApplied, time.Since(start))
	c.logger.Debug().
		Str("message_uuid", msg.UUID).
		Str("correlation_id", correlationID).
		Str("user_id", event.UserID).
		Str("question_id", event.Record.QuestionID).
		Str("classification", change.Classification.String()).
		Msg("interaction event applied")
	return nil
}

func (c *Consumer) reject(msg *message.Message, correlationID string, err error, start time.Time) {
	metrics.RecordIngestProcessed(resultRejected, time.Since(start))
	c.logger.Warn().
		Err(err).
		Str("message_uuid", msg.UUID).
		Str("correlation_id", correlationID).
		Str("user_id", msg.Metadata.Get(userIDMetadataKey)).
		Msg("interaction event rejected")
}

// handlePoisoned logs messages that exhausted their retries.
func (c *Consumer) handlePoisoned(msg *message.Message) error {
	metrics.IngestProcessed.WithLabelValues(resultPoisoned).Inc()
	c.logger.Error().
		Str("message_uuid", msg.UUID).
		Str("correlation_id", middleware.MessageCorrelationID(msg)).
		Str("user_id", msg.Metadata.Get(userIDMetadataKey)).
		Str("reason", msg.Metadata.Get(middleware.ReasonForPoisonedKey)).
		Msg("interaction event dropped after retries")
	return nil
}

// Run starts the router and blocks until ctx is cancelled or Close is called.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info().Str("topic", c.topic).Msg("ingest consumer starting")
	return c.router.Run(ctx)
}

// Running returns a channel that is closed once the handlers are subscribed.
func (c *Consumer) Running() chan struct{} {
	return c.router.Running()
}

// Close stops the router, waiting up to CloseTimeout for in-flight messages.
func (c *Consumer) Close() error {
	return c.router.Close()
}
