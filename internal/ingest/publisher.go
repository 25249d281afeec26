// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package ingest

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/triviafeed/internal/logging"
	"github.com/tomtom215/triviafeed/internal/metrics"
)

// Publisher publishes interaction events onto the ingest topic.
type Publisher struct {
	pub    message.Publisher
	topic  string
	logger zerolog.Logger
}

// NewPublisher creates a publisher for topic.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewPublisher(pub message.Publisher, topic string, logger zerolog.Logger) *Publisher {
	return &Publisher{
		pub:    pub,
		topic:  topic,
		logger: logger.With().Str("component", "ingest-publisher").Logger(),
	}
}

// Publish validates the event and hands it to the pub/sub. The correlation id
// from ctx travels in the message metadata; one is generated if ctx has none.
func (p *Publisher) Publish(ctx context.Context, event InteractionEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	payload, err := encodeEvent(&event)
	if err != nil {
		return err
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	correlationID := logging.CorrelationIDFromContext(ctx)
	if correlationID == "" {
		correlationID = logging.GenerateCorrelationID()
	}
	middleware.SetCorrelationID(correlationID, msg)
	msg.Metadata.Set(userIDMetadataKey, event.UserID)

	if err := p.pub.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("publish interaction event: %w", err)
	}

	metrics.RecordIngestPublished()
	p.logger.Debug().
		Str("message_uuid", msg.UUID).
		Str("correlation_id", correlationID).
		Str("user_id", event.UserID).
		Str("question_id", event.Record.QuestionID).
		Msg("interaction event published")
	return nil
}
