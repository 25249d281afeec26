// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

/*
Package ingest moves interaction events from the HTTP API to the profile
manager asynchronously.

Events are JSON payloads on an in-process Watermill gochannel. A single
router handler consumes the topic, so events for a user are applied in the
order they were published. Transient failures are retried with exponential
backoff; messages that still fail are moved to a poison topic and logged.
Events that can never succeed (malformed payload, unknown question) are
acknowledged and dropped.
*/
package ingest

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/triviafeed/internal/feed"
	"github.com/tomtom215/triviafeed/internal/validation"
)

// ErrInvalidEvent wraps every event validation or decoding failure.
var ErrInvalidEvent = errors.New("ingest: invalid event")

// userIDMetadataKey carries the user id in message metadata for log context.
const userIDMetadataKey = "user_id"

// InteractionEvent is the message payload.
type InteractionEvent struct {
	UserID string                 `json:"user_id" validate:"required,identifier,max=128"`
	Record feed.InteractionRecord `json:"record"`
}

// Validate checks the fields the consumer depends on.
func (e *InteractionEvent) Validate() error {
	if verr := validation.ValidateStruct(e); verr != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, verr)
	}
	if verr := validation.ValidateVar("question_id", e.Record.QuestionID, "required,max=128"); verr != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, verr)
	}
	return nil
}

func encodeEvent(e *InteractionEvent) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode interaction event: %w", err)
	}
	return data, nil
}

func decodeEvent(data []byte) (*InteractionEvent, error) {
	var e InteractionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}
