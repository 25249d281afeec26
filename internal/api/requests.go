// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/triviafeed/internal/feed"
	"github.com/tomtom215/triviafeed/internal/validation"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// userIDTag validates user ids taken from the URL.
const userIDTag = "required,identifier,max=128"

// FeedRequest holds the feed query parameters.
type FeedRequest struct {
	// Size is the requested batch size. 0 selects the configured default;
	// values above the maximum are clamped by the engine.
	Size int `json:"size" validate:"gte=0,lte=10000"`
}

// InteractionRequest is the body of POST /users/{userID}/interactions.
type InteractionRequest struct {
	QuestionID  string `json:"question_id" validate:"required,max=128"`
	TimeSpentMs int64  `json:"time_spent_ms" validate:"gte=0"`

	// WasCorrect is omitted or null when the question was not graded.
	WasCorrect *bool `json:"was_correct"`
	WasSkipped bool  `json:"was_skipped"`

	// ViewedAt defaults to the server clock.
	ViewedAt *time.Time `json:"viewed_at,omitempty"`
}

// Record converts the request into an engine record.
func (req *InteractionRequest) Record() feed.InteractionRecord {
	rec := feed.InteractionRecord{
		QuestionID:  req.QuestionID,
		TimeSpentMs: req.TimeSpentMs,
		WasCorrect:  req.WasCorrect,
		WasSkipped:  req.WasSkipped,
	}
	if req.ViewedAt != nil {
		rec.ViewedAt = req.ViewedAt.UTC()
	}
	return rec
}

// parseFeedRequest reads the size query parameter.
func parseFeedRequest(r *http.Request) (FeedRequest, error) {
	var req FeedRequest
	if raw := r.URL.Query().Get("size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return req, fmt.Errorf("size must be an integer, got %q", raw)
		}
		req.Size = size
	}
	return req, nil
}

// decodeJSONBody decodes a single JSON object, rejecting unknown fields and
// trailing data.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body exceeds %d bytes", maxBodyBytes)
		case errors.Is(err, io.EOF):
			return errors.New("request body is empty")
		default:
			return fmt.Errorf("invalid JSON body: %w", err)
		}
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// validateRequest validates a struct and converts failures to the API error
// shape. Returns nil when v is valid.
func validateRequest(v interface{}) *validation.APIError {
	if verr := validation.ValidateStruct(v); verr != nil {
		return verr.ToAPIError()
	}
	return nil
}

// validateUserID validates a user id path parameter.
func validateUserID(userID string) *validation.APIError {
	if verr := validation.ValidateVar("user_id", userID, userIDTag); verr != nil {
		return verr.ToAPIError()
	}
	return nil
}
