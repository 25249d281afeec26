// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/triviafeed/internal/ingest"
	"github.com/tomtom215/triviafeed/internal/logging"
	"github.com/tomtom215/triviafeed/internal/profiles"
	"github.com/tomtom215/triviafeed/internal/storage"
)

// userIDFromPath validates the {userID} path parameter. On failure it writes
// the error response and returns false.
func userIDFromPath(rw *ResponseWriter, r *http.Request) (string, bool) {
	userID := chi.URLParam(r, "userID")
	if apiErr := validateUserID(userID); apiErr != nil {
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return "", false
	}
	return userID, true
}

// Feed returns the next batch of questions for a user.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID, ok := userIDFromPath(rw, r)
	if !ok {
		return
	}

	req, err := parseFeedRequest(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	ctx := logging.ContextWithUserID(r.Context(), userID)
	batch, err := h.profiles.NextBatch(ctx, userID, req.Size)
	if err != nil {
		rw.StorageError(err)
		return
	}

	rw.Success(newFeedResponse(userID, batch))
}

// RecordInteraction records one interaction. The response is 200 with the
// weight change when applied inline, or 202 when queued.
func (h *Handler) RecordInteraction(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID, ok := userIDFromPath(rw, r)
	if !ok {
		return
	}

	var req InteractionRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	ctx := logging.ContextWithUserID(r.Context(), userID)
	rec := req.Record()

	if h.publisher != nil {
		if err := h.publisher.Publish(ctx, ingest.InteractionEvent{UserID: userID, Record: rec}); err != nil {
			if errors.Is(err, ingest.ErrInvalidEvent) {
				rw.BadRequest(err.Error())
				return
			}
			rw.InternalError(err)
			return
		}
		rw.Accepted(QueuedInteraction{UserID: userID, QuestionID: rec.QuestionID, Status: "queued"})
		return
	}

	change, err := h.profiles.RecordInteraction(ctx, userID, rec)
	switch {
	case errors.Is(err, profiles.ErrUnknownQuestion):
		rw.Error(http.StatusNotFound, ErrCodeUnknownQuestion, "Unknown question: "+rec.QuestionID)
		return
	case err != nil:
		rw.StorageError(err)
		return
	}

	rw.Success(change)
}

// Profile returns the read-only view of a user's profile.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID, ok := userIDFromPath(rw, r)
	if !ok {
		return
	}

	p, err := h.profiles.Profile(r.Context(), userID)
	switch {
	case errors.Is(err, storage.ErrProfileNotFound):
		rw.NotFound("No profile for user " + userID)
		return
	case err != nil:
		rw.StorageError(err)
		return
	}

	rw.Success(newProfileView(p))
}

// ResetProfile deletes a user's profile.
func (h *Handler) ResetProfile(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID, ok := userIDFromPath(rw, r)
	if !ok {
		return
	}

	err := h.profiles.Reset(r.Context(), userID)
	switch {
	case errors.Is(err, storage.ErrProfileNotFound):
		rw.NotFound("No profile for user " + userID)
		return
	case err != nil:
		rw.StorageError(err)
		return
	}

	logging.Ctx(r.Context()).Info().Str("user_id", userID).Msg("profile reset")
	rw.NoContent()
}
