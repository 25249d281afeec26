// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package api

import (
	"sort"
	"time"

	"github.com/tomtom215/triviafeed/internal/feed"
)

// FeedItem is one question of a feed response.
type FeedItem struct {
	feed.Item
	Exploration bool     `json:"exploration"`
	Reasons     []string `json:"reasons"`
}

// FeedResponse is the body of a feed response.
type FeedResponse struct {
	UserID string     `json:"user_id"`
	Phase  string     `json:"phase"`
	Items  []FeedItem `json:"items"`
}

func newFeedResponse(userID string, batch *feed.Batch) FeedResponse {
	items := make([]FeedItem, 0, len(batch.Items))
	for _, it := range batch.Items {
		reasons := batch.Explanations[it.ID]
		if reasons == nil {
			reasons = []string{}
		}
		items = append(items, FeedItem{
			Item:        it,
			Exploration: batch.Exploration[it.ID],
			Reasons:     reasons,
		})
	}
	return FeedResponse{
		UserID: userID,
		Phase:  batch.Phase.String(),
		Items:  items,
	}
}

// QueuedInteraction is the 202 body when interactions are processed
// asynchronously.
type QueuedInteraction struct {
	UserID     string `json:"user_id"`
	QuestionID string `json:"question_id"`
	Status     string `json:"status"`
}

// WeightView is one named node of the preference tree.
type WeightView struct {
	Name       string       `json:"name"`
	Weight     float64      `json:"weight"`
	LastViewed *time.Time   `json:"last_viewed,omitempty"`
	Children   []WeightView `json:"children,omitempty"`
}

// ProfileView is the read-only representation of a profile.
type ProfileView struct {
	UserID                 string       `json:"user_id"`
	Phase                  string       `json:"phase"`
	ColdStartComplete      bool         `json:"cold_start_complete"`
	TotalQuestionsAnswered int          `json:"total_questions_answered"`
	InteractionCount       int          `json:"interaction_count"`
	LastRefreshed          *time.Time   `json:"last_refreshed,omitempty"`
	Topics                 []WeightView `json:"topics"`
}

func newProfileView(p *feed.Profile) ProfileView {
	view := ProfileView{
		UserID:                 p.UserID,
		Phase:                  profilePhase(p).String(),
		ColdStartComplete:      p.ColdStartComplete,
		TotalQuestionsAnswered: p.TotalQuestionsAnswered,
		InteractionCount:       len(p.Interactions),
		LastRefreshed:          optionalTime(p.LastRefreshed),
		Topics:                 make([]WeightView, 0, len(p.Topics)),
	}

	for _, topicName := range p.TopicNames() {
		topic := p.Topics[topicName]
		tv := WeightView{Name: topicName, Weight: topic.Weight, LastViewed: optionalTime(topic.LastViewed)}
		for _, subName := range sortedNames(topic.Subtopics) {
			sub := topic.Subtopics[subName]
			sv := WeightView{Name: subName, Weight: sub.Weight, LastViewed: optionalTime(sub.LastViewed)}
			for _, branchName := range sortedNames(sub.Branches) {
				branch := sub.Branches[branchName]
				sv.Children = append(sv.Children, WeightView{
					Name:       branchName,
					Weight:     branch.Weight,
					LastViewed: optionalTime(branch.LastViewed),
				})
			}
			tv.Children = append(tv.Children, sv)
		}
		view.Topics = append(view.Topics, tv)
	}
	return view
}

// profilePhase reports the phase the profile was last served in.
func profilePhase(p *feed.Profile) feed.Phase {
	switch {
	case p.ColdStartComplete:
		return feed.PhaseSteady
	case p.ColdStart != nil:
		return p.ColdStart.Phase
	default:
		return feed.PhaseExploration
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	utc := t.UTC()
	return &utc
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status             string     `json:"status"`
	StoreReachable     bool       `json:"store_reachable"`
	Profiles           int        `json:"profiles"`
	CatalogItems       int        `json:"catalog_items"`
	CatalogRefreshedAt *time.Time `json:"catalog_refreshed_at,omitempty"`
	IngestEnabled      bool       `json:"ingest_enabled"`
	UptimeSeconds      float64    `json:"uptime_seconds"`
}
