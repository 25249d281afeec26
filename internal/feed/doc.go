// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

// Package feed implements the personalized trivia feed selection engine.
//
// # Model
//
// Each user owns a Profile: a three-level preference tree (topic, subtopic,
// branch) whose weights live in [0.1, 1.0], an interaction ledger keyed by
// question id, and the state of the scripted cold start. Weights move with
// every interaction (correct, incorrect, skipped) and drift back toward the
// floor when a node is left untouched for days.
//
// # Selection
//
// New users walk through three cold start phases derived purely from how many
// questions they have interacted with:
//
//   - Exploration (0-4): one question per topic from a fixed starter set
//   - Branching (5-19): known topics mixed with topics never shown
//   - Normal (20+): weighted draws from liked topics plus discovery slots
//
// Once cold start is done, SelectBatch scores every candidate, splits the pool
// into buckets by how much of its topic path the user already knows, and fills
// 70% of the batch from known territory and 30% from the frontier.
//
// A diversity governor (package diversity) keeps any single topic from
// dominating a cold start batch.
//
// # Purity
//
// Every operation takes a profile and returns a new one; the caller's profile
// is never mutated. Persist the returned profile before the next call for the
// same user. Calls for one user must be serialized by the caller; calls for
// different users may run concurrently.
//
// # Usage
//
//	engine, err := feed.NewEngine(feed.DefaultConfig(), logger)
//	if err != nil {
//	    return err
//	}
//
//	batch := engine.SelectBatch(pool, profile, 20)
//	profile = batch.Profile
//
//	profile, change := engine.ApplyInteraction(profile, record, item)
package feed
