// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package feed

// ApplyInteraction folds one interaction into the profile and returns the
// updated copy together with the weight change it caused.
//
// The record is stored under item.ID, replacing any earlier record for the
// same question. Grading the same question again applies the deltas again.
// A zero ViewedAt is replaced by the engine clock.
func (e *Engine) ApplyInteraction(p *Profile, rec InteractionRecord, item Item) (*Profile, WeightChange) {
	if rec.ViewedAt.IsZero() {
		rec.ViewedAt = e.clock()
	}

	next, change := applyInteraction(&e.config.Deltas, p, rec, item)

	e.logger.Debug().
		Str("user_id", next.UserID).
		Str("question_id", item.ID).
		Str("classification", change.Classification.String()).
		Float64("topic_weight", change.TopicAfter).
		Bool("compensated", change.Compensated).
		Msg("interaction applied")

	return next, change
}

func applyInteraction(cfg *DeltaConfig, p *Profile, rec InteractionRecord, item Item) (*Profile, WeightChange) {
	next := p.Clone()
	rec.QuestionID = item.ID
	class := rec.Classify()

	prev, hadPrev := next.Interactions[item.ID]
	topic, subtopic, branch := next.touch(item)

	change := WeightChange{
		QuestionID:     item.ID,
		Topic:          item.Topic,
		Subtopic:       item.Subtopic,
		Branch:         item.Branch,
		Classification: class,
		TopicBefore:    topic.Weight,
		SubtopicBefore: subtopic.Weight,
		BranchBefore:   branch.Weight,
	}

	delta := cfg.forClass(class)
	if hadPrev && prev.WasSkipped && rec.HasOutcome() {
		delta = delta.add(cfg.compensation(class))
		change.Compensated = true
	}

	topic.Weight = adjustWeight(topic.Weight, delta.Topic)
	subtopic.Weight = adjustWeight(subtopic.Weight, delta.Subtopic)
	branch.Weight = adjustWeight(branch.Weight, delta.Branch)

	topic.LastViewed = rec.ViewedAt
	subtopic.LastViewed = rec.ViewedAt
	branch.LastViewed = rec.ViewedAt

	change.TopicAfter = topic.Weight
	change.SubtopicAfter = subtopic.Weight
	change.BranchAfter = branch.Weight

	next.Interactions[item.ID] = rec
	if rec.HasOutcome() {
		next.TotalQuestionsAnswered++
	}

	if !next.ColdStartComplete && class != ClassViewed {
		next.Pending = append(next.Pending, PendingOutcome{
			QuestionID:  item.ID,
			Topic:       item.Topic,
			Outcome:     class,
			TopicBefore: change.TopicBefore,
		})
		if over := len(next.Pending) - maxPending; over > 0 {
			next.Pending = next.Pending[over:]
		}
	}

	return next, change
}
