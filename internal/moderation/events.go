package moderation

import (
	"context"

	"coursesearch/internal/models"
)

type EventType string

const (
	EventReviewSubmitted EventType = "review_submitted"
	EventReviewFlagged   EventType = "review_flagged"  // entered the triage queue
	EventReviewRemoved   EventType = "review_removed"  // upheld
	EventReviewRestored  EventType = "review_restored" // dismissed
)

// Event describes a committed change. Listeners run after the transaction
// commits and cannot veto it.
type Event struct {
	Type       EventType
	Review     models.Review
	Actor      Actor
	Flag       *models.Flag
	Resolution *models.Resolution
}

// Listener reacts to committed moderation events.
type Listener func(ctx context.Context, ev Event)
