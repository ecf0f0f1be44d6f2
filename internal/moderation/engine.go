package moderation

import (
	"context"
	"errors"

	"coursesearch/internal/errs"
	"coursesearch/internal/models"

	"gorm.io/gorm"
)

// Engine owns the review state machine:
//
//	visible -> flagged -> removed (terminal)
//	               \----> visible (dismissed, new cycle)
type Engine struct {
	*core
}

// applyFlag re-counts the active flags after flag was inserted and queues
// the review once the threshold is reached. Reviews already flagged or
// removed are left alone. Runs inside the FileFlag transaction.
func (c *core) applyFlag(tx *gorm.DB, review *models.Review, flag models.Flag) (bool, error) {
	active, err := countActive(tx, review.ID)
	if err != nil {
		return false, err
	}
	if review.State != models.ReviewVisible {
		return false, nil
	}
	if DeriveState(active, c.policy.FlagThreshold, nil) != models.ReviewFlagged {
		return false, nil
	}

	err = c.transition(tx, review, models.ReviewFlagged, map[string]any{
		"flagged_at":      flag.CreatedAt,
		"trigger_flag_id": flag.ID,
	})
	return err == nil, err
}

// Resolve applies an admin decision to a flagged review. Upholding removes
// the review; dismissing archives the cycle's flags and makes it visible
// again. Reviews that are not flagged, including ones resolved a moment
// ago, are rejected with errs.ErrInvalidState.
func (e *Engine) Resolve(ctx context.Context, reviewID uint, admin Actor, outcome models.Outcome) (models.Resolution, error) {
	if !admin.IsAdmin() {
		return models.Resolution{}, errs.Wrapf(errs.ErrForbidden, "user %d is not an admin", admin.ID)
	}
	if !outcome.Valid() {
		return models.Resolution{}, errs.Invalid("outcome", "must be %q or %q", models.OutcomeUphold, models.OutcomeDismiss)
	}

	var (
		resolution models.Resolution
		event      Event
	)
	err := e.withReview(ctx, reviewID, func(tx *gorm.DB, review *models.Review) error {
		if review.State != models.ReviewFlagged {
			return errs.Wrapf(errs.ErrInvalidState, "review %d is %s", review.ID, review.State)
		}

		now := e.now()
		resolution = models.Resolution{
			ReviewID:  review.ID,
			Cycle:     review.Cycle,
			AdminID:   admin.ID,
			Outcome:   outcome,
			DecidedAt: now,
		}
		if err := tx.Create(&resolution).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errs.Wrapf(errs.ErrInvalidState, "review %d cycle %d already resolved", review.ID, review.Cycle)
			}
			return errs.Wrap(err, "create resolution")
		}

		switch outcome {
		case models.OutcomeUphold:
			if err := e.tombstone(tx, review, now); err != nil {
				return err
			}
			event = Event{Type: EventReviewRemoved}
		case models.OutcomeDismiss:
			if err := e.archiveCycle(tx, review, now); err != nil {
				return err
			}
			if err := e.transition(tx, review, models.ReviewVisible, map[string]any{
				"cycle":           review.Cycle + 1,
				"flagged_at":      nil,
				"trigger_flag_id": nil,
			}); err != nil {
				return err
			}
			event = Event{Type: EventReviewRestored}
		}
		event.Review = *review
		return nil
	})
	if err != nil {
		return models.Resolution{}, err
	}

	e.log.Info().Uint("review_id", reviewID).Uint("admin_id", admin.ID).Str("outcome", string(outcome)).Msg("Review resolved")
	event.Actor = admin
	event.Resolution = &resolution
	e.emit(ctx, event)
	return resolution, nil
}

// State recomputes a review's state from the ledger and its resolutions.
// It agrees with the stored state for every review the engine has touched.
func (e *Engine) State(ctx context.Context, reviewID uint) (models.ReviewState, error) {
	db := e.db.WithContext(ctx)

	var review models.Review
	if err := db.First(&review, reviewID).Error; err != nil {
		return "", notFound(err, "review %d", reviewID)
	}
	active, err := countActive(db, reviewID)
	if err != nil {
		return "", err
	}

	var latest *models.Resolution
	var res models.Resolution
	err = db.Where("review_id = ?", reviewID).Order("cycle DESC").First(&res).Error
	switch {
	case err == nil:
		latest = &res
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return "", errs.Wrapf(err, "load resolution of review %d", reviewID)
	}
	return DeriveState(active, e.policy.FlagThreshold, latest), nil
}

// Resolutions lists the decisions taken on a review, oldest first.
func (e *Engine) Resolutions(ctx context.Context, reviewID uint) ([]models.Resolution, error) {
	var out []models.Resolution
	err := e.db.WithContext(ctx).Where("review_id = ?", reviewID).Order("cycle ASC").Find(&out).Error
	return out, errs.Wrapf(err, "resolutions of review %d", reviewID)
}
