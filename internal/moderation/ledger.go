package moderation

import (
	"context"
	"errors"
	"strings"
	"time"

	"coursesearch/internal/errs"
	"coursesearch/internal/models"

	"gorm.io/gorm"
)

// Ledger is the append-only record of flags. Counts are always computed
// from it, never cached.
type Ledger struct {
	*core
}

// FileFlag records submitter's flag against a review and lets the engine
// re-evaluate the review's state in the same transaction.
func (l *Ledger) FileFlag(ctx context.Context, reviewID uint, submitter Actor, reason, note string) (models.Flag, error) {
	if submitter.ID == 0 {
		return models.Flag{}, errs.Wrap(errs.ErrForbidden, "anonymous flag")
	}
	reason = normalizeReason(reason)
	if reason == "" {
		return models.Flag{}, errs.Invalid("reason", "must not be empty")
	}
	if !l.policy.validReason(reason) {
		return models.Flag{}, errs.Invalid("reason", "unknown reason %q", reason)
	}
	note = strings.TrimSpace(note)
	if len(note) > 255 {
		return models.Flag{}, errs.Invalid("note", "must be at most 255 bytes")
	}

	// the daily quota counts across reviews; taken before the review lock
	unlock := l.flaggers.Lock(submitter.ID)
	defer unlock()

	var (
		flag   models.Flag
		events []Event
	)
	err := l.withReview(ctx, reviewID, func(tx *gorm.DB, review *models.Review) error {
		if review.Removed() {
			return errs.Wrapf(errs.ErrAlreadyRemoved, "review %d", review.ID)
		}
		if review.AuthorID == submitter.ID {
			return errs.Invalid("submitter", "cannot flag your own review")
		}

		var dup int64
		if err := tx.Model(&models.Flag{}).Scopes(models.ActiveFlags).
			Where("review_id = ? AND submitter_id = ?", review.ID, submitter.ID).
			Count(&dup).Error; err != nil {
			return errs.Wrap(err, "check duplicate flag")
		}
		if dup > 0 {
			return errs.Wrapf(errs.ErrDuplicateFlag, "review %d submitter %d", review.ID, submitter.ID)
		}
		if err := l.checkQuota(tx, submitter.ID); err != nil {
			return err
		}

		flag = models.Flag{
			ReviewID:    review.ID,
			SubmitterID: submitter.ID,
			Cycle:       review.Cycle,
			Reason:      reason,
			Note:        note,
			CreatedAt:   l.now(),
		}
		if err := tx.Create(&flag).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errs.Wrapf(errs.ErrDuplicateFlag, "review %d submitter %d", review.ID, submitter.ID)
			}
			return errs.Wrap(err, "create flag")
		}

		flagged, err := l.applyFlag(tx, review, flag)
		if err != nil {
			return err
		}
		if flagged {
			events = append(events, Event{Type: EventReviewFlagged, Review: *review, Actor: submitter, Flag: &flag})
		}
		return nil
	})
	if err != nil {
		return models.Flag{}, err
	}

	l.emit(ctx, events...)
	return flag, nil
}

// CountActive returns the number of flags filed in the review's current cycle.
func (l *Ledger) CountActive(ctx context.Context, reviewID uint) (int64, error) {
	return countActive(l.db.WithContext(ctx), reviewID)
}

// History lists every flag of a review, archived cycles included, oldest first.
func (l *Ledger) History(ctx context.Context, reviewID uint) ([]models.Flag, error) {
	var flags []models.Flag
	err := l.db.WithContext(ctx).
		Where("review_id = ?", reviewID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&flags).Error
	return flags, errs.Wrapf(err, "flag history of review %d", reviewID)
}

// FlaggedBy reports whether submitter has an active flag on the review.
func (l *Ledger) FlaggedBy(ctx context.Context, reviewID, submitterID uint) (bool, error) {
	var n int64
	err := l.db.WithContext(ctx).Model(&models.Flag{}).Scopes(models.ActiveFlags).
		Where("review_id = ? AND submitter_id = ?", reviewID, submitterID).
		Count(&n).Error
	return n > 0, errs.Wrap(err, "lookup flag")
}

// archiveCycle closes the current cycle's flags. Only the Engine calls it,
// when dismissing.
func (c *core) archiveCycle(tx *gorm.DB, review *models.Review, at time.Time) error {
	err := tx.Model(&models.Flag{}).Scopes(models.ActiveFlags).
		Where("review_id = ?", review.ID).
		Update("archived_at", at).Error
	return errs.Wrapf(err, "archive flags of review %d", review.ID)
}

// quotaLockSpace namespaces the postgres advisory locks taken per submitter.
const quotaLockSpace int64 = 0x666c6167

// checkQuota enforces the per-submitter daily flag limit. On postgres an
// advisory lock held until commit serializes submitters across processes.
func (c *core) checkQuota(tx *gorm.DB, submitterID uint) error {
	limit := c.policy.FlagDailyLimit
	if limit <= 0 {
		return nil
	}
	if tx.Dialector.Name() == "postgres" {
		key := quotaLockSpace<<32 | int64(uint32(submitterID))
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", key).Error; err != nil {
			return errs.Wrapf(err, "lock flag quota of user %d", submitterID)
		}
	}
	var today int64
	if err := tx.Model(&models.Flag{}).
		Where("submitter_id = ? AND created_at >= ?", submitterID, startOfDay(c.now())).
		Count(&today).Error; err != nil {
		return errs.Wrap(err, "count today's flags")
	}
	if today >= int64(limit) {
		return errs.Wrapf(errs.ErrQuotaExceeded, "%d flags today", today)
	}
	return nil
}

func countActive(db *gorm.DB, reviewID uint) (int64, error) {
	var n int64
	err := db.Model(&models.Flag{}).Scopes(models.ActiveFlags).
		Where("review_id = ?", reviewID).
		Count(&n).Error
	return n, errs.Wrapf(err, "count flags of review %d", reviewID)
}
