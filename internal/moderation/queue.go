package moderation

import (
	"context"
	"iter"

	"coursesearch/internal/errs"
	"coursesearch/internal/models"

	"gorm.io/gorm"
)

// Queue is the admin triage view over flagged reviews. It never writes.
type Queue struct {
	*core
}

// ListFlagged streams flagged reviews first-in first-out, ordered by the
// time of the flag that pushed each review over the threshold.
func (q *Queue) ListFlagged(ctx context.Context) iter.Seq2[models.Review, error] {
	return scanReviews(func() *gorm.DB {
		return q.db.WithContext(ctx).
			Model(&models.Review{}).
			Where("state = ?", models.ReviewFlagged).
			Order("flagged_at ASC").
			Order("id ASC")
	})
}

// Pending returns the queue length.
func (q *Queue) Pending(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.WithContext(ctx).Model(&models.Review{}).Where("state = ?", models.ReviewFlagged).Count(&n).Error
	return n, errs.Wrap(err, "count flagged reviews")
}
