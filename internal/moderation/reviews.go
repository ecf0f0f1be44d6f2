package moderation

import (
	"context"
	"errors"
	"iter"
	"strings"
	"time"
	"unicode/utf8"

	"coursesearch/internal/catalog"
	"coursesearch/internal/errs"
	"coursesearch/internal/models"
	"coursesearch/internal/utils"

	"gorm.io/gorm"
)

// Reviews stores student reviews. State changes happen only through the Engine.
type Reviews struct {
	*core
	courses CourseLookup
}

// Submit records a new visible review of courseKey by author.
func (r *Reviews) Submit(ctx context.Context, courseKey string, author Actor, body string, rating int) (models.Review, error) {
	if author.ID == 0 {
		return models.Review{}, errs.Wrap(errs.ErrForbidden, "anonymous review")
	}

	body = strings.TrimSpace(body)
	if utils.PlainText(body) == "" {
		return models.Review{}, errs.Invalid("body", "must not be empty")
	}
	if r.policy.BodyMaxLength > 0 && utf8.RuneCountInString(body) > r.policy.BodyMaxLength {
		return models.Review{}, errs.Invalid("body", "must be at most %d characters", r.policy.BodyMaxLength)
	}
	if rating < r.policy.RatingMin || rating > r.policy.RatingMax {
		return models.Review{}, errs.Invalid("rating", "must be between %d and %d", r.policy.RatingMin, r.policy.RatingMax)
	}

	course, err := r.courses.Get(ctx, courseKey)
	if errors.Is(err, errs.ErrNotFound) {
		return models.Review{}, errs.Wrapf(errs.ErrInvalidReference, "course %q", courseKey)
	}
	if err != nil {
		return models.Review{}, err
	}

	review := models.Review{
		CourseKey: course.Key,
		AuthorID:  author.ID,
		Body:      body,
		Rating:    rating,
		State:     models.ReviewVisible,
		Cycle:     1,
		CreatedAt: r.now(),
	}
	if err := r.db.WithContext(ctx).Create(&review).Error; err != nil {
		return models.Review{}, errs.Wrap(err, "create review")
	}

	r.log.Debug().Uint("review_id", review.ID).Str("course", review.CourseKey).Uint("author_id", author.ID).Msg("Review submitted")
	r.emit(ctx, Event{Type: EventReviewSubmitted, Review: review, Actor: author})
	return review, nil
}

// Get returns a review in any state; removed reviews stay readable for audit.
func (r *Reviews) Get(ctx context.Context, id uint) (models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).First(&review, id).Error; err != nil {
		return models.Review{}, notFound(err, "review %d", id)
	}
	return review, nil
}

// ListByCourse streams the non-removed reviews of a course, newest first.
func (r *Reviews) ListByCourse(ctx context.Context, courseKey string) iter.Seq2[models.Review, error] {
	key, err := catalog.NormalizeKey(courseKey)
	if err != nil {
		// malformed keys match no course
		key = strings.ToUpper(strings.TrimSpace(courseKey))
	}
	return scanReviews(func() *gorm.DB {
		return r.db.WithContext(ctx).
			Model(&models.Review{}).
			Scopes(models.ActiveReviews).
			Where("course_key = ?", key).
			Order("created_at DESC").
			Order("id DESC")
	})
}

// tombstone marks review removed. Only the Engine calls it, when upholding.
func (c *core) tombstone(tx *gorm.DB, review *models.Review, at time.Time) error {
	return c.transition(tx, review, models.ReviewRemoved, map[string]any{"removed_at": at})
}

// scanReviews runs build on every range so the sequence can be restarted.
func scanReviews(build func() *gorm.DB) iter.Seq2[models.Review, error] {
	return func(yield func(models.Review, error) bool) {
		query := build()
		rows, err := query.Rows()
		if err != nil {
			yield(models.Review{}, errs.Wrap(err, "query reviews"))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var review models.Review
			if err := query.ScanRows(rows, &review); err != nil {
				yield(models.Review{}, errs.Wrap(err, "scan review"))
				return
			}
			if !yield(review, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(models.Review{}, errs.Wrap(err, "iterate reviews"))
		}
	}
}

// Collect drains seq into a slice, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for v, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}
