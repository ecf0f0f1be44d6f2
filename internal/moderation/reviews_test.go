package moderation

import (
	"context"
	"strings"
	"testing"

	"coursesearch/internal/errs"
	"coursesearch/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	review, err := f.svc.Reviews.Submit(ctx, "cs-101", studentA, "  Great lectures.  ", 5)
	require.NoError(t, err)

	assert.NotZero(t, review.ID)
	assert.Equal(t, "CS101", review.CourseKey)
	assert.Equal(t, "Great lectures.", review.Body)
	assert.Equal(t, models.ReviewVisible, review.State)
	assert.Equal(t, 1, review.Cycle)
	assert.Nil(t, review.FlaggedAt)

	submitted := f.events.ofType(EventReviewSubmitted)
	require.Len(t, submitted, 1)
	assert.Equal(t, review.ID, submitted[0].Review.ID)
}

func TestSubmitRejects(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		course string
		author Actor
		body   string
		rating int
		want   error
		field  string
	}{
		{"unknown course", "EE999", studentA, "fine", 3, errs.ErrInvalidReference, ""},
		{"malformed course", "???", studentA, "fine", 3, errs.ErrInvalidReference, ""},
		{"empty body", "CS101", studentA, "   ", 3, errs.ErrValidation, "body"},
		{"markup only body", "CS101", studentA, "<script>x()</script>", 3, errs.ErrValidation, "body"},
		{"too long", "CS101", studentA, strings.Repeat("a", 5001), 3, errs.ErrValidation, "body"},
		{"rating too low", "CS101", studentA, "fine", 0, errs.ErrValidation, "rating"},
		{"rating too high", "CS101", studentA, "fine", 6, errs.ErrValidation, "rating"},
		{"anonymous", "CS101", Actor{}, "fine", 3, errs.ErrForbidden, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Reviews.Submit(ctx, tt.course, tt.author, tt.body, tt.rating)
			require.ErrorIs(t, err, tt.want)
			if tt.field != "" {
				assert.Equal(t, tt.field, errs.Field(err))
			}
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&models.Review{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGetUnknownReview(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Reviews.Get(context.Background(), 404)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestListByCourseNewestFirst(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first := f.submit(t, "CS101", studentA)
	second := f.submit(t, "CS101", user1)
	f.submit(t, "MATH51", user2)

	// same timestamp: tie broken on id, descending
	third := models.Review{CourseKey: "CS101", AuthorID: user3.ID, Body: "ok", Rating: 3, State: models.ReviewVisible, Cycle: 1, CreatedAt: second.CreatedAt}
	require.NoError(t, f.db.Create(&third).Error)

	reviews, err := Collect(f.svc.Reviews.ListByCourse(ctx, "cs101"))
	require.NoError(t, err)
	require.Len(t, reviews, 3)
	assert.Equal(t, []uint{third.ID, second.ID, first.ID}, []uint{reviews[0].ID, reviews[1].ID, reviews[2].ID})

	again, err := Collect(f.svc.Reviews.ListByCourse(ctx, "CS101"))
	require.NoError(t, err)
	assert.Len(t, again, 3, "sequence is restartable")

	none, err := Collect(f.svc.Reviews.ListByCourse(ctx, "nope"))
	require.NoError(t, err)
	assert.Empty(t, none)
}
