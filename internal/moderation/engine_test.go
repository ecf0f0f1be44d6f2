package moderation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"coursesearch/internal/errs"
	"coursesearch/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	states := []models.ReviewState{models.ReviewVisible, models.ReviewFlagged, models.ReviewRemoved}
	allowed := map[[2]models.ReviewState]bool{
		{models.ReviewVisible, models.ReviewFlagged}: true,
		{models.ReviewFlagged, models.ReviewRemoved}: true,
		{models.ReviewFlagged, models.ReviewVisible}: true,
	}
	for _, from := range states {
		for _, to := range states {
			assert.Equal(t, allowed[[2]models.ReviewState{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestDeriveState(t *testing.T) {
	uphold := &models.Resolution{Outcome: models.OutcomeUphold}
	dismiss := &models.Resolution{Outcome: models.OutcomeDismiss}

	assert.Equal(t, models.ReviewVisible, DeriveState(0, 3, nil))
	assert.Equal(t, models.ReviewVisible, DeriveState(2, 3, nil))
	assert.Equal(t, models.ReviewFlagged, DeriveState(3, 3, nil))
	assert.Equal(t, models.ReviewFlagged, DeriveState(7, 3, dismiss))
	assert.Equal(t, models.ReviewVisible, DeriveState(0, 3, dismiss))
	assert.Equal(t, models.ReviewRemoved, DeriveState(0, 3, uphold))
}

func TestThresholdFlagsReview(t *testing.T) {
	f := setup(t)
	review := f.submit(t, "CS101", studentA)

	f.flag(t, review.ID, user1, user2)
	assert.Equal(t, models.ReviewVisible, f.state(t, review.ID), "T-1 flags keep the review visible")
	assert.Equal(t, int64(2), f.active(t, review.ID))

	_, err := f.svc.Ledger.FileFlag(context.Background(), review.ID, user3, "offensive", "slur in second paragraph")
	require.NoError(t, err)

	got, err := f.svc.Reviews.Get(context.Background(), review.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewFlagged, got.State)
	require.NotNil(t, got.FlaggedAt)
	require.NotNil(t, got.TriggerFlagID)

	var trigger models.Flag
	require.NoError(t, f.db.First(&trigger, *got.TriggerFlagID).Error)
	assert.Equal(t, user3.ID, trigger.SubmitterID)
	assert.True(t, trigger.CreatedAt.Equal(*got.FlaggedAt))

	flagged := f.events.ofType(EventReviewFlagged)
	require.Len(t, flagged, 1)
	assert.Equal(t, review.ID, flagged[0].Review.ID)

	// more flags while queued do not re-trigger
	f.flag(t, review.ID, Actor{ID: 14, Role: models.RoleStudent})
	assert.Equal(t, models.ReviewFlagged, f.state(t, review.ID))
	assert.Len(t, f.events.ofType(EventReviewFlagged), 1)
}

func TestFileFlagRejects(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	review := f.submit(t, "CS101", studentA)
	f.flag(t, review.ID, user1)

	_, err := f.svc.Ledger.FileFlag(ctx, review.ID, user1, "offensive", "")
	assert.ErrorIs(t, err, errs.ErrDuplicateFlag)
	assert.Equal(t, int64(1), f.active(t, review.ID), "duplicate does not count")

	_, err = f.svc.Ledger.FileFlag(ctx, 9999, user2, "spam", "")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.svc.Ledger.FileFlag(ctx, review.ID, user2, "boring", "")
	assert.ErrorIs(t, err, errs.ErrValidation)
	_, err = f.svc.Ledger.FileFlag(ctx, review.ID, user2, " ", "")
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = f.svc.Ledger.FileFlag(ctx, review.ID, studentA, "spam", "")
	assert.ErrorIs(t, err, errs.ErrValidation, "authors cannot flag themselves")

	_, err = f.svc.Ledger.FileFlag(ctx, review.ID, Actor{}, "spam", "")
	assert.ErrorIs(t, err, errs.ErrForbidden)

	assert.Equal(t, int64(1), f.active(t, review.ID))
}

func TestFlagReasonIsNormalized(t *testing.T) {
	f := setup(t)
	review := f.submit(t, "CS101", studentA)

	flag, err := f.svc.Ledger.FileFlag(context.Background(), review.ID, user1, "  SPAM ", " link farm ")
	require.NoError(t, err)
	assert.Equal(t, "spam", flag.Reason)
	assert.Equal(t, "link farm", flag.Note)
	assert.Equal(t, 1, flag.Cycle)
}

func TestDailyFlagQuota(t *testing.T) {
	f := setup(t, func(p *Policy) {
		p.FlagDailyLimit = 2
		p.FlagThreshold = 10
	})
	ctx := context.Background()

	var reviews []models.Review
	for i := 0; i < 3; i++ {
		reviews = append(reviews, f.submit(t, "CS101", Actor{ID: uint(50 + i), Role: models.RoleStudent}))
	}
	f.flag(t, reviews[0].ID, user1)
	f.flag(t, reviews[1].ID, user1)

	_, err := f.svc.Ledger.FileFlag(ctx, reviews[2].ID, user1, "spam", "")
	assert.ErrorIs(t, err, errs.ErrQuotaExceeded)

	f.flag(t, reviews[2].ID, user2)
}

func TestDailyFlagQuotaUnderConcurrency(t *testing.T) {
	const limit, reviews = 2, 6
	f := setup(t, func(p *Policy) { p.FlagDailyLimit = limit })
	ctx := context.Background()

	ids := make([]uint, 0, reviews)
	for i := 0; i < reviews; i++ {
		ids = append(ids, f.submit(t, "CS101", Actor{ID: uint(60 + i), Role: models.RoleStudent}).ID)
	}

	var wg sync.WaitGroup
	results := make(chan error, reviews)
	for _, id := range ids {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			_, err := f.svc.Ledger.FileFlag(ctx, id, user1, "spam", "")
			results <- err
		}(id)
	}
	wg.Wait()
	close(results)

	accepted, limited := 0, 0
	for err := range results {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, errs.ErrQuotaExceeded):
			limited++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, limit, accepted)
	assert.Equal(t, reviews-limit, limited)

	var stored int64
	require.NoError(t, f.db.Model(&models.Flag{}).Where("submitter_id = ?", user1.ID).Count(&stored).Error)
	assert.Equal(t, int64(limit), stored)
	assert.Zero(t, f.svc.Ledger.flaggers.size())
}

func TestUpholdRemovesReview(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	review := f.submit(t, "CS101", studentA)
	other := f.submit(t, "CS101", user3)
	f.flag(t, review.ID, user1, user2, user3)

	res, err := f.svc.Engine.Resolve(ctx, review.ID, admin1, models.OutcomeUphold)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeUphold, res.Outcome)
	assert.Equal(t, admin1.ID, res.AdminID)
	assert.Equal(t, 1, res.Cycle)

	got, err := f.svc.Reviews.Get(ctx, review.ID)
	require.NoError(t, err, "tombstoned reviews stay retrievable")
	assert.Equal(t, models.ReviewRemoved, got.State)
	assert.NotNil(t, got.RemovedAt)
	assert.Equal(t, "Solid intro, heavy workload.", got.Body)

	queued, err := Collect(f.svc.Queue.ListFlagged(ctx))
	require.NoError(t, err)
	assert.Empty(t, queued)

	listed, err := Collect(f.svc.Reviews.ListByCourse(ctx, "CS101"))
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, other.ID, listed[0].ID)

	derived, err := f.svc.Engine.State(ctx, review.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewRemoved, derived)

	// removed is terminal
	_, err = f.svc.Ledger.FileFlag(ctx, review.ID, Actor{ID: 20, Role: models.RoleStudent}, "spam", "")
	assert.ErrorIs(t, err, errs.ErrAlreadyRemoved)
	_, err = f.svc.Engine.Resolve(ctx, review.ID, admin1, models.OutcomeDismiss)
	assert.ErrorIs(t, err, errs.ErrInvalidState)

	removed := f.events.ofType(EventReviewRemoved)
	require.Len(t, removed, 1)
	assert.Equal(t, models.ReviewRemoved, removed[0].Review.State)
	assert.Equal(t, admin1, removed[0].Actor)
}

func TestDismissStartsNewCycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	review := f.submit(t, "CS101", studentA)
	f.flag(t, review.ID, user1, user2, user3)

	_, err := f.svc.Engine.Resolve(ctx, review.ID, admin1, models.OutcomeDismiss)
	require.NoError(t, err)

	got, err := f.svc.Reviews.Get(ctx, review.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewVisible, got.State)
	assert.Equal(t, 2, got.Cycle)
	assert.Nil(t, got.FlaggedAt)
	assert.Nil(t, got.TriggerFlagID)
	assert.Equal(t, int64(0), f.active(t, review.ID))

	// archived, not deleted
	history, err := f.svc.Ledger.History(ctx, review.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	for _, fl := range history {
		assert.NotNil(t, fl.ArchivedAt)
	}

	// the old flags do not count toward the new threshold
	f.flag(t, review.ID, user1, user2)
	assert.Equal(t, models.ReviewVisible, f.state(t, review.ID))
	f.flag(t, review.ID, user3)
	assert.Equal(t, models.ReviewFlagged, f.state(t, review.ID))

	res, err := f.svc.Engine.Resolve(ctx, review.ID, admin1, models.OutcomeUphold)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Cycle)

	all, err := f.svc.Engine.Resolutions(ctx, review.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, models.OutcomeDismiss, all[0].Outcome)
	assert.Equal(t, models.OutcomeUphold, all[1].Outcome)
	assert.Len(t, f.events.ofType(EventReviewRestored), 1)
}

func TestResolveTwiceFails(t *testing.T) {
	for _, outcome := range []models.Outcome{models.OutcomeUphold, models.OutcomeDismiss} {
		t.Run(string(outcome), func(t *testing.T) {
			f := setup(t)
			ctx := context.Background()
			review := f.submit(t, "CS101", studentA)
			f.flag(t, review.ID, user1, user2, user3)

			_, err := f.svc.Engine.Resolve(ctx, review.ID, admin1, outcome)
			require.NoError(t, err)
			_, err = f.svc.Engine.Resolve(ctx, review.ID, admin1, outcome)
			assert.ErrorIs(t, err, errs.ErrInvalidState)

			var n int64
			require.NoError(t, f.db.Model(&models.Resolution{}).Where("review_id = ?", review.ID).Count(&n).Error)
			assert.Equal(t, int64(1), n)
		})
	}
}

func TestResolveRejects(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	review := f.submit(t, "CS101", studentA)

	_, err := f.svc.Engine.Resolve(ctx, review.ID, admin1, models.OutcomeUphold)
	assert.ErrorIs(t, err, errs.ErrInvalidState, "visible reviews cannot be resolved")

	_, err = f.svc.Engine.Resolve(ctx, 9999, admin1, models.OutcomeUphold)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	f.flag(t, review.ID, user1, user2, user3)
	_, err = f.svc.Engine.Resolve(ctx, review.ID, user1, models.OutcomeUphold)
	assert.ErrorIs(t, err, errs.ErrForbidden)
	_, err = f.svc.Engine.Resolve(ctx, review.ID, admin1, models.Outcome("ban"))
	assert.ErrorIs(t, err, errs.ErrValidation)

	assert.Equal(t, models.ReviewFlagged, f.state(t, review.ID))
}

// Scenario: T=3, Student A reviews CS101, U1..U3 flag it, admin dismisses,
// U1 flags again.
func TestDismissScenario(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	r := f.submit(t, "CS101", studentA)
	f.flag(t, r.ID, user1, user2, user3)
	require.Equal(t, models.ReviewFlagged, f.state(t, r.ID))

	_, err := f.svc.Engine.Resolve(ctx, r.ID, admin1, models.OutcomeDismiss)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewVisible, f.state(t, r.ID))
	assert.Equal(t, int64(0), f.active(t, r.ID))

	f.flag(t, r.ID, user1)
	assert.Equal(t, int64(1), f.active(t, r.ID))
	assert.Equal(t, models.ReviewVisible, f.state(t, r.ID))
}

func TestConcurrentFlagsFlagExactlyOnce(t *testing.T) {
	f := setup(t, func(p *Policy) { p.FlagDailyLimit = 0 })
	ctx := context.Background()
	review := f.submit(t, "CS101", studentA)

	const submitters = 12
	var wg sync.WaitGroup
	errCh := make(chan error, submitters)
	for i := 0; i < submitters; i++ {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			_, err := f.svc.Ledger.FileFlag(ctx, review.ID, Actor{ID: id, Role: models.RoleStudent}, "spam", "")
			errCh <- err
		}(uint(200 + i))
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}

	got, err := f.svc.Reviews.Get(ctx, review.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewFlagged, got.State)
	assert.Equal(t, int64(submitters), f.active(t, review.ID))
	assert.Len(t, f.events.ofType(EventReviewFlagged), 1)

	history, err := f.svc.Ledger.History(ctx, review.ID)
	require.NoError(t, err)
	ids := make([]uint, 0, len(history))
	for _, fl := range history {
		ids = append(ids, fl.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	require.NotNil(t, got.TriggerFlagID)
	assert.Equal(t, ids[2], *got.TriggerFlagID, "the third accepted flag triggers the transition")
	assert.Zero(t, f.svc.Engine.locks.size())
}

func TestConcurrentResolveAppliesOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	review := f.submit(t, "CS101", studentA)
	f.flag(t, review.ID, user1, user2, user3)

	var wg sync.WaitGroup
	results := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome := models.OutcomeUphold
			if i%2 == 1 {
				outcome = models.OutcomeDismiss
			}
			_, err := f.svc.Engine.Resolve(ctx, review.ID, admin1, outcome)
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	ok, invalid := 0, 0
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, errs.ErrInvalidState):
			invalid++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 3, invalid)
}
