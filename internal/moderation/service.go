package moderation

import (
	"context"
	"errors"
	"time"

	"coursesearch/internal/errs"
	"coursesearch/internal/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CourseLookup resolves catalog keys. *catalog.Store satisfies it.
type CourseLookup interface {
	Get(ctx context.Context, key string) (models.Course, error)
}

// Service bundles the review store, flag ledger, moderation engine and the
// admin triage queue. All four share one database handle, one lock table
// and one listener list.
type Service struct {
	Reviews *Reviews
	Ledger  *Ledger
	Engine  *Engine
	Queue   *Queue
}

type core struct {
	db        *gorm.DB
	policy    Policy
	log       zerolog.Logger
	now       func() time.Time
	locks     *keyLock // per review
	flaggers  *keyLock // per submitter, guards the daily quota
	listeners []Listener
}

type Option func(*core)

func WithLogger(l zerolog.Logger) Option {
	return func(c *core) { c.log = l.With().Str("component", "moderation").Logger() }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *core) { c.now = now }
}

// WithListener registers l for every committed event.
func WithListener(l Listener) Option {
	return func(c *core) { c.listeners = append(c.listeners, l) }
}

func New(db *gorm.DB, courses CourseLookup, policy Policy, opts ...Option) *Service {
	c := &core{
		db:       db,
		policy:   policy,
		log:      zerolog.Nop(),
		now:      func() time.Time { return time.Now().UTC() },
		locks:    newKeyLock(),
		flaggers: newKeyLock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return &Service{
		Reviews: &Reviews{core: c, courses: courses},
		Ledger:  &Ledger{core: c},
		Engine:  &Engine{core: c},
		Queue:   &Queue{core: c},
	}
}

// Policy returns the active moderation policy.
func (s *Service) Policy() Policy {
	return s.Engine.policy
}

// withReview serializes on reviewID and runs fn inside one transaction with
// the freshly loaded review. On postgres the row is also locked, which keeps
// several server processes from interleaving on the same review.
func (c *core) withReview(ctx context.Context, reviewID uint, fn func(tx *gorm.DB, review *models.Review) error) error {
	unlock := c.locks.Lock(reviewID)
	defer unlock()

	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var review models.Review
		if err := q.First(&review, reviewID).Error; err != nil {
			return notFound(err, "review %d", reviewID)
		}
		return fn(tx, &review)
	})
}

// transition moves review to state to, guarded by the current state in the
// WHERE clause, and reloads it.
func (c *core) transition(tx *gorm.DB, review *models.Review, to models.ReviewState, extra map[string]any) error {
	from := review.State
	if !CanTransition(from, to) {
		return errs.Wrapf(errs.ErrInvalidState, "review %d: %s -> %s", review.ID, from, to)
	}

	updates := map[string]any{"state": to, "updated_at": c.now()}
	for k, v := range extra {
		updates[k] = v
	}
	res := tx.Model(&models.Review{}).Where("id = ? AND state = ?", review.ID, from).Updates(updates)
	if res.Error != nil {
		return errs.Wrapf(res.Error, "update review %d", review.ID)
	}
	if res.RowsAffected != 1 {
		return errs.Wrapf(errs.ErrInvalidState, "review %d changed concurrently", review.ID)
	}
	if err := tx.First(review, review.ID).Error; err != nil {
		return errs.Wrapf(err, "reload review %d", review.ID)
	}

	c.log.Info().Uint("review_id", review.ID).Str("from", string(from)).Str("to", string(to)).Int("cycle", review.Cycle).Msg("Review state changed")
	return nil
}

func (c *core) emit(ctx context.Context, events ...Event) {
	for _, ev := range events {
		for _, l := range c.listeners {
			l(ctx, ev)
		}
	}
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.Wrapf(errs.ErrNotFound, format, args...)
	}
	return errs.Wrapf(err, "load "+format, args...)
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
