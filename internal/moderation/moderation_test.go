package moderation

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"coursesearch/internal/catalog"
	"coursesearch/internal/db"
	"coursesearch/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	studentA = Actor{ID: 1, Role: models.RoleStudent}
	user1    = Actor{ID: 11, Role: models.RoleStudent}
	user2    = Actor{ID: 12, Role: models.RoleStudent}
	user3    = Actor{ID: 13, Role: models.RoleStudent}
	admin1   = Actor{ID: 100, Role: models.RoleAdmin}
)

// fakeClock advances one second per reading so ordering is deterministic.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) listen(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) ofType(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	svc    *Service
	db     *gorm.DB
	events *recorder
	clock  *fakeClock
}

func setup(t *testing.T, mutate ...func(*Policy)) *fixture {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "moderation.sqlite")
	database, err := db.Open(context.Background(), "sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(database) })

	for _, c := range []models.Course{
		{SubjectCode: "CS", CourseCode: "101", Title: "Introduction to Computer Science"},
		{SubjectCode: "MATH", CourseCode: "51", Title: "Linear Algebra"},
	} {
		require.NoError(t, database.Create(&c).Error)
	}

	policy := DefaultPolicy()
	policy.FlagThreshold = 3
	for _, m := range mutate {
		m(&policy)
	}

	rec := &recorder{}
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := New(database, catalog.NewStore(database), policy,
		WithClock(clock.Now),
		WithListener(rec.listen),
	)
	return &fixture{svc: svc, db: database, events: rec, clock: clock}
}

func (f *fixture) submit(t *testing.T, course string, author Actor) models.Review {
	t.Helper()
	review, err := f.svc.Reviews.Submit(context.Background(), course, author, "Solid intro, heavy workload.", 4)
	require.NoError(t, err)
	return review
}

func (f *fixture) flag(t *testing.T, reviewID uint, users ...Actor) {
	t.Helper()
	for _, u := range users {
		_, err := f.svc.Ledger.FileFlag(context.Background(), reviewID, u, "spam", "")
		require.NoError(t, err)
	}
}

func (f *fixture) state(t *testing.T, reviewID uint) models.ReviewState {
	t.Helper()
	review, err := f.svc.Reviews.Get(context.Background(), reviewID)
	require.NoError(t, err)
	return review.State
}

func (f *fixture) active(t *testing.T, reviewID uint) int64 {
	t.Helper()
	n, err := f.svc.Ledger.CountActive(context.Background(), reviewID)
	require.NoError(t, err)
	return n
}
