package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"coursesearch/internal/errs"
	"coursesearch/internal/models"
	"coursesearch/internal/moderation"
	"coursesearch/internal/utils"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	statsQueueSize = 1000
	statsBatchSize = 50
	statsFlushTick = 500 * time.Millisecond
)

// StatsService 异步重算课程评价统计。同一课程在队列中只保留一份，
// 重算只统计未被移除的评价。
type StatsService struct {
	db     *gorm.DB
	log    zerolog.Logger
	rating utils.RatingConfig
	now    func() time.Time

	queue   chan string
	mu      sync.Mutex
	pending map[string]bool
}

func NewStatsService(db *gorm.DB, rating utils.RatingConfig, log zerolog.Logger) *StatsService {
	return &StatsService{
		db:      db,
		log:     log.With().Str("component", "stats").Logger(),
		rating:  rating,
		now:     func() time.Time { return time.Now().UTC() },
		queue:   make(chan string, statsQueueSize),
		pending: make(map[string]bool),
	}
}

// Listen is a moderation.Listener: every event that changes a course's
// visible set schedules a recompute.
func (s *StatsService) Listen(_ context.Context, ev moderation.Event) {
	switch ev.Type {
	case moderation.EventReviewSubmitted, moderation.EventReviewRemoved, moderation.EventReviewRestored:
		s.Schedule(ev.Review.CourseKey)
	}
}

// Schedule queues courseKey without blocking. It reports false when the
// course is already pending or the queue is full.
func (s *StatsService) Schedule(courseKey string) bool {
	s.mu.Lock()
	if s.pending[courseKey] {
		s.mu.Unlock()
		return false
	}
	s.pending[courseKey] = true
	s.mu.Unlock()

	select {
	case s.queue <- courseKey:
		return true
	default:
		s.done(courseKey)
		s.log.Warn().Str("course", courseKey).Msg("Stats queue full, skipping")
		return false
	}
}

// Run drains the queue in batches until ctx is cancelled.
func (s *StatsService) Run(ctx context.Context) {
	batch := make([]string, 0, statsBatchSize)
	ticker := time.NewTicker(statsFlushTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case key := <-s.queue:
			batch = append(batch, key)
			if len(batch) >= statsBatchSize {
				s.processBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.processBatch(ctx, batch)
				batch = batch[:0]
			}
		}
	}
}

func (s *StatsService) processBatch(ctx context.Context, keys []string) {
	for _, key := range keys {
		if _, err := s.Refresh(ctx, key); err != nil {
			s.log.Error().Err(err).Str("course", key).Msg("Failed to refresh course stats")
		}
		s.done(key)
	}
}

func (s *StatsService) done(key string) {
	s.mu.Lock()
	delete(s.pending, key)
	s.mu.Unlock()
}

// Refresh recomputes and stores the stats of one course synchronously.
func (s *StatsService) Refresh(ctx context.Context, courseKey string) (models.CourseStats, error) {
	db := s.db.WithContext(ctx)

	var agg struct {
		N     int64
		Total int64
	}
	if err := db.Model(&models.Review{}).
		Scopes(models.ActiveReviews).
		Select("COUNT(*) AS n, COALESCE(SUM(rating), 0) AS total").
		Where("course_key = ?", courseKey).
		Scan(&agg).Error; err != nil {
		return models.CourseStats{}, errs.Wrapf(err, "aggregate reviews of %s", courseKey)
	}

	stats := models.CourseStats{
		CourseKey:      courseKey,
		ReviewCount:    int(agg.N),
		WeightedRating: utils.WeightedRating(s.rating, float64(agg.Total), int(agg.N)),
		UpdatedAt:      s.now(),
	}
	if agg.N > 0 {
		stats.RatingAvg = float64(agg.Total) / float64(agg.N)

		var latest models.Review
		err := db.Scopes(models.ActiveReviews).
			Where("course_key = ?", courseKey).
			Order("created_at DESC").
			First(&latest).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return models.CourseStats{}, errs.Wrapf(err, "latest review of %s", courseKey)
		}
		if err == nil {
			at := latest.CreatedAt
			stats.LastReviewAt = &at
		}
	}

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "course_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"review_count", "rating_avg", "weighted_rating", "last_review_at", "updated_at"}),
	}).Create(&stats).Error
	if err != nil {
		return models.CourseStats{}, errs.Wrapf(err, "store stats of %s", courseKey)
	}
	return stats, nil
}

// RefreshAll recomputes every catalog course. Used on startup and by -seed.
func (s *StatsService) RefreshAll(ctx context.Context) (int, error) {
	var keys []string
	if err := s.db.WithContext(ctx).Model(&models.Course{}).Order("course_key").Pluck("course_key", &keys).Error; err != nil {
		return 0, errs.Wrap(err, "list course keys")
	}
	for _, key := range keys {
		if _, err := s.Refresh(ctx, key); err != nil {
			return 0, err
		}
	}
	s.log.Info().Int("courses", len(keys)).Msg("Course stats refreshed")
	return len(keys), nil
}

// Get returns the stored stats of a course, or empty stats when none were
// computed yet.
func (s *StatsService) Get(ctx context.Context, courseKey string) (models.CourseStats, error) {
	var stats models.CourseStats
	err := s.db.WithContext(ctx).Where("course_key = ?", courseKey).First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.CourseStats{CourseKey: courseKey, WeightedRating: s.rating.PriorMean}, nil
	}
	return stats, errs.Wrapf(err, "load stats of %s", courseKey)
}

// All returns every stored stats row keyed by course.
func (s *StatsService) All(ctx context.Context) (map[string]models.CourseStats, error) {
	var rows []models.CourseStats
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "load course stats")
	}
	out := make(map[string]models.CourseStats, len(rows))
	for _, r := range rows {
		out[r.CourseKey] = r
	}
	return out, nil
}
