package catalog

import (
	"context"
	"errors"
	"iter"
	"regexp"
	"strings"
	"time"

	"coursesearch/internal/errs"
	"coursesearch/internal/models"
	"coursesearch/internal/utils"

	"gorm.io/gorm"
)

const (
	cacheSize = 500
	cacheTTL  = 10 * time.Minute
)

var keyPattern = regexp.MustCompile(`^([A-Za-z]{2,8})[\s\-_]?([0-9]{1,4}[A-Za-z]{0,2})$`)

// Store is the read-only catalog view used by reviews and indexers.
type Store struct {
	db    *gorm.DB
	cache *utils.TTLCache[string, models.Course]
}

func NewStore(db *gorm.DB) *Store {
	cache, err := utils.NewTTLCache[string, models.Course](cacheSize, cacheTTL)
	if err != nil {
		// only fails for a non-positive size
		panic(err)
	}
	return &Store{db: db, cache: cache}
}

// ParseKey splits a user supplied key such as "cs101" or "CS-101".
func ParseKey(raw string) (subject, code string, err error) {
	m := keyPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", "", errs.Invalid("course_key", "%q is not a course key", raw)
	}
	return strings.ToUpper(m[1]), strings.ToUpper(m[2]), nil
}

// NormalizeKey returns the canonical form of raw, e.g. "cs-101" -> "CS101".
func NormalizeKey(raw string) (string, error) {
	subject, code, err := ParseKey(raw)
	if err != nil {
		return "", err
	}
	return models.CourseKey(subject, code), nil
}

// Get returns the course for key or errs.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (models.Course, error) {
	normalized, err := NormalizeKey(key)
	if err != nil {
		return models.Course{}, errs.Wrapf(errs.ErrNotFound, "course %q", key)
	}
	if course, ok := s.cache.Get(normalized); ok {
		return course, nil
	}

	var course models.Course
	err = s.db.WithContext(ctx).Where("course_key = ?", normalized).First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Course{}, errs.Wrapf(errs.ErrNotFound, "course %s", normalized)
	}
	if err != nil {
		return models.Course{}, errs.Wrapf(err, "load course %s", normalized)
	}
	s.cache.Set(normalized, course)
	return course, nil
}

// List streams the whole catalog. Each range over the returned sequence runs
// a fresh query, so the sequence can be consumed again. No order is promised.
func (s *Store) List(ctx context.Context) iter.Seq2[models.Course, error] {
	return func(yield func(models.Course, error) bool) {
		rows, err := s.db.WithContext(ctx).Model(&models.Course{}).Rows()
		if err != nil {
			yield(models.Course{}, errs.Wrap(err, "list courses"))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var course models.Course
			if err := s.db.ScanRows(rows, &course); err != nil {
				yield(models.Course{}, errs.Wrap(err, "scan course"))
				return
			}
			if !yield(course, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(models.Course{}, errs.Wrap(err, "iterate courses"))
		}
	}
}
