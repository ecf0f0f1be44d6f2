package db

import (
	"context"

	"coursesearch/internal/errs"
	"coursesearch/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DemoCourses is the catalog used by `server -seed` for local development.
var DemoCourses = []models.Course{
	{SubjectCode: "CS", CourseCode: "101", Title: "Introduction to Computer Science", Metadata: datatypes.JSON(`{"credits":4}`)},
	{SubjectCode: "CS", CourseCode: "161", Title: "Data Structures and Algorithms", Metadata: datatypes.JSON(`{"credits":4}`)},
	{SubjectCode: "MATH", CourseCode: "51", Title: "Linear Algebra", Metadata: datatypes.JSON(`{"credits":5}`)},
	{SubjectCode: "PHYS", CourseCode: "41", Title: "Mechanics", Metadata: datatypes.JSON(`{"credits":4}`)},
}

// SeedCourses inserts the given courses, skipping keys that already exist.
func SeedCourses(ctx context.Context, database *gorm.DB, courses []models.Course) (int, error) {
	created := 0
	for _, course := range courses {
		key := models.CourseKey(course.SubjectCode, course.CourseCode)
		var count int64
		if err := database.WithContext(ctx).Model(&models.Course{}).Where("course_key = ?", key).Count(&count).Error; err != nil {
			return created, errs.Wrapf(err, "check course %s", key)
		}
		if count > 0 {
			continue
		}
		if err := database.WithContext(ctx).Create(&course).Error; err != nil {
			return created, errs.Wrapf(err, "create course %s", key)
		}
		created++
	}
	log.Info().Int("created", created).Msg("Catalog seed finished")
	return created, nil
}

// SeedAdmin makes sure an admin projection exists so the panel is usable locally.
func SeedAdmin(ctx context.Context, database *gorm.DB, username string) (models.User, error) {
	admin := models.User{Username: username, Role: models.RoleAdmin}
	err := database.WithContext(ctx).
		Where(models.User{Username: username}).
		Attrs(models.User{Role: models.RoleAdmin}).
		FirstOrCreate(&admin).Error
	return admin, errs.Wrap(err, "seed admin")
}
