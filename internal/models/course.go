package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Course 课程目录记录。由外部导入写入，审核子系统只读。
type Course struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Key         string         `gorm:"column:course_key;uniqueIndex;size:32;not null" json:"key"` // e.g. CS101
	SubjectCode string         `gorm:"size:16;not null;uniqueIndex:idx_subject_course" json:"subject_code"`
	CourseCode  string         `gorm:"size:16;not null;uniqueIndex:idx_subject_course" json:"course_code"`
	Title       string         `gorm:"not null" json:"title"`
	Metadata    datatypes.JSON `json:"metadata,omitempty"` // credits, term, instructors...
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// CourseKey joins subject and course code into the catalog identity.
func CourseKey(subject, code string) string {
	return strings.ToUpper(strings.TrimSpace(subject) + strings.TrimSpace(code))
}

// BeforeSave keeps Key in sync with the composite identity.
func (c *Course) BeforeSave(tx *gorm.DB) error {
	c.SubjectCode = strings.ToUpper(strings.TrimSpace(c.SubjectCode))
	c.CourseCode = strings.ToUpper(strings.TrimSpace(c.CourseCode))
	c.Key = CourseKey(c.SubjectCode, c.CourseCode)
	return nil
}
