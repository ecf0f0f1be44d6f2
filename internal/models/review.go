package models

import (
	"time"

	"gorm.io/gorm"
)

type ReviewState string

const (
	ReviewVisible ReviewState = "visible"
	ReviewFlagged ReviewState = "flagged"
	ReviewRemoved ReviewState = "removed" // tombstone, terminal
)

// Review 学生对课程的评价。删除只打墓碑，不物理删除。
type Review struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	CourseKey     string      `gorm:"size:32;not null;index" json:"course_key"`
	AuthorID      uint        `gorm:"not null;index" json:"author_id"`
	Body          string      `gorm:"type:text;not null" json:"body"`
	Rating        int         `gorm:"not null" json:"rating"`
	State         ReviewState `gorm:"size:16;not null;index" json:"state"`
	Cycle         int         `gorm:"not null" json:"cycle"`        // current moderation cycle, starts at 1
	FlaggedAt     *time.Time  `gorm:"index" json:"flagged_at"`      // createdAt of the flag that crossed the threshold
	TriggerFlagID *uint       `json:"trigger_flag_id,omitempty"`
	RemovedAt     *time.Time  `json:"removed_at,omitempty"`
	CreatedAt     time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Removed reports whether the review is tombstoned.
func (r *Review) Removed() bool {
	return r.State == ReviewRemoved
}

// ActiveReviews filters out tombstoned reviews. Every public read path applies it.
func ActiveReviews(db *gorm.DB) *gorm.DB {
	return db.Where("state <> ?", ReviewRemoved)
}
