package models

import (
	"time"
)

// CourseStats 课程评价统计，由后台服务异步重算。与 Course 分表以保持目录记录不可变。
type CourseStats struct {
	CourseKey      string     `gorm:"primaryKey;size:32" json:"course_key"`
	ReviewCount    int        `gorm:"not null;default:0" json:"review_count"`
	RatingAvg      float64    `gorm:"not null;default:0" json:"rating_avg"`
	WeightedRating float64    `gorm:"not null;default:0" json:"weighted_rating"`
	LastReviewAt   *time.Time `json:"last_review_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
