package models

import (
	"time"

	"gorm.io/gorm"
)

// Flag 用户对评价的举报。一个用户在同一审核周期内只能举报一次。
type Flag struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ReviewID    uint       `gorm:"not null;index;uniqueIndex:idx_flag_submitter_cycle" json:"review_id"`
	SubmitterID uint       `gorm:"not null;index;uniqueIndex:idx_flag_submitter_cycle" json:"submitter_id"`
	Cycle       int        `gorm:"not null;uniqueIndex:idx_flag_submitter_cycle" json:"cycle"`
	Reason      string     `gorm:"size:64;not null" json:"reason"`
	Note        string     `gorm:"size:255" json:"note,omitempty"`
	ArchivedAt  *time.Time `gorm:"index" json:"archived_at,omitempty"` // set when a dismissal closes the cycle
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
}

// ActiveFlags limits a query to flags of the current (unarchived) cycle.
func ActiveFlags(db *gorm.DB) *gorm.DB {
	return db.Where("archived_at IS NULL")
}
