package models

import (
	"time"
)

type Outcome string

const (
	OutcomeUphold  Outcome = "uphold"  // review is removed
	OutcomeDismiss Outcome = "dismiss" // flags archived, review visible again
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	return o == OutcomeUphold || o == OutcomeDismiss
}

// Resolution 管理员对一个审核周期的裁决，每个周期至多一条。
type Resolution struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ReviewID  uint      `gorm:"not null;uniqueIndex:idx_resolution_cycle" json:"review_id"`
	Cycle     int       `gorm:"not null;uniqueIndex:idx_resolution_cycle" json:"cycle"`
	AdminID   uint      `gorm:"not null;index" json:"admin_id"`
	Outcome   Outcome   `gorm:"size:16;not null" json:"outcome"`
	DecidedAt time.Time `gorm:"not null" json:"decided_at"`
}
