package models

import (
	"time"
)

type NotificationType string

const (
	NotificationTypeReviewFlagged  NotificationType = "review_flagged"  // 评价进入审核队列（发给管理员）
	NotificationTypeReviewRemoved  NotificationType = "review_removed"  // 评价被移除（发给作者）
	NotificationTypeReviewRestored NotificationType = "review_restored" // 举报被驳回（发给作者）
)

type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"not null;index" json:"user_id"` // Receiver
	ActorID   *uint            `gorm:"index" json:"actor_id"`         // Sender
	ReviewID  *uint            `gorm:"index" json:"review_id"`
	Type      NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	Reason    string           `gorm:"type:text" json:"reason"`
	IsRead    bool             `gorm:"default:false;index" json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}
