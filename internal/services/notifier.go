package services

import (
	"context"
	"fmt"

	"coursesearch/internal/errs"
	"coursesearch/internal/models"
	"coursesearch/internal/moderation"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Notifier turns moderation events into in-app notifications: admins hear
// about newly queued reviews, authors hear about decisions on theirs.
type Notifier struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewNotifier(db *gorm.DB, log zerolog.Logger) *Notifier {
	return &Notifier{db: db, log: log.With().Str("component", "notifier").Logger()}
}

// Listen is a moderation.Listener. Failures are logged, never returned:
// the moderation decision has already committed.
func (n *Notifier) Listen(ctx context.Context, ev moderation.Event) {
	var err error
	switch ev.Type {
	case moderation.EventReviewFlagged:
		err = n.notifyAdmins(ctx, ev)
	case moderation.EventReviewRemoved:
		err = n.notifyAuthor(ctx, ev, models.NotificationTypeReviewRemoved,
			fmt.Sprintf("Your review of %s was removed by a moderator.", ev.Review.CourseKey))
	case moderation.EventReviewRestored:
		err = n.notifyAuthor(ctx, ev, models.NotificationTypeReviewRestored,
			fmt.Sprintf("Reports against your review of %s were dismissed.", ev.Review.CourseKey))
	default:
		return
	}
	if err != nil {
		n.log.Error().Err(err).Str("event", string(ev.Type)).Uint("review_id", ev.Review.ID).Msg("Failed to create notification")
	}
}

func (n *Notifier) notifyAdmins(ctx context.Context, ev moderation.Event) error {
	var admins []models.User
	if err := n.db.WithContext(ctx).Where("role = ?", models.RoleAdmin).Find(&admins).Error; err != nil {
		return errs.Wrap(err, "load admins")
	}
	if len(admins) == 0 {
		return nil
	}

	reason := fmt.Sprintf("A review of %s reached the flag threshold.", ev.Review.CourseKey)
	if ev.Flag != nil {
		reason = fmt.Sprintf("A review of %s reached the flag threshold (last reason: %s).", ev.Review.CourseKey, ev.Flag.Reason)
	}
	reviewID := ev.Review.ID
	batch := make([]models.Notification, 0, len(admins))
	for _, admin := range admins {
		batch = append(batch, models.Notification{
			UserID:   admin.ID,
			ReviewID: &reviewID,
			Type:     models.NotificationTypeReviewFlagged,
			Reason:   reason,
		})
	}
	return errs.Wrap(n.db.WithContext(ctx).Create(&batch).Error, "create admin notifications")
}

func (n *Notifier) notifyAuthor(ctx context.Context, ev moderation.Event, typ models.NotificationType, reason string) error {
	reviewID := ev.Review.ID
	note := models.Notification{
		UserID:   ev.Review.AuthorID,
		ReviewID: &reviewID,
		Type:     typ,
		Reason:   reason,
	}
	if ev.Actor.ID != 0 {
		actorID := ev.Actor.ID
		note.ActorID = &actorID
	}
	return errs.Wrap(n.db.WithContext(ctx).Create(&note).Error, "create author notification")
}

// List returns the newest notifications of userID.
func (n *Notifier) List(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []models.Notification
	err := n.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	return out, errs.Wrap(err, "list notifications")
}

// UnreadCount 未读通知数
func (n *Notifier) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := n.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, errs.Wrap(err, "count unread notifications")
}

// MarkRead marks one of userID's notifications read. Other users'
// notifications are reported as not found.
func (n *Notifier) MarkRead(ctx context.Context, userID, id uint) error {
	res := n.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return errs.Wrap(res.Error, "mark notification read")
	}
	if res.RowsAffected == 0 {
		return errs.Wrapf(errs.ErrNotFound, "notification %d", id)
	}
	return nil
}

// MarkAllRead 全部标记已读
func (n *Notifier) MarkAllRead(ctx context.Context, userID uint) error {
	err := n.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
	return errs.Wrap(err, "mark notifications read")
}
