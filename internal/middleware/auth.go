package middleware

import (
	"context"
	"net/http"

	"coursesearch/internal/models"
	"coursesearch/internal/moderation"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	CheckUserKey   = "user"
	UnreadCountKey = "unread_count"
	SessionUserKey = "user_id"
)

// UnreadCounter reports a user's unread notifications. *services.Notifier
// satisfies it.
type UnreadCounter interface {
	UnreadCount(ctx context.Context, userID uint) (int64, error)
}

// LoadUser retrieves the user from the session and sets it on the context.
// The session is written by the external identity provider's login flow.
func LoadUser(db *gorm.DB, unread UnreadCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := session.Get(SessionUserKey)
		if userID == nil {
			c.Next()
			return
		}

		var user models.User
		if err := db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
			log.Debug().Err(err).Interface("user_id", userID).Msg("Session user not found")
			c.Next()
			return
		}
		c.Set(CheckUserKey, &user)

		count, err := unread.UnreadCount(c.Request.Context(), user.ID)
		if err != nil {
			log.Error().Err(err).Uint("user_id", user.ID).Msg("Failed to count unread notifications")
		}
		c.Set(UnreadCountKey, count)

		c.Next()
	}
}

// AuthRequired ensures a user is logged in.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
			return
		}
		c.Next()
	}
}

// AdminRequired ensures the logged in user has the admin role.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
			return
		}
		if !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user loaded by LoadUser, or nil.
func CurrentUser(c *gin.Context) *models.User {
	u, ok := c.Get(CheckUserKey)
	if !ok {
		return nil
	}
	user, _ := u.(*models.User)
	return user
}

// CurrentActor is CurrentUser projected for the moderation service.
func CurrentActor(c *gin.Context) moderation.Actor {
	return moderation.ActorOf(CurrentUser(c))
}
