package moderation

import (
	"slices"
	"strings"

	"coursesearch/internal/config"
	"coursesearch/internal/models"
)

// Actor is the caller of a mutating operation, as asserted by the identity
// provider. The engine trusts the role and never re-checks credentials.
type Actor struct {
	ID   uint
	Role models.Role
}

func (a Actor) IsAdmin() bool {
	return a.ID != 0 && a.Role == models.RoleAdmin
}

// ActorOf projects a loaded user onto an Actor.
func ActorOf(u *models.User) Actor {
	if u == nil {
		return Actor{}
	}
	return Actor{ID: u.ID, Role: u.Role}
}

// Policy holds the tunable moderation values.
type Policy struct {
	FlagThreshold  int // active flags needed to queue a review (T)
	RatingMin      int
	RatingMax      int
	BodyMaxLength  int // in runes
	FlagReasons    []string
	FlagDailyLimit int // flags per submitter per UTC day, 0 disables
}

func DefaultPolicy() Policy {
	return Policy{
		FlagThreshold:  3,
		RatingMin:      1,
		RatingMax:      5,
		BodyMaxLength:  5000,
		FlagReasons:    []string{"spam", "offensive", "off-topic", "inaccurate"},
		FlagDailyLimit: 10,
	}
}

// PolicyFromConfig overlays the configured values on DefaultPolicy.
func PolicyFromConfig(cfg config.Config) Policy {
	p := DefaultPolicy()
	if cfg.FlagThreshold > 0 {
		p.FlagThreshold = cfg.FlagThreshold
	}
	if cfg.RatingMax >= cfg.RatingMin && cfg.RatingMax > 0 {
		p.RatingMin, p.RatingMax = cfg.RatingMin, cfg.RatingMax
	}
	if len(cfg.FlagReasons) > 0 {
		p.FlagReasons = cfg.FlagReasons
	}
	p.FlagDailyLimit = cfg.FlagDailyLimit
	return p
}

func (p Policy) validReason(reason string) bool {
	return slices.Contains(p.FlagReasons, reason)
}

func normalizeReason(reason string) string {
	return strings.ToLower(strings.TrimSpace(reason))
}
