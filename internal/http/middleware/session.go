package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SessionCfg holds configuration for session middleware.
type SessionCfg struct {
	DB         *gorm.DB
	CookieName string
	Secure     bool
	TTL        time.Duration
}

// Session is a database-backed session model. Password handling and session
// issuance live in the auth layer; this service only resolves the session
// into a user id and role.
type Session struct {
	ID         string    `gorm:"primaryKey;type:char(36)"`
	UserID     string    `gorm:"type:char(36);not null;index:ix_sessions_user_id"`
	ExpiresAt  time.Time `gorm:"precision:3;not null"`
	CreatedAt  time.Time `gorm:"precision:3;not null"`
	LastSeenAt time.Time `gorm:"precision:3;not null"`
}

func (Session) TableName() string { return "sessions" }

// ContextUser represents the authenticated user stored in request context.
type ContextUser struct {
	ID    string
	Email string
	Role  string
}

// SessionMiddleware loads a session from the cookie or the Authorization
// bearer token and sets user info in context. Unauthenticated requests pass
// through; RequireAuth/RequireAdmin enforce access.
func SessionMiddleware(cfg SessionCfg) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := bearerToken(c)
		if sessionID == "" {
			if v, err := c.Cookie(cfg.CookieName); err == nil {
				sessionID = v
			}
		}
		if sessionID == "" {
			c.Next()
			return
		}

		var sess Session
		if err := cfg.DB.Where("id = ? AND expires_at > ?", sessionID, time.Now()).First(&sess).Error; err != nil {
			c.Next()
			return
		}

		var row struct {
			Email string
			Role  string
		}
		if err := cfg.DB.Table("users").Select("email", "role").Where("id = ?", sess.UserID).Take(&row).Error; err != nil {
			c.Next()
			return
		}

		c.Set("user", ContextUser{ID: sess.UserID, Email: row.Email, Role: row.Role})
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (ContextUser, bool) {
	v, ok := c.Get("user")
	if !ok {
		return ContextUser{}, false
	}
	u, ok := v.(ContextUser)
	return u, ok
}

func bearerToken(c *gin.Context) string {
	const prefix = "Bearer "
	h := c.GetHeader("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}
