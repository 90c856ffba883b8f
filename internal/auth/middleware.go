package auth

import (
	"errors"
	"net/http"

	"ridealong/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Context keys set by AuthMiddleware
const (
	ContextUser   = "user"
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// AuthMiddleware validates the session cookie and stores the signed-in user
func AuthMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := GetSession(c, db)
		if err != nil {
			msg := "authentication required"
			if errors.Is(err, ErrSessionExpired) {
				msg = "session expired, please log in again"
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
			c.Abort()
			return
		}

		user := session.User
		c.Set(ContextUser, &user)
		c.Set(ContextUserID, user.ID)
		c.Set(ContextRole, user.Role)

		c.Next()
	}
}

// RequireRole rejects users whose role is not one of roles. It must run after AuthMiddleware.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			c.Abort()
			return
		}

		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{"error": "you do not have access to this resource"})
		c.Abort()
	}
}

// CurrentUser returns the user stored by AuthMiddleware
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(ContextUser)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}
