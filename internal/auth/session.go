package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ridealong/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	// SessionCookieName holds the session ID
	SessionCookieName = "ridealong_session"
	// StateCookieName holds the OAuth state between login and callback
	StateCookieName = "ridealong_oauth_state"

	tokenBytes = 32
	stateTTL   = 10 * time.Minute
)

var (
	ErrNoSession      = errors.New("session cookie not found")
	ErrSessionExpired = errors.New("session expired")
)

// randomToken returns a URL-safe random string carrying tokenBytes of entropy
func randomToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// setCookie writes an HttpOnly cookie for the whole site. Cookies are
// Secure everywhere except gin debug mode, which runs over plain HTTP.
func setCookie(c *gin.Context, name, value string, maxAge time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, int(maxAge.Seconds()), "/", "", gin.Mode() != gin.DebugMode, true)
}

func clearCookie(c *gin.Context, name string) {
	c.SetCookie(name, "", -1, "/", "", false, true)
}

// CreateSession stores a session for user and sets the session cookie
func CreateSession(c *gin.Context, db *gorm.DB, user *models.User, provider string) (*models.Session, error) {
	id, err := randomToken()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	now := time.Now().UTC()
	session := models.Session{
		ID:        id,
		UserID:    user.ID,
		Provider:  provider,
		CreatedAt: now,
		ExpiresAt: now.Add(models.SessionDuration),
	}
	if err := db.WithContext(c.Request.Context()).Create(&session).Error; err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	setCookie(c, SessionCookieName, id, models.SessionDuration)
	return &session, nil
}

// GetSession loads the cookie's session together with its user. An expired
// session is deleted and reported as ErrSessionExpired.
func GetSession(c *gin.Context, db *gorm.DB) (*models.Session, error) {
	id, err := c.Cookie(SessionCookieName)
	if err != nil || id == "" {
		return nil, ErrNoSession
	}

	var session models.Session
	err = db.WithContext(c.Request.Context()).Preload("User").First(&session, "id = ?", id).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNoSession
	case err != nil:
		return nil, fmt.Errorf("load session: %w", err)
	}

	if session.ExpiredAt(time.Now()) {
		DeleteSession(c, db)
		return nil, ErrSessionExpired
	}
	return &session, nil
}

// DeleteSession removes the cookie's session, if any, and clears the cookie
func DeleteSession(c *gin.Context, db *gorm.DB) {
	if id, err := c.Cookie(SessionCookieName); err == nil && id != "" {
		db.WithContext(c.Request.Context()).Delete(&models.Session{}, "id = ?", id)
	}
	clearCookie(c, SessionCookieName)
}

// PurgeExpiredSessions deletes sessions that expired before now
func PurgeExpiredSessions(db *gorm.DB, now time.Time) (int64, error) {
	result := db.Where("expires_at < ?", now.UTC()).Delete(&models.Session{})
	return result.RowsAffected, result.Error
}

// SetOAuthState stores a random state in a short-lived cookie and returns it
func SetOAuthState(c *gin.Context) (string, error) {
	state, err := randomToken()
	if err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	setCookie(c, StateCookieName, state, stateTTL)
	return state, nil
}

// VerifyOAuthState compares the callback's state with the cookie and clears it
func VerifyOAuthState(c *gin.Context, received string) bool {
	saved, err := c.Cookie(StateCookieName)
	if err != nil {
		return false
	}
	clearCookie(c, StateCookieName)
	return saved != "" && saved == received
}
