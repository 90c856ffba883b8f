package models

import (
	"time"

	"gorm.io/gorm"
)

// SessionDuration bounds how long a sign-in lasts
const SessionDuration = 7 * 24 * time.Hour

// Session is a signed-in browser. Its ID is the random value of the session cookie.
type Session struct {
	ID        string    `gorm:"primaryKey;size:64" json:"-"`
	UserID    string    `gorm:"size:36;not null;index" json:"-"`
	Provider  string    `gorm:"size:20;not null" json:"-"` // otp, google
	CreatedAt time.Time `gorm:"not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null;index" json:"-"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// BeforeCreate fills in the lifetime when the caller left it empty
func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	if s.ExpiresAt.IsZero() {
		s.ExpiresAt = s.CreatedAt.Add(SessionDuration)
	}
	s.CreatedAt = s.CreatedAt.UTC()
	s.ExpiresAt = s.ExpiresAt.UTC()
	return nil
}

// ExpiredAt reports whether the session is no longer valid at now
func (s *Session) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
