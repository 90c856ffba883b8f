package models

import (
	"time"

	"gorm.io/gorm"
)

// MaxLoginCodeAttempts is how many wrong codes a challenge survives
const MaxLoginCodeAttempts = 5

// LoginCode is an emailed one-time sign-in code. Only its bcrypt hash is
// stored, and the row is deleted once the code is used or locked out.
type LoginCode struct {
	ID        string    `gorm:"primaryKey;size:64" json:"-"`
	Email     string    `gorm:"size:255;not null;index" json:"-"`
	CodeHash  string    `gorm:"size:100;not null" json:"-"`
	Attempts  int       `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time `gorm:"not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null;index" json:"-"`
}

func (lc *LoginCode) BeforeCreate(tx *gorm.DB) error {
	if lc.CreatedAt.IsZero() {
		lc.CreatedAt = time.Now()
	}
	lc.CreatedAt = lc.CreatedAt.UTC()
	lc.ExpiresAt = lc.ExpiresAt.UTC()
	return nil
}

// ExpiredAt reports whether the code can no longer be used at now
func (lc *LoginCode) ExpiredAt(now time.Time) bool {
	return !now.Before(lc.ExpiresAt)
}
