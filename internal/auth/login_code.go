package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"ridealong/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrWrongCode       = errors.New("wrong code")
	ErrTooManyAttempts = errors.New("too many wrong codes")
)

// GenerateCode returns a random six digit code
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// NewCodeID returns an opaque login code identifier
func NewCodeID() (string, error) {
	return randomToken()
}

// CreateLoginCode stores a bcrypt hash of code for email and returns the row
func CreateLoginCode(db *gorm.DB, email, code string, now time.Time) (*models.LoginCode, error) {
	id, err := NewCodeID()
	if err != nil {
		return nil, fmt.Errorf("generate code id: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash code: %w", err)
	}

	lc := &models.LoginCode{
		ID:        id,
		Email:     strings.ToLower(email),
		CodeHash:  string(hash),
		CreatedAt: now,
		ExpiresAt: now.Add(ChallengeTTL),
	}
	if err := db.Create(lc).Error; err != nil {
		return nil, fmt.Errorf("store login code: %w", err)
	}
	return lc, nil
}

// RedeemLoginCode checks code against the stored login code and returns its
// email. A matching code is deleted so it signs in exactly once; the
// MaxLoginCodeAttempts-th wrong code deletes it too.
func RedeemLoginCode(db *gorm.DB, id, code string, now time.Time) (string, error) {
	var lc models.LoginCode
	if err := db.Where("id = ?", id).First(&lc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidChallenge
		}
		return "", err
	}

	if lc.ExpiredAt(now) {
		db.Delete(&models.LoginCode{}, "id = ?", id)
		return "", ErrExpiredChallenge
	}

	if bcrypt.CompareHashAndPassword([]byte(lc.CodeHash), []byte(code)) != nil {
		result := db.Model(&models.LoginCode{}).
			Where("id = ? AND attempts < ?", id, models.MaxLoginCodeAttempts).
			UpdateColumn("attempts", gorm.Expr("attempts + 1"))
		if result.Error != nil {
			return "", result.Error
		}
		if result.RowsAffected == 0 || lc.Attempts+1 >= models.MaxLoginCodeAttempts {
			if err := db.Delete(&models.LoginCode{}, "id = ?", id).Error; err != nil {
				return "", err
			}
			return "", ErrTooManyAttempts
		}
		return "", ErrWrongCode
	}

	// Concurrent redeems of the same code race on the delete; only one wins.
	result := db.Delete(&models.LoginCode{}, "id = ?", id)
	if result.Error != nil {
		return "", result.Error
	}
	if result.RowsAffected != 1 {
		return "", ErrInvalidChallenge
	}
	return lc.Email, nil
}

// PurgeExpiredLoginCodes deletes login codes that expired before now
func PurgeExpiredLoginCodes(db *gorm.DB, now time.Time) (int64, error) {
	result := db.Where("expires_at < ?", now.UTC()).Delete(&models.LoginCode{})
	return result.RowsAffected, result.Error
}
