package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ChallengeTTL is how long an emailed sign-in code stays valid
const ChallengeTTL = 10 * time.Minute

var (
	ErrInvalidChallenge = errors.New("invalid challenge")
	ErrExpiredChallenge = errors.New("challenge has expired")
)

// IssueChallenge signs a challenge token naming the stored login code.
// The token carries nothing derived from the code itself.
func IssueChallenge(secret, codeID string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        codeID,
		ExpiresAt: jwt.NewNumericDate(now.Add(ChallengeTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    "ridealong",
		Subject:   "otp",
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign challenge: %w", err)
	}
	return signed, nil
}

// ParseChallenge checks the token and returns the login code ID it names
func ParseChallenge(secret, token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer("ridealong"), jwt.WithSubject("otp"))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredChallenge
		}
		return "", ErrInvalidChallenge
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid || claims.ID == "" {
		return "", ErrInvalidChallenge
	}
	return claims.ID, nil
}
