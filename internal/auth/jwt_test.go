package auth

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "test-secret"

func TestChallengeRoundTrip(t *testing.T) {
	token, err := IssueChallenge(testSecret, "code-123", time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	id, err := ParseChallenge(testSecret, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id != "code-123" {
		t.Errorf("expected code-123, got %q", id)
	}
}

func TestParseChallengeRejects(t *testing.T) {
	valid, err := IssueChallenge(testSecret, "code-123", time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	expired, err := IssueChallenge(testSecret, "code-123", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	noID, err := IssueChallenge(testSecret, "", time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	tests := []struct {
		name    string
		secret  string
		token   string
		wantErr error
	}{
		{"wrong secret", "other-secret", valid, ErrInvalidChallenge},
		{"garbage token", testSecret, "not-a-token", ErrInvalidChallenge},
		{"expired", testSecret, expired, ErrExpiredChallenge},
		{"missing code id", testSecret, noID, ErrInvalidChallenge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseChallenge(tt.secret, tt.token)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestUserInfoFromClaims(t *testing.T) {
	info := userInfoFromClaims("google-123", map[string]interface{}{
		"email":          "bob@example.com",
		"email_verified": true,
		"name":           "Bob Driver",
	})
	if info.Sub != "google-123" || info.Email != "bob@example.com" || !info.EmailVerified || info.Name != "Bob Driver" {
		t.Fatalf("unexpected user info %+v", info)
	}
	if info.Picture != "" {
		t.Errorf("missing claim should stay empty, got %q", info.Picture)
	}
}
