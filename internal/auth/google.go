package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"
)

// ErrGoogleDisabled is returned when Google sign-in is not configured
var ErrGoogleDisabled = errors.New("google sign-in is not configured")

// UserInfo is the identity read from a validated Google ID token
type UserInfo struct {
	Sub           string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// GoogleProvider runs the Google OAuth code flow and verifies the returned ID token
type GoogleProvider struct {
	config *oauth2.Config
}

// NewGoogleProvider returns nil when any credential is missing
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil
	}

	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile", "openid"},
			Endpoint:     google.Endpoint,
		},
	}
}

// LoginURL returns the consent page URL for state
func (p *GoogleProvider) LoginURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange trades an authorization code for the verified user identity
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*UserInfo, error) {
	if p == nil {
		return nil, ErrGoogleDisabled
	}

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, errors.New("token response has no id_token")
	}

	payload, err := idtoken.Validate(ctx, rawIDToken, p.config.ClientID)
	if err != nil {
		return nil, fmt.Errorf("failed to validate ID token: %w", err)
	}

	return userInfoFromClaims(payload.Subject, payload.Claims), nil
}

func userInfoFromClaims(sub string, claims map[string]interface{}) *UserInfo {
	info := &UserInfo{Sub: sub}
	if email, ok := claims["email"].(string); ok {
		info.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		info.Name = name
	}
	if picture, ok := claims["picture"].(string); ok {
		info.Picture = picture
	}
	if verified, ok := claims["email_verified"].(bool); ok {
		info.EmailVerified = verified
	}
	return info
}
