package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"ridealong/internal/auth"
	"ridealong/internal/models"
	"ridealong/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// LoginCodeRequest asks for a one-time sign-in code
type LoginCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// VerifyCodeRequest exchanges a challenge and its code for a session
type VerifyCodeRequest struct {
	Challenge string `json:"challenge" binding:"required"`
	Code      string `json:"code" binding:"required,len=6,numeric"`
}

// SendLoginCode emails a code to a known user and returns a challenge naming
// the stored code. Unknown emails get a challenge that matches nothing, so the
// endpoint does not reveal who has an account.
func (h *Handler) SendLoginCode(c *gin.Context) {
	var req LoginCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	now := h.now()
	db := h.db.WithContext(c.Request.Context())

	var user models.User
	err := db.Where("email = ?", email).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		handleError(c, http.StatusInternalServerError, "Failed to look up user", err)
		return
	}

	var codeID string
	if err == nil {
		if h.mailer == nil {
			handleError(c, http.StatusServiceUnavailable, "Email delivery is not configured", services.ErrNoSender)
			return
		}
		code, err := auth.GenerateCode()
		if err != nil {
			handleError(c, http.StatusInternalServerError, "Failed to generate code", err)
			return
		}
		lc, err := auth.CreateLoginCode(db, email, code, now)
		if err != nil {
			handleError(c, http.StatusInternalServerError, "Failed to issue code", err)
			return
		}
		codeID = lc.ID

		msg := services.LoginCodeMessage(code, auth.ChallengeTTL)
		ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
		defer cancel()
		if err := h.mailer.Send(ctx, email, msg.Subject, msg.Body); err != nil {
			db.Delete(&models.LoginCode{}, "id = ?", codeID)
			handleError(c, http.StatusBadGateway, "Failed to send code", err)
			return
		}
	} else {
		h.lg.Debug().Str("email", email).Msg("sign-in code requested for unknown email")
		if codeID, err = auth.NewCodeID(); err != nil {
			handleError(c, http.StatusInternalServerError, "Failed to issue code", err)
			return
		}
	}

	challenge, err := auth.IssueChallenge(h.secret, codeID, now)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to issue challenge", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"challenge":  challenge,
		"expires_at": now.Add(auth.ChallengeTTL),
	})
}

// VerifyLoginCode signs the user in when the code matches the challenge.
// Each code signs in once and is dropped after too many wrong guesses.
func (h *Handler) VerifyLoginCode(c *gin.Context) {
	var req VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}
	db := h.db.WithContext(c.Request.Context())

	codeID, err := auth.ParseChallenge(h.secret, req.Challenge)
	if err == nil {
		var email string
		email, err = auth.RedeemLoginCode(db, codeID, req.Code, h.now())
		if err == nil {
			h.signInByEmail(c, email)
			return
		}
	}

	switch {
	case errors.Is(err, auth.ErrExpiredChallenge):
		handleError(c, http.StatusUnauthorized, "Code has expired, request a new one", err)
	case errors.Is(err, auth.ErrTooManyAttempts):
		handleError(c, http.StatusUnauthorized, "Too many wrong codes, request a new one", err)
	case errors.Is(err, auth.ErrWrongCode), errors.Is(err, auth.ErrInvalidChallenge):
		handleError(c, http.StatusUnauthorized, "Invalid code", err)
	default:
		handleError(c, http.StatusInternalServerError, "Failed to verify code", err)
	}
}

func (h *Handler) signInByEmail(c *gin.Context, email string) {
	var user models.User
	if err := h.db.WithContext(c.Request.Context()).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			handleError(c, http.StatusUnauthorized, "Invalid code", err)
			return
		}
		handleError(c, http.StatusInternalServerError, "Failed to look up user", err)
		return
	}

	if _, err := auth.CreateSession(c, h.db, &user, "otp"); err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to create session", err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// GoogleLogin redirects to the Google consent page
func (h *Handler) GoogleLogin(c *gin.Context) {
	if h.google == nil {
		handleError(c, http.StatusServiceUnavailable, "Google sign-in is not configured", auth.ErrGoogleDisabled)
		return
	}

	state, err := auth.SetOAuthState(c)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to generate login URL", err)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, h.google.LoginURL(state))
}

// GoogleCallback signs in the existing user matching the Google account
func (h *Handler) GoogleCallback(c *gin.Context) {
	if h.google == nil {
		handleError(c, http.StatusServiceUnavailable, "Google sign-in is not configured", auth.ErrGoogleDisabled)
		return
	}

	if !auth.VerifyOAuthState(c, c.Query("state")) {
		handleError(c, http.StatusBadRequest, "Invalid oauth state", errors.New("oauth state mismatch"))
		return
	}

	info, err := h.google.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		handleError(c, http.StatusUnauthorized, "Google sign-in failed", err)
		return
	}

	user, err := h.linkGoogleUser(c.Request.Context(), info)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			handleError(c, http.StatusForbidden, "No account exists for this Google user", err)
			return
		}
		handleError(c, http.StatusInternalServerError, "Failed to sign in", err)
		return
	}

	if _, err := auth.CreateSession(c, h.db, user, "google"); err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to create session", err)
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, "/")
}

// linkGoogleUser finds the user by Google ID, then by verified email, and
// records the Google ID on first sign-in
func (h *Handler) linkGoogleUser(ctx context.Context, info *auth.UserInfo) (*models.User, error) {
	db := h.db.WithContext(ctx)

	var user models.User
	err := db.Where("google_id = ?", info.Sub).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if !info.EmailVerified || info.Email == "" {
		return nil, gorm.ErrRecordNotFound
	}
	if err := db.Where("email = ?", strings.ToLower(info.Email)).First(&user).Error; err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"google_id": info.Sub}
	if user.AvatarURL == "" && info.Picture != "" {
		updates["avatar_url"] = info.Picture
	}
	if err := db.Model(&user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout deletes the session and clears the cookie
func (h *Handler) Logout(c *gin.Context) {
	auth.DeleteSession(c, h.db)
	c.JSON(http.StatusOK, gin.H{"message": "logout successful"})
}

// Me returns the signed-in user with the ids of their client and volunteer profiles
func (h *Handler) Me(c *gin.Context) {
	user := currentUser(c)
	db := h.db.WithContext(c.Request.Context())

	resp := gin.H{"user": user, "client_id": nil, "volunteer_id": nil}

	var client models.Client
	if err := db.Where("user_id = ?", user.ID).First(&client).Error; err == nil {
		resp["client_id"] = client.ID
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		handleError(c, http.StatusInternalServerError, "Failed to load profile", err)
		return
	}

	var volunteer models.Volunteer
	if err := db.Where("user_id = ?", user.ID).First(&volunteer).Error; err == nil {
		resp["volunteer_id"] = volunteer.ID
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		handleError(c, http.StatusInternalServerError, "Failed to load profile", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
