package handlers_test

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"ridealong/internal/auth"
	"ridealong/internal/models"

	"github.com/gin-gonic/gin"
)

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookieName && c.Value != "" {
			return c
		}
	}
	return nil
}

func TestLoginCodeFlow(t *testing.T) {
	env := setup(t)
	_, vol := env.volunteer(t, "Ann Driver", "ann@example.com")

	w := env.do(t, http.MethodPost, "/auth/otp/send", gin.H{"email": "Ann@Example.com"}, nil)
	expectStatus(t, w, http.StatusOK)

	var sent struct {
		Challenge string `json:"challenge"`
	}
	decode(t, w, &sent)
	if sent.Challenge == "" {
		t.Fatal("expected a challenge token")
	}

	mail := env.mail.messages()
	if len(mail) != 1 || mail[0].To != "ann@example.com" {
		t.Fatalf("expected one code email to ann@example.com, got %+v", mail)
	}
	code := codePattern.FindString(mail[0].Body)
	if code == "" {
		t.Fatalf("no code in email body %q", mail[0].Body)
	}

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	w = env.do(t, http.MethodPost, "/auth/otp/verify", gin.H{"challenge": sent.Challenge, "code": wrong}, nil)
	expectStatus(t, w, http.StatusUnauthorized)

	w = env.do(t, http.MethodPost, "/auth/otp/verify", gin.H{"challenge": sent.Challenge, "code": code}, nil)
	expectStatus(t, w, http.StatusOK)
	cookie := sessionCookie(w)
	if cookie == nil {
		t.Fatal("expected a session cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	expectStatus(t, w, http.StatusOK)

	var me struct {
		User        models.User `json:"user"`
		VolunteerID *string     `json:"volunteer_id"`
		ClientID    *string     `json:"client_id"`
	}
	decode(t, w, &me)
	if me.User.Name != "Ann Driver" || me.VolunteerID == nil || *me.VolunteerID != vol.ID || me.ClientID != nil {
		t.Errorf("unexpected profile %+v", me)
	}

	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	expectStatus(t, w, http.StatusOK)

	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	expectStatus(t, w, http.StatusUnauthorized)
}

func TestLoginCodeUnknownEmail(t *testing.T) {
	env := setup(t)

	w := env.do(t, http.MethodPost, "/auth/otp/send", gin.H{"email": "nobody@example.com"}, nil)
	expectStatus(t, w, http.StatusOK)

	var sent struct {
		Challenge string `json:"challenge"`
	}
	decode(t, w, &sent)
	if sent.Challenge == "" {
		t.Error("unknown emails should get a challenge like everyone else")
	}
	if n := len(env.mail.messages()); n != 0 {
		t.Errorf("expected no email for an unknown address, got %d", n)
	}

	w = env.do(t, http.MethodPost, "/auth/otp/send", gin.H{"email": "not-an-email"}, nil)
	expectStatus(t, w, http.StatusBadRequest)
}

func TestLoginCodeRateLimit(t *testing.T) {
	env := setup(t)

	var last int
	for i := 0; i < 5; i++ {
		w := env.do(t, http.MethodPost, "/auth/otp/send", gin.H{"email": "nobody@example.com"}, nil)
		last = w.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("expected repeated code requests to be limited, last status %d", last)
	}
}

// requestCode asks for a sign-in code for email and returns the challenge
// together with the code from the email
func requestCode(t *testing.T, env *testEnv, email string) (string, string) {
	t.Helper()
	w := env.do(t, http.MethodPost, "/auth/otp/send", gin.H{"email": email}, nil)
	expectStatus(t, w, http.StatusOK)

	var sent struct {
		Challenge string `json:"challenge"`
	}
	decode(t, w, &sent)

	mail := env.mail.messages()
	if len(mail) == 0 {
		t.Fatal("expected a code email")
	}
	code := codePattern.FindString(mail[len(mail)-1].Body)
	if code == "" {
		t.Fatalf("no code in email body %q", mail[len(mail)-1].Body)
	}
	return sent.Challenge, code
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestLoginCodeChallengeRevealsNothing(t *testing.T) {
	env := setup(t)
	env.user(t, "Root", "admin@example.com", models.RoleAdmin)

	challenge, code := requestCode(t, env, "admin@example.com")

	parts := strings.Split(challenge, ".")
	if len(parts) != 3 {
		t.Fatalf("expected a signed token, got %q", challenge)
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	for _, leak := range []string{"$2a$", "code_hash", code, "admin@example.com"} {
		if strings.Contains(string(payload), leak) {
			t.Errorf("challenge payload %s contains %q", payload, leak)
		}
	}

	var stored models.LoginCode
	if err := env.db.First(&stored).Error; err != nil {
		t.Fatalf("load login code: %v", err)
	}
	if stored.CodeHash == code || !strings.HasPrefix(stored.CodeHash, "$2") {
		t.Errorf("expected a bcrypt hash to be stored, got %q", stored.CodeHash)
	}
}

func TestLoginCodeSingleUse(t *testing.T) {
	env := setup(t)
	env.volunteer(t, "Ann Driver", "ann@example.com")

	challenge, code := requestCode(t, env, "ann@example.com")

	w := env.do(t, http.MethodPost, "/auth/otp/verify", gin.H{"challenge": challenge, "code": code}, nil)
	expectStatus(t, w, http.StatusOK)

	w = env.do(t, http.MethodPost, "/auth/otp/verify", gin.H{"challenge": challenge, "code": code}, nil)
	expectStatus(t, w, http.StatusUnauthorized)
	if sessionCookie(w) != nil {
		t.Error("a used code must not create another session")
	}

	var sessions int64
	env.db.Model(&models.Session{}).Count(&sessions)
	if sessions != 1 {
		t.Errorf("expected 1 session from one code, got %d", sessions)
	}
}

func TestLoginCodeLocksAfterWrongCodes(t *testing.T) {
	env := setup(t)
	env.volunteer(t, "Ann Driver", "ann@example.com")

	challenge, code := requestCode(t, env, "ann@example.com")
	wrong := wrongCode(code)

	for i := 1; i <= models.MaxLoginCodeAttempts; i++ {
		w := env.do(t, http.MethodPost, "/auth/otp/verify", gin.H{"challenge": challenge, "code": wrong}, nil)
		expectStatus(t, w, http.StatusUnauthorized)

		var body struct {
			Error string `json:"error"`
		}
		decode(t, w, &body)
		locked := strings.HasPrefix(body.Error, "Too many")
		if locked != (i == models.MaxLoginCodeAttempts) {
			t.Errorf("attempt %d: unexpected error %q", i, body.Error)
		}
	}

	w := env.do(t, http.MethodPost, "/auth/otp/verify", gin.H{"challenge": challenge, "code": code}, nil)
	expectStatus(t, w, http.StatusUnauthorized)

	var remaining int64
	env.db.Model(&models.LoginCode{}).Count(&remaining)
	if remaining != 0 {
		t.Errorf("expected the locked code to be deleted, %d left", remaining)
	}
}

func TestLoginCodeVerifyRateLimit(t *testing.T) {
	env := setup(t)

	var last int
	for i := 0; i < 15; i++ {
		w := env.do(t, http.MethodPost, "/auth/otp/verify", gin.H{"challenge": "not-a-token", "code": "123456"}, nil)
		last = w.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("expected repeated guesses to be limited, last status %d", last)
	}
}

func TestGoogleDisabled(t *testing.T) {
	env := setup(t)
	w := env.do(t, http.MethodGet, "/auth/google/login", nil, nil)
	expectStatus(t, w, http.StatusServiceUnavailable)
}

func TestAccessControl(t *testing.T) {
	env := setup(t)
	ann, _ := env.volunteer(t, "Ann Driver", "ann@example.com")
	rider, _ := env.client(t, "Carol Rider", "carol@example.com")

	tests := []struct {
		name   string
		method string
		path   string
		user   *models.User
		status int
	}{
		{"anonymous rides", http.MethodGet, "/rides", nil, http.StatusUnauthorized},
		{"volunteer lists admins", http.MethodGet, "/admins", ann, http.StatusForbidden},
		{"client lists volunteers", http.MethodGet, "/volunteers", rider, http.StatusForbidden},
		{"client lists clients", http.MethodGet, "/clients", rider, http.StatusForbidden},
		{"client has no volunteer profile", http.MethodGet, "/volunteers/me", rider, http.StatusNotFound},
		{"volunteer profile", http.MethodGet, "/volunteers/me", ann, http.StatusOK},
		{"health", http.MethodGet, "/health", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, nil, tt.user)
			expectStatus(t, w, tt.status)
		})
	}
}
