package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ridealong/internal/auth"
	"ridealong/internal/database"
	"ridealong/internal/handlers"
	"ridealong/internal/models"
	"ridealong/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type sentMessage struct {
	To      string
	Subject string
	Body    string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeSender) Send(ctx context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{To: to, Subject: subject, Body: body})
	return nil
}

func (f *fakeSender) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

type fakeEstimator struct {
	calls int
}

func (f *fakeEstimator) Estimate(ctx context.Context, origin, destination string) (*models.RideEstimate, error) {
	f.calls++
	duration, distance := "25m0s", "18.2 km"
	seconds, meters := int64(1500), 18200
	return &models.RideEstimate{Duration: &duration, Distance: &distance, DurationValue: &seconds, DistanceValue: &meters}, nil
}

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	mail   *fakeSender
	queue  *services.NotificationQueue
}

func setup(t *testing.T, opts ...func(*handlers.Deps)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenSQLite(":memory:", zerolog.Nop(), false)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })

	mail := &fakeSender{}
	queue := services.NewNotificationQueue(mail, 16, time.Second, zerolog.Nop())
	queue.Start()
	t.Cleanup(queue.Close)

	deps := handlers.Deps{
		DB:            db,
		Location:      time.UTC,
		Mailer:        mail,
		Notifier:      queue,
		SessionSecret: "test-secret",
		Logger:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&deps)
	}

	router := gin.New()
	handlers.New(deps).Routes(router)

	return &testEnv{router: router, db: db, mail: mail, queue: queue}
}

// do sends a JSON request, signed in as user when user is not nil
func (e *testEnv) do(t *testing.T, method, path string, body interface{}, user *models.User) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.AddCookie(e.login(t, user))
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T, user *models.User) *http.Cookie {
	t.Helper()
	session := models.Session{ID: uuid.NewString(), UserID: user.ID, Provider: "otp"}
	if err := e.db.Create(&session).Error; err != nil {
		t.Fatalf("create session: %v", err)
	}
	return &http.Cookie{Name: auth.SessionCookieName, Value: session.ID}
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, w.Code, w.Body.String())
	}
}

func (e *testEnv) user(t *testing.T, name, email string, role models.Role) *models.User {
	t.Helper()
	user := models.User{Name: name, Email: &email, Role: role}
	if err := e.db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &user
}

func (e *testEnv) volunteer(t *testing.T, name, email string) (*models.User, *models.Volunteer) {
	t.Helper()
	user := e.user(t, name, email, models.RoleVolunteer)
	volunteer := models.Volunteer{UserID: user.ID}
	if err := e.db.Create(&volunteer).Error; err != nil {
		t.Fatalf("create volunteer: %v", err)
	}
	return user, &volunteer
}

func (e *testEnv) client(t *testing.T, name, email string) (*models.User, *models.Client) {
	t.Helper()
	user := e.user(t, name, email, models.RoleClient)
	client := models.Client{UserID: user.ID}
	if err := e.db.Create(&client).Error; err != nil {
		t.Fatalf("create client: %v", err)
	}
	return user, &client
}

func (e *testEnv) ride(t *testing.T, client *models.Client, volunteer *models.Volunteer, status models.RideStatus) *models.Ride {
	t.Helper()
	ride := models.Ride{
		ClientID:       client.ID,
		Status:         status,
		ScheduledTime:  time.Now().Add(48 * time.Hour).UTC(),
		PickupDisplay:  "100 Main St, Springfield, IL 62701",
		DropoffDisplay: "800 E Carpenter St, Springfield, IL 62769",
	}
	if volunteer != nil {
		ride.VolunteerID = &volunteer.ID
	}
	if err := e.db.Omit(clause.Associations).Create(&ride).Error; err != nil {
		t.Fatalf("create ride: %v", err)
	}
	return &ride
}
