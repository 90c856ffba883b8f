package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"ridealong/internal/database"
	"ridealong/internal/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var testNow = time.Date(2026, time.March, 10, 15, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:", zerolog.Nop(), false)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

type sentMessage struct {
	To      string
	Subject string
	Body    string
}

// fakeSender records messages; a non-nil err makes every send fail
type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeSender) Send(ctx context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{To: to, Subject: subject, Body: body})
	return nil
}

func (f *fakeSender) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeSender) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func createUser(t *testing.T, db *gorm.DB, name, email, phone string, role models.Role) models.User {
	t.Helper()
	user := models.User{Name: name, Email: &email, Phone: phone, Role: role}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// createVolunteer adds a volunteer with one reminder config per entry of reminders
func createVolunteer(t *testing.T, db *gorm.DB, name, email, phone string, reminders ...models.ReminderConfig) models.Volunteer {
	t.Helper()
	user := createUser(t, db, name, email, phone, models.RoleVolunteer)
	volunteer := models.Volunteer{UserID: user.ID}
	if err := db.Create(&volunteer).Error; err != nil {
		t.Fatalf("create volunteer: %v", err)
	}
	for i := range reminders {
		reminders[i].VolunteerID = volunteer.ID
		if err := db.Create(&reminders[i]).Error; err != nil {
			t.Fatalf("create reminder: %v", err)
		}
	}
	volunteer.User = user
	volunteer.Reminders = reminders
	return volunteer
}

func emailReminder(minutes int) models.ReminderConfig {
	return models.ReminderConfig{MinutesBefore: minutes, Channel: models.ChannelEmail}
}

func createClient(t *testing.T, db *gorm.DB, name, email string) models.Client {
	t.Helper()
	user := createUser(t, db, name, email, "", models.RoleClient)
	client := models.Client{UserID: user.ID}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("create client: %v", err)
	}
	client.User = user
	return client
}

func createRide(t *testing.T, db *gorm.DB, client models.Client, volunteer *models.Volunteer, status models.RideStatus, at time.Time) models.Ride {
	t.Helper()
	ride := models.Ride{
		ClientID:       client.ID,
		Status:         status,
		ScheduledTime:  at,
		PickupDisplay:  "100 Main St, Springfield, IL 62701",
		DropoffDisplay: "800 E Carpenter St, Springfield, IL 62769",
	}
	if volunteer != nil {
		ride.VolunteerID = &volunteer.ID
	}
	if err := db.Omit(clause.Associations).Create(&ride).Error; err != nil {
		t.Fatalf("create ride: %v", err)
	}
	return ride
}

func sentRecords(t *testing.T, db *gorm.DB, rideID string) []models.SentReminder {
	t.Helper()
	var records []models.SentReminder
	if err := db.Where("ride_id = ?", rideID).Order("id").Find(&records).Error; err != nil {
		t.Fatalf("load sent reminders: %v", err)
	}
	return records
}

// clock is a settable time source
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
