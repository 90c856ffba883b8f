package database

import (
	"errors"
	"fmt"
	"time"

	"ridealong/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedResult lists what Seed created or found
type SeedResult struct {
	Admin     models.User
	Volunteer models.Volunteer
	Client    models.Client
	Ride      models.Ride
}

func seedUser(tx *gorm.DB, name, email, phone string, role models.Role) (models.User, error) {
	var user models.User
	err := tx.Where("email = ?", email).First(&user).Error
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return user, err
	}
	user = models.User{Name: name, Email: &email, Phone: phone, Role: role}
	return user, tx.Create(&user).Error
}

// Seed inserts a sample admin, a volunteer with 60 and 1440 minute email
// reminders, a client and one ride the next day. Running it again reuses
// the same rows.
func Seed(db *gorm.DB, now time.Time) (*SeedResult, error) {
	var res SeedResult

	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		if res.Admin, err = seedUser(tx, "Alice Admin", "alice@example.com", "5550100001", models.RoleAdmin); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}

		driver, err := seedUser(tx, "Bob Volunteer", "bob@example.com", "5550100002", models.RoleVolunteer)
		if err != nil {
			return fmt.Errorf("seed volunteer user: %w", err)
		}
		res.Volunteer = models.Volunteer{UserID: driver.ID}
		if err := tx.Where("user_id = ?", driver.ID).
			Attrs(models.Volunteer{Status: models.VolunteerAvailable}).
			FirstOrCreate(&res.Volunteer).Error; err != nil {
			return fmt.Errorf("seed volunteer: %w", err)
		}
		var reminders int64
		if err := tx.Model(&models.ReminderConfig{}).Where("volunteer_id = ?", res.Volunteer.ID).Count(&reminders).Error; err != nil {
			return err
		}
		if reminders == 0 {
			configs := []models.ReminderConfig{
				{VolunteerID: res.Volunteer.ID, MinutesBefore: 60, Channel: models.ChannelEmail},
				{VolunteerID: res.Volunteer.ID, MinutesBefore: 1440, Channel: models.ChannelEmail},
			}
			if err := tx.Create(&configs).Error; err != nil {
				return fmt.Errorf("seed reminders: %w", err)
			}
		}
		res.Volunteer.User = driver

		rider, err := seedUser(tx, "Carol Client", "carol@example.com", "5550100003", models.RoleClient)
		if err != nil {
			return fmt.Errorf("seed client user: %w", err)
		}
		home := models.Address{Street: "100 Main St", City: "Springfield", State: "IL", Zip: "62701"}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&home).Error; err != nil {
			return fmt.Errorf("seed address: %w", err)
		}
		if err := tx.Where("street = ? AND city = ? AND state = ? AND zip = ?",
			home.Street, home.City, home.State, home.Zip).First(&home).Error; err != nil {
			return err
		}
		res.Client = models.Client{UserID: rider.ID}
		if err := tx.Where("user_id = ?", rider.ID).
			Attrs(models.Client{HomeAddressID: &home.ID}).
			FirstOrCreate(&res.Client).Error; err != nil {
			return fmt.Errorf("seed client: %w", err)
		}
		res.Client.User = rider

		err = tx.Where("client_id = ?", res.Client.ID).First(&res.Ride).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			res.Ride = models.Ride{
				ClientID:        res.Client.ID,
				ScheduledTime:   now.Add(24 * time.Hour).Truncate(time.Hour),
				PickupDisplay:   home.Label(),
				DropoffDisplay:  "800 E Carpenter St, Springfield, IL 62769",
				PickupAddressID: &home.ID,
			}
			err = tx.Omit(clause.Associations).Create(&res.Ride).Error
		}
		if err != nil {
			return fmt.Errorf("seed ride: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}
