package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VolunteerStatus is the self-reported availability of a volunteer
type VolunteerStatus string

const (
	VolunteerAvailable   VolunteerStatus = "AVAILABLE"
	VolunteerUnavailable VolunteerStatus = "UNAVAILABLE"
)

// Reminder delivery channels
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// Volunteer is the driver profile of a user
type Volunteer struct {
	ID        string          `gorm:"primaryKey;size:36" json:"id"`
	UserID    string          `gorm:"size:36;not null;uniqueIndex" json:"user_id"`
	Status    VolunteerStatus `gorm:"size:20;not null;default:AVAILABLE" json:"status"`
	CreatedAt time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null" json:"updated_at"`

	User      User             `gorm:"foreignKey:UserID" json:"user"`
	Reminders []ReminderConfig `gorm:"foreignKey:VolunteerID" json:"reminders"`
}

// BeforeCreate assigns the primary key
func (v *Volunteer) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.Status == "" {
		v.Status = VolunteerAvailable
	}
	return nil
}

// ReminderConfig asks for a notification MinutesBefore a ride's scheduled
// time. Its ID is the identity used to deduplicate sent reminders, so it is
// independent of the lead time.
type ReminderConfig struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	VolunteerID   string    `gorm:"size:36;not null;index" json:"volunteer_id"`
	MinutesBefore int       `gorm:"not null" json:"minutes_before"`
	Channel       string    `gorm:"size:20;not null;default:email" json:"type"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}

// TableName keeps the original table name
func (ReminderConfig) TableName() string {
	return "reminder"
}

// BeforeCreate assigns the primary key
func (r *ReminderConfig) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Channel == "" {
		r.Channel = ChannelEmail
	}
	return nil
}

// Lead returns the lead time as a duration
func (r ReminderConfig) Lead() time.Duration {
	return time.Duration(r.MinutesBefore) * time.Minute
}

// CreateVolunteerRequest registers a new volunteer
type CreateVolunteerRequest struct {
	Name   string          `json:"name" binding:"required,max=120"`
	Email  string          `json:"email" binding:"required,email"`
	Phone  string          `json:"phone"`
	Status VolunteerStatus `json:"status" binding:"omitempty,oneof=AVAILABLE UNAVAILABLE"`
}

// UpdateVolunteerRequest edits a volunteer and its user
type UpdateVolunteerRequest struct {
	UserUpdateRequest
	Status VolunteerStatus `json:"status" binding:"omitempty,oneof=AVAILABLE UNAVAILABLE"`
}

// VolunteerStatusRequest is the body of PUT /volunteers/me/status
type VolunteerStatusRequest struct {
	Status VolunteerStatus `json:"status" binding:"required,oneof=AVAILABLE UNAVAILABLE"`
}

// ReminderConfigRequest is one entry of PUT /volunteers/me/reminders
type ReminderConfigRequest struct {
	MinutesBefore int    `json:"minutesBefore" binding:"required,gt=0"`
	Type          string `json:"type" binding:"omitempty,oneof=email sms"`
}
