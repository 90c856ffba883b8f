package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RideStatus is the lifecycle state of a ride.
// CREATED -> ASSIGNED -> COMPLETED, or ASSIGNED -> CREATED on unassignment.
type RideStatus string

const (
	RideCreated   RideStatus = "CREATED"
	RideAssigned  RideStatus = "ASSIGNED"
	RideCompleted RideStatus = "COMPLETED"
)

// ErrVolunteerMismatch is returned when a ride's volunteer reference
// disagrees with its status
var ErrVolunteerMismatch = errors.New("ride has a volunteer if and only if it is assigned or completed")

// Ride is a single transport request from a client
type Ride struct {
	ID               string         `gorm:"primaryKey;size:36" json:"id"`
	ClientID         string         `gorm:"size:36;not null;index" json:"client_id"`
	VolunteerID      *string        `gorm:"size:36;index" json:"volunteer_id"`
	Status           RideStatus     `gorm:"size:20;not null;default:CREATED;index" json:"status"`
	ScheduledTime    time.Time      `gorm:"not null;index" json:"scheduled_time"`
	PickupDisplay    string         `gorm:"size:512;not null" json:"pickup_display"`
	DropoffDisplay   string         `gorm:"size:512;not null" json:"dropoff_display"`
	PickupAddressID  *string        `gorm:"size:36" json:"pickup_address_id"`
	DropoffAddressID *string        `gorm:"size:36" json:"dropoff_address_id"`
	Notes            *string        `gorm:"type:text" json:"notes"`
	TotalRideTime    float64        `gorm:"not null;default:0" json:"total_ride_time"` // hours
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
	Estimate         datatypes.JSON `json:"estimate,omitempty"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null" json:"updated_at"`

	Client        Client         `gorm:"foreignKey:ClientID" json:"client"`
	Volunteer     *Volunteer     `gorm:"foreignKey:VolunteerID" json:"volunteer,omitempty"`
	SentReminders []SentReminder `gorm:"foreignKey:RideID" json:"-"`
}

// BeforeCreate assigns the primary key
func (r *Ride) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = RideCreated
	}
	return nil
}

// BeforeSave stores times in UTC and enforces the volunteer/status invariant
func (r *Ride) BeforeSave(tx *gorm.DB) error {
	r.ScheduledTime = r.ScheduledTime.UTC()
	return r.Validate()
}

// Validate checks the volunteer/status invariant
func (r *Ride) Validate() error {
	hasVolunteer := r.VolunteerID != nil && *r.VolunteerID != ""
	switch r.Status {
	case RideAssigned, RideCompleted:
		if !hasVolunteer {
			return ErrVolunteerMismatch
		}
	default:
		if hasVolunteer {
			return ErrVolunteerMismatch
		}
	}
	return nil
}

// AssignedTo reports whether volunteerID is the ride's volunteer
func (r *Ride) AssignedTo(volunteerID string) bool {
	return r.VolunteerID != nil && *r.VolunteerID == volunteerID
}

// NotesOr returns the ride notes or fallback when there are none
func (r *Ride) NotesOr(fallback string) string {
	if r.Notes == nil || *r.Notes == "" {
		return fallback
	}
	return *r.Notes
}

// RideEstimate is a driving estimate between pickup and dropoff
type RideEstimate struct {
	Duration      *string `json:"duration"`
	Distance      *string `json:"distance"`
	DurationValue *int64  `json:"durationValue"` // seconds
	DistanceValue *int    `json:"distanceValue"` // meters
	Error         *string `json:"error"`
}

// CreateRideRequest books a ride
type CreateRideRequest struct {
	ClientID      string    `json:"clientId"`
	Pickup        Address   `json:"pickup" binding:"required"`
	Dropoff       Address   `json:"dropoff" binding:"required"`
	ScheduledTime time.Time `json:"scheduledTime" binding:"required"`
	Notes         string    `json:"notes"`
}

// UpdateRideRequest edits the booking details of a ride
type UpdateRideRequest struct {
	ScheduledTime *time.Time `json:"scheduledTime"`
	Notes         *string    `json:"notes"`
	Pickup        *Address   `json:"pickup"`
	Dropoff       *Address   `json:"dropoff"`
}

// CompleteRideRequest closes a ride
type CompleteRideRequest struct {
	TotalRideTime float64 `json:"totalRideTime" binding:"gte=0"`
}
