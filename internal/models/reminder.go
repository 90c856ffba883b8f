package models

import "time"

// SentReminder records that a reminder configuration already fired for a ride.
// The unique (ride_id, reminder_id) pair is the deduplication ledger.
type SentReminder struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	RideID           string    `gorm:"size:36;not null;uniqueIndex:idx_sent_reminder_ride_config,priority:1" json:"ride_id"`
	ReminderConfigID string    `gorm:"column:reminder_id;size:36;not null;uniqueIndex:idx_sent_reminder_ride_config,priority:2" json:"reminder_id"`
	Type             string    `gorm:"size:10;not null" json:"type"` // lead time in minutes, e.g. "60"
	SentAt           time.Time `gorm:"not null" json:"sent_at"`
}

// DispatchLease is a named, expiring lock row. At most one process holds a
// given lease at a time.
type DispatchLease struct {
	Name      string    `gorm:"primaryKey;size:64"`
	Holder    string    `gorm:"size:64;not null;default:''"`
	ExpiresAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}
