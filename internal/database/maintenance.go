package database

import (
	"context"
	"fmt"
	"time"

	"ridealong/internal/models"

	"gorm.io/gorm"
)

// ShiftedRide is one ride moved by ShiftScheduledTimes
type ShiftedRide struct {
	ID   string
	From time.Time
	To   time.Time
}

// ShiftScheduledTimes adds offset to the scheduled time of every ride
// created before cutoff. It repairs rides whose local wall time was stored
// as UTC. With dryRun nothing is written.
func ShiftScheduledTimes(ctx context.Context, db *gorm.DB, cutoff time.Time, offset time.Duration, dryRun bool) ([]ShiftedRide, error) {
	var shifted []ShiftedRide

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rides []models.Ride
		if err := tx.Where("created_at < ?", cutoff.UTC()).Order("created_at").Find(&rides).Error; err != nil {
			return fmt.Errorf("load rides: %w", err)
		}

		for _, ride := range rides {
			s := ShiftedRide{ID: ride.ID, From: ride.ScheduledTime, To: ride.ScheduledTime.Add(offset).UTC()}
			shifted = append(shifted, s)
			if dryRun {
				continue
			}
			if err := tx.Model(&models.Ride{}).
				Where("id = ?", ride.ID).
				UpdateColumn("scheduled_time", s.To).Error; err != nil {
				return fmt.Errorf("update ride %s: %w", ride.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return shifted, nil
}
