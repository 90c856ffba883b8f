package services

import (
	"context"
	"fmt"
	"time"

	"ridealong/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Lease is a durable, expiring lock shared by every process using the same
// database. The TTL bounds how long a crashed holder blocks the others.
type Lease struct {
	db     *gorm.DB
	name   string
	holder string
	ttl    time.Duration
	now    func() time.Time
}

// NewLease returns a lease handle with a random holder identity
func NewLease(db *gorm.DB, name string, ttl time.Duration) *Lease {
	return &Lease{
		db:     db,
		name:   name,
		holder: uuid.NewString(),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Acquire takes the lease if it is free, expired, or already ours
func (l *Lease) Acquire(ctx context.Context) (bool, error) {
	seed := models.DispatchLease{Name: l.name, ExpiresAt: time.Unix(0, 0).UTC()}
	if err := l.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return false, fmt.Errorf("seed lease %s: %w", l.name, err)
	}
	return l.Renew(ctx)
}

// Renew extends the lease by its TTL. It reports false once someone else
// has taken over an expired lease.
func (l *Lease) Renew(ctx context.Context) (bool, error) {
	now := l.now().UTC()
	result := l.db.WithContext(ctx).Model(&models.DispatchLease{}).
		Where("name = ? AND (expires_at < ? OR holder = ?)", l.name, now, l.holder).
		Updates(map[string]interface{}{
			"holder":     l.holder,
			"expires_at": now.Add(l.ttl),
		})
	if result.Error != nil {
		return false, fmt.Errorf("renew lease %s: %w", l.name, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// RenewInterval is how often a holder should renew to keep the lease
func (l *Lease) RenewInterval() time.Duration {
	if l.ttl < 3*time.Millisecond {
		return time.Millisecond
	}
	return l.ttl / 3
}

// Release gives the lease up early. Releasing a lease held by someone else is a no-op.
func (l *Lease) Release(ctx context.Context) error {
	err := l.db.WithContext(ctx).Model(&models.DispatchLease{}).
		Where("name = ? AND holder = ?", l.name, l.holder).
		Update("expires_at", time.Unix(0, 0).UTC()).Error
	if err != nil {
		return fmt.Errorf("release lease %s: %w", l.name, err)
	}
	return nil
}
