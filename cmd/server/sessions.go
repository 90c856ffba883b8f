package main

import (
	"context"
	"time"

	"ridealong/internal/auth"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// purgeSessions deletes expired sessions and login codes once an hour until ctx is done
func purgeSessions(ctx context.Context, db *gorm.DB, lg zerolog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := auth.PurgeExpiredSessions(db.WithContext(ctx), now)
			if err != nil {
				lg.Warn().Err(err).Msg("failed to purge expired sessions")
				continue
			}
			if n > 0 {
				lg.Debug().Int64("count", n).Msg("purged expired sessions")
			}
			if n, err := auth.PurgeExpiredLoginCodes(db.WithContext(ctx), now); err != nil {
				lg.Warn().Err(err).Msg("failed to purge expired login codes")
			} else if n > 0 {
				lg.Debug().Int64("count", n).Msg("purged expired login codes")
			}
		}
	}
}
