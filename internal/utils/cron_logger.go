package utils

import (
	"github.com/rs/zerolog"
)

// CronLogger adapts a zerolog.Logger to cron.Logger
type CronLogger struct {
	Logger zerolog.Logger
}

// Info implements cron.Logger. cron's routine scheduling chatter goes to debug.
func (l CronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.Logger.Debug().Fields(keysAndValues).Msg(msg)
}

// Error implements cron.Logger
func (l CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.Logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
