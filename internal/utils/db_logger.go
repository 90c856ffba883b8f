package utils

import (
	"context"
	"fmt"
	"path"
	"runtime"
	"strings"
	"time"

	"gorm.io/gorm/logger"
)

// CustomGormLogger silences routine queries and prefixes every other one
// with the application function that ran it
type CustomGormLogger struct {
	logger.Interface
	quiet []string
}

// NewCustomGormLogger wraps base. Successful queries containing any of
// quiet are not logged; failures always are.
func NewCustomGormLogger(base logger.Interface, quiet ...string) *CustomGormLogger {
	return &CustomGormLogger{Interface: base, quiet: quiet}
}

// LogMode implements logger.Interface
func (l *CustomGormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &CustomGormLogger{Interface: l.Interface.LogMode(level), quiet: l.quiet}
}

// Trace implements logger.Interface
func (l *CustomGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	sql, rows := fc()
	if err == nil && l.isQuiet(sql) {
		return
	}

	if origin := queryOrigin(); origin != "" {
		sql = "[" + origin + "] " + sql
	}
	l.Interface.Trace(ctx, begin, func() (string, int64) { return sql, rows }, err)
}

func (l *CustomGormLogger) isQuiet(sql string) bool {
	for _, q := range l.quiet {
		if strings.Contains(sql, q) {
			return true
		}
	}
	return false
}

// queryOrigin returns "func() internal/pkg/file.go:line" for the first
// stack frame outside gorm and this file
func queryOrigin() string {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "gorm.io") && !strings.HasSuffix(frame.File, "utils/db_logger.go") {
			return fmt.Sprintf("%s() %s:%d", shortFuncName(frame.Function), trimModulePath(frame.File), frame.Line)
		}
		if !more {
			return ""
		}
	}
}

func shortFuncName(fn string) string {
	return strings.TrimPrefix(path.Ext(fn), ".")
}

func trimModulePath(file string) string {
	if i := strings.Index(file, "internal/"); i >= 0 {
		return file[i:]
	}
	if i := strings.Index(file, "cmd/"); i >= 0 {
		return file[i:]
	}
	return file
}
