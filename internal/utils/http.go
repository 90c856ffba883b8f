package utils

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// SlowRequestThreshold marks requests worth a warning
const SlowRequestThreshold = 200 * time.Millisecond

// GetRealClientIP extracts the real client IP from the request headers
// It prioritizes X-Real-IP, then X-Forwarded-For, and finally falls back to c.ClientIP()
func GetRealClientIP(c *gin.Context) string {
	if ip := c.GetHeader("X-Real-IP"); ip != "" {
		return ip
	}

	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	return c.ClientIP()
}

// RequestLogger writes one structured line per request and warns about slow ones
func RequestLogger(lg zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		event := lg.Info()
		if latency > SlowRequestThreshold {
			event = lg.Warn().Bool("slow", true)
		}
		if c.Writer.Status() >= 500 {
			event = lg.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", latency).
			Str("ip", GetRealClientIP(c)).
			Msg("request")
	}
}
