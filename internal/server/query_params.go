package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

func pathID(c *gin.Context, name string) (snowflake.ID, bool) {
	raw := strings.TrimSpace(c.Param(name))
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || parsed <= 0 {
		return 0, false
	}
	return snowflake.ID(parsed), true
}

func parseID(raw string) (snowflake.ID, bool) {
	parsed, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || parsed <= 0 {
		return 0, false
	}
	return snowflake.ID(parsed), true
}

// dateRange parses start/end query params as RFC 3339 or YYYY-MM-DD,
// defaulting to the trailing 30 days.
func dateRange(c *gin.Context, now time.Time) (time.Time, time.Time, bool) {
	from := now.AddDate(0, 0, -30)
	to := now

	if raw := strings.TrimSpace(c.Query("start")); raw != "" {
		parsed, ok := parseDate(raw)
		if !ok {
			return time.Time{}, time.Time{}, false
		}
		from = parsed
	}
	if raw := strings.TrimSpace(c.Query("end")); raw != "" {
		parsed, ok := parseDate(raw)
		if !ok {
			return time.Time{}, time.Time{}, false
		}
		to = parsed
	}
	return from, to, true
}

func parseDate(raw string) (time.Time, bool) {
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed.UTC(), true
	}
	if parsed, err := time.Parse("2006-01-02", raw); err == nil {
		return parsed.UTC(), true
	}
	return time.Time{}, false
}

func actorFrom(c *gin.Context) *string {
	actor := strings.TrimSpace(c.GetHeader("X-Actor-Id"))
	if actor == "" {
		return nil
	}
	return &actor
}
