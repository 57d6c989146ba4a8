package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nicefood/prodtrack/internal/domain/models"
	"github.com/nicefood/prodtrack/internal/service/auth"
)

const sessionKey = "prodtrack.session"

// SetSession stores the authenticated session on the request context.
func SetSession(c *gin.Context, s auth.Session) {
	c.Set(sessionKey, s)
}

// CurrentSession returns the session stored by SetSession, or a zero session.
func CurrentSession(c *gin.Context) auth.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(auth.Session); ok {
			return s
		}
	}
	return auth.Session{}
}

// writeKey is the period collection a ledger write reaches besides base: the
// session's active period only. Other periods stay independent snapshots.
func writeKey(s auth.Session) string {
	return s.PeriodKey()
}

// readKey is the period a read targets: the period query parameter, given as
// a key or a display string, else the session's active period. Non-admins may
// only read periods they were granted.
func readKey(c *gin.Context) (string, error) {
	s := CurrentSession(c)
	p := strings.TrimSpace(c.Query("period"))
	if p == "" {
		return s.PeriodKey(), nil
	}
	key := strings.ToLower(p)
	if strings.Contains(p, ",") {
		key = models.EncodePeriodKey(p)
	}
	if err := s.RequirePeriod(key); err != nil {
		return "", err
	}
	return key, nil
}

// parsePeriod accepts either "October, 2025" or "october_2025".
func parsePeriod(v string) (models.Period, error) {
	v = strings.TrimSpace(v)
	if strings.Contains(v, ",") {
		v = models.EncodePeriodKey(v)
	}
	return models.ParsePeriodKey(v)
}

func periodDisplay(v string) (string, error) {
	p, err := parsePeriod(v)
	if err != nil {
		return "", err
	}
	return p.Display(), nil
}
