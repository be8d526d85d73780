package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"examcompress/internal/session"
)

const (
	statusWarnThreshold  = 400
	statusErrorThreshold = 500

	// SessionCookie names the cookie carrying the session ID.
	SessionCookie = "session_id"

	sessionKey       = "session"
	sessionCookieTTL = 24 * 60 * 60
)

// ZerologLogger is a Gin middleware that logs requests using zerolog.
func ZerologLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		evt := log.Info()
		switch {
		case status >= statusErrorThreshold:
			evt = log.Error()
		case status >= statusWarnThreshold:
			evt = log.Warn()
		}

		if raw != "" {
			path = path + "?" + raw
		}
		if s, ok := c.Get(sessionKey); ok {
			evt = evt.Str("session_id", s.(*session.Session).ID)
		}

		evt.
			Int("status", status).
			Str("method", method).
			Str("path", path).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Int("bytes", c.Writer.Size()).
			Str("user_agent", c.Request.UserAgent()).
			Msg("http request completed")
	}
}

// Sessions attaches the caller's session, creating one (and its cookie)
// when the request carries none or an expired one.
func Sessions(m *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(SessionCookie)
		s, created := m.GetOrCreate(id)
		if created {
			log.Debug().Str("session_id", s.ID).Msg("session created")
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookie, s.ID, sessionCookieTTL, "/", "", false, true)
		c.Set(sessionKey, s)
		c.Next()
	}
}

// SessionFrom returns the session attached by Sessions.
func SessionFrom(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}
