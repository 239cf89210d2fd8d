package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/you/movie-recommender/internal/logging"
	"github.com/you/movie-recommender/internal/metrics"
	"github.com/you/movie-recommender/internal/session"
)

const (
	sessionCookie = "session_id"
	sessionKey    = "session"
)

// accessLog records one structured log line and the request metrics per call.
func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()

		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(elapsed.Seconds())

		logging.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("elapsed", elapsed).
			Msg("request")
	}
}

// sessionMiddleware resolves the caller's session state from the session
// cookie, issuing a new cookie on first contact.
func sessionMiddleware(m *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(sessionCookie)
		if err != nil || id == "" {
			id = m.NewID()
			c.SetCookie(sessionCookie, id, 0, "/", "", false, true)
		}
		c.Set(sessionKey, m.Get(id))
		c.Next()
	}
}

// sessionState pulls the session state attached by sessionMiddleware.
func sessionState(c *gin.Context) *session.State {
	return c.MustGet(sessionKey).(*session.State)
}
