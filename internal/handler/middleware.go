package handler

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/pkg/metrics"
)

const (
	requestIDHeader  = "X-Request-ID"
	requestIDKey     = "request_id"
	adminTokenHeader = "X-Admin-Token"
)

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// RequestID tags each request with an id, reusing the caller's if present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// RequestLogger logs every request after it completes.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		var event *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			event = log.Error()
		case status >= http.StatusBadRequest:
			event = log.Warn()
		default:
			event = log.Debug()
		}

		event.
			Str("request_id", requestID(c)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// Metrics records request counts, durations and in-flight requests.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		done := m.TrackInFlight(route)
		start := time.Now()
		c.Next()
		done()

		m.ObserveRequest(route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// CORS allows any origin and answers preflight requests directly.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, X-Admin-Token, X-Request-ID")
			c.Header("Access-Control-Max-Age", "86400")
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

// AdminToken requires the X-Admin-Token header to equal token.
// An empty token leaves the route open.
func AdminToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		got := c.GetHeader(adminTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			log.Warn().
				Str("request_id", requestID(c)).
				Str("client_ip", c.ClientIP()).
				Msg("Rejected admin request")
			abort(c, http.StatusUnauthorized, KindUnauthorized, "Unauthorized")
			return
		}
		c.Next()
	}
}

// NewRouter builds the gin engine with middleware, API routes and /metrics.
func NewRouter(h *HTTPHandler, m *metrics.Metrics, adminToken string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), CORS(), RequestLogger())
	if m != nil {
		router.Use(Metrics(m))
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	h.RegisterRoutes(router, adminToken)
	return router
}
