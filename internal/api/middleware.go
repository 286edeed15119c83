package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/voxdeploy/voxdeploy/internal/auth"
	"github.com/voxdeploy/voxdeploy/internal/metrics"
)

// walletKey is the gin context key holding the authenticated wallet
// address set by sessionAuth.
const walletKey = "wallet_address"

// sessionAuth authenticates requests via the X-Session-ID header and
// stores the bound wallet address on the context.
func (s *Server) sessionAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader("X-Session-ID")

		wallet, err := s.sessions.Validate(c.Request.Context(), sessionID)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrSessionMissing):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "Session ID required"})
			case errors.Is(err, auth.ErrSessionInvalid):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "Invalid or expired session"})
			default:
				s.log.Error("Session lookup failed", "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"msg": "Session validation failed"})
			}
			return
		}

		c.Set(walletKey, wallet)
		c.Next()
	}
}

// throttle applies a process-wide request rate limit.
func throttle(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"msg": "Too many requests"})
			return
		}
		c.Next()
	}
}

// requestLogger logs each request and feeds the request metrics.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.RecordRequest(endpoint, strconv.Itoa(statusCode), latency)

		s.log.Info("HTTP request",
			"status", statusCode,
			"method", c.Request.Method,
			"path", path,
			"ip", c.ClientIP(),
			"latency_ms", latency.Milliseconds(),
		)
	}
}
