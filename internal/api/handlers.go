package api

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/voxdeploy/voxdeploy/internal/lifecycle"
	"github.com/voxdeploy/voxdeploy/internal/metrics"
	"github.com/voxdeploy/voxdeploy/internal/voice"
)

// VoiceRequest carries either a transcript or base64-encoded audio.
type VoiceRequest struct {
	Text  string `json:"text"`
	Audio string `json:"audio"`
}

// Login verifies a wallet signature over a nonce and issues a session.
func (s *Server) Login(c *gin.Context) {
	ctx := c.Request.Context()
	ip := c.ClientIP()

	if s.limiter != nil {
		allowed, err := s.limiter.Allowed(ctx, ip)
		if err != nil {
			// Rate limiting is advisory; login still works without redis.
			s.log.Warn("Rate limit check failed", "ip", ip, "error", err)
		} else if !allowed {
			metrics.LoginAttempts.WithLabelValues("rate_limited").Inc()
			c.JSON(http.StatusTooManyRequests, gin.H{"msg": "Too many login attempts"})
			return
		}
		if err := s.limiter.Record(ctx, ip); err != nil {
			s.log.Warn("Rate limit record failed", "ip", ip, "error", err)
		}
	}

	walletAddress := c.PostForm("wallet_address")
	signature := c.PostForm("signature")
	nonce := c.PostForm("nonce")

	if !s.verifier.Verify(ctx, walletAddress, nonce, signature) {
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "Signature verification failed"})
		return
	}

	sessionID, err := s.sessions.Create(ctx, walletAddress)
	if err != nil {
		s.log.Error("Failed to create session", "wallet", walletAddress, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "Failed to create session"})
		return
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	c.JSON(http.StatusOK, gin.H{"session_id": sessionID})
}

// Voice accepts a spoken or typed command and executes it for the
// authenticated wallet.
func (s *Server) Voice(c *gin.Context) {
	ctx := c.Request.Context()
	wallet := c.GetString(walletKey)

	var req VoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid request body"})
		return
	}

	text := req.Text
	if text == "" {
		if req.Audio == "" {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "text or audio required"})
			return
		}
		transcript, err := s.transcribe(ctx, req.Audio)
		if err != nil {
			s.log.Warn("Transcription failed", "wallet", wallet, "error", err)
			c.JSON(http.StatusOK, gin.H{
				"raw_text": "Could not understand audio",
				"result":   "Command not recognized",
			})
			return
		}
		text = transcript
	}

	cmd := voice.Parse(text)
	if cmd.ID == "" {
		cmd.ID = c.Query("id")
	}

	result := s.router.Route(ctx, cmd, wallet)
	c.JSON(http.StatusOK, gin.H{"raw_text": text, "result": result})
}

func (s *Server) transcribe(ctx context.Context, encoded string) (string, error) {
	if s.transcriber == nil {
		return "", voice.ErrUnavailable
	}
	audio, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	return s.transcriber.Transcribe(ctx, audio)
}

// Status returns the live-reconciled status of one deployment.
func (s *Server) Status(c *gin.Context) {
	deploymentID := c.Param("deployment_id")

	status, err := s.deployments.Status(c.Request.Context(), deploymentID)
	if err != nil {
		if errors.Is(err, lifecycle.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"msg": "Deployment not found"})
			return
		}
		s.log.Error("Status lookup failed", "dseq", deploymentID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "Status lookup failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deployment_id": deploymentID, "status": status})
}

// ListDeployments returns one page of the wallet's deployments.
func (s *Server) ListDeployments(c *gin.Context) {
	wallet := c.GetString(walletKey)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	result, err := s.deployments.List(c.Request.Context(), wallet, page, perPage)
	if err != nil {
		s.log.Error("Deployment listing failed", "wallet", wallet, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "Failed to list deployments"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Health reports the reachability of the service's dependencies.
func (s *Server) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.db != nil {
		if err := s.db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database unreachable",
			})
			return
		}
	}

	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "redis unreachable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
