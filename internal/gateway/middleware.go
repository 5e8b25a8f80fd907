package gateway

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tramite-portal/internal/common/auth"
	apperrors "tramite-portal/internal/common/errors"
	"tramite-portal/internal/common/metrics"
)

const (
	ctxToken  = "token"
	ctxClaims = "claims"
	ctxScope  = "scope"
)

// authRequired extracts and expiry-checks the bearer token. Signature
// verification stays with the backend; the gateway only needs identity and a
// live expiry to scope the workflow cache.
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractBearer(c.GetHeader("Authorization"))
		if err != nil {
			s.respondError(c, err)
			c.Abort()
			return
		}

		claims, err := auth.Validate(token)
		if err != nil {
			s.respondError(c, err)
			c.Abort()
			return
		}

		c.Set(ctxToken, token)
		c.Set(ctxClaims, claims)
		c.Set(ctxScope, strconv.FormatInt(claims.UserID, 10))
		c.Next()
	}
}

// observed records a wizard step transition with its duration.
func (s *Server) observed(step string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.obs == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		result := "ok"
		if c.Writer.Status() >= 400 {
			result = "error"
		}
		s.obs.RecordStep(c.Request.Context(), step, result)
		s.obs.RecordStepDuration(c.Request.Context(), time.Since(start), step)
	}
}

// measured wraps a handler with the proxy request metrics.
func measured(route string, handler gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		handler(c)
		metrics.ProxyRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		metrics.ProxyRequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

func token(c *gin.Context) string {
	return c.GetString(ctxToken)
}

func scope(c *gin.Context) string {
	return c.GetString(ctxScope)
}

// respondError renders the taxonomy error shape: a stable code, a localized
// message, and the mapped HTTP status.
func (s *Server) respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)

	stdErr := &apperrors.StandardError{}
	if !asStandard(err, &stdErr) {
		s.logger.WithError(err).Error("unclassified error", map[string]interface{}{
			"path": c.Request.URL.Path,
		})
		c.JSON(status, gin.H{"message": "Error en la petición"})
		return
	}

	body := gin.H{
		"code":    stdErr.Code,
		"message": stdErr.Message,
	}
	if stdErr.Details != "" {
		body["details"] = stdErr.Details
	}
	c.JSON(status, body)
}
