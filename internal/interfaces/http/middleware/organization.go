package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/infrastructure/logger"
	"github.com/invoicing/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Keys used to carry the acting organization and user through gin.Context
const (
	OrganizationIDKey     = "organization_id"
	OrganizationHeaderKey = "X-Organization-ID"
	UserIDKey             = "user_id"
	UserHeaderKey         = "X-User-ID"
)

// OrganizationConfig holds configuration for the organization middleware
type OrganizationConfig struct {
	// SkipPaths are served without an organization (e.g. health checks)
	SkipPaths []string
	// Logger for rejected requests; the request logger is used when nil
	Logger *zap.Logger
}

// DefaultOrganizationConfig returns default organization middleware configuration
func DefaultOrganizationConfig() OrganizationConfig {
	return OrganizationConfig{
		SkipPaths: []string{"/health", "/api/v1/health"},
	}
}

// Organization requires the X-Organization-ID header on every request and
// stores it for handlers. Every invoice query is scoped by this id.
func Organization() gin.HandlerFunc {
	return OrganizationWithConfig(DefaultOrganizationConfig())
}

// OrganizationWithConfig returns the organization middleware with custom configuration
func OrganizationWithConfig(cfg OrganizationConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath || strings.HasPrefix(path, skipPath+"/") {
				c.Next()
				return
			}
		}

		raw := strings.TrimSpace(c.GetHeader(OrganizationHeaderKey))
		orgID, err := uuid.Parse(raw)
		if raw == "" || err != nil || orgID == uuid.Nil {
			log := cfg.Logger
			if log == nil {
				log = logger.FromContext(c.Request.Context())
			}
			log.Debug("Rejected request without a valid organization",
				zap.String("path", path),
				zap.String("header", raw),
			)
			message := "X-Organization-ID header is required"
			if raw != "" {
				message = "X-Organization-ID must be a UUID"
			}
			c.AbortWithStatusJSON(http.StatusBadRequest,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeMissingOrganization, message, getRequestID(c)))
			return
		}

		c.Set(OrganizationIDKey, orgID)
		ctx := logger.WithOrganizationID(c.Request.Context(), orgID.String())

		// The acting user is informational only; a malformed value is ignored.
		if userID, err := uuid.Parse(c.GetHeader(UserHeaderKey)); err == nil && userID != uuid.Nil {
			c.Set(UserIDKey, userID)
			ctx = logger.WithUserID(ctx, userID.String())
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetOrganizationID returns the organization set by the middleware
func GetOrganizationID(c *gin.Context) (uuid.UUID, bool) {
	if v, exists := c.Get(OrganizationIDKey); exists {
		if id, ok := v.(uuid.UUID); ok {
			return id, true
		}
	}
	return uuid.Nil, false
}

// GetUserID returns the acting user, or nil when the request named none
func GetUserID(c *gin.Context) *uuid.UUID {
	if v, exists := c.Get(UserIDKey); exists {
		if id, ok := v.(uuid.UUID); ok {
			return &id
		}
	}
	return nil
}
