package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// OrganizationIDHeader is the HTTP header carrying the calling organization
	OrganizationIDHeader = "X-Organization-ID"

	// OrganizationIDKey is the key used to store the organization ID in the context
	OrganizationIDKey = "organization_id"
)

// OrganizationID middleware requires a valid organization header on every
// request. Each repository call is scoped by this id, so a request without
// one cannot be served.
func OrganizationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(OrganizationIDHeader)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": gin.H{
					"code":    "MISSING_ORGANIZATION",
					"message": OrganizationIDHeader + " header is required",
				},
			})
			return
		}

		orgID, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": gin.H{
					"code":    "INVALID_ORGANIZATION",
					"message": OrganizationIDHeader + " header must be a valid UUID",
				},
			})
			return
		}

		c.Set(OrganizationIDKey, orgID)
		c.Next()
	}
}

// GetOrganizationID retrieves the organization ID from the gin context.
// Returns uuid.Nil when the middleware did not run.
func GetOrganizationID(c *gin.Context) uuid.UUID {
	if id, exists := c.Get(OrganizationIDKey); exists {
		if orgID, ok := id.(uuid.UUID); ok {
			return orgID
		}
	}
	return uuid.Nil
}
