package rbac

import (
	"net/http"

	"vetvoice-platform/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireClinic enforces the multi-tenant invariant: clinic_id must exist in context.
// This does not validate membership; that belongs to the authorization layer once persistence exists.
func RequireClinic() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid, err := auth.ClinicID(c.Request.Context())
		if err != nil || cid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "clinic_id required"})
			return
		}
		c.Next()
	}
}

// RequireAnyRole allows access if the caller has any of the provided roles.
// Rules:
// - platform_admin bypasses all checks
// - support_agent is a hidden role, and will be denied unless explicitly allowed
// - clinic isolation is enforced via RequireClinic (use it in the chain)
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		allowedSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role, err := auth.Role(c.Request.Context())
		if err != nil || role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
			return
		}

		// platform_admin bypasses all
		if IsPlatformAdmin(role) {
			c.Next()
			return
		}

		// hidden roles are opt-in only
		if IsHiddenRole(role) {
			if _, ok := allowedSet[role]; !ok {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
				return
			}
		}

		if _, ok := allowedSet[role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
