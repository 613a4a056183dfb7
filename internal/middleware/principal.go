package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ridedispatch/internal/domain"
)

const (
	// PrincipalIDHeader carries the authenticated actor id set by the upstream auth layer.
	PrincipalIDHeader = "X-Principal-ID"

	// PrincipalRoleHeader carries the actor role (CUSTOMER, AGENT or ADMIN).
	PrincipalRoleHeader = "X-Principal-Role"

	principalKey = "principal"
)

// Principal reads the acting principal from the request headers and stores
// it on the context. Requests without a valid principal are rejected.
func Principal() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := domain.Principal{
			ID:   strings.TrimSpace(c.GetHeader(PrincipalIDHeader)),
			Role: domain.Role(strings.ToUpper(strings.TrimSpace(c.GetHeader(PrincipalRoleHeader)))),
		}
		if p.ID == "" || !p.Role.Valid() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":  "UNAUTHORIZED",
				"error": "missing or invalid principal headers",
			})
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireRole rejects principals whose role is not role.
func RequireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok || p.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":  "UNAUTHORIZED",
				"error": "role " + string(role) + " required",
			})
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the principal stored by Principal.
func PrincipalFrom(c *gin.Context) (domain.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return domain.Principal{}, false
	}
	p, ok := v.(domain.Principal)
	return p, ok
}
