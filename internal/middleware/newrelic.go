package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// NewRelicAttributes tags the New Relic transaction started by nrgin with the
// acting principal and the ride in the path.
func NewRelicAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		txn := nrgin.Transaction(c)
		if txn != nil {
			if p, ok := PrincipalFrom(c); ok {
				txn.AddAttribute("principal.id", p.ID)
				txn.AddAttribute("principal.role", string(p.Role))
			}
			if id := c.Param("id"); id != "" {
				txn.AddAttribute("ride.id", id)
			}
		}
		c.Next()
	}
}
