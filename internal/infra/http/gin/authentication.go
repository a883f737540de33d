package ginserver

import (
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"venuebook/internal/infra/obs"
)

const (
	principalContextKey = "venuebook.principal"
	headerOwnerID       = "X-Owner-ID"
	headerCustomerID    = "X-Customer-ID"
)

// principal is the caller as asserted by the fronting authentication layer.
// The bearer token is never inspected here; it is forwarded to the booking store.
type principal struct {
	SessionID  string
	OwnerID    string
	CustomerID string
	Token      string
}

// Identity reads caller headers into the request context.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		setPrincipal(c, principal{
			SessionID:  strings.TrimSpace(c.GetHeader(obs.HeaderSessionID)),
			OwnerID:    strings.TrimSpace(c.GetHeader(headerOwnerID)),
			CustomerID: strings.TrimSpace(c.GetHeader(headerCustomerID)),
			Token:      extractBearerToken(c.GetHeader("Authorization")),
		})
		c.Next()
	}
}

func setPrincipal(c *gin.Context, p principal) {
	c.Set(principalContextKey, p)
}

func currentPrincipal(c *gin.Context) principal {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}
	}
	p, _ := val.(principal)
	return p
}

func requireSession(c *gin.Context) (principal, bool) {
	p := currentPrincipal(c)
	if p.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": obs.HeaderSessionID + " header required"})
		return principal{}, false
	}
	return p, true
}

func requireOwner(c *gin.Context) (principal, bool) {
	p := currentPrincipal(c)
	if p.OwnerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "owner identity required"})
		return principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
