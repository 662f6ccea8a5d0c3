package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/autobazaar/internal/observability/context"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
)

// Identity headers set by the gateway in front of the API.
const (
	HeaderUserID         = "X-User-Id"
	HeaderUserRole       = "X-User-Role"
	HeaderIdempotencyKey = "Idempotency-Key"

	contextUserKey = "vip_user"
)

// Identity trusts the gateway's identity headers and rejects anonymous calls.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if userID == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		role := strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderUserRole)))

		user := vipdomain.UserContext{UserID: userID, Role: role}
		c.Set(contextUserKey, user)
		c.Request = c.Request.WithContext(obscontext.WithUser(c.Request.Context(), userID, role))
		c.Next()
	}
}

func userFromContext(c *gin.Context) (vipdomain.UserContext, bool) {
	value, ok := c.Get(contextUserKey)
	if !ok {
		return vipdomain.UserContext{}, false
	}
	user, ok := value.(vipdomain.UserContext)
	return user, ok && user.UserID != ""
}
