package server

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/autobazaar/internal/authorization"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
)

func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := userFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if s.authzSvc == nil {
			AbortWithError(c, ErrForbidden)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), user.Role, strings.TrimSpace(object), strings.TrimSpace(action)); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// authorizeListingChange lets operators change any listing. Everyone else may
// only change a listing they bought VIP for.
func (s *Server) authorizeListingChange(ctx context.Context, user vipdomain.UserContext, carID string) error {
	if s.authzSvc == nil {
		return ErrForbidden
	}
	err := s.authzSvc.Authorize(ctx, user.Role, authorization.ObjectListing, authorization.ActionListingDisableAny)
	if err == nil {
		return nil
	}
	if !errors.Is(err, authorization.ErrForbidden) {
		return err
	}
	owns, err := s.activationSvc.HasPurchased(ctx, user, carID)
	if err != nil {
		return err
	}
	if !owns {
		return ErrForbidden
	}
	return nil
}
