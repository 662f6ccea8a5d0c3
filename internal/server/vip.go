package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/autobazaar/internal/observability/logger"
	"github.com/smallbiznis/autobazaar/internal/purchase"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
	"github.com/smallbiznis/autobazaar/internal/vipstate"
	"github.com/smallbiznis/autobazaar/pkg/db/pagination"
	"go.uber.org/zap"
)

type activateRequest struct {
	selectionRequest
	ExpectedTotal *decimal.Decimal `json:"expected_total"`
}

type disableRequest struct {
	Features []string `json:"features"`
}

// GetVip describes the listing's VIP state as of now, or as of ?at= when a
// caller previews a later instant. ?prices=true attaches renewal prices.
func (s *Server) GetVip(c *gin.Context) {
	user, ok := userFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	now := s.clock.Now()
	at, err := parseOptionalTime(c.Query("at"), now.Location())
	if err != nil {
		AbortWithError(c, newValidationError("at", "invalid_time", "at must be RFC3339 or YYYY-MM-DD"))
		return
	}
	if at != nil {
		now = *at
	}
	withPrices, err := parseOptionalBool(c.Query("prices"))
	if err != nil {
		AbortWithError(c, newValidationError("prices", "invalid_bool", "prices must be a boolean"))
		return
	}

	ctx := c.Request.Context()
	state, err := s.listingSvc.ReadVipState(ctx, c.Param("carID"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var lookup vipdomain.PriceLookup
	if withPrices != nil && *withPrices {
		snap, err := s.catalogs.For(user).Load(ctx)
		if err != nil {
			logger.FromContext(ctx).Warn("describing vip state with fallback prices", zap.Error(err))
		}
		if snap != nil {
			lookup = snap
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": vipstate.Describe(state, now, lookup)})
}

func (s *Server) GetVipState(c *gin.Context) {
	state, err := s.listingSvc.ReadVipState(c.Request.Context(), c.Param("carID"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": state})
}

// PurchaseVip runs the storefront purchase flow on the caller's behalf:
// quote from the caller's catalog, balance pre-check, then activation.
func (s *Server) PurchaseVip(c *gin.Context) {
	user, ok := userFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	selection, err := req.toSelection()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	var lookup vipdomain.PriceLookup
	if snap, err := s.catalogs.For(user).Load(ctx); snap != nil {
		lookup = snap
	} else if err != nil {
		logger.FromContext(ctx).Warn("purchase without catalog", zap.Error(err))
	}

	result, err := s.purchaseSvc.Purchase(ctx, purchase.Request{
		CarID:          c.Param("carID"),
		Selection:      selection,
		IdempotencyKey: strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey)),
	}, lookup, s.walletSvc.Source(user.UserID), s.activationSvc.Sink(user))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// ActivateVip is the authoritative activation used by clients that run the
// purchase flow themselves.
func (s *Server) ActivateVip(c *gin.Context) {
	user, ok := userFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req activateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	selection, err := req.toSelection()
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if req.ExpectedTotal != nil && req.ExpectedTotal.IsNegative() {
		AbortWithError(c, newValidationError("expected_total", "invalid_amount", "expected_total must not be negative"))
		return
	}

	result, err := s.activationSvc.Activate(c.Request.Context(), user, vipdomain.ActivationRequest{
		CarID:          c.Param("carID"),
		Selection:      selection,
		IdempotencyKey: strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey)),
		ExpectedTotal:  req.ExpectedTotal,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// DisableVip clears the named features, or all of them when none are named.
func (s *Server) DisableVip(c *gin.Context) {
	var req disableRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		AbortWithError(c, invalidRequestError())
		return
	}

	features := make([]vipdomain.Feature, 0, len(req.Features))
	for _, raw := range req.Features {
		f, err := vipdomain.ParseFeature(raw)
		if err != nil {
			AbortWithError(c, newValidationError("features", "invalid_feature", "unknown feature "+strings.TrimSpace(raw)))
			return
		}
		features = append(features, f)
	}

	user, ok := userFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	ctx := c.Request.Context()
	carID := c.Param("carID")
	if err := s.authorizeListingChange(ctx, user, carID); err != nil {
		AbortWithError(c, err)
		return
	}

	state, err := s.listingSvc.Disable(ctx, carID, features...)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	logger.FromContext(ctx).Info("vip features disabled",
		zap.String("car_id", state.CarID),
		zap.Int("features", len(features)),
	)
	c.JSON(http.StatusOK, gin.H{"data": state})
}

func (s *Server) ListPurchases(c *gin.Context) {
	user, ok := userFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.activationSvc.ListPurchases(c.Request.Context(), user, c.Param("carID"), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
