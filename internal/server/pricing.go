package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/autobazaar/internal/catalog"
	"github.com/smallbiznis/autobazaar/internal/observability/logger"
	"github.com/smallbiznis/autobazaar/internal/pricing"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
	"go.uber.org/zap"
)

type pricingResponse struct {
	Role     string                   `json:"role"`
	Loaded   bool                     `json:"loaded"`
	Origin   catalog.Origin           `json:"origin"`
	LoadedAt *time.Time               `json:"loaded_at,omitempty"`
	Currency string                   `json:"currency"`
	Entries  []vipdomain.PricingEntry `json:"entries"`
}

type addOnRequest struct {
	ServiceType string  `json:"service_type"`
	Days        float64 `json:"days"`
}

// selectionRequest takes day counts as JSON numbers; fractional days round
// half away from zero.
type selectionRequest struct {
	Tier            string         `json:"tier"`
	TierDays        float64        `json:"tier_days"`
	AddOns          []addOnRequest `json:"add_ons"`
	AutoRenewalDays float64        `json:"auto_renewal_days"`
}

func (r selectionRequest) toSelection() (vipdomain.Selection, error) {
	tier, err := vipdomain.ParseTier(r.Tier)
	if err != nil {
		return vipdomain.Selection{}, err
	}
	sel := vipdomain.Selection{
		Tier:            tier,
		TierDays:        pricing.RoundDays(r.TierDays),
		AutoRenewalDays: pricing.RoundDays(r.AutoRenewalDays),
	}
	for _, a := range r.AddOns {
		st, err := vipdomain.ParseServiceType(a.ServiceType)
		if err != nil {
			return vipdomain.Selection{}, err
		}
		sel.AddOns = append(sel.AddOns, vipdomain.AddOn{
			ServiceType: st,
			Days:        pricing.RoundDays(a.Days),
		})
	}
	if err := sel.Validate(); err != nil {
		return vipdomain.Selection{}, err
	}
	return sel, nil
}

type quoteResponse struct {
	Quote     pricing.Quote      `json:"quote"`
	Balance   decimal.Decimal    `json:"balance"`
	Currency  string             `json:"currency"`
	CanAfford bool               `json:"can_afford"`
	Shortfall *pricing.Shortfall `json:"shortfall,omitempty"`
	// Confirmed is false while any line is priced from built-in fallbacks;
	// such a quote cannot be activated.
	Confirmed bool `json:"confirmed"`
}

func (s *Server) GetPricing(c *gin.Context) {
	user, ok := userFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	ctx := c.Request.Context()
	cat := s.catalogs.For(user)
	snap, err := cat.Load(ctx)
	if snap == nil {
		AbortWithError(c, err)
		return
	}
	if err != nil {
		logger.FromContext(ctx).Warn("serving pricing without a live catalog", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"data": s.pricingResponse(cat.Role(), snap)})
}

func (s *Server) RefreshPricing(c *gin.Context) {
	user, ok := userFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	ctx := c.Request.Context()
	cat := s.catalogs.For(user)
	snap, err := cat.Refresh(ctx)
	if snap != nil {
		s.obsMetrics.RecordCatalogRefresh(ctx, cat.Role(), string(snap.Origin))
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.pricingResponse(cat.Role(), snap)})
}

func (s *Server) QuoteSelection(c *gin.Context) {
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
	snap, err := s.catalogs.For(user).Load(ctx)
	if snap == nil {
		AbortWithError(c, err)
		return
	}

	quote, err := pricing.QuoteSelection(selection, snap)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	wallet, err := s.walletSvc.Balance(ctx, user.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := quoteResponse{
		Quote:     quote,
		Balance:   wallet.Balance,
		Currency:  wallet.Currency,
		CanAfford: pricing.CanAfford(quote.Total, wallet.Balance),
		Confirmed: snap.Loaded && !quoteUsesFallback(quote),
	}
	if !resp.CanAfford {
		shortfall := pricing.DescribeShortfall(quote.Total, wallet.Balance)
		resp.Shortfall = &shortfall
	}
	s.httpMetrics.ObserveQuote(quote.Total.InexactFloat64())

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) pricingResponse(role string, snap *catalog.Snapshot) pricingResponse {
	resp := pricingResponse{
		Role:     strings.TrimSpace(role),
		Loaded:   snap.Loaded,
		Origin:   snap.Origin,
		Currency: s.cfg.Currency,
		Entries:  snap.Entries(),
	}
	if !snap.LoadedAt.IsZero() {
		loadedAt := snap.LoadedAt
		resp.LoadedAt = &loadedAt
	}
	return resp
}

func quoteUsesFallback(q pricing.Quote) bool {
	if q.Tier != nil && q.Tier.Fallback {
		return true
	}
	for _, line := range q.AddOns {
		if line.Fallback {
			return true
		}
	}
	return false
}
