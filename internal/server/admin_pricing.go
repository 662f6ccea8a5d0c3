package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/autobazaar/internal/catalog/domain"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
)

type pricingEntryRequest struct {
	Role         string          `json:"role"`
	Price        decimal.Decimal `json:"price"`
	IsDailyPrice bool            `json:"is_daily_price"`
	DurationDays int             `json:"duration_days"`
}

type pricingEntryView struct {
	ID           string          `json:"id"`
	ServiceType  string          `json:"service_type"`
	Role         string          `json:"role"`
	Price        decimal.Decimal `json:"price"`
	IsDailyPrice bool            `json:"is_daily_price"`
	DurationDays int             `json:"duration_days,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func newPricingEntryView(row catalogdomain.PricingEntryRow) pricingEntryView {
	return pricingEntryView{
		ID:           row.ID.String(),
		ServiceType:  row.ServiceType,
		Role:         row.Role,
		Price:        row.Price,
		IsDailyPrice: row.IsDailyPrice,
		DurationDays: row.DurationDays,
		UpdatedAt:    row.UpdatedAt,
	}
}

// ListPricingEntries lists the rows stored for ?role= exactly; no role means
// generic pricing.
func (s *Server) ListPricingEntries(c *gin.Context) {
	rows, err := s.pricingAdmin.List(c.Request.Context(), c.Query("role"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	items := make([]pricingEntryView, 0, len(rows))
	for _, row := range rows {
		items = append(items, newPricingEntryView(row))
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) UpsertPricingEntry(c *gin.Context) {
	serviceType, err := vipdomain.ParseServiceType(c.Param("serviceType"))
	if err != nil {
		AbortWithError(c, newValidationError("service_type", "unknown_service_type", "unknown service type"))
		return
	}

	var req pricingEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	entry := vipdomain.PricingEntry{
		ServiceType:  serviceType,
		Price:        req.Price,
		IsDailyPrice: req.IsDailyPrice,
		DurationDays: req.DurationDays,
	}
	if err := s.pricingAdmin.Upsert(c.Request.Context(), req.Role, entry); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entry})
}

func (s *Server) DeactivatePricingEntry(c *gin.Context) {
	serviceType, err := vipdomain.ParseServiceType(c.Param("serviceType"))
	if err != nil {
		AbortWithError(c, newValidationError("service_type", "unknown_service_type", "unknown service type"))
		return
	}

	if err := s.pricingAdmin.Deactivate(c.Request.Context(), c.Query("role"), serviceType); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
