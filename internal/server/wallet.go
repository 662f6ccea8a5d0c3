package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/autobazaar/internal/observability/logger"
	walletdomain "github.com/smallbiznis/autobazaar/internal/wallet/domain"
	"github.com/smallbiznis/autobazaar/pkg/db/pagination"
	"go.uber.org/zap"
)

type topUpRequest struct {
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

func (s *Server) GetBalance(c *gin.Context) {
	user, ok := userFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	w, err := s.walletSvc.Balance(c.Request.Context(), user.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": w})
}

func (s *Server) ListWalletEntries(c *gin.Context) {
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

	resp, err := s.walletSvc.ListEntries(c.Request.Context(), user.UserID, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// TopUp credits a user's wallet once per reference. Payment callbacks and
// operators call it; users never top up themselves through the API.
func (s *Server) TopUp(c *gin.Context) {
	var req topUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		AbortWithError(c, newValidationError("user_id", "required", "user_id is required"))
		return
	}
	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		AbortWithError(c, newValidationError("reference", "required", "reference is required"))
		return
	}

	ctx := c.Request.Context()
	w, err := s.walletSvc.Credit(ctx, userID, req.Amount, walletdomain.SourceTopUp, reference)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	logger.FromContext(ctx).Info("wallet topped up",
		zap.String("wallet_user_id", userID),
		zap.String("reference", reference),
		zap.String("amount", req.Amount.StringFixed(2)),
	)
	c.JSON(http.StatusOK, gin.H{"data": w})
}
