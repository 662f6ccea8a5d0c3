// Package purchase runs the storefront purchase flow: price the selection,
// pre-check the balance and hand the purchase to the activation sink.
package purchase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/autobazaar/internal/observability/logger"
	"github.com/smallbiznis/autobazaar/internal/observability/metrics"
	"github.com/smallbiznis/autobazaar/internal/observability/tracing"
	"github.com/smallbiznis/autobazaar/internal/pricing"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const tracerName = "github.com/smallbiznis/autobazaar/internal/purchase"

type Request struct {
	CarID     string
	Selection vipdomain.Selection
	// IdempotencyKey is forwarded to the sink as is. The flow never makes one up.
	IdempotencyKey string
}

type Params struct {
	fx.In

	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

func New(p Params) *Service {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		log:     log.Named("purchase.service"),
		metrics: p.Metrics,
		tracer:  otel.Tracer(tracerName),
	}
}

// Purchase prices the selection against lookup, checks it against the
// current balance and asks sink to activate it. Nothing is retried.
//
// A failed purchase returns a PurchaseResult carrying the reason together
// with an error wrapping the matching sentinel. No effect is assumed to have
// happened unless the sink reported success.
func (s *Service) Purchase(ctx context.Context, req Request, lookup vipdomain.PriceLookup, balance vipdomain.BalanceSource, sink vipdomain.ActivationSink) (vipdomain.PurchaseResult, error) {
	ctx, span := s.tracer.Start(ctx, "vip.purchase", trace.WithAttributes(tracing.SafeAttributes(
		attribute.String("car_id", req.CarID),
		attribute.String("tier", string(req.Selection.Tier)),
		attribute.Int("add_ons", len(req.Selection.AddOns)),
	)...))
	defer span.End()

	result, err := s.purchase(ctx, req, lookup, balance, sink)

	s.metrics.RecordPurchase(ctx, result.Reason)
	span.SetAttributes(attribute.Bool("success", result.Success))
	if err != nil {
		span.SetAttributes(attribute.String("reason", result.Reason))
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, result.Reason)
	}
	return result, err
}

func (s *Service) purchase(ctx context.Context, req Request, lookup vipdomain.PriceLookup, balance vipdomain.BalanceSource, sink vipdomain.ActivationSink) (vipdomain.PurchaseResult, error) {
	log := logger.WithContext(ctx, s.log).With(zap.String("car_id", req.CarID))

	selection := req.Selection
	if selection.Tier == "" {
		selection.Tier = vipdomain.TierNone
	}
	if selection.Empty() {
		return failed(vipdomain.ReasonNothingSelected, vipdomain.ErrNothingSelected)
	}
	if err := selection.Validate(); err != nil {
		return failed(vipdomain.ReasonInvalidSelection, err)
	}
	if strings.TrimSpace(req.CarID) == "" {
		return failed(vipdomain.ReasonInvalidSelection, vipdomain.ErrInvalidCarID)
	}

	total, err := pricing.ComputeTotal(selection, lookup)
	if err != nil {
		if errors.Is(err, vipdomain.ErrCatalogUnavailable) {
			return failed(vipdomain.ReasonCatalogUnavailable, err)
		}
		return failed(vipdomain.ReasonInvalidSelection, err)
	}

	current, err := balance.Current(ctx)
	if err != nil {
		log.Warn("balance lookup failed", zap.Error(err))
		return failed(vipdomain.ReasonBalanceUnavailable, fmt.Errorf("%w: %w", vipdomain.ErrBalanceUnavailable, err))
	}

	if !pricing.CanAfford(total, current) {
		shortfall := pricing.DescribeShortfall(total, current)
		result, err := failed(vipdomain.ReasonInsufficientBalance, &vipdomain.ShortfallError{
			Required: shortfall.RequiredAmount,
			Current:  shortfall.CurrentBalance,
		})
		result.Total = total
		result.RequiredAmount = &shortfall.RequiredAmount
		result.CurrentBalance = &shortfall.CurrentBalance
		return result, err
	}

	activated, err := sink.Activate(ctx, vipdomain.ActivationRequest{
		CarID:          req.CarID,
		Selection:      selection,
		IdempotencyKey: req.IdempotencyKey,
		ExpectedTotal:  &total,
	})
	if err != nil {
		log.Warn("activation failed", zap.String("total", total.StringFixed(2)), zap.Error(err))
		if !errors.Is(err, vipdomain.ErrActivationFailed) {
			err = fmt.Errorf("%w: %w", vipdomain.ErrActivationFailed, err)
		}
		result, err := failed(vipdomain.ReasonActivationFailed, err)
		result.Total = total
		var shortfall *vipdomain.ShortfallError
		if errors.As(err, &shortfall) {
			result.RequiredAmount = &shortfall.Required
			result.CurrentBalance = &shortfall.Current
		}
		return result, err
	}

	log.Info("vip purchased",
		zap.String("purchase_id", activated.PurchaseID),
		zap.String("total", total.StringFixed(2)),
		zap.Bool("replayed", activated.Replayed),
	)
	return vipdomain.PurchaseResult{
		Success:    true,
		NewBalance: newBalance(current, total, activated),
		Total:      total,
	}, nil
}

// newBalance prefers the balance the sink reports after its own debit.
func newBalance(current, total decimal.Decimal, activated vipdomain.ActivationResult) decimal.Decimal {
	if activated.PurchaseID != "" {
		return activated.NewBalance
	}
	return current.Sub(total)
}

func failed(reason string, err error) (vipdomain.PurchaseResult, error) {
	return vipdomain.PurchaseResult{Reason: reason, Detail: err.Error()}, err
}
