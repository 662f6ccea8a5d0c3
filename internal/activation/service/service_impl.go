package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	activationdomain "github.com/smallbiznis/autobazaar/internal/activation/domain"
	"github.com/smallbiznis/autobazaar/internal/catalog"
	"github.com/smallbiznis/autobazaar/internal/clock"
	listingdomain "github.com/smallbiznis/autobazaar/internal/listing/domain"
	"github.com/smallbiznis/autobazaar/internal/observability/logger"
	"github.com/smallbiznis/autobazaar/internal/observability/metrics"
	"github.com/smallbiznis/autobazaar/internal/pricing"
	"github.com/smallbiznis/autobazaar/internal/ratelimit"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
	walletdomain "github.com/smallbiznis/autobazaar/internal/wallet/domain"
	"github.com/smallbiznis/autobazaar/pkg/db"
	"github.com/smallbiznis/autobazaar/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxIdempotencyKeyLen = 128

// errConcurrentReplay aborts a transaction that lost the race to insert the
// same idempotency key; the winner's outcome is replayed afterwards.
var errConcurrentReplay = errors.New("concurrent_replay")

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     activationdomain.Repository
	Catalogs *catalog.Registry
	Wallet   walletdomain.Service
	Listings listingdomain.Service
	Limiter  *ratelimit.PurchaseLimiter `optional:"true"`
	Metrics  *metrics.Metrics           `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     activationdomain.Repository
	catalogs *catalog.Registry
	wallet   walletdomain.Service
	listings listingdomain.Service
	limiter  *ratelimit.PurchaseLimiter
	metrics  *metrics.Metrics
}

func New(p Params) activationdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("activation.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		catalogs: p.Catalogs,
		wallet:   p.Wallet,
		listings: p.Listings,
		limiter:  p.Limiter,
		metrics:  p.Metrics,
	}
}

func (s *Service) Activate(ctx context.Context, user vipdomain.UserContext, req vipdomain.ActivationRequest) (vipdomain.ActivationResult, error) {
	result, err := s.activate(ctx, user, req)
	s.record(ctx, req.Selection, result, err)
	return result, err
}

func (s *Service) activate(ctx context.Context, user vipdomain.UserContext, req vipdomain.ActivationRequest) (vipdomain.ActivationResult, error) {
	userID := strings.TrimSpace(user.UserID)
	if userID == "" {
		return vipdomain.ActivationResult{}, vipdomain.ErrInvalidUser
	}
	carID := strings.TrimSpace(req.CarID)
	if carID == "" {
		return vipdomain.ActivationResult{}, vipdomain.ErrInvalidCarID
	}
	key := strings.TrimSpace(req.IdempotencyKey)
	if len(key) > maxIdempotencyKeyLen {
		return vipdomain.ActivationResult{}, activationdomain.ErrInvalidIdempotencyKey
	}
	selection := normalizeSelection(req.Selection)
	if err := selection.Validate(); err != nil {
		return vipdomain.ActivationResult{}, err
	}

	// A key that already charged replays its outcome, whatever the catalog or
	// the listing lock say now.
	if key != "" {
		result, found, err := s.replayPrior(ctx, userID, key, carID, selection)
		if err != nil || found {
			return result, err
		}
	}

	lease, err := s.limiter.LockListing(ctx, carID)
	if err != nil {
		if errors.Is(err, ratelimit.ErrListingBusy) {
			return vipdomain.ActivationResult{}, activationdomain.ErrActivationInProgress
		}
		return vipdomain.ActivationResult{}, fmt.Errorf("%w: %w", vipdomain.ErrActivationFailed, err)
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn("release activation lock", zap.String("car_id", carID), zap.Error(err))
		}
	}()

	quote, err := s.quote(ctx, user, selection)
	if err != nil {
		return vipdomain.ActivationResult{}, err
	}
	if req.ExpectedTotal != nil && quote.Total.GreaterThan(*req.ExpectedTotal) {
		return vipdomain.ActivationResult{}, activationdomain.ErrPriceChanged
	}

	var result vipdomain.ActivationResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if key != "" {
			prior, err := s.repo.FindByIdempotencyKey(ctx, tx, userID, key)
			if err != nil {
				return err
			}
			if prior != nil {
				result, err = s.replay(ctx, tx, *prior, carID, selection)
				return err
			}
		}

		w, err := s.wallet.LockTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		if w.Balance.LessThan(quote.Total) {
			return &vipdomain.ShortfallError{Required: quote.Total, Current: w.Balance}
		}

		purchaseID := s.genID.Generate()
		if quote.Total.IsPositive() {
			w, err = s.wallet.DebitTx(ctx, tx, userID, quote.Total, walletdomain.SourceVipPurchase, purchaseID.String())
			if err != nil {
				return err
			}
		}

		now := s.clock.Now()
		purchase := activationdomain.Purchase{
			ID:             purchaseID,
			UserID:         userID,
			CarID:          carID,
			IdempotencyKey: optionalKey(key),
			Selection:      datatypes.NewJSONType(selection),
			Total:          quote.Total,
			BalanceAfter:   w.Balance,
			CreatedAt:      now.UTC(),
		}
		if err := s.repo.Insert(ctx, tx, &purchase); err != nil {
			if key != "" && db.IsDuplicateKeyErr(err) {
				return errConcurrentReplay
			}
			return err
		}

		state, err := s.listings.ReadForUpdateTx(ctx, tx, carID)
		if err != nil {
			return err
		}
		state, err = s.listings.SaveTx(ctx, tx, Apply(state, selection, now))
		if err != nil {
			return err
		}

		result = vipdomain.ActivationResult{
			PurchaseID: purchaseID.String(),
			Charged:    quote.Total,
			NewBalance: w.Balance,
			State:      state,
		}
		return nil
	})

	if errors.Is(err, errConcurrentReplay) {
		return s.replayCommitted(ctx, userID, key, carID, selection)
	}
	if err != nil {
		return vipdomain.ActivationResult{}, classify(err)
	}

	logger.WithContext(ctx, s.log).Info("vip activated",
		zap.String("purchase_id", result.PurchaseID),
		zap.String("car_id", carID),
		zap.String("tier", string(selection.Tier)),
		zap.Int("add_ons", len(selection.AddOns)),
		zap.String("charged", result.Charged.StringFixed(2)),
		zap.Bool("replayed", result.Replayed),
	)
	return result, nil
}

// quote prices the selection against a confirmed catalog. Built-in fallback
// prices are good enough to display but never to charge.
func (s *Service) quote(ctx context.Context, user vipdomain.UserContext, selection vipdomain.Selection) (pricing.Quote, error) {
	snap, err := s.catalogs.For(user).Load(ctx)
	if snap == nil || !snap.Loaded {
		if err == nil {
			err = vipdomain.ErrCatalogUnavailable
		}
		s.log.Warn("refusing activation without a loaded catalog", zap.Error(err))
		return pricing.Quote{}, activationdomain.ErrPricingNotConfirmed
	}

	quote, err := pricing.QuoteSelection(selection, snap)
	if err != nil {
		return pricing.Quote{}, err
	}
	if quote.Tier != nil && quote.Tier.Fallback {
		return pricing.Quote{}, activationdomain.ErrPricingNotConfirmed
	}
	for _, line := range quote.AddOns {
		if line.Fallback {
			return pricing.Quote{}, activationdomain.ErrPricingNotConfirmed
		}
	}
	return quote, nil
}

func (s *Service) replay(ctx context.Context, tx *gorm.DB, prior activationdomain.Purchase, carID string, selection vipdomain.Selection) (vipdomain.ActivationResult, error) {
	if prior.CarID != carID || !sameSelection(prior.Selection.Data(), selection) {
		return vipdomain.ActivationResult{}, activationdomain.ErrIdempotencyKeyReused
	}
	state, err := s.listings.ReadForUpdateTx(ctx, tx, carID)
	if err != nil {
		return vipdomain.ActivationResult{}, err
	}
	return vipdomain.ActivationResult{
		PurchaseID: prior.ID.String(),
		Charged:    prior.Total,
		NewBalance: prior.BalanceAfter,
		State:      state,
		Replayed:   true,
	}, nil
}

func (s *Service) replayCommitted(ctx context.Context, userID, key, carID string, selection vipdomain.Selection) (vipdomain.ActivationResult, error) {
	result, found, err := s.replayPrior(ctx, userID, key, carID, selection)
	if err != nil {
		return vipdomain.ActivationResult{}, err
	}
	if !found {
		return vipdomain.ActivationResult{}, classify(fmt.Errorf("idempotency key %q vanished after conflict", key))
	}
	return result, nil
}

// replayPrior looks up the purchase recorded under key. found is false when
// the key was never used.
func (s *Service) replayPrior(ctx context.Context, userID, key, carID string, selection vipdomain.Selection) (vipdomain.ActivationResult, bool, error) {
	var (
		result vipdomain.ActivationResult
		found  bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prior, err := s.repo.FindByIdempotencyKey(ctx, tx, userID, key)
		if err != nil || prior == nil {
			return err
		}
		found = true
		result, err = s.replay(ctx, tx, *prior, carID, selection)
		return err
	})
	if err != nil {
		return vipdomain.ActivationResult{}, found, classify(err)
	}
	return result, found, nil
}

func (s *Service) HasPurchased(ctx context.Context, user vipdomain.UserContext, carID string) (bool, error) {
	userID := strings.TrimSpace(user.UserID)
	if userID == "" {
		return false, vipdomain.ErrInvalidUser
	}
	carID = strings.TrimSpace(carID)
	if carID == "" {
		return false, vipdomain.ErrInvalidCarID
	}
	return s.repo.ExistsForCar(ctx, s.db, userID, carID)
}

func (s *Service) ListPurchases(ctx context.Context, user vipdomain.UserContext, carID string, page pagination.Pagination) (activationdomain.ListPurchasesResponse, error) {
	userID := strings.TrimSpace(user.UserID)
	if userID == "" {
		return activationdomain.ListPurchasesResponse{}, vipdomain.ErrInvalidUser
	}
	carID = strings.TrimSpace(carID)
	if carID == "" {
		return activationdomain.ListPurchasesResponse{}, vipdomain.ErrInvalidCarID
	}

	var after *activationdomain.PurchaseCursor
	if token := strings.TrimSpace(page.PageToken); token != "" {
		cursor, err := decodePurchaseCursor(token)
		if err != nil {
			return activationdomain.ListPurchasesResponse{}, activationdomain.ErrInvalidPageToken
		}
		after = cursor
	}

	limit := page.Limit()
	items, err := s.repo.ListByCar(ctx, s.db, userID, carID, after, limit+1)
	if err != nil {
		return activationdomain.ListPurchasesResponse{}, err
	}
	items, info, err := pagination.Page(items, limit, func(p activationdomain.Purchase) pagination.Cursor {
		return pagination.Cursor{ID: p.ID.String(), CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339Nano)}
	})
	if err != nil {
		return activationdomain.ListPurchasesResponse{}, err
	}
	return activationdomain.ListPurchasesResponse{
		Purchases:     items,
		NextPageToken: info.NextPageToken,
		HasMore:       info.HasMore,
	}, nil
}

func (s *Service) Sink(user vipdomain.UserContext) vipdomain.ActivationSink {
	return sink{svc: s, user: user}
}

type sink struct {
	svc  *Service
	user vipdomain.UserContext
}

func (k sink) Activate(ctx context.Context, req vipdomain.ActivationRequest) (vipdomain.ActivationResult, error) {
	return k.svc.Activate(ctx, k.user, req)
}

func (s *Service) record(ctx context.Context, selection vipdomain.Selection, result vipdomain.ActivationResult, err error) {
	outcome := "ok"
	switch {
	case err == nil && result.Replayed:
		outcome = "replayed"
	case errors.Is(err, vipdomain.ErrInsufficientBalance):
		outcome = "insufficient_balance"
	case errors.Is(err, activationdomain.ErrActivationInProgress):
		outcome = "in_progress"
	case errors.Is(err, activationdomain.ErrPriceChanged):
		outcome = "price_changed"
	case errors.Is(err, vipdomain.ErrInvalidSelection):
		outcome = "invalid_selection"
	case err != nil:
		outcome = "failed"
	}
	charged := 0.0
	if err == nil && !result.Replayed {
		charged = result.Charged.InexactFloat64()
	}
	s.metrics.RecordActivation(ctx, outcome, string(selection.Tier), charged)
}

// classify keeps caller-facing sentinels intact and folds everything else
// into ErrActivationFailed.
func classify(err error) error {
	switch {
	case errors.Is(err, vipdomain.ErrActivationFailed),
		errors.Is(err, vipdomain.ErrInvalidSelection),
		errors.Is(err, vipdomain.ErrInvalidUser),
		errors.Is(err, vipdomain.ErrInvalidCarID),
		errors.Is(err, activationdomain.ErrIdempotencyKeyReused):
		return err
	default:
		return fmt.Errorf("%w: %w", vipdomain.ErrActivationFailed, err)
	}
}

func normalizeSelection(sel vipdomain.Selection) vipdomain.Selection {
	if sel.Tier == "" {
		sel.Tier = vipdomain.TierNone
	}
	if !sel.HasTier() {
		sel.TierDays = 0
	} else {
		sel.TierDays = pricing.NormalizeDays(sel.TierDays)
	}
	addOns := make([]vipdomain.AddOn, len(sel.AddOns))
	for i, a := range sel.AddOns {
		addOns[i] = vipdomain.AddOn{ServiceType: a.ServiceType, Days: pricing.NormalizeDays(a.Days)}
	}
	sel.AddOns = addOns
	if _, ok := sel.AddOn(vipdomain.ServiceAutoRenewal); ok {
		sel.AutoRenewalDays = pricing.NormalizeDays(sel.AutoRenewalDays)
	} else {
		sel.AutoRenewalDays = 0
	}
	return sel
}

func sameSelection(a, b vipdomain.Selection) bool {
	a, b = normalizeSelection(a), normalizeSelection(b)
	if a.Tier != b.Tier || a.TierDays != b.TierDays || a.AutoRenewalDays != b.AutoRenewalDays || len(a.AddOns) != len(b.AddOns) {
		return false
	}
	for _, addOn := range a.AddOns {
		other, ok := b.AddOn(addOn.ServiceType)
		if !ok || other.Days != addOn.Days {
			return false
		}
	}
	return true
}

func optionalKey(key string) *string {
	if key == "" {
		return nil
	}
	return &key
}

func decodePurchaseCursor(token string) (*activationdomain.PurchaseCursor, error) {
	cursor, err := pagination.DecodeCursor(token)
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseInt(cursor.ID, 10, 64)
	if err != nil {
		return nil, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &activationdomain.PurchaseCursor{CreatedAt: createdAt, ID: id}, nil
}
