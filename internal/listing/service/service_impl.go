package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/autobazaar/internal/clock"
	listingdomain "github.com/smallbiznis/autobazaar/internal/listing/domain"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  listingdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  listingdomain.Repository
}

func New(p Params) listingdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("listing.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// ReadVipState returns the stored state, or an empty one for listings that
// never bought anything.
func (s *Service) ReadVipState(ctx context.Context, carID string) (vipdomain.State, error) {
	carID, err := normalizeCarID(carID)
	if err != nil {
		return vipdomain.State{}, err
	}
	state, err := s.repo.Find(ctx, s.db, carID)
	if err != nil {
		return vipdomain.State{}, err
	}
	if state == nil {
		return emptyState(carID), nil
	}
	return *state, nil
}

func (s *Service) ReadForUpdateTx(ctx context.Context, tx *gorm.DB, carID string) (vipdomain.State, error) {
	carID, err := normalizeCarID(carID)
	if err != nil {
		return vipdomain.State{}, err
	}
	state, err := s.repo.FindForUpdate(ctx, tx, carID)
	if err != nil {
		return vipdomain.State{}, err
	}
	if state == nil {
		return emptyState(carID), nil
	}
	return *state, nil
}

func (s *Service) SaveTx(ctx context.Context, tx *gorm.DB, state vipdomain.State) (vipdomain.State, error) {
	carID, err := normalizeCarID(state.CarID)
	if err != nil {
		return vipdomain.State{}, err
	}
	state.CarID = carID
	if state.VipStatus == "" {
		state.VipStatus = vipdomain.TierNone
	}
	state.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.Upsert(ctx, tx, &state); err != nil {
		return vipdomain.State{}, err
	}
	return state, nil
}

// Disable clears the named features, or every feature when none are named.
func (s *Service) Disable(ctx context.Context, carID string, features ...vipdomain.Feature) (vipdomain.State, error) {
	if len(features) == 0 {
		features = []vipdomain.Feature{
			vipdomain.FeatureVip,
			vipdomain.FeatureColorHighlighting,
			vipdomain.FeatureAutoRenewal,
		}
	}

	var out vipdomain.State
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state, err := s.ReadForUpdateTx(ctx, tx, carID)
		if err != nil {
			return err
		}
		for _, f := range features {
			switch f {
			case vipdomain.FeatureVip:
				state.VipStatus = vipdomain.TierNone
				state.VipExpiresAt = nil
			case vipdomain.FeatureColorHighlighting:
				state.ColorHighlightingEnabled = false
				state.ColorHighlightingExpiresAt = nil
			case vipdomain.FeatureAutoRenewal:
				state.AutoRenewalEnabled = false
				state.AutoRenewalExpiresAt = nil
				state.AutoRenewalDays = 0
			default:
				return vipdomain.ErrInvalidFeature
			}
		}
		out, err = s.SaveTx(ctx, tx, state)
		return err
	})
	if err != nil {
		return vipdomain.State{}, err
	}

	s.log.Info("vip features disabled", zap.String("car_id", out.CarID), zap.Any("features", features))
	return out, nil
}

func emptyState(carID string) vipdomain.State {
	return vipdomain.State{CarID: carID, VipStatus: vipdomain.TierNone}
}

func normalizeCarID(carID string) (string, error) {
	carID = strings.TrimSpace(carID)
	if carID == "" {
		return "", vipdomain.ErrInvalidCarID
	}
	return carID, nil
}
