package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/autobazaar/internal/clock"
	"github.com/smallbiznis/autobazaar/internal/config"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
	walletdomain "github.com/smallbiznis/autobazaar/internal/wallet/domain"
	"github.com/smallbiznis/autobazaar/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Config config.Config
	Repo   walletdomain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	currency string
	repo     walletdomain.Repository
}

func New(p Params) walletdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("wallet.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		currency: p.Config.Currency,
		repo:     p.Repo,
	}
}

func (s *Service) Balance(ctx context.Context, userID string) (walletdomain.Wallet, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return walletdomain.Wallet{}, err
	}
	w, err := s.repo.Find(ctx, s.db, userID)
	if err != nil {
		return walletdomain.Wallet{}, err
	}
	if w == nil {
		return walletdomain.Wallet{UserID: userID, Balance: decimal.Zero, Currency: s.currency}, nil
	}
	return *w, nil
}

func (s *Service) Credit(ctx context.Context, userID string, amount decimal.Decimal, sourceType, sourceID string) (walletdomain.Wallet, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return walletdomain.Wallet{}, err
	}
	if err := validateMovement(amount, sourceType, sourceID); err != nil {
		return walletdomain.Wallet{}, err
	}

	var out walletdomain.Wallet
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := s.LockTx(ctx, tx, userID)
		if err != nil {
			return err
		}

		now := s.now()
		inserted, err := s.repo.InsertEntry(ctx, tx, &walletdomain.Entry{
			ID:         s.genID.Generate(),
			UserID:     userID,
			Direction:  walletdomain.DirectionCredit,
			Amount:     amount,
			SourceType: strings.TrimSpace(sourceType),
			SourceID:   strings.TrimSpace(sourceID),
			CreatedAt:  now,
		})
		if err != nil {
			return err
		}
		if !inserted {
			s.log.Info("duplicate credit ignored",
				zap.String("user_id", userID),
				zap.String("source_type", sourceType),
				zap.String("source_id", sourceID),
			)
			out = w
			return nil
		}

		w.Balance = w.Balance.Add(amount)
		w.UpdatedAt = now
		if err := s.repo.UpdateBalance(ctx, tx, userID, w.Balance, now); err != nil {
			return err
		}
		out = w
		return nil
	})
	if err != nil {
		return walletdomain.Wallet{}, err
	}
	return out, nil
}

func (s *Service) LockTx(ctx context.Context, tx *gorm.DB, userID string) (walletdomain.Wallet, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return walletdomain.Wallet{}, err
	}
	if err := s.repo.Ensure(ctx, tx, userID, s.currency, s.now()); err != nil {
		return walletdomain.Wallet{}, err
	}
	w, err := s.repo.FindForUpdate(ctx, tx, userID)
	if err != nil {
		return walletdomain.Wallet{}, err
	}
	if w == nil {
		return walletdomain.Wallet{}, gorm.ErrRecordNotFound
	}
	return *w, nil
}

func (s *Service) DebitTx(ctx context.Context, tx *gorm.DB, userID string, amount decimal.Decimal, sourceType, sourceID string) (walletdomain.Wallet, error) {
	if err := validateMovement(amount, sourceType, sourceID); err != nil {
		return walletdomain.Wallet{}, err
	}
	w, err := s.LockTx(ctx, tx, userID)
	if err != nil {
		return walletdomain.Wallet{}, err
	}
	if w.Balance.LessThan(amount) {
		return walletdomain.Wallet{}, walletdomain.ErrInsufficientFunds
	}

	now := s.now()
	inserted, err := s.repo.InsertEntry(ctx, tx, &walletdomain.Entry{
		ID:         s.genID.Generate(),
		UserID:     w.UserID,
		Direction:  walletdomain.DirectionDebit,
		Amount:     amount,
		SourceType: strings.TrimSpace(sourceType),
		SourceID:   strings.TrimSpace(sourceID),
		CreatedAt:  now,
	})
	if err != nil {
		return walletdomain.Wallet{}, err
	}
	if !inserted {
		return w, nil
	}

	w.Balance = w.Balance.Sub(amount)
	w.UpdatedAt = now
	if err := s.repo.UpdateBalance(ctx, tx, w.UserID, w.Balance, now); err != nil {
		return walletdomain.Wallet{}, err
	}
	return w, nil
}

func (s *Service) ListEntries(ctx context.Context, userID string, page pagination.Pagination) (walletdomain.ListEntriesResponse, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return walletdomain.ListEntriesResponse{}, err
	}

	var after *walletdomain.EntryCursor
	if token := strings.TrimSpace(page.PageToken); token != "" {
		after, err = decodeEntryCursor(token)
		if err != nil {
			return walletdomain.ListEntriesResponse{}, walletdomain.ErrInvalidPageToken
		}
	}

	limit := page.Limit()
	items, err := s.repo.ListEntries(ctx, s.db, userID, after, limit+1)
	if err != nil {
		return walletdomain.ListEntriesResponse{}, err
	}

	items, info, err := pagination.Page(items, limit, func(e walletdomain.Entry) pagination.Cursor {
		return pagination.Cursor{
			ID:        e.ID.String(),
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
	})
	if err != nil {
		return walletdomain.ListEntriesResponse{}, err
	}

	return walletdomain.ListEntriesResponse{
		Entries:       items,
		NextPageToken: info.NextPageToken,
		HasMore:       info.HasMore,
	}, nil
}

func (s *Service) Source(userID string) vipdomain.BalanceSource {
	return balanceSource{svc: s, userID: userID}
}

type balanceSource struct {
	svc    *Service
	userID string
}

func (b balanceSource) Current(ctx context.Context) (decimal.Decimal, error) {
	w, err := b.svc.Balance(ctx, b.userID)
	if err != nil {
		return decimal.Zero, err
	}
	return w.Balance, nil
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

func normalizeUserID(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", vipdomain.ErrInvalidUser
	}
	return userID, nil
}

func validateMovement(amount decimal.Decimal, sourceType, sourceID string) error {
	if !amount.IsPositive() {
		return walletdomain.ErrInvalidAmount
	}
	if strings.TrimSpace(sourceType) == "" {
		return walletdomain.ErrInvalidSourceType
	}
	if strings.TrimSpace(sourceID) == "" {
		return walletdomain.ErrInvalidSourceID
	}
	return nil
}

func decodeEntryCursor(token string) (*walletdomain.EntryCursor, error) {
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
	return &walletdomain.EntryCursor{CreatedAt: createdAt, ID: id}, nil
}
