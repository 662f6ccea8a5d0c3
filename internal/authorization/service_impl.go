package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/autobazaar/internal/observability/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer loads policies from the casbin_rule table and seeds the
// built-in role grants.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	return seeded(enforcer)
}

// NewMemoryEnforcer holds the built-in policies only.
func NewMemoryEnforcer() (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoBuildRoleLinks(true)
	return seeded(enforcer)
}

func seeded(enforcer *casbin.SyncedEnforcer) (*casbin.SyncedEnforcer, error) {
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, role string, object string, action string) error {
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject := subjectFor(role)
	if err := s.ensureGrouping(subject); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		logger.WithContext(ctx, s.log).Info("authorization denied",
			zap.String("subject", subject),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

// ensureGrouping maps a caller role the policy does not know onto role:user.
func (s *ServiceImpl) ensureGrouping(subject string) error {
	if isBuiltin(subject) {
		return nil
	}
	has, err := s.enforcer.HasGroupingPolicy(subject, roleSubject(RoleUser))
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleSubject(RoleUser))
	return err
}

func subjectFor(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		role = RoleUser
	}
	return roleSubject(role)
}

func roleSubject(role string) string {
	return fmt.Sprintf("role:%s", role)
}

func isBuiltin(subject string) bool {
	switch subject {
	case roleSubject(RoleUser), roleSubject(RoleDealer), roleSubject(RoleAdmin), roleSubject(RoleSystem):
		return true
	default:
		return false
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	user := roleSubject(RoleUser)
	dealer := roleSubject(RoleDealer)
	admin := roleSubject(RoleAdmin)
	system := roleSubject(RoleSystem)

	policies := [][]string{
		// Buyers and sellers browsing and promoting their own listings
		{user, ObjectPricing, ActionPricingView},
		{user, ObjectPricing, ActionPricingQuote},
		{user, ObjectWallet, ActionWalletView},
		{user, ObjectListing, ActionListingView},
		{user, ObjectListing, ActionListingPurchase},
		{user, ObjectListing, ActionListingActivate},
		{user, ObjectListing, ActionListingDisable},

		// Operators
		{admin, ObjectPricing, ActionPricingManage},
		{admin, ObjectPricing, ActionPricingRefresh},
		{admin, ObjectWallet, ActionWalletTopUp},
		{admin, ObjectListing, ActionListingDisableAny},

		// Payment callbacks and scheduled jobs
		{system, ObjectPricing, ActionPricingView},
		{system, ObjectPricing, ActionPricingRefresh},
		{system, ObjectWallet, ActionWalletTopUp},
		{system, ObjectListing, ActionListingView},
		{system, ObjectListing, ActionListingDisable},
		{system, ObjectListing, ActionListingDisableAny},
	}
	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}

	// Dealers price differently but act like users; admins can do what dealers can.
	groupings := [][]string{
		{dealer, user},
		{admin, dealer},
	}
	for _, g := range groupings {
		if _, err := enforcer.AddGroupingPolicy(g); err != nil {
			return err
		}
	}
	return nil
}
