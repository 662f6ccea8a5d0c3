package authorization

import (
	"context"
	"errors"
)

const (
	ObjectPricing = "pricing"
	ObjectWallet  = "wallet"
	ObjectListing = "listing"
)

const (
	ActionPricingView    = "pricing.view"
	ActionPricingQuote   = "pricing.quote"
	ActionPricingManage  = "pricing.manage"
	ActionPricingRefresh = "pricing.refresh"

	ActionWalletView  = "wallet.view"
	ActionWalletTopUp = "wallet.top_up"

	ActionListingView     = "listing.view"
	ActionListingPurchase = "listing.purchase"
	ActionListingActivate = "listing.activate"
	ActionListingDisable  = "listing.disable"

	// ActionListingDisableAny disables listings the caller never bought for.
	ActionListingDisableAny = "listing.disable_any"
)

// Built-in roles. Any other caller role is granted what RoleUser has.
const (
	RoleUser   = "user"
	RoleDealer = "dealer"
	RoleAdmin  = "admin"
	RoleSystem = "system"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)

type Service interface {
	Authorize(ctx context.Context, role string, object string, action string) error
}
