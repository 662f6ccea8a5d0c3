// Package storefront talks to the autobazaar HTTP API on behalf of one user.
// Client satisfies the collaborator interfaces the purchase flow is written
// against, so the same flow runs in a storefront process and in the service.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/autobazaar/internal/observability/tracing"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
	"go.uber.org/zap"
)

const (
	headerUserID         = "X-User-Id"
	headerUserRole       = "X-User-Role"
	headerIdempotencyKey = "Idempotency-Key"

	defaultTimeout = 15 * time.Second
)

var ErrInvalidBaseURL = errors.New("invalid_base_url")

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// Client is bound to one caller. Every request carries the caller's identity
// headers; the gateway in front of the API is trusted to have set them.
type Client struct {
	baseURL *url.URL
	user    vipdomain.UserContext
	http    *http.Client
	log     *zap.Logger
}

func New(baseURL string, user vipdomain.UserContext, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, ErrInvalidBaseURL
	}
	if strings.TrimSpace(user.UserID) == "" {
		return nil, vipdomain.ErrInvalidUser
	}

	c := &Client{
		baseURL: u,
		user:    user,
		http:    &http.Client{Timeout: defaultTimeout},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = tracing.WrapHTTPClient(c.http)
	c.log = c.log.Named("storefront.client")
	return c, nil
}

func (c *Client) User() vipdomain.UserContext {
	return c.user
}

type pricingPayload struct {
	Role     string                   `json:"role"`
	Loaded   bool                     `json:"loaded"`
	Origin   string                   `json:"origin"`
	Currency string                   `json:"currency"`
	Entries  []vipdomain.PricingEntry `json:"entries"`
}

// Fetch returns the live catalog for user. Entries the server itself priced
// from fallbacks are dropped so the local catalog marks them as its own.
func (c *Client) Fetch(ctx context.Context, user vipdomain.UserContext) ([]vipdomain.PricingEntry, error) {
	var payload pricingPayload
	if err := c.do(ctx, user, http.MethodGet, "/api/vip/pricing", nil, "", &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", vipdomain.ErrCatalogUnavailable, err)
	}
	if !payload.Loaded {
		return nil, fmt.Errorf("%w: server catalog origin %s", vipdomain.ErrCatalogUnavailable, payload.Origin)
	}

	entries := make([]vipdomain.PricingEntry, 0, len(payload.Entries))
	for _, e := range payload.Entries {
		if e.Fallback {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

type walletPayload struct {
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
}

// Current reports the bound user's wallet balance.
func (c *Client) Current(ctx context.Context) (decimal.Decimal, error) {
	var payload walletPayload
	if err := c.do(ctx, c.user, http.MethodGet, "/api/wallet/balance", nil, "", &payload); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", vipdomain.ErrBalanceUnavailable, err)
	}
	return payload.Balance, nil
}

type addOnBody struct {
	ServiceType vipdomain.ServiceType `json:"service_type"`
	Days        int                   `json:"days"`
}

type activateBody struct {
	Tier            vipdomain.Tier   `json:"tier"`
	TierDays        int              `json:"tier_days,omitempty"`
	AddOns          []addOnBody      `json:"add_ons,omitempty"`
	AutoRenewalDays int              `json:"auto_renewal_days,omitempty"`
	ExpectedTotal   *decimal.Decimal `json:"expected_total,omitempty"`
}

// Activate submits the purchase to the API, which performs the authoritative
// balance check and debit.
func (c *Client) Activate(ctx context.Context, req vipdomain.ActivationRequest) (vipdomain.ActivationResult, error) {
	if strings.TrimSpace(req.CarID) == "" {
		return vipdomain.ActivationResult{}, vipdomain.ErrInvalidCarID
	}

	body := activateBody{
		Tier:            req.Selection.Tier,
		TierDays:        req.Selection.TierDays,
		AutoRenewalDays: req.Selection.AutoRenewalDays,
		ExpectedTotal:   req.ExpectedTotal,
	}
	for _, a := range req.Selection.AddOns {
		body.AddOns = append(body.AddOns, addOnBody{ServiceType: a.ServiceType, Days: a.Days})
	}

	var result vipdomain.ActivationResult
	err := c.do(ctx, c.user, http.MethodPost, carPath(req.CarID, "activate"), body, req.IdempotencyKey, &result)
	if err != nil {
		return vipdomain.ActivationResult{}, activationError(err)
	}
	return result, nil
}

func (c *Client) ReadVipState(ctx context.Context, carID string) (vipdomain.State, error) {
	if strings.TrimSpace(carID) == "" {
		return vipdomain.State{}, vipdomain.ErrInvalidCarID
	}
	var state vipdomain.State
	if err := c.do(ctx, c.user, http.MethodGet, carPath(carID, "state"), nil, "", &state); err != nil {
		return vipdomain.State{}, err
	}
	return state, nil
}

type disableBody struct {
	Features []vipdomain.Feature `json:"features,omitempty"`
}

func (c *Client) Disable(ctx context.Context, carID string, features ...vipdomain.Feature) (vipdomain.State, error) {
	if strings.TrimSpace(carID) == "" {
		return vipdomain.State{}, vipdomain.ErrInvalidCarID
	}
	var state vipdomain.State
	if err := c.do(ctx, c.user, http.MethodPost, carPath(carID, "disable"), disableBody{Features: features}, "", &state); err != nil {
		return vipdomain.State{}, err
	}
	return state, nil
}

func carPath(carID, action string) string {
	return "/api/cars/" + url.PathEscape(strings.TrimSpace(carID)) + "/vip/" + action
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *errorBody      `json:"error"`
}

func (c *Client) do(ctx context.Context, user vipdomain.UserContext, method, path string, in any, idempotencyKey string, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(headerUserID, user.UserID)
	if role := strings.TrimSpace(user.Role); role != "" {
		req.Header.Set(headerUserRole, role)
	}
	if key := strings.TrimSpace(idempotencyKey); key != "" {
		req.Header.Set(headerIdempotencyKey, key)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("storefront request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return err
	}
	defer resp.Body.Close()

	c.log.Debug("storefront request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)),
	)

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		if resp.StatusCode >= http.StatusBadRequest {
			return &APIError{Status: resp.StatusCode, Type: "unexpected_response"}
		}
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode, Type: http.StatusText(resp.StatusCode)}
		if env.Error != nil {
			apiErr.Type = env.Error.Type
			apiErr.Message = env.Error.Message
			apiErr.Errors = env.Error.Errors
			apiErr.RequiredAmount = env.Error.RequiredAmount
			apiErr.CurrentBalance = env.Error.CurrentBalance
		}
		return apiErr
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}
