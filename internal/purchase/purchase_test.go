package purchase

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func catalog() vipdomain.PriceTable {
	return vipdomain.PriceTable{
		vipdomain.ServiceVip:               {ServiceType: vipdomain.ServiceVip, Price: dec("2.00"), IsDailyPrice: true},
		vipdomain.ServiceVipPlus:           {ServiceType: vipdomain.ServiceVipPlus, Price: dec("30.00"), DurationDays: 7},
		vipdomain.ServiceColorHighlighting: {ServiceType: vipdomain.ServiceColorHighlighting, Price: dec("0.50"), IsDailyPrice: true},
	}
}

type fakeBalance struct {
	amount decimal.Decimal
	err    error
}

func (b *fakeBalance) Current(context.Context) (decimal.Decimal, error) {
	return b.amount, b.err
}

// fakeSink debits the shared balance the way the server does.
type fakeSink struct {
	balance *fakeBalance
	err     error
	calls   []vipdomain.ActivationRequest
}

func (s *fakeSink) Activate(_ context.Context, req vipdomain.ActivationRequest) (vipdomain.ActivationResult, error) {
	s.calls = append(s.calls, req)
	if s.err != nil {
		return vipdomain.ActivationResult{}, s.err
	}
	charged := *req.ExpectedTotal
	s.balance.amount = s.balance.amount.Sub(charged)
	return vipdomain.ActivationResult{PurchaseID: "p-1", Charged: charged, NewBalance: s.balance.amount}, nil
}

func newTestService() *Service {
	return New(Params{Log: zap.NewNop()})
}

func vipWithColor() vipdomain.Selection {
	return vipdomain.Selection{
		Tier:     vipdomain.TierVip,
		TierDays: 5,
		AddOns:   []vipdomain.AddOn{{ServiceType: vipdomain.ServiceColorHighlighting, Days: 3}},
	}
}

func TestPurchase_AffordableSelectionSucceeds(t *testing.T) {
	balance := &fakeBalance{amount: dec("12.00")}
	sink := &fakeSink{balance: balance}

	res, err := newTestService().Purchase(context.Background(), Request{CarID: "car-1", Selection: vipWithColor(), IdempotencyKey: "k-1"}, catalog(), balance, sink)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Empty(t, res.Reason)
	assert.True(t, res.Total.Equal(dec("11.50")), res.Total.String())
	assert.True(t, res.NewBalance.Equal(dec("0.50")), res.NewBalance.String())

	require.Len(t, sink.calls, 1)
	assert.Equal(t, "car-1", sink.calls[0].CarID)
	assert.Equal(t, "k-1", sink.calls[0].IdempotencyKey)
	assert.True(t, sink.calls[0].ExpectedTotal.Equal(dec("11.50")))
}

func TestPurchase_ShortfallNeverReachesSink(t *testing.T) {
	balance := &fakeBalance{amount: dec("10.00")}
	sink := &fakeSink{balance: balance}

	res, err := newTestService().Purchase(context.Background(), Request{CarID: "car-1", Selection: vipWithColor()}, catalog(), balance, sink)
	require.Error(t, err)
	assert.ErrorIs(t, err, vipdomain.ErrInsufficientBalance)

	assert.False(t, res.Success)
	assert.Equal(t, vipdomain.ReasonInsufficientBalance, res.Reason)
	require.NotNil(t, res.RequiredAmount)
	require.NotNil(t, res.CurrentBalance)
	assert.True(t, res.RequiredAmount.Equal(dec("11.50")))
	assert.True(t, res.CurrentBalance.Equal(dec("10.00")))
	assert.Empty(t, sink.calls)
}

func TestPurchase_EpsilonToleranceOnPreCheck(t *testing.T) {
	tests := []struct {
		balance string
		ok      bool
	}{
		{balance: "9.995", ok: true},
		{balance: "10.00", ok: true},
		{balance: "9.98", ok: false},
	}
	sel := vipdomain.Selection{Tier: vipdomain.TierVip, TierDays: 5}

	for _, tt := range tests {
		t.Run(tt.balance, func(t *testing.T) {
			balance := &fakeBalance{amount: dec(tt.balance)}
			sink := &fakeSink{balance: balance}
			res, err := newTestService().Purchase(context.Background(), Request{CarID: "car-1", Selection: sel}, catalog(), balance, sink)
			assert.Equal(t, tt.ok, err == nil)
			assert.Equal(t, tt.ok, res.Success)
			assert.Equal(t, tt.ok, len(sink.calls) == 1)
		})
	}
}

func TestPurchase_PackagePricingIsNotProrated(t *testing.T) {
	balance := &fakeBalance{amount: dec("100.00")}
	sink := &fakeSink{balance: balance}

	res, err := newTestService().Purchase(context.Background(), Request{
		CarID:     "car-1",
		Selection: vipdomain.Selection{Tier: vipdomain.TierVipPlus, TierDays: 8},
	}, catalog(), balance, sink)
	require.NoError(t, err)
	assert.True(t, res.Total.Equal(dec("60.00")), res.Total.String())
	assert.True(t, res.NewBalance.Equal(dec("40.00")))
}

func TestPurchase_RejectsBeforeAnyCall(t *testing.T) {
	tests := []struct {
		name      string
		selection vipdomain.Selection
		lookup    vipdomain.PriceLookup
		reason    string
		err       error
	}{
		{
			name:      "nothing selected",
			selection: vipdomain.Selection{Tier: vipdomain.TierNone},
			lookup:    catalog(),
			reason:    vipdomain.ReasonNothingSelected,
			err:       vipdomain.ErrNothingSelected,
		},
		{
			name:      "unpriced tier",
			selection: vipdomain.Selection{Tier: vipdomain.TierSuperVip, TierDays: 1},
			lookup:    catalog(),
			reason:    vipdomain.ReasonInvalidSelection,
			err:       vipdomain.ErrUnknownServiceType,
		},
		{
			name: "tier used as add-on",
			selection: vipdomain.Selection{AddOns: []vipdomain.AddOn{
				{ServiceType: vipdomain.ServiceVip, Days: 1},
			}},
			lookup: catalog(),
			reason: vipdomain.ReasonInvalidSelection,
			err:    vipdomain.ErrNotAnAddOn,
		},
		{
			name:      "no catalog",
			selection: vipWithColor(),
			lookup:    nil,
			reason:    vipdomain.ReasonCatalogUnavailable,
			err:       vipdomain.ErrCatalogUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			balance := &fakeBalance{err: errors.New("must not be called")}
			sink := &fakeSink{balance: balance}

			res, err := newTestService().Purchase(context.Background(), Request{CarID: "car-1", Selection: tt.selection}, tt.lookup, balance, sink)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.reason, res.Reason)
			assert.False(t, res.Success)
			assert.Empty(t, sink.calls)
		})
	}
}

func TestPurchase_ZeroDaysBillAsOne(t *testing.T) {
	balance := &fakeBalance{amount: dec("5.00")}
	sink := &fakeSink{balance: balance}

	res, err := newTestService().Purchase(context.Background(), Request{
		CarID:     "car-1",
		Selection: vipdomain.Selection{Tier: vipdomain.TierVip, TierDays: 0},
	}, catalog(), balance, sink)
	require.NoError(t, err)
	assert.True(t, res.Total.Equal(dec("2.00")))
}

func TestPurchase_BalanceUnavailable(t *testing.T) {
	balance := &fakeBalance{err: errors.New("wallet timeout")}
	sink := &fakeSink{balance: balance}

	res, err := newTestService().Purchase(context.Background(), Request{CarID: "car-1", Selection: vipWithColor()}, catalog(), balance, sink)
	assert.ErrorIs(t, err, vipdomain.ErrBalanceUnavailable)
	assert.Equal(t, vipdomain.ReasonBalanceUnavailable, res.Reason)
	assert.Empty(t, sink.calls)
}

func TestPurchase_SinkFailureIsActivationFailed(t *testing.T) {
	balance := &fakeBalance{amount: dec("12.00")}

	t.Run("transport error", func(t *testing.T) {
		sink := &fakeSink{balance: balance, err: errors.New("connection reset")}
		res, err := newTestService().Purchase(context.Background(), Request{CarID: "car-1", Selection: vipWithColor()}, catalog(), balance, sink)
		assert.ErrorIs(t, err, vipdomain.ErrActivationFailed)
		assert.Equal(t, vipdomain.ReasonActivationFailed, res.Reason)
		assert.Nil(t, res.RequiredAmount)
		assert.True(t, balance.amount.Equal(dec("12.00")))
	})

	t.Run("balance moved before debit", func(t *testing.T) {
		sink := &fakeSink{balance: balance, err: &vipdomain.ShortfallError{Required: dec("11.50"), Current: dec("3.00")}}
		res, err := newTestService().Purchase(context.Background(), Request{CarID: "car-1", Selection: vipWithColor()}, catalog(), balance, sink)
		assert.ErrorIs(t, err, vipdomain.ErrActivationFailed)
		assert.ErrorIs(t, err, vipdomain.ErrInsufficientBalance)
		assert.Equal(t, vipdomain.ReasonActivationFailed, res.Reason)
		require.NotNil(t, res.CurrentBalance)
		assert.True(t, res.CurrentBalance.Equal(dec("3.00")))
	})
}

func TestPurchase_RecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	svc := newTestService()
	svc.tracer = provider.Tracer(tracerName)

	balance := &fakeBalance{amount: dec("1.00")}
	_, err := svc.Purchase(context.Background(), Request{CarID: "car-1", Selection: vipWithColor()}, catalog(), balance, &fakeSink{balance: balance})
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "vip.purchase", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, vipdomain.ReasonInsufficientBalance, spans[0].Status().Description)
}
