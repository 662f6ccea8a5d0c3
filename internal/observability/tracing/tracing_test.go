package tracing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/autobazaar/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func TestSafeAttributesDropsSensitiveKeys(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/wallet/balance"),
		attribute.String("wallet.balance", "12.00"),
		attribute.String("user_id", "u-1"),
		attribute.String("vip.tier", "vip"),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
	assert.Equal(t, attribute.Key("vip.tier"), attrs[1].Key)
}

func TestSafeError(t *testing.T) {
	assert.Nil(t, SafeError(nil))
	err := fmt.Errorf("activation_failed: %w", errors.New(`pq: relation "wallets" missing`))
	assert.EqualError(t, SafeError(err), "activation_failed")
}

func TestEnsureCorrelationID(t *testing.T) {
	ctx := obscontext.WithRequestID(context.Background(), "req-7")
	ctx, cid := EnsureCorrelationID(ctx)
	assert.Equal(t, "req-7", cid)
	_, again := EnsureCorrelationID(ctx)
	assert.Equal(t, "req-7", again)

	_, minted := EnsureCorrelationID(context.Background())
	assert.Len(t, minted, 26)
}

func TestNewProvider_DisabledNeverSamples(t *testing.T) {
	tp, err := NewProvider(nil, Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	_, span := tp.Tracer("test").Start(context.Background(), "x")
	assert.False(t, span.SpanContext().IsSampled())
	span.End()
}

func TestGinMiddleware_RecordsRouteSpan(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	r := gin.New()
	r.Use(GinMiddleware())
	r.POST("/api/cars/:carID/vip/purchase", func(c *gin.Context) {
		_ = c.Error(errors.New("activation_failed: boom"))
		c.Status(http.StatusBadGateway)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/cars/c1/vip/purchase", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "HTTP POST /api/cars/:carID/vip/purchase", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("autobazaar.car_id", "c1"))
	require.Len(t, spans[0].Events(), 1)
}

func TestGinMiddleware_SkipsProbes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Empty(t, recorder.Ended())
}
