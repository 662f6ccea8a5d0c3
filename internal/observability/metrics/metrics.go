package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes the VIP engine instruments.
type Metrics struct {
	purchases       metric.Int64Counter
	activations     metric.Int64Counter
	charged         metric.Float64Counter
	catalogRefresh  metric.Int64Counter
	rateLimitDenied metric.Int64Counter
}

// NewProvider configures and registers the meter provider. A disabled config installs a noop provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)
	return provider, nil
}

// New registers the domain instruments on provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "autobazaar"
	}
	meter := provider.Meter(name)

	purchases, err := meter.Int64Counter("autobazaar_vip_purchases_total",
		metric.WithDescription("VIP purchase attempts by outcome reason."))
	if err != nil {
		return nil, err
	}
	activations, err := meter.Int64Counter("autobazaar_vip_activations_total",
		metric.WithDescription("Server-side activations by outcome."))
	if err != nil {
		return nil, err
	}
	charged, err := meter.Float64Counter("autobazaar_vip_charged_amount_total",
		metric.WithDescription("Amount debited for VIP services."))
	if err != nil {
		return nil, err
	}
	catalogRefresh, err := meter.Int64Counter("autobazaar_catalog_refresh_total",
		metric.WithDescription("Pricing catalog fetches by resulting snapshot origin."))
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("autobazaar_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		purchases:       purchases,
		activations:     activations,
		charged:         charged,
		catalogRefresh:  catalogRefresh,
		rateLimitDenied: rateLimitDenied,
	}, nil
}

// RecordPurchase counts one purchase attempt. An empty reason means success.
func (m *Metrics) RecordPurchase(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.purchases.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("reason", labelOr(reason, "ok")),
	)...))
}

// RecordActivation counts one server-side activation and, on success, the amount charged.
func (m *Metrics) RecordActivation(ctx context.Context, outcome, tier string, charged float64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("outcome", labelOr(outcome, "unknown")),
		attribute.String("tier", labelOr(tier, "none")),
	)
	m.activations.Add(ctx, 1, metric.WithAttributes(attrs...))
	if charged > 0 {
		m.charged.Add(ctx, charged, metric.WithAttributes(attrs...))
	}
}

func (m *Metrics) RecordCatalogRefresh(ctx context.Context, role, origin string) {
	if m == nil {
		return
	}
	m.catalogRefresh.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("role", labelOr(role, "generic")),
		attribute.String("origin", labelOr(origin, "unknown")),
	)...))
}

func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

// User and listing identifiers never become labels.
var allowedLabelKeys = map[attribute.Key]struct{}{
	"reason":      {},
	"outcome":     {},
	"tier":        {},
	"role":        {},
	"origin":      {},
	"endpoint":    {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}

func labelOr(value, def string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return def
}
