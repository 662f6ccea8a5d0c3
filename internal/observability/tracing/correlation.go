package tracing

import (
	"context"

	"github.com/oklog/ulid/v2"
	obscontext "github.com/smallbiznis/autobazaar/internal/observability/context"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type correlationKey struct{}

// CorrelationID returns the correlation id carried by ctx, if any.
func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(correlationKey{}).(string)
	return v
}

// EnsureCorrelationID guarantees a correlation id on ctx. The request id is
// preferred; otherwise a ULID is minted so background jobs sort by start time.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	if cid := CorrelationID(ctx); cid != "" {
		return ctx, cid
	}
	cid := obscontext.RequestIDFromContext(ctx)
	if cid == "" {
		cid = ulid.Make().String()
	}
	return context.WithValue(ctx, correlationKey{}, cid), cid
}

type correlationSpanProcessor struct{}

func (p *correlationSpanProcessor) OnStart(ctx context.Context, s sdktrace.ReadWriteSpan) {
	_, cid := EnsureCorrelationID(ctx)
	s.SetAttributes(attribute.String("correlation_id", cid))
}

func (p *correlationSpanProcessor) OnEnd(sdktrace.ReadOnlySpan) {}

func (p *correlationSpanProcessor) Shutdown(context.Context) error { return nil }

func (p *correlationSpanProcessor) ForceFlush(context.Context) error { return nil }
