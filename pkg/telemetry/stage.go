package telemetry

import (
	"context"

	"github.com/sweetpotato0/govassist/graph"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName names the pipeline tracer.
const InstrumentationName = "github.com/sweetpotato0/govassist"

// StageKey is the span attribute holding the pipeline node name.
const StageKey = attribute.Key("govassist.stage")

// Tracer returns the pipeline tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// End sets the span status from err and ends it.
func End(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// StageMiddleware opens one span per graph node, named "pipeline.<node>".
func StageMiddleware[S any](tracer trace.Tracer) graph.Middleware[S] {
	if tracer == nil {
		tracer = Tracer()
	}
	return func(name string, next graph.NodeFunc[S]) graph.NodeFunc[S] {
		return func(ctx context.Context, state S) (S, error) {
			ctx, span := tracer.Start(ctx, "pipeline."+name, trace.WithAttributes(StageKey.String(name)))
			out, err := next(ctx, state)
			End(span, err)
			return out, err
		}
	}
}
