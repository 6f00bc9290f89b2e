package server

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/deno-adapter/pkg/app"
)

const tracerName = "github.com/vango-dev/deno-adapter/pkg/server"

// tracer resolves the tracer once per server. A missing provider is cached
// and never looked up again.
func (s *Server) tracer() trace.Tracer {
	s.tracerOnce.Do(func() {
		tp := s.opts.TracerProvider
		if tp == nil {
			tp = otel.GetTracerProvider()
		}
		if tp != nil {
			s.tracerVal = tp.Tracer(tracerName)
		}
	})
	return s.tracerVal
}

func routeAttributes(method string, rd *app.RouteData) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("http.request.method", method),
		attribute.String("http.route", rd.Route),
		attribute.Bool("deno_adapter.prerender", rd.Prerender),
		attribute.String("deno_adapter.route_type", rd.Type),
	}
}

// routeSpan enriches the active span with the matched route, or starts one
// when nothing upstream is recording. The returned func ends a started span.
func (s *Server) routeSpan(ctx context.Context, method string, rd *app.RouteData) (context.Context, trace.Span, func()) {
	attrs := routeAttributes(method, rd)

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attrs...)
		return ctx, span, func() {}
	}

	t := s.tracer()
	if t == nil {
		span := trace.SpanFromContext(ctx)
		return ctx, span, func() {}
	}
	ctx, span := t.Start(ctx, method+" "+rd.Route,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...),
	)
	return ctx, span, func() { span.End() }
}

func recordSpanError(span trace.Span, err error) {
	if span == nil || !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
