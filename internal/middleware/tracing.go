package middleware

import (
	"footballsocial/internal/observability"
	"footballsocial/internal/shell"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// viewRoutes maps route patterns to the view they serve, pages and session
// sockets alike.
var viewRoutes = map[string]string{
	shell.RouteFeed:           "feed",
	shell.RouteCreate:         "create",
	shell.RouteDetail:         "detail",
	shell.RouteEdit:           "edit",
	"/ws/feed":                "feed",
	"/ws" + shell.RouteDetail: "detail",
}

// ViewForRoute returns the view served by a route pattern.
func ViewForRoute(route string) (string, bool) {
	name, ok := viewRoutes[route]
	return name, ok
}

// TracingMiddleware starts a server span per request. Once the chain has run
// the span is renamed after the matched route and tagged with its view.
func TracingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), propagation.HeaderCarrier(c.GetReqHeaders()))
		ctx, span := observability.Tracer.Start(ctx, c.Method()+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
		)
		defer span.End()

		traceID := span.SpanContext().TraceID().String()
		c.Locals("traceID", traceID)
		c.Set("X-Trace-ID", traceID)
		c.SetUserContext(ctx)

		err := c.Next()

		route := c.Route().Path
		span.SetName(c.Method() + " " + route)
		attrs := []attribute.KeyValue{
			attribute.String("http.method", c.Method()),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", c.Response().StatusCode()),
		}
		if name, ok := ViewForRoute(route); ok {
			attrs = append(attrs, attribute.String("view.name", name))
			if id := c.Params(shell.PostIDParam); id != "" {
				attrs = append(attrs, attribute.String("post.id", id))
			}
		}
		if rid, ok := c.Locals("requestid").(string); ok {
			attrs = append(attrs, attribute.String("request.id", rid))
		}
		span.SetAttributes(attrs...)

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}
}
