package transport

import (
	"context"
	"net/http"
	"time"

	"warehouse-api/internal/logger"
	"warehouse-api/internal/metrics"
	"warehouse-api/internal/middleware"
	"warehouse-api/internal/order"
	"warehouse-api/internal/product"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

const (
	readTimeout  = 3 * time.Second
	writeTimeout = 5 * time.Second
)

type Options struct {
	// JWTSecret enables bearer auth on mutating routes when set.
	JWTSecret  []byte
	// Limiter is optional.
	Limiter    *middleware.RateLimiter
	Metrics    *metrics.Registry
	// TrustProxy takes the client address from X-Forwarded-For/X-Real-IP.
	// Only set it behind a proxy that overwrites those headers.
	TrustProxy bool
}

// NewRouter builds the API handler. Incoming W3C trace context is extracted
// into a server span before any other middleware runs.
func NewRouter(products product.Service, orders order.Service, opts Options) http.Handler {
	r := chi.NewRouter()

	if opts.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(routeSpanName)
	r.Use(logger.RequestIDMiddleware)
	r.Use(logger.LoggingMiddleware)
	r.Use(chimw.Recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "Resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("OK"))
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	ph := NewProductHandler(products)
	oh := NewOrderHandler(orders)

	r.Group(func(r chi.Router) {
		if opts.Limiter != nil {
			r.Use(opts.Limiter.Middleware)
		}
		r.Use(middleware.RequireAuth(opts.JWTSecret))

		r.Route("/products", func(r chi.Router) {
			r.With(withTimeout(writeTimeout)).Post("/", ph.Create)
			r.With(withTimeout(readTimeout)).Get("/", ph.List)
			r.With(withTimeout(readTimeout)).Get("/{id}", ph.Get)
			r.With(withTimeout(writeTimeout)).Put("/{id}", ph.Update)
			r.With(withTimeout(writeTimeout)).Delete("/{id}", ph.Delete)
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(withTimeout(writeTimeout)).Post("/", oh.Create)
			r.With(withTimeout(readTimeout)).Get("/", oh.List)
			r.With(withTimeout(readTimeout)).Get("/{id}", oh.Get)
			r.With(withTimeout(writeTimeout)).Patch("/{id}/status", oh.UpdateStatus)
		})
	})

	return otelhttp.NewHandler(r, "http.server",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/metrics"
		}),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method
		}),
	)
}

// routeSpanName renames the server span to the matched chi pattern once
// routing is done.
func routeSpanName(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)

		rctx := chi.RouteContext(r.Context())
		if rctx == nil {
			return
		}
		if pattern := rctx.RoutePattern(); pattern != "" {
			trace.SpanFromContext(r.Context()).SetName(r.Method + " " + pattern)
		}
	})
}

// withTimeout bounds the request context. Handlers see context.DeadlineExceeded
// from storage calls once it passes.
func withTimeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
