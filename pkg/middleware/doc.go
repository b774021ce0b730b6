// Package middleware provides net/http middleware for reactor servers.
//
// This package includes:
//   - OpenTelemetry request spans
//   - Prometheus request metrics
//   - Structured request logging
//
// All three read the matched chi route pattern, so they belong on a chi
// router:
//
//	r := chi.NewRouter()
//	r.Use(
//	    chimw.RequestID,
//	    middleware.Logger(logger),
//	    middleware.Prometheus(middleware.WithRegistry(reg)),
//	    middleware.OpenTelemetry(middleware.WithTracerName("shop")),
//	)
//
// # Prometheus Metrics
//
//   - reactor_http_requests_total: requests by route, method and status class
//   - reactor_http_request_duration_seconds: request duration histogram
//   - reactor_http_requests_in_flight: requests currently being served
//
// Expose them with promhttp:
//
//	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// # Context Propagation
//
// OpenTelemetry stores the request span in the request context. Handlers
// that pass r.Context() on, for example as the parent context of store
// cascade spans, nest their spans under the request.
package middleware
