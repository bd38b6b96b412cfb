// Package server provides HTTP routing, middleware and handlers for the import service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order so the first one added runs first.
// Routes may carry their own middleware (see [BasicRouter.Handle]), which runs inside the
// router-wide stack.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Endpoints
//
// [NewRouter] wires the service: health and version probes, a bearer token check, the import
// endpoint and Prometheus metrics. The import endpoint is protected by [BearerAuth] and
// [RateLimit] and responds with the [models.ImportResult] of the run.
//
// # Lifecycle
//
// [Serve] runs an [http.Server] until its context is canceled and then shuts it down gracefully.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
