// package server contains the router, middleware and handlers for the listening history HTTP service
package server

import (
	"context"
	"net/http"

	"github.com/desertthunder/listenlog/internal/models"
	"github.com/desertthunder/listenlog/internal/tasks"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, authentication, rate limiting, etc.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers that own their route patterns.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                                             // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler, middleware ...Middleware) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                                                  // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request)                         // ServeHTTP implements http.Handler for the entire router
}

// Importer runs one import. [tasks.ImportEngine] implements it.
type Importer interface {
	Import(ctx context.Context, progress chan<- tasks.ProgressUpdate, evts []models.PlayEvent, userID string) (*models.ImportResult, error)
}
