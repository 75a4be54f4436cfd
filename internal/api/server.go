package api

import (
	"net/http"
	"time"

	"github.com/futig/rag-backend/internal/api/docs"
	"github.com/futig/rag-backend/internal/api/middleware"
	ragapi "github.com/futig/rag-backend/internal/api/rag"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RouterConfig holds router level settings
type RouterConfig struct {
	HandlerTimeout     time.Duration
	CORSAllowedOrigins []string
}

// SetupRouter creates and configures the HTTP router
func SetupRouter(cfg RouterConfig, ragHandler *ragapi.Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.Recoverer)                   // Recover from panics
	r.Use(chimiddleware.RequestID)                   // Add request ID
	r.Use(middleware.Logger(logger))                 // Log requests
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))   // Handle CORS
	r.Use(chimiddleware.Timeout(cfg.HandlerTimeout)) // Uploads may take minutes

	// Swagger documentation endpoints
	docs.RegisterRoutes(r)

	// Register routes
	ragapi.RegisterRoutes(r, ragHandler)

	return r
}
