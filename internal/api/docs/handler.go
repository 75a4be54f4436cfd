package docs

import (
	_ "embed"
	"net/http"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

const specPath = "/docs/swagger.yaml"

//go:embed swagger.yaml
var openAPIDocument []byte

// Handler returns a handler that serves Swagger UI.
func Handler() http.HandlerFunc {
	return httpSwagger.Handler(
		httpSwagger.URL(specPath),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	)
}

// SpecHandler serves the embedded OpenAPI document
func SpecHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(openAPIDocument)
	}
}

// RegisterRoutes registers Swagger documentation routes on the router.
func RegisterRoutes(r chi.Router) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/index.html", http.StatusFound)
	})
	r.Get(specPath, SpecHandler())
	r.Get("/docs/*", Handler())
}
