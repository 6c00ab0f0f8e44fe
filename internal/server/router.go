// Package server assembles the HTTP router.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/stargallery/service/docs/swagger"
	"github.com/stargallery/service/internal/config"
	"github.com/stargallery/service/internal/media"
	appMiddleware "github.com/stargallery/service/internal/middleware"
	"github.com/stargallery/service/internal/response"
	"github.com/stargallery/service/internal/star"
)

// Deps are the handlers and settings the router mounts.
type Deps struct {
	Config *config.Config
	Stars  *star.Handler
	Images *media.Handler
	Logger zerolog.Logger
}

// NewRouter builds the API routes.
func NewRouter(d Deps) http.Handler {
	cfg := d.Config

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(d.Logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{"message": "Star Gallery API"})
	})
	r.Get("/health", health)
	r.Get("/api/health", health)

	// Swagger UI at /swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/stars", func(r chi.Router) {
		r.Get("/", d.Stars.List)
		r.Get("/{starID}", d.Stars.Get)
		r.Get("/{starID}/images", d.Images.List)
		r.Get("/images/{imageID}", d.Images.Get)

		// Mutating routes; bearer-protected when a JWT secret is configured.
		r.Group(func(r chi.Router) {
			if cfg.AuthEnabled() {
				r.Use(appMiddleware.RequireAuth(cfg.JWTSecret))
			}
			r.Post("/", d.Stars.Create)
			r.Put("/{starID}", d.Stars.Rename)
			r.Delete("/{starID}", d.Stars.Delete)
			r.Delete("/images/{imageID}", d.Images.Delete)
			r.With(appMiddleware.RateLimit(cfg.UploadRate, cfg.UploadBurst)).
				Post("/{starID}/images/upload", d.Images.Upload)
		})
	})

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]string{"status": "ok"})
}
