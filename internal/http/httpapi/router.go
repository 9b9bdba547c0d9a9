package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ocula-lovable/creative-forge/internal/http/handlers"
	"github.com/ocula-lovable/creative-forge/internal/middleware"
)

// NewRouter builds the HTTP surface: public auth and health endpoints plus the
// bearer-token protected API. Generated assets are served from the storage
// directory under /static.
func NewRouter(app *handlers.App, lookup middleware.CountryLookup) http.Handler {
	cfg := app.Config

	r := chi.NewRouter()
	r.Use(
		chimw.RealIP,
		chimw.Recoverer,
		middleware.RequestID,
		middleware.CORS(cfg.CORSAllowedOrigins),
		middleware.Logger(app.Logger),
	)

	r.Get("/api/healthz", app.Health)
	r.Post("/api/auth/register", app.Register)
	r.Post("/api/auth/login", app.Login)

	r.Group(func(r chi.Router) {
		r.Use(
			middleware.AuthJWT(cfg.JWTSecret),
			middleware.RateLimit(cfg.RateLimitPerMin, time.Minute),
			middleware.Locale(cfg.DefaultLocale, lookup),
		)

		r.Get("/api/account", app.Account)
		r.Post("/api/generate", app.Generate)
		r.Route("/api/jobs", func(r chi.Router) {
			r.Get("/", app.JobsList)
			r.Get("/{id}", app.JobGet)
		})
		r.Route("/api/projects", func(r chi.Router) {
			r.Get("/", app.ProjectsList)
			r.Post("/", app.ProjectsCreate)
			r.Get("/{id}", app.ProjectGet)
		})
	})

	if cfg.StoragePath != "" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StoragePath)))
		r.Get("/static/*", fs.ServeHTTP)
	}

	return r
}
