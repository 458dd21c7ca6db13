package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"tryon-backend/internal/auth"
	"tryon-backend/internal/http/handlers"
	"tryon-backend/internal/infra"
	"tryon-backend/internal/middleware"
)

// NewRouter assembles the public API surface. Generation and try-on routes
// require authentication; serving stored images and health do not.
func NewRouter(app *handlers.App, cfg *infra.Config, logger *infra.Logger, tokens *auth.TokenIssuer) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(*logger),
		middleware.RateLimit(cfg.RateLimitPerMin, time.Minute),
	)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}).Handler)

	r.Get("/v1/healthz", app.Health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", app.Register)
		r.Post("/login", app.Login)
		r.Post("/verify-email", app.VerifyEmail)
		r.Post("/google", app.GoogleSignIn)
	})

	r.Get("/generated-images/{name}", app.ServeGeneratedImage)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(tokens))

		r.Get("/auth/me", app.Me)
		r.Get("/admin/users", app.AdminListUsers)

		r.Route("/image-generation", func(r chi.Router) {
			r.Post("/generate-image", app.GenerateImage)
			r.Post("/virtual-try-on", app.VirtualTryOn)
			r.Post("/generate-campaign", app.GenerateCampaign)
			r.Get("/view-image", app.ViewImage)
		})

		r.Post("/description", app.Description)
		r.Post("/human-model", app.HumanModel)
		r.Post("/final-tryon", app.FinalTryOn)
	})

	return r
}
