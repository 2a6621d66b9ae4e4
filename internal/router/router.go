package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"auth-service/internal/config"
	"auth-service/internal/handler"
	"auth-service/internal/middleware"
)

type Handlers struct {
	Auth   *handler.AuthHandler
	User   *handler.UserHandler
	Admin  *handler.AdminHandler
	Audit  *handler.AuditHandler
	Health *handler.HealthHandler
}

func New(cfg *config.Config, gate *middleware.AuthMiddleware, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM, cfg.TrustedProxies...)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handler.WriteNotFound(w, r)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handler.WriteMethodNotAllowed(w, r)
	})

	r.Get("/health", h.Health.Check)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/user/signup", h.Auth.SignupUser)
			auth.Post("/user/login", h.Auth.LoginUser)
			auth.Post("/admin/signup", h.Auth.SignupAdmin)
			auth.Post("/admin/login", h.Auth.LoginAdmin)
			auth.Get("/session", h.Auth.Session)
			auth.Post("/logout", h.Auth.Logout)
			auth.With(gate.Optional).Get("/status", h.Auth.Status)
		})

		api.Route("/users", func(users chi.Router) {
			users.Use(gate.Require(false))
			users.Get("/profile", h.User.Profile)
			users.Put("/profile", h.User.UpdateProfile)
			users.Delete("/profile", h.User.DeleteProfile)
			users.Get("/{userId}", h.User.Get)
		})

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(gate.Require(true))
			admin.Get("/users", h.Admin.ListUsers)
			admin.Get("/users/{userId}", h.Admin.GetUser)
			admin.Put("/users/{userId}", h.Admin.UpdateUser)
			admin.Delete("/users/{userId}", h.Admin.DeleteUser)
			admin.Patch("/users/{userId}/deactivate", h.Admin.DeactivateUser)
			admin.Patch("/users/{userId}/activate", h.Admin.ActivateUser)
			admin.Get("/audit", h.Audit.List)
		})
	})

	return r
}
