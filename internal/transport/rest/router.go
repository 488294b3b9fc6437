package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/anditama/inventory-management/internal/asset"
	"github.com/anditama/inventory-management/internal/audit"
	"github.com/anditama/inventory-management/internal/auth"
	"github.com/anditama/inventory-management/internal/obs"
	"github.com/anditama/inventory-management/internal/transport/middleware"
	"github.com/anditama/inventory-management/internal/transport/swagger"
	"github.com/anditama/inventory-management/internal/user"
	"github.com/go-chi/chi"
)

// RouterDeps carries everything route registration needs.
type RouterDeps struct {
	DB           *sql.DB
	AuthHandler  *auth.Handler
	UserHandler  *user.Handler
	AssetHandler *asset.Handler
	AuditHandler *audit.Handler
	LoginLimiter *middleware.RateLimiter
	Logger       *slog.Logger
}

func RegisterAllRoutes(router *chi.Mux, deps RouterDeps) {
	healthHandler := NewHealthHandler(deps.DB)

	// Apply global middleware
	router.Use(middleware.CORS)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(deps.Logger))
	router.Use(middleware.RecoveryMiddleware(deps.Logger))
	router.Use(obs.Instrument)

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	// Prometheus scrape endpoint
	router.Handle("/metrics", obs.Handler())

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		// Health check route
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Auth routes
		r.Route("/auth", func(sr chi.Router) {
			login := http.HandlerFunc(deps.AuthHandler.Login)
			if deps.LoginLimiter != nil {
				sr.Method(http.MethodPost, "/login", deps.LoginLimiter.Handler(login))
			} else {
				sr.Post("/login", deps.AuthHandler.Login)
			}
			sr.Post("/logout", deps.AuthHandler.Logout)
		})

		// Protected routes that require authentication
		r.Group(func(pr chi.Router) {
			pr.Use(deps.AuthHandler.AuthMiddleware)
			pr.Use(middleware.CallerContext)

			pr.Get("/auth/me", deps.AuthHandler.Me)
			pr.Get("/permissions", deps.AuthHandler.ListPermissionCatalog)

			// User administration
			pr.Route("/users", func(ur chi.Router) {
				ur.Group(func(rr chi.Router) {
					rr.Use(deps.AuthHandler.RequirePermission(auth.PermUsersRead))
					rr.Get("/", deps.UserHandler.List)
					rr.Get("/{id}", deps.UserHandler.Get)
				})

				ur.Group(func(wr chi.Router) {
					wr.Use(deps.AuthHandler.RequirePermission(auth.PermUsersWrite))
					wr.Post("/", deps.UserHandler.Create)
					wr.Put("/{id}", deps.UserHandler.UpdateProfile)
					wr.Put("/{id}/roles", deps.UserHandler.SetRoles)
					wr.Patch("/{id}/activate", deps.UserHandler.Activate)
					wr.Patch("/{id}/deactivate", deps.UserHandler.Deactivate)
					wr.Patch("/{id}/password", deps.UserHandler.ResetPassword)
					wr.Delete("/{id}", deps.UserHandler.Remove)
				})
			})

			// Role permission management
			pr.Group(func(rp chi.Router) {
				rp.Use(deps.AuthHandler.RequirePermission(auth.PermUsersWrite))
				rp.Put("/roles/{role}/permissions", deps.AuthHandler.SetRolePermissions)
			})

			// Asset routes
			pr.Route("/assets", func(ar chi.Router) {
				ar.Group(func(rr chi.Router) {
					rr.Use(deps.AuthHandler.RequirePermission(auth.PermAssetsRead))
					rr.Get("/", deps.AssetHandler.List)
					rr.Get("/{id}", deps.AssetHandler.Get)
				})

				ar.Group(func(wr chi.Router) {
					wr.Use(deps.AuthHandler.RequirePermission(auth.PermAssetsWrite))
					wr.Post("/", deps.AssetHandler.Create)
					wr.Patch("/{id}/status", deps.AssetHandler.UpdateStatus)
				})
			})

			// Audit routes
			pr.Route("/audits", func(ar chi.Router) {
				ar.Group(func(rr chi.Router) {
					rr.Use(deps.AuthHandler.RequirePermission(auth.PermAuditsRead))
					rr.Get("/", deps.AuditHandler.List)
					rr.Get("/{id}", deps.AuditHandler.Get)
					rr.Get("/{id}/items", deps.AuditHandler.Items)
					rr.Get("/{id}/diff", deps.AuditHandler.Diff)
				})

				ar.Group(func(wr chi.Router) {
					wr.Use(deps.AuthHandler.RequirePermission(auth.PermAuditsWrite))
					wr.Post("/", deps.AuditHandler.Create)
					wr.Post("/{id}/import", deps.AuditHandler.Import)
				})
			})
		})
	})
}
