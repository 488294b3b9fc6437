package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/anditama/inventory-management/internal"
	"github.com/anditama/inventory-management/internal/transport"
	"github.com/anditama/inventory-management/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service    ServiceAPI
	Guard      *Guard
	Aggregator *Aggregator
}

func NewHandler(svc ServiceAPI, guard *Guard, aggregator *Aggregator) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
		Guard:       guard,
		Aggregator:  aggregator,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Service.Authenticate(r.Context(), dto)
	if err != nil {
		h.Logger.Error("authentication failed", "error", err, "email", dto.Email)
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := h.ExtractTokenFromHeader(r)
	if token == "" {
		h.WriteError(w, http.StatusUnauthorized, "missing authorization token")
		return
	}

	if err := h.Service.Logout(r.Context(), token); err != nil {
		h.WriteAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.Service.CurrentUser(r.Context(), h.ExtractTokenFromHeader(r))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, user)
}

// SetRolePermissions replaces the grant set for a role.
func (h *Handler) SetRolePermissions(w http.ResponseWriter, r *http.Request) {
	role := chi.URLParam(r, "role")

	var dto SetRolePermissionsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Aggregator.SetRolePermissions(r.Context(), role, dto.Permissions); err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"role":        role,
		"permissions": dto.Permissions,
	})
}

// ListPermissionCatalog exposes the static permission catalog for admin UIs.
func (h *Handler) ListPermissionCatalog(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"permissions": PermissionCatalog(),
	})
}

// AuthMiddleware resolves the caller identity and stores it in the request
// context. Downstream permission checks receive the caller explicitly.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		decision := h.Guard.Authenticate(r.Context(), token)
		if !decision.OK {
			h.WriteError(w, decision.Status, string(decision.Reason))
			return
		}

		ctx := internal.ContextWithCaller(r.Context(), decision.Me)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission is the route-level guard: authenticate, then check one
// permission through the single authorization entry point.
func (h *Handler) RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := h.ExtractTokenFromHeader(r)
			decision := h.Guard.RequirePermission(r.Context(), token, permission)
			if !decision.OK {
				h.WriteError(w, decision.Status, string(decision.Reason))
				return
			}

			ctx := internal.ContextWithCaller(r.Context(), decision.Me)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
