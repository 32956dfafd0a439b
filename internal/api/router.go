package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	apiContext "pubhook/internal/api/context"
	"pubhook/internal/api/handlers"
	"pubhook/internal/api/middleware"
	"pubhook/internal/pkg/errors"
	"pubhook/internal/platform/auth"
)

type Dependencies struct {
	HookHandler         *handlers.HookHandler
	SettingsHandler     *handlers.SettingsHandler
	AuthHandler         *handlers.AuthHandler
	HealthHandler       *handlers.HealthHandler
	MetricsHandler      *handlers.MetricsHandler
	AuthMiddleware      *middleware.AuthMiddleware
	SignatureMiddleware *middleware.SignatureMiddleware
	RateLimiter         *middleware.RateLimiter
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Route not found", nil)
	})

	router.GET("/healthz", wrap(deps.HealthHandler.Check))
	router.GET("/metrics", wrap(deps.MetricsHandler.Export))

	// Host notifications
	router.POST("/api/v1/hooks/:trigger",
		chain(deps.HookHandler.Fire, deps.RateLimiter.Handle, deps.SignatureMiddleware.Handle))

	router.POST("/api/v1/auth/login", wrap(deps.AuthHandler.Login))

	// Options page
	authMid := deps.AuthMiddleware
	manageOptions := middleware.RequireCapability(auth.CapabilityManageOptions)
	router.GET("/api/v1/settings",
		chain(deps.SettingsHandler.Get, authMid.Handle, manageOptions))
	router.PUT("/api/v1/settings",
		chain(deps.SettingsHandler.Update, authMid.Handle, manageOptions))

	return router
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
