package api

import (
	"context"
	"net/http"

	apiContext "callsight/internal/api/context"
	"callsight/internal/api/handlers"
	"callsight/internal/api/middleware"

	"github.com/julienschmidt/httprouter"
)

type Dependencies struct {
	WebhookHandler  *handlers.WebhookHandler
	IngestHandler   *handlers.IngestHandler
	CallHandler     *handlers.CallHandler
	CampaignHandler *handlers.CampaignHandler
	HealthHandler   *handlers.HealthHandler
	MetricsHandler  *handlers.MetricsHandler
	AuthMiddleware  *middleware.AuthMiddleware
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	// Public ingestion endpoint; the webhook id in the path is the
	// credential, plus the shared secret header checked by the service.
	router.POST("/webhook/:webhook_id",
		chain(deps.IngestHandler.Handle, middleware.RateLimit("ingest")))

	// Webhook registration (called by the onboarding flow)
	router.POST("/api/v1/webhooks",
		chain(deps.WebhookHandler.Create, middleware.RateLimit("api_write")))

	authMid := deps.AuthMiddleware

	// Webhook management
	router.GET("/api/v1/webhooks",
		chain(deps.WebhookHandler.List, authMid.Handle, middleware.RateLimit("api_read")))
	router.DELETE("/api/v1/webhooks/:webhook_id",
		chain(deps.WebhookHandler.Revoke, authMid.Handle, middleware.RateLimit("api_write")))

	// Dashboard read API
	router.GET("/api/v1/calls",
		chain(deps.CallHandler.List, authMid.Handle, middleware.RateLimit("api_read")))
	router.GET("/api/v1/calls/:call_id",
		chain(deps.CallHandler.Get, authMid.Handle, middleware.RateLimit("api_read")))
	router.GET("/api/v1/campaigns",
		chain(deps.CampaignHandler.List, authMid.Handle, middleware.RateLimit("api_read")))
	router.GET("/api/v1/campaigns/:campaign_id",
		chain(deps.CampaignHandler.Get, authMid.Handle, middleware.RateLimit("api_read")))
	router.GET("/api/v1/campaigns/:campaign_id/stats",
		chain(deps.CampaignHandler.Stats, authMid.Handle, middleware.RateLimit("api_read")))

	// Ops endpoints
	router.GET("/health", wrap(deps.HealthHandler.Check))
	router.GET("/metrics", wrap(deps.MetricsHandler.Export))

	return router
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle, injecting params into
// the request context.
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
