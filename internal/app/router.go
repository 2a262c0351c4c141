package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/flaketech/quotebuilder/internal/auth"
	"github.com/flaketech/quotebuilder/internal/catalog"
	"github.com/flaketech/quotebuilder/internal/history"
	"github.com/flaketech/quotebuilder/internal/observability"
	"github.com/flaketech/quotebuilder/internal/quotation"
	"github.com/flaketech/quotebuilder/internal/shared"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	SessionManager   *shared.SessionManager
	CSRFManager      *shared.CSRFManager
	AuthHandler      *auth.Handler
	CatalogHandler   *catalog.Handler
	QuotationHandler *quotation.Handler
	HistoryHandler   *history.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	params.AuthHandler.MountRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser)
		params.CatalogHandler.MountRoutes(r, auth.RequireRole(auth.RoleAdmin))
		params.QuotationHandler.MountRoutes(r)
		params.HistoryHandler.MountRoutes(r)
	})

	return r
}
