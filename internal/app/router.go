package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/nexcell-pos/nexcell-pos/internal/auth"
	"github.com/nexcell-pos/nexcell-pos/internal/authz"
	"github.com/nexcell-pos/nexcell-pos/internal/catalog"
	"github.com/nexcell-pos/nexcell-pos/internal/customers"
	"github.com/nexcell-pos/nexcell-pos/internal/ledger"
	"github.com/nexcell-pos/nexcell-pos/internal/observability"
	"github.com/nexcell-pos/nexcell-pos/internal/purchases"
	"github.com/nexcell-pos/nexcell-pos/internal/repairs"
	"github.com/nexcell-pos/nexcell-pos/internal/reports"
	"github.com/nexcell-pos/nexcell-pos/internal/sales"
	"github.com/nexcell-pos/nexcell-pos/internal/shared"
	"github.com/nexcell-pos/nexcell-pos/internal/suppliers"
	"github.com/nexcell-pos/nexcell-pos/internal/workers"
	"github.com/nexcell-pos/nexcell-pos/jobs"
)

// PublicPaths lists route patterns the access evaluator always allows.
// Everything else requires at least an authenticated session.
var PublicPaths = []string{
	"/healthz",
	"/auth/login",
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Guard          authz.Middleware

	AuthHandler      *auth.Handler
	WorkersHandler   *workers.Handler
	CatalogHandler   *catalog.Handler
	CustomersHandler *customers.Handler
	SuppliersHandler *suppliers.Handler
	SalesHandler     *sales.Handler
	PurchasesHandler *purchases.Handler
	RepairsHandler   *repairs.Handler
	LedgerHandler    *ledger.Handler
	ReportsHandler   *reports.Handler
	JobsHandler      *jobs.Handler

	Metrics *observability.Metrics
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

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/workers", params.WorkersHandler.MountRoutes)
	r.Route("/phones", params.CatalogHandler.MountRoutes)
	r.Route("/customers", params.CustomersHandler.MountRoutes)
	r.Route("/suppliers", params.SuppliersHandler.MountRoutes)
	r.Route("/sales", params.SalesHandler.MountRoutes)
	r.Route("/purchases", params.PurchasesHandler.MountRoutes)
	r.Route("/repairs", params.RepairsHandler.MountRoutes)
	r.Route("/payments", params.LedgerHandler.MountRoutes)
	r.Route("/reports", params.ReportsHandler.MountRoutes)
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	if params.Metrics != nil {
		mountMetrics(r, params.Guard, params.Metrics)
	}

	return r
}

// mountMetrics exposes the Prometheus endpoint. Scrape output includes
// payment counts, so the route is gated like any other management route.
func mountMetrics(r chi.Router, guard authz.Middleware, metrics *observability.Metrics) {
	r.Group(func(gr chi.Router) {
		gr.Use(guard.Require(authz.AnyOf(authz.RoleManager)))
		gr.Method(http.MethodGet, "/metrics", metrics.Handler())
	})
}
