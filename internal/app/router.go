package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mandi-erp/mandi-erp/internal/billing"
	"github.com/mandi-erp/mandi-erp/internal/cashflow"
	"github.com/mandi-erp/mandi-erp/internal/entries"
	"github.com/mandi-erp/mandi-erp/internal/masterdata"
	"github.com/mandi-erp/mandi-erp/internal/reports"
	"github.com/mandi-erp/mandi-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	MasterDataHandler *masterdata.Handler
	EntriesHandler    *entries.Handler
	BillingHandler    *billing.Handler
	CashflowHandler   *cashflow.Handler
	ReportsHandler    *reports.Handler
	JobsHandler       *jobs.Handler
	Pool              *pgxpool.Pool
}

// NewRouter constructs the chi.Router with the standard stack.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if params.Pool != nil {
			if err := params.Pool.Ping(r.Context()); err != nil {
				params.Logger.Warn("healthz db ping", slog.Any("error", err))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/masterdata", params.MasterDataHandler.MountRoutes)
		r.Route("/entries", params.EntriesHandler.MountRoutes)
		r.Route("/billing", params.BillingHandler.MountRoutes)
		r.Route("/cashflow", params.CashflowHandler.MountRoutes)
		r.Route("/reports", params.ReportsHandler.MountRoutes)
		if params.JobsHandler != nil {
			r.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	return r
}
