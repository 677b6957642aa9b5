package http

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/payroll-ledger/internal/config"
	"github.com/cmlabs-hris/payroll-ledger/internal/handler/http/middleware"
	"github.com/cmlabs-hris/payroll-ledger/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	JWTService jwt.Service,
	payrollHandler PayrollHandler,
	ledgerHandler LedgerHandler,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.App.CORSAllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	requireAuth := func(r chi.Router) {
		r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
		r.Use(middleware.AuthRequired)
	}

	// Rendered payslips on local disk. Downloads for employees go through /payslips/{id}/document.
	if cfg.Storage.Type == "local" {
		r.Group(func(r chi.Router) {
			requireAuth(r)
			r.Use(middleware.RequireAdmin)
			r.Handle("/files/*", http.StripPrefix("/files/", http.FileServer(http.Dir(cfg.Storage.LocalPath))))
		})
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/payslips", func(r chi.Router) {
			requireAuth(r)

			r.Get("/", payrollHandler.List)
			r.Get("/{id}", payrollHandler.GetByID)
			r.Get("/{id}/document", payrollHandler.Document)

			// Admin only
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Post("/", payrollHandler.Create)
				r.Post("/preview", payrollHandler.Preview)
				r.Post("/bulk", payrollHandler.RunBulk)
				r.Post("/bulk/import", payrollHandler.ImportBulk)
			})
		})

		r.Route("/ledger", func(r chi.Router) {
			// SSE authenticates with a query token
			r.Get("/stream", ledgerHandler.Stream)

			r.Group(func(r chi.Router) {
				requireAuth(r)
				r.Post("/stream/token", ledgerHandler.GetSSEToken)

				// Admin only
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdmin)
					r.Get("/summary", ledgerHandler.Summary)
					r.Get("/export", ledgerHandler.Export)
					r.Get("/departments", ledgerHandler.Departments)
				})
			})
		})
	})
	return r
}
