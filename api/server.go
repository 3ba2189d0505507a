/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack and route-to-role mapping.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     request logging
  2. Recoverer:  panic recovery (500 instead of crash)
  3. RequestID:  unique id per request for tracing
  4. CORS:       cross-origin requests for the frontend
  5. Metrics:    request duration histogram

ROLE MAP:
  /api/login                public
  /api/transactions         request: manager/admin, validate: station/admin
  /api/invoices             generate: station/admin, attest+reject:
                            manager/admin, settle: admin
  /api/stations/{id}/balance  any authenticated; audit/repair: admin
  /api/admin/*              admin only (revenue, backup, users)
  /metrics                  public scrape endpoint

SEE ALSO:
  - handlers.go: handler implementations
  - cmd/server/main.go: server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/frotagov/fuel-ledger/auth"
	"github.com/frotagov/fuel-ledger/directory"
)

// NewRouter creates a router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Use(h.Metrics.HTTPMiddleware)

	admin := auth.RequireRole(directory.RoleSuperAdmin)
	managerOrAdmin := auth.RequireRole(directory.RoleFleetManager, directory.RoleSuperAdmin)
	stationOrAdmin := auth.RequireRole(directory.RoleFuelStation, directory.RoleSuperAdmin)

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.Auth.Middleware)

			r.Route("/transactions", func(r chi.Router) {
				r.Get("/", h.ListTransactions)
				r.With(managerOrAdmin).Post("/", h.RequestFuel)
				r.Get("/{id}", h.GetTransaction)
				r.With(stationOrAdmin).Post("/{id}/validate", h.ValidateFill)
				r.With(managerOrAdmin).Post("/{id}/cancel", h.CancelRequest)
			})

			r.Route("/invoices", func(r chi.Router) {
				r.Get("/", h.ListInvoices)
				r.With(stationOrAdmin).Post("/", h.GenerateInvoice)
				r.Get("/{id}", h.GetInvoice)
				r.Get("/{id}/pdf", h.InvoicePDF)
				r.With(managerOrAdmin).Post("/{id}/attest", h.AttestInvoice)
				r.With(managerOrAdmin).Post("/{id}/reject", h.RejectInvoice)
				r.With(admin).Post("/{id}/settle", h.SettleInvoice)
			})

			r.Route("/stations", func(r chi.Router) {
				r.Get("/", h.ListStations)
				r.With(admin).Post("/", h.SaveStation)
				r.Get("/{id}/balance", h.GetBalance)
				r.With(admin).Get("/{id}/balance/audit", h.AuditBalance)
				r.With(admin).Post("/{id}/balance/repair", h.RepairBalance)
			})

			r.Route("/organizations", func(r chi.Router) {
				r.Get("/", h.ListOrganizations)
				r.With(admin).Post("/", h.SaveOrganization)
			})

			r.Route("/vehicles", func(r chi.Router) {
				r.Get("/", h.ListVehicles)
				r.With(managerOrAdmin).Post("/", h.SaveVehicle)
				r.With(managerOrAdmin).Delete("/{id}", h.DeleteVehicle)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(admin)
				r.Get("/revenue", h.Revenue)
				r.Get("/audit", h.AuditAllBalances)
				r.Get("/reports/transactions.xlsx", h.TransactionsReport)
				r.Get("/backup", h.ExportBackup)
				r.Post("/restore", h.ImportBackup)
				r.Route("/users", func(r chi.Router) {
					r.Get("/", h.ListUsers)
					r.Post("/", h.CreateUser)
					r.Delete("/{id}", h.DeleteUser)
				})
			})
		})
	})

	r.Handle("/metrics", h.Metrics.Handler())

	return r
}
