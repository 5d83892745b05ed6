package api

import (
	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
func NewRouter(svc *Service, authEnabled bool, token string) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Vault lifecycle.
	r.Get("/status", h.Status)
	r.Post("/setup", h.Setup)
	r.Post("/unlock", h.Unlock)
	r.Post("/lock", h.Lock)

	// Document access.
	r.Get("/portfolio", h.GetPortfolio)
	r.Put("/portfolio", h.PutPortfolio)

	// Holdings CRUD.
	r.Post("/holdings", h.CreateHolding)
	r.Put("/holdings/{id}", h.UpdateHolding)
	r.Delete("/holdings/{id}", h.DeleteHolding)

	// Encrypted backup transfer.
	r.Get("/export", h.Export)
	r.Post("/import", h.Import)

	// History snapshots.
	r.Post("/history", h.CreateSnapshot)
	r.Delete("/history/{index}", h.DeleteHistory)

	// Prices and valuation.
	r.Post("/prices/refresh", h.RefreshPrices)
	r.Get("/valuation", h.Valuation)

	return r
}
