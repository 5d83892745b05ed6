package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chrisjgf/portfolio/internal/apperr"
	"github.com/chrisjgf/portfolio/internal/models"
)

const (
	maxBodyBytes      = 10 << 20
	minPasswordLength = 4
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Status handles GET /api/status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status())
}

// Setup handles POST /api/setup: creates a brand new vault.
func (h *Handler) Setup(w http.ResponseWriter, r *http.Request) {
	var req PasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if len(req.Password) < minPasswordLength {
		writeJSON(w, http.StatusBadRequest,
			errorBody(fmt.Sprintf("password must be at least %d characters", minPasswordLength)))
		return
	}
	doc, err := h.svc.Setup(req.Password)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// Unlock handles POST /api/unlock.
func (h *Handler) Unlock(w http.ResponseWriter, r *http.Request) {
	var req PasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("password is required"))
		return
	}
	doc, err := h.svc.Unlock(req.Password)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Lock handles POST /api/lock. Always succeeds.
func (h *Handler) Lock(w http.ResponseWriter, _ *http.Request) {
	h.svc.Lock()
	w.WriteHeader(http.StatusNoContent)
}

// GetPortfolio handles GET /api/portfolio.
func (h *Handler) GetPortfolio(w http.ResponseWriter, _ *http.Request) {
	doc, err := h.svc.Portfolio()
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// PutPortfolio handles PUT /api/portfolio: whole-document replacement.
func (h *Handler) PutPortfolio(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var doc models.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	saved, err := h.svc.SavePortfolio(&doc)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// CreateHolding handles POST /api/holdings.
func (h *Handler) CreateHolding(w http.ResponseWriter, r *http.Request) {
	var req HoldingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	holding, err := h.svc.AddHolding(req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, holding)
}

// UpdateHolding handles PUT /api/holdings/{id}.
func (h *Handler) UpdateHolding(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req HoldingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	holding, err := h.svc.UpdateHolding(id, req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, holding)
}

// DeleteHolding handles DELETE /api/holdings/{id}.
func (h *Handler) DeleteHolding(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteHolding(chi.URLParam(r, "id")); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Export handles GET /api/export: the encrypted vault file verbatim.
func (h *Handler) Export(w http.ResponseWriter, _ *http.Request) {
	blob, err := h.svc.Export()
	if err != nil {
		writeAppError(w, err)
		return
	}
	filename := fmt.Sprintf("portfolio-%s.enc", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob)
}

// Import handles POST /api/import: replaces the vault with an uploaded
// encrypted blob, verified against the current session password.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	blob, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	doc, err := h.svc.Import(blob)
	if err != nil {
		// A blob that does not decrypt under the session password is a bad
		// upload, not a failed login.
		if errors.Is(err, apperr.ErrAuthentication) {
			writeJSON(w, http.StatusBadRequest, errorBody("cannot decrypt file with current password"))
			return
		}
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// DeleteHistory handles DELETE /api/history/{index}.
func (h *Handler) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid index"))
		return
	}
	history, err := h.svc.DeleteHistory(index)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{History: history})
}

// CreateSnapshot handles POST /api/history: values the portfolio and
// appends an immutable snapshot.
func (h *Handler) CreateSnapshot(w http.ResponseWriter, _ *http.Request) {
	snap, err := h.svc.CreateSnapshot()
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// RefreshPrices handles POST /api/prices/refresh.
func (h *Handler) RefreshPrices(w http.ResponseWriter, r *http.Request) {
	valued, cache, err := h.svc.RefreshPrices(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RefreshResponse{Holdings: valued, PriceCache: cache})
}

// Valuation handles GET /api/valuation: values holdings against the cache
// without contacting any provider.
func (h *Handler) Valuation(w http.ResponseWriter, _ *http.Request) {
	valued, err := h.svc.Valuation()
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ValuationResponse{Holdings: valued})
}
