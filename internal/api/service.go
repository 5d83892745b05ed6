package api

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chrisjgf/portfolio/internal/apperr"
	"github.com/chrisjgf/portfolio/internal/models"
	"github.com/chrisjgf/portfolio/internal/prices"
	"github.com/chrisjgf/portfolio/internal/valuation"
	"github.com/chrisjgf/portfolio/internal/vault"
)

// Service coordinates the vault store and the price layer for the API.
type Service struct {
	store  *vault.Store
	prices *prices.Service
}

// NewService creates a new API service.
func NewService(store *vault.Store, priceSvc *prices.Service) *Service {
	return &Service{store: store, prices: priceSvc}
}

// Status reports vault existence and session state.
func (s *Service) Status() vault.Status { return s.store.Status() }

// Setup creates a fresh vault and starts a session.
func (s *Service) Setup(password string) (*models.Document, error) {
	return s.store.Setup(password)
}

// Unlock starts a session against the existing vault.
func (s *Service) Unlock(password string) (*models.Document, error) {
	return s.store.Unlock(password)
}

// Lock ends the session.
func (s *Service) Lock() { s.store.Lock() }

// Portfolio returns the decrypted document.
func (s *Service) Portfolio() (*models.Document, error) { return s.store.Read() }

// SavePortfolio validates and persists a whole-document replacement.
func (s *Service) SavePortfolio(doc *models.Document) (*models.Document, error) {
	for _, h := range doc.Holdings {
		if err := h.Validate(); err != nil {
			return nil, fmt.Errorf("%w: holding %q: %s", apperr.ErrSchema, h.Name, err)
		}
	}
	if doc.PriceCache == nil {
		doc.PriceCache = models.PriceCache{}
	}
	if doc.History == nil {
		doc.History = []models.HistorySnapshot{}
	}
	if err := s.store.Write(doc); err != nil {
		return nil, err
	}
	return s.store.Read()
}

// Export returns the persisted ciphertext verbatim.
func (s *Service) Export() ([]byte, error) { return s.store.Export() }

// Import replaces the vault with an uploaded blob.
func (s *Service) Import(blob []byte) (*models.Document, error) { return s.store.Import(blob) }

// DeleteHistory removes the snapshot at index.
func (s *Service) DeleteHistory(index int) ([]models.HistorySnapshot, error) {
	return s.store.DeleteHistoryEntry(index)
}

// AddHolding creates a holding with a freshly generated id and persists it.
func (s *Service) AddHolding(req HoldingRequest) (*models.Holding, error) {
	h := models.Holding{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Category:    req.Category,
		Quantity:    req.Quantity,
		Identifier:  req.Identifier,
		ManualPrice: req.ManualPrice,
	}
	if _, err := s.store.Update(func(doc *models.Document) error {
		doc.Holdings = append(doc.Holdings, h)
		return nil
	}); err != nil {
		return nil, err
	}
	return &h, nil
}

// UpdateHolding replaces the mutable fields of an existing holding. The id
// is stable: it is generated once at creation and never changes.
func (s *Service) UpdateHolding(id string, req HoldingRequest) (*models.Holding, error) {
	var updated models.Holding
	if _, err := s.store.Update(func(doc *models.Document) error {
		for i, h := range doc.Holdings {
			if h.ID != id {
				continue
			}
			h.Name = req.Name
			h.Category = req.Category
			h.Quantity = req.Quantity
			h.Identifier = req.Identifier
			h.ManualPrice = req.ManualPrice
			doc.Holdings[i] = h
			updated = h
			return nil
		}
		return apperr.ErrNotFound
	}); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteHolding removes a holding by id.
func (s *Service) DeleteHolding(id string) error {
	_, err := s.store.Update(func(doc *models.Document) error {
		for i, h := range doc.Holdings {
			if h.ID == id {
				doc.Holdings = append(doc.Holdings[:i], doc.Holdings[i+1:]...)
				return nil
			}
		}
		return apperr.ErrNotFound
	})
	return err
}

// RefreshPrices refreshes stale cache entries, persists the merged cache,
// and returns the re-valued holdings alongside it. The provider round
// trips run outside the store lock against a snapshot; only the cache
// entries are merged back, so holdings edited mid-refresh survive intact.
func (s *Service) RefreshPrices(ctx context.Context) ([]models.HoldingWithValue, models.PriceCache, error) {
	doc, err := s.store.Read()
	if err != nil {
		return nil, nil, err
	}
	refreshed := s.prices.Refresh(ctx, doc.Holdings, doc.PriceCache)

	merged, err := s.store.Update(func(d *models.Document) error {
		for id, entry := range refreshed {
			d.PriceCache[id] = entry
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	valued := valuation.Valuate(merged.Holdings, merged.PriceCache, time.Now(), s.prices.TTL())
	return valued, merged.PriceCache, nil
}

// Valuation values the current holdings against the cache without touching
// any provider.
func (s *Service) Valuation() ([]models.HoldingWithValue, error) {
	doc, err := s.store.Read()
	if err != nil {
		return nil, err
	}
	return valuation.Valuate(doc.Holdings, doc.PriceCache, time.Now(), s.prices.TTL()), nil
}

// CreateSnapshot values the holdings and appends an immutable history
// snapshot to the document.
func (s *Service) CreateSnapshot() (*models.HistorySnapshot, error) {
	doc, err := s.store.Read()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	valued := valuation.Valuate(doc.Holdings, doc.PriceCache, now, s.prices.TTL())
	snap := valuation.Snapshot(valued, now)
	if _, err := s.store.Update(func(d *models.Document) error {
		d.History = append(d.History, snap)
		return nil
	}); err != nil {
		return nil, err
	}
	return &snap, nil
}
