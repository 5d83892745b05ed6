package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"github.com/chrisjgf/portfolio/internal/models"
)

// PasswordRequest is the request body for setup and unlock.
type PasswordRequest struct {
	Password string `json:"password"`
}

// HoldingRequest is the request body for creating or updating a holding.
// Quantity may be negative (shorts, liabilities) and fractional.
type HoldingRequest struct {
	Name        string          `json:"name"`
	Category    models.Category `json:"category"`
	Quantity    decimal.Decimal `json:"quantity"`
	Identifier  string          `json:"identifier"`
	ManualPrice decimal.Decimal `json:"manualPrice"`
}

// Validate checks the request against the closed category set.
func (r HoldingRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Category, validation.Required,
			validation.In(models.Crypto, models.Metals, models.Stock, models.Cash, models.Seed)),
	)
}

// ValuationResponse wraps the valued holdings returned by the valuation and
// refresh endpoints.
type ValuationResponse struct {
	Holdings []models.HoldingWithValue `json:"holdings"`
}

// RefreshResponse is returned after a price refresh: the valued holdings
// plus the merged cache that was persisted.
type RefreshResponse struct {
	Holdings   []models.HoldingWithValue `json:"holdings"`
	PriceCache models.PriceCache         `json:"priceCache"`
}

// HistoryResponse wraps the snapshot list after an index-addressed delete.
type HistoryResponse struct {
	History []models.HistorySnapshot `json:"history"`
}
