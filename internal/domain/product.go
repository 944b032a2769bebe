/**
 * @description
 * This file defines the core domain models for the degicredit backend. These structs
 * represent the main entities and data transfer objects (DTOs) used throughout the
 * service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Using distinct types for API requests and database models ensures clear separation
 *   of concerns and type safety.
 * - Monetary values are stored as `int64` in the smallest currency unit, which avoids
 *   floating-point inaccuracies with financial data.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProductStatus is the lifecycle status of a listed product. Transitions between
// statuses are owned exclusively by the transaction state machine in internal/app.
type ProductStatus string

const (
	ProductListed          ProductStatus = "listed"
	ProductSellerVerifying ProductStatus = "seller_verifying"
	ProductSellerVerified  ProductStatus = "seller_verified"
	ProductMatched         ProductStatus = "matched"
	ProductBuyerVerifying  ProductStatus = "buyer_verifying"
	ProductBuyerVerified   ProductStatus = "buyer_verified"
	ProductSettled         ProductStatus = "settled"
	ProductExpired         ProductStatus = "expired"
	ProductCancelled       ProductStatus = "cancelled"
)

// IsTerminal reports whether the status accepts no further transitions.
func (s ProductStatus) IsTerminal() bool {
	switch s {
	case ProductSettled, ProductExpired, ProductCancelled:
		return true
	}
	return false
}

// Product represents a sellable item listed by a user. This struct maps directly
// to the `products` table in the database. A product is never physically deleted;
// terminal statuses retain the record for audit.
type Product struct {
	ID            uuid.UUID     `json:"id"`
	OwnerID       uuid.UUID     `json:"owner_id"`
	BuyerID       *uuid.UUID    `json:"buyer_id,omitempty"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Type          string        `json:"type"`
	SellValue     int64         `json:"sell_value"`     // in minor units
	OriginalValue int64         `json:"original_value"` // in minor units
	ExpiryDate    time.Time     `json:"expiry_date"`
	Status        ProductStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// ExpiredAt reports whether the product's expiry date has been reached at the
// given instant. The expiry boundary is inclusive: a product whose expiry date
// equals the current time is already expired.
func (p *Product) ExpiredAt(now time.Time) bool {
	return !now.Before(p.ExpiryDate)
}

// CreateProductRequest is the DTO for incoming product listing API requests.
type CreateProductRequest struct {
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Type          string    `json:"type"`
	SellValue     int64     `json:"sell_value"`     // in minor units
	OriginalValue int64     `json:"original_value"` // in minor units
	ExpiryDate    time.Time `json:"expiry_date"`
}

// Pagination carries the mandatory skip/limit window for list operations.
type Pagination struct {
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}
