/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the degicredit backend. By defining an interface,
 * we decouple the application's business logic from the specific database
 * implementation (PostgreSQL in production, in-memory for tests and local
 * development), making the code more modular and easier to test.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ChoudharyNavit22/degicredit-backend/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
//
// Mutating methods that participate in state-machine transitions are conditional:
// they apply only when the stored row still satisfies the expected precondition and
// report whether a row was updated. The service layer combines these with its
// per-product critical section so that a guard check and the write it guards are
// never separated by a concurrent writer.
type Repository interface {
	// Product methods
	CreateProduct(ctx context.Context, product *domain.Product) error
	FindProductByID(ctx context.Context, productID uuid.UUID) (*domain.Product, error)
	ListProductsByOwner(ctx context.Context, ownerID uuid.UUID, skip, limit int) ([]domain.Product, error)
	ListMarketProducts(ctx context.Context, excludeOwnerID uuid.UUID, skip, limit int) ([]domain.Product, error)

	// UpdateProductStatus moves a product from one status to another. It returns
	// false without error when the product is no longer in the expected `from`
	// status, which callers treat as a lost race or an illegal transition.
	UpdateProductStatus(ctx context.Context, productID uuid.UUID, from, to domain.ProductStatus) (bool, error)

	// AssignBuyer attaches a buyer to a seller-verified product that has no buyer
	// yet and advances it to matched. First writer wins; a false result means the
	// precondition no longer held.
	AssignBuyer(ctx context.Context, productID, buyerID uuid.UUID) (bool, error)

	// MarkProductExpired moves any non-terminal product to expired.
	MarkProductExpired(ctx context.Context, productID uuid.UUID) (bool, error)

	// ListExpiredCandidates returns non-terminal products whose expiry date has
	// been reached at the given instant.
	ListExpiredCandidates(ctx context.Context, now time.Time) ([]domain.Product, error)

	// KYC methods
	UpsertKYCRecord(ctx context.Context, record *domain.KYCRecord) error
	FindKYCRecord(ctx context.Context, productID uuid.UUID, role domain.KYCRole) (*domain.KYCRecord, error)

	// CompleteKYCPayment atomically marks the KYC record complete, stores the
	// payment method, and advances the product from one status to another,
	// provided the record has been submitted and not yet completed and the
	// product is still in the expected `from` status. All three writes commit
	// together or not at all, so a partially verified transaction is never
	// observable.
	CompleteKYCPayment(ctx context.Context, productID uuid.UUID, role domain.KYCRole, payment *domain.PaymentMethod, from, to domain.ProductStatus) (bool, error)

	FindPaymentMethod(ctx context.Context, productID uuid.UUID, role domain.KYCRole) (*domain.PaymentMethod, error)
}
