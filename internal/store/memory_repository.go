/**
 * @description
 * This file provides an in-memory implementation of the `Repository` interface.
 * It backs unit tests and local development runs where a PostgreSQL instance is
 * not available (main falls back to it when DATABASE_URL is unset).
 *
 * The semantics mirror the PostgreSQL implementation: conditional mutations report
 * whether the precondition held, completed KYC records are immutable, and the
 * buyer-assignment compare-and-swap admits exactly one winner. A single mutex
 * guards all maps, which trivially satisfies the same atomicity the SQL layer gets
 * from conditional UPDATEs.
 */

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ChoudharyNavit22/degicredit-backend/internal/domain"
)

type kycKey struct {
	productID uuid.UUID
	role      domain.KYCRole
}

// MemoryRepository is an in-memory implementation of the Repository interface.
type MemoryRepository struct {
	mu       sync.Mutex
	products map[uuid.UUID]*domain.Product
	// order preserves insertion order so creation-time paging stays stable even
	// when two products are created within the same clock tick.
	order    []uuid.UUID
	kyc      map[kycKey]*domain.KYCRecord
	payments map[kycKey]*domain.PaymentMethod
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		products: make(map[uuid.UUID]*domain.Product),
		kyc:      make(map[kycKey]*domain.KYCRecord),
		payments: make(map[kycKey]*domain.PaymentMethod),
	}
}

func cloneProduct(p *domain.Product) *domain.Product {
	cp := *p
	if p.BuyerID != nil {
		id := *p.BuyerID
		cp.BuyerID = &id
	}
	return &cp
}

func cloneKYC(rec *domain.KYCRecord) *domain.KYCRecord {
	cp := *rec
	if rec.IBANNumber != nil {
		v := *rec.IBANNumber
		cp.IBANNumber = &v
	}
	if rec.CassetteNumber != nil {
		v := *rec.CassetteNumber
		cp.CassetteNumber = &v
	}
	return &cp
}

// CreateProduct stores a new product record.
func (m *MemoryRepository) CreateProduct(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now
	m.products[product.ID] = cloneProduct(product)
	m.order = append(m.order, product.ID)
	return nil
}

// FindProductByID retrieves a product by its ID.
func (m *MemoryRepository) FindProductByID(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[productID]
	if !ok {
		return nil, ErrProductNotFound
	}
	return cloneProduct(p), nil
}

func (m *MemoryRepository) listPage(filter func(*domain.Product) bool, skip, limit int) []domain.Product {
	// Walk newest-first using insertion order.
	matched := make([]*domain.Product, 0)
	for i := len(m.order) - 1; i >= 0; i-- {
		p := m.products[m.order[i]]
		if filter(p) {
			matched = append(matched, p)
		}
	}

	page := []domain.Product{}
	for i := skip; i < len(matched) && len(page) < limit; i++ {
		page = append(page, *cloneProduct(matched[i]))
	}
	return page
}

// ListProductsByOwner returns a page of the owner's products, newest first.
func (m *MemoryRepository) ListProductsByOwner(ctx context.Context, ownerID uuid.UUID, skip, limit int) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.listPage(func(p *domain.Product) bool {
		return p.OwnerID == ownerID
	}, skip, limit), nil
}

// ListMarketProducts returns a page of listed products not owned by the requester.
func (m *MemoryRepository) ListMarketProducts(ctx context.Context, excludeOwnerID uuid.UUID, skip, limit int) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.listPage(func(p *domain.Product) bool {
		return p.Status == domain.ProductListed && p.OwnerID != excludeOwnerID
	}, skip, limit), nil
}

// UpdateProductStatus performs a compare-and-swap on the product status.
func (m *MemoryRepository) UpdateProductStatus(ctx context.Context, productID uuid.UUID, from, to domain.ProductStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[productID]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	p.UpdatedAt = time.Now().UTC()
	return true, nil
}

// AssignBuyer attaches a buyer to a seller-verified product with no buyer assigned.
func (m *MemoryRepository) AssignBuyer(ctx context.Context, productID, buyerID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[productID]
	if !ok || p.Status != domain.ProductSellerVerified || p.BuyerID != nil {
		return false, nil
	}
	id := buyerID
	p.BuyerID = &id
	p.Status = domain.ProductMatched
	p.UpdatedAt = time.Now().UTC()
	return true, nil
}

// MarkProductExpired moves a non-terminal product to expired.
func (m *MemoryRepository) MarkProductExpired(ctx context.Context, productID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[productID]
	if !ok || p.Status.IsTerminal() {
		return false, nil
	}
	p.Status = domain.ProductExpired
	p.UpdatedAt = time.Now().UTC()
	return true, nil
}

// ListExpiredCandidates returns non-terminal products whose expiry date has passed.
func (m *MemoryRepository) ListExpiredCandidates(ctx context.Context, now time.Time) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidates := []domain.Product{}
	for _, p := range m.products {
		if !p.Status.IsTerminal() && !now.Before(p.ExpiryDate) {
			candidates = append(candidates, *cloneProduct(p))
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ExpiryDate.Before(candidates[j].ExpiryDate)
	})
	return candidates, nil
}

// UpsertKYCRecord inserts or overwrites the pending KYC record for (product, role).
func (m *MemoryRepository) UpsertKYCRecord(ctx context.Context, record *domain.KYCRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := kycKey{record.ProductID, record.Role}
	now := time.Now().UTC()
	if existing, ok := m.kyc[key]; ok {
		if existing.Status == domain.KYCComplete {
			return ErrKYCRecordImmutable
		}
		record.CreatedAt = existing.CreatedAt
	} else {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	m.kyc[key] = cloneKYC(record)
	return nil
}

// FindKYCRecord retrieves the KYC record for a (product, role) pair.
func (m *MemoryRepository) FindKYCRecord(ctx context.Context, productID uuid.UUID, role domain.KYCRole) (*domain.KYCRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.kyc[kycKey{productID, role}]
	if !ok {
		return nil, ErrKYCRecordNotFound
	}
	return cloneKYC(rec), nil
}

// CompleteKYCPayment marks the KYC record complete, stores the payment method,
// and advances the product status. All preconditions are checked before any
// write, so the mutation is all-or-nothing under the single mutex.
func (m *MemoryRepository) CompleteKYCPayment(ctx context.Context, productID uuid.UUID, role domain.KYCRole, payment *domain.PaymentMethod, from, to domain.ProductStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := kycKey{productID, role}
	rec, ok := m.kyc[key]
	if !ok {
		return false, nil
	}
	if rec.Status != domain.KYCSubmitted && rec.Status != domain.KYCPaymentPending {
		return false, nil
	}
	if _, exists := m.payments[key]; exists {
		return false, ErrPaymentMethodExists
	}
	product, ok := m.products[productID]
	if !ok || product.Status != from {
		return false, nil
	}

	now := time.Now().UTC()
	rec.Status = domain.KYCComplete
	rec.UpdatedAt = now
	payment.CreatedAt = now
	m.payments[key] = &domain.PaymentMethod{
		ProductID:  payment.ProductID,
		Role:       payment.Role,
		CardSource: payment.CardSource,
		CreatedAt:  payment.CreatedAt,
	}
	product.Status = to
	product.UpdatedAt = now
	return true, nil
}

// FindPaymentMethod retrieves the payment method for a (product, role) pair.
func (m *MemoryRepository) FindPaymentMethod(ctx context.Context, productID uuid.UUID, role domain.KYCRole) (*domain.PaymentMethod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pm, ok := m.payments[kycKey{productID, role}]
	if !ok {
		return nil, ErrPaymentMethodNotFound
	}
	cp := *pm
	return &cp, nil
}
