/**
 * @description
 * This file contains the core business logic for the degicredit backend. The
 * `Service` struct owns the product catalog operations and the transaction state
 * machine, coordinating between the database repository, the payment processor
 * client, and the message broker.
 *
 * Key features:
 * - Validates and creates product listings against an injected finite type catalog.
 * - Serves owner and market product listings with bounded pagination.
 * - Runs every state transition under a per-product critical section so guard
 *   checks and writes are atomic with respect to concurrent actions on the same
 *   product.
 * - Publishes lifecycle events to RabbitMQ after every committed transition.
 *
 * @dependencies
 * - context, errors, log, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/rabbitmq: For event publishing.
 */

package app

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ChoudharyNavit22/degicredit-backend/internal/domain"
	"github.com/ChoudharyNavit22/degicredit-backend/internal/store"
	"github.com/ChoudharyNavit22/degicredit-backend/pkg/rabbitmq"
)

// CardAuthorizer is the narrow contract the core needs from the payment
// processor: verify a funding-source token before it is attached to a KYC record.
type CardAuthorizer interface {
	AuthorizeCardSource(ctx context.Context, source string) (string, error)
}

// RateLimiter is the contract for the distributed request limiter applied to
// market query endpoints.
type RateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Service provides the core business logic for the marketplace transaction workflow.
type Service struct {
	repo          store.Repository
	producer      rabbitmq.Publisher
	payments      CardAuthorizer
	locks         *productLocks
	typeCatalog   []string
	typeSet       map[string]struct{}
	maxPageLimit  int
	eventExchange string

	limiter              RateLimiter
	marketLimitPerMinute int

	// now is the clock used for expiry evaluation; replaced in tests.
	now func() time.Time
}

// NewService creates a new service instance. The product-type catalog and the
// pagination ceiling are constructor parameters, not ambient globals.
func NewService(repo store.Repository, producer rabbitmq.Publisher, payments CardAuthorizer, productTypes []string, maxPageLimit int, eventExchange string) *Service {
	typeSet := make(map[string]struct{}, len(productTypes))
	for _, t := range productTypes {
		typeSet[t] = struct{}{}
	}
	if maxPageLimit <= 0 {
		maxPageLimit = 100
	}
	return &Service{
		repo:          repo,
		producer:      producer,
		payments:      payments,
		locks:         newProductLocks(),
		typeCatalog:   append([]string(nil), productTypes...),
		typeSet:       typeSet,
		maxPageLimit:  maxPageLimit,
		eventExchange: eventExchange,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// SetMarketRateLimiter wires the optional distributed limiter for market queries.
func (s *Service) SetMarketRateLimiter(limiter RateLimiter, perMinute int) {
	s.limiter = limiter
	s.marketLimitPerMinute = perMinute
}

// CreateProduct validates the listing request and stores a new product in listed
// status owned by the acting party.
func (s *Service) CreateProduct(ctx context.Context, ownerID uuid.UUID, req domain.CreateProductRequest) (*domain.Product, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, invalidField("name", "must not be empty")
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, invalidField("description", "must not be empty")
	}
	if _, ok := s.typeSet[req.Type]; !ok {
		return nil, invalidField("type", "must be one of the catalog product types")
	}
	if req.SellValue <= 0 {
		return nil, invalidField("sell_value", "must be positive")
	}
	if req.OriginalValue <= 0 {
		return nil, invalidField("original_value", "must be positive")
	}
	if req.SellValue > req.OriginalValue {
		return nil, invalidField("sell_value", "must not exceed original_value")
	}
	// Strictly-future rule: an expiry equal to the current instant is rejected.
	if !req.ExpiryDate.After(s.now()) {
		return nil, invalidField("expiry_date", "must be in the future")
	}

	product := &domain.Product{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		Name:          strings.TrimSpace(req.Name),
		Description:   strings.TrimSpace(req.Description),
		Type:          req.Type,
		SellValue:     req.SellValue,
		OriginalValue: req.OriginalValue,
		ExpiryDate:    req.ExpiryDate.UTC(),
		Status:        domain.ProductListed,
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, domain.EventProductListed, product, "")
	return product, nil
}

// ListProductTypes returns the static finite catalog of allowed product types.
func (s *Service) ListProductTypes() []string {
	return append([]string(nil), s.typeCatalog...)
}

// ListProducts returns a page of the owner's products, newest first.
func (s *Service) ListProducts(ctx context.Context, ownerID uuid.UUID, page domain.Pagination) ([]domain.Product, error) {
	if err := s.validatePagination(page); err != nil {
		return nil, err
	}
	return s.repo.ListProductsByOwner(ctx, ownerID, page.Skip, page.Limit)
}

// ListMarketProducts returns a page of listed products offered by other parties.
func (s *Service) ListMarketProducts(ctx context.Context, actorID uuid.UUID, page domain.Pagination) ([]domain.Product, error) {
	if err := s.validatePagination(page); err != nil {
		return nil, err
	}
	if s.limiter != nil && s.marketLimitPerMinute > 0 {
		count, retryAfter, err := s.limiter.ConsumeRateLimit(ctx, "market_list", actorID.String(), s.marketLimitPerMinute, time.Minute)
		if err != nil {
			log.Printf("level=warn component=service msg=\"market rate limiter unavailable; allowing request\" err=%v", err)
		} else if count > s.marketLimitPerMinute {
			return nil, &RateLimitError{RetryAfterSeconds: retryAfter}
		}
	}
	return s.repo.ListMarketProducts(ctx, actorID, page.Skip, page.Limit)
}

func (s *Service) validatePagination(page domain.Pagination) error {
	// Re-validated defensively even though the transport layer already checks.
	if page.Skip < 0 {
		return invalidField("skip", "must be zero or greater")
	}
	if page.Limit < 1 {
		return invalidField("limit", "must be at least 1")
	}
	if page.Limit > s.maxPageLimit {
		return invalidField("limit", "exceeds the configured maximum")
	}
	return nil
}

// publishEvent emits a lifecycle event for a committed transition. Publishing is
// best-effort: a broker outage must not roll back a committed state change.
func (s *Service) publishEvent(ctx context.Context, routingKey string, product *domain.Product, from domain.ProductStatus) {
	if s.producer == nil {
		return
	}
	event := domain.ProductEvent{
		ProductID:  product.ID,
		OwnerID:    product.OwnerID,
		BuyerID:    product.BuyerID,
		FromStatus: from,
		Status:     product.Status,
		OccurredAt: s.now(),
	}
	if err := s.producer.Publish(ctx, s.eventExchange, routingKey, event); err != nil {
		log.Printf("level=warn component=service msg=\"lifecycle event publish failed\" product_id=%s routing_key=%s err=%v", product.ID, routingKey, err)
	}
}
