package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ChoudharyNavit22/degicredit-backend/internal/domain"
	"github.com/ChoudharyNavit22/degicredit-backend/internal/store"
)

// capturingPublisher records routing keys of published events.
type capturingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *capturingPublisher) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	return nil
}

func (p *capturingPublisher) Close() {}

func (p *capturingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

type stubAuthorizer struct {
	err   error
	calls int
}

func (a *stubAuthorizer) AuthorizeCardSource(ctx context.Context, source string) (string, error) {
	a.calls++
	if a.err != nil {
		return "", a.err
	}
	return "auth_" + source, nil
}

type stubLimiter struct {
	count      int
	retryAfter int
	err        error
}

func (l *stubLimiter) ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (int, int, error) {
	if l.err != nil {
		return 0, 0, l.err
	}
	l.count++
	return l.count, l.retryAfter, nil
}

var testProductTypes = []string{"giftcard", "voucher", "coupon"}

func newTestService(t *testing.T) (*Service, *store.MemoryRepository, *capturingPublisher) {
	t.Helper()
	repo := store.NewMemoryRepository()
	producer := &capturingPublisher{}
	service := NewService(repo, producer, nil, testProductTypes, 50, "degicredit.events")
	return service, repo, producer
}

func i64(v int64) *int64 {
	return &v
}

func timeNowPlusDay() time.Time {
	return time.Now().Add(24 * time.Hour)
}

func validListing(expiry time.Time) domain.CreateProductRequest {
	return domain.CreateProductRequest{
		Name:          "Coffee voucher",
		Description:   "Valid at any branch",
		Type:          "voucher",
		SellValue:     1500,
		OriginalValue: 2000,
		ExpiryDate:    expiry,
	}
}

func validKYCRequest(role domain.KYCRole) domain.SubmitKYCRequest {
	req := domain.SubmitKYCRequest{
		SectionA: domain.KYCSectionA{
			A1: "Jordan Reyes",
			A2: 19900412,
			A3: "14 Harbour Street",
			A4: "Lisbon",
			A5: true,
			A6: "PT",
			A7: false,
		},
		Document:  "doc-upload-ref-01",
		Signature: "sig-upload-ref-01",
	}
	if role == domain.RoleSeller {
		req.IBANNumber = i64(50001234567890)
	} else {
		req.CassetteNumber = i64(778899)
	}
	return req
}

func mustCreateProduct(t *testing.T, s *Service, ownerID uuid.UUID) *domain.Product {
	t.Helper()
	product, err := s.CreateProduct(context.Background(), ownerID, validListing(time.Now().Add(48*time.Hour)))
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	return product
}

// completeSellerTrack takes a listed product through seller KYC and payment.
func completeSellerTrack(t *testing.T, s *Service, ownerID, productID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	if _, err := s.SubmitKYC(ctx, ownerID, productID, domain.RoleSeller, validKYCRequest(domain.RoleSeller)); err != nil {
		t.Fatalf("seller SubmitKYC failed: %v", err)
	}
	if _, err := s.RegisterPaymentMethod(ctx, ownerID, productID, domain.RoleSeller, domain.RegisterPaymentMethodRequest{CardSource: "src_seller"}); err != nil {
		t.Fatalf("seller RegisterPaymentMethod failed: %v", err)
	}
}

func completeBuyerTrack(t *testing.T, s *Service, buyerID, productID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	if _, err := s.SubmitKYC(ctx, buyerID, productID, domain.RoleBuyer, validKYCRequest(domain.RoleBuyer)); err != nil {
		t.Fatalf("buyer SubmitKYC failed: %v", err)
	}
	if _, err := s.RegisterPaymentMethod(ctx, buyerID, productID, domain.RoleBuyer, domain.RegisterPaymentMethodRequest{CardSource: "src_buyer"}); err != nil {
		t.Fatalf("buyer RegisterPaymentMethod failed: %v", err)
	}
}

func TestCreateProductSuccess(t *testing.T) {
	service, _, producer := newTestService(t)
	ownerID := uuid.New()

	product, err := service.CreateProduct(context.Background(), ownerID, validListing(time.Now().Add(24*time.Hour)))
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if product.Status != domain.ProductListed {
		t.Errorf("expected status listed, got %s", product.Status)
	}
	if product.OwnerID != ownerID {
		t.Errorf("owner mismatch: got %s", product.OwnerID)
	}
	if product.BuyerID != nil {
		t.Errorf("new product must not have a buyer")
	}

	keys := producer.published()
	if len(keys) != 1 || keys[0] != domain.EventProductListed {
		t.Errorf("expected one %q event, got %v", domain.EventProductListed, keys)
	}
}

func TestCreateProductValidation(t *testing.T) {
	service, _, _ := newTestService(t)
	future := time.Now().Add(24 * time.Hour)

	cases := []struct {
		name   string
		mutate func(*domain.CreateProductRequest)
		field  string
	}{
		{"empty name", func(r *domain.CreateProductRequest) { r.Name = "  " }, "name"},
		{"empty description", func(r *domain.CreateProductRequest) { r.Description = "" }, "description"},
		{"unknown type", func(r *domain.CreateProductRequest) { r.Type = "yacht" }, "type"},
		{"zero sell value", func(r *domain.CreateProductRequest) { r.SellValue = 0 }, "sell_value"},
		{"negative sell value", func(r *domain.CreateProductRequest) { r.SellValue = -5 }, "sell_value"},
		{"zero original value", func(r *domain.CreateProductRequest) { r.OriginalValue = 0 }, "original_value"},
		{"sell above original", func(r *domain.CreateProductRequest) { r.SellValue = 2500 }, "sell_value"},
		{"past expiry", func(r *domain.CreateProductRequest) { r.ExpiryDate = time.Now().Add(-time.Hour) }, "expiry_date"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validListing(future)
			tc.mutate(&req)
			_, err := service.CreateProduct(context.Background(), uuid.New(), req)
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if validationErr.Field != tc.field {
				t.Errorf("expected field %q, got %q", tc.field, validationErr.Field)
			}
		})
	}
}

func TestCreateProductExpiryAtNowRejected(t *testing.T) {
	service, _, _ := newTestService(t)
	frozen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return frozen }

	req := validListing(frozen)
	_, err := service.CreateProduct(context.Background(), uuid.New(), req)
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) || validationErr.Field != "expiry_date" {
		t.Fatalf("expected expiry_date validation error, got %v", err)
	}

	req.ExpiryDate = frozen.Add(time.Second)
	if _, err := service.CreateProduct(context.Background(), uuid.New(), req); err != nil {
		t.Fatalf("expiry just after now should be accepted, got %v", err)
	}
}

func TestListProductTypes(t *testing.T) {
	service, _, _ := newTestService(t)
	types := service.ListProductTypes()
	if len(types) != len(testProductTypes) {
		t.Fatalf("expected %d types, got %d", len(testProductTypes), len(types))
	}
	types[0] = "tampered"
	if service.ListProductTypes()[0] == "tampered" {
		t.Error("ListProductTypes must return a copy of the catalog")
	}
}

func TestListProductsPagination(t *testing.T) {
	service, _, _ := newTestService(t)
	ownerID := uuid.New()
	for i := 0; i < 5; i++ {
		mustCreateProduct(t, service, ownerID)
	}

	page, err := service.ListProducts(context.Background(), ownerID, domain.Pagination{Skip: 0, Limit: 3})
	if err != nil {
		t.Fatalf("first page failed: %v", err)
	}
	if len(page) != 3 {
		t.Errorf("expected 3 products, got %d", len(page))
	}

	rest, err := service.ListProducts(context.Background(), ownerID, domain.Pagination{Skip: 3, Limit: 3})
	if err != nil {
		t.Fatalf("second page failed: %v", err)
	}
	if len(rest) != 2 {
		t.Errorf("expected 2 products, got %d", len(rest))
	}

	for _, page := range []domain.Pagination{
		{Skip: -1, Limit: 10},
		{Skip: 0, Limit: 0},
		{Skip: 0, Limit: 51},
	} {
		if _, err := service.ListProducts(context.Background(), ownerID, page); err == nil {
			t.Errorf("expected validation error for %+v", page)
		}
	}
}

func TestListMarketProductsExcludesOwnAndNonListed(t *testing.T) {
	service, _, _ := newTestService(t)
	seller := uuid.New()
	browser := uuid.New()

	mine := mustCreateProduct(t, service, browser)
	theirsListed := mustCreateProduct(t, service, seller)
	theirsVerified := mustCreateProduct(t, service, seller)
	completeSellerTrack(t, service, seller, theirsVerified.ID)

	page, err := service.ListMarketProducts(context.Background(), browser, domain.Pagination{Skip: 0, Limit: 10})
	if err != nil {
		t.Fatalf("ListMarketProducts failed: %v", err)
	}
	if len(page) != 1 {
		t.Fatalf("expected 1 market product, got %d", len(page))
	}
	if page[0].ID != theirsListed.ID {
		t.Errorf("unexpected product %s in market page", page[0].ID)
	}
	if page[0].ID == mine.ID {
		t.Error("own products must be excluded from the market")
	}
}

func TestListMarketProductsRateLimited(t *testing.T) {
	service, _, _ := newTestService(t)
	service.SetMarketRateLimiter(&stubLimiter{retryAfter: 42}, 2)
	actor := uuid.New()
	page := domain.Pagination{Skip: 0, Limit: 10}

	for i := 0; i < 2; i++ {
		if _, err := service.ListMarketProducts(context.Background(), actor, page); err != nil {
			t.Fatalf("request %d should be allowed: %v", i+1, err)
		}
	}
	_, err := service.ListMarketProducts(context.Background(), actor, page)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	var rateErr *RateLimitError
	if !errors.As(err, &rateErr) || rateErr.RetryAfterSeconds != 42 {
		t.Fatalf("expected the limiter's retry-after to be carried, got %v", err)
	}
}

func TestListMarketProductsLimiterOutageAllows(t *testing.T) {
	service, _, _ := newTestService(t)
	service.SetMarketRateLimiter(&stubLimiter{err: errors.New("redis down")}, 1)

	if _, err := service.ListMarketProducts(context.Background(), uuid.New(), domain.Pagination{Skip: 0, Limit: 10}); err != nil {
		t.Fatalf("limiter outage must not block requests: %v", err)
	}
}
