package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ChoudharyNavit22/degicredit-backend/internal/domain"
)

// TestLazyExpiryOnAction verifies that an action against a product whose expiry
// date has passed transitions it to expired and rejects the action, without
// waiting for the periodic sweep.
func TestLazyExpiryOnAction(t *testing.T) {
	service, _, producer := newTestService(t)
	ownerID := uuid.New()
	ctx := context.Background()

	clock := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return clock }

	req := validListing(clock.Add(time.Hour))
	product, err := service.CreateProduct(ctx, ownerID, req)
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}

	// Advance the clock exactly to the expiry instant; the boundary is inclusive.
	clock = clock.Add(time.Hour)

	_, err = service.SubmitKYC(ctx, ownerID, product.ID, domain.RoleSeller, validKYCRequest(domain.RoleSeller))
	if !errors.Is(err, ErrProductTerminal) {
		t.Fatalf("expected ErrProductTerminal at the expiry instant, got %v", err)
	}

	current, err := service.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if current.Status != domain.ProductExpired {
		t.Fatalf("expected expired, got %s", current.Status)
	}

	keys := producer.published()
	if keys[len(keys)-1] != domain.EventProductExpired {
		t.Errorf("expected %q event, got %v", domain.EventProductExpired, keys)
	}

	// Expired is terminal; later actions keep failing and the status stays put.
	if _, err := service.AddBuyerToProduct(ctx, uuid.New(), product.ID); !errors.Is(err, ErrProductTerminal) {
		t.Errorf("expected ErrProductTerminal on expired product, got %v", err)
	}
}

// TestExpireDueProducts verifies the sweep path: every non-terminal product past
// its expiry date is transitioned, terminal and live products are left alone.
func TestExpireDueProducts(t *testing.T) {
	service, _, _ := newTestService(t)
	ownerID := uuid.New()
	buyerID := uuid.New()
	ctx := context.Background()

	clock := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return clock }

	makeProduct := func(ttl time.Duration) *domain.Product {
		t.Helper()
		product, err := service.CreateProduct(ctx, ownerID, validListing(clock.Add(ttl)))
		if err != nil {
			t.Fatalf("CreateProduct failed: %v", err)
		}
		return product
	}

	dueListed := makeProduct(time.Hour)
	dueMidFlight := makeProduct(time.Hour)
	alive := makeProduct(48 * time.Hour)
	settled := makeProduct(time.Hour)

	// Take one product into the verification flow and one all the way to
	// settlement before the clock passes their expiry dates.
	completeSellerTrack(t, service, ownerID, dueMidFlight.ID)

	completeSellerTrack(t, service, ownerID, settled.ID)
	if _, err := service.AddBuyerToProduct(ctx, buyerID, settled.ID); err != nil {
		t.Fatalf("AddBuyerToProduct failed: %v", err)
	}
	completeBuyerTrack(t, service, buyerID, settled.ID)
	if _, err := service.SettleTransaction(ctx, settled.ID); err != nil {
		t.Fatalf("SettleTransaction failed: %v", err)
	}

	clock = clock.Add(2 * time.Hour)

	expired, err := service.ExpireDueProducts(ctx)
	if err != nil {
		t.Fatalf("ExpireDueProducts failed: %v", err)
	}
	if expired != 2 {
		t.Fatalf("expected 2 products expired, got %d", expired)
	}

	wantStatus := map[uuid.UUID]domain.ProductStatus{
		dueListed.ID:    domain.ProductExpired,
		dueMidFlight.ID: domain.ProductExpired,
		alive.ID:        domain.ProductListed,
		settled.ID:      domain.ProductSettled,
	}
	for id, want := range wantStatus {
		current, err := service.GetProduct(ctx, id)
		if err != nil {
			t.Fatalf("GetProduct failed: %v", err)
		}
		if current.Status != want {
			t.Errorf("product %s: expected %s, got %s", id, want, current.Status)
		}
	}

	// A second sweep finds nothing left to do.
	expired, err = service.ExpireDueProducts(ctx)
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if expired != 0 {
		t.Errorf("second sweep expected 0, got %d", expired)
	}
}
