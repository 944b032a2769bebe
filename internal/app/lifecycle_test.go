package app

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/ChoudharyNavit22/degicredit-backend/internal/domain"
)

// TestFullTransactionLifecycle drives a product through the complete happy path:
// listed, seller verification, matching, buyer verification, settlement. Every
// intermediate status is asserted along the way.
func TestFullTransactionLifecycle(t *testing.T) {
	service, _, producer := newTestService(t)
	ownerID := uuid.New()
	buyerID := uuid.New()
	ctx := context.Background()

	product := mustCreateProduct(t, service, ownerID)
	assertStatus := func(want domain.ProductStatus) {
		t.Helper()
		current, err := service.GetProduct(ctx, product.ID)
		if err != nil {
			t.Fatalf("GetProduct failed: %v", err)
		}
		if current.Status != want {
			t.Fatalf("expected status %s, got %s", want, current.Status)
		}
	}
	assertStatus(domain.ProductListed)

	if _, err := service.SubmitKYC(ctx, ownerID, product.ID, domain.RoleSeller, validKYCRequest(domain.RoleSeller)); err != nil {
		t.Fatalf("seller SubmitKYC failed: %v", err)
	}
	assertStatus(domain.ProductSellerVerifying)

	if _, err := service.RegisterPaymentMethod(ctx, ownerID, product.ID, domain.RoleSeller, domain.RegisterPaymentMethodRequest{CardSource: "src_s"}); err != nil {
		t.Fatalf("seller payment failed: %v", err)
	}
	assertStatus(domain.ProductSellerVerified)

	matched, err := service.AddBuyerToProduct(ctx, buyerID, product.ID)
	if err != nil {
		t.Fatalf("AddBuyerToProduct failed: %v", err)
	}
	if matched.BuyerID == nil || *matched.BuyerID != buyerID {
		t.Fatalf("buyer not recorded on product")
	}
	assertStatus(domain.ProductMatched)

	if _, err := service.SubmitKYC(ctx, buyerID, product.ID, domain.RoleBuyer, validKYCRequest(domain.RoleBuyer)); err != nil {
		t.Fatalf("buyer SubmitKYC failed: %v", err)
	}
	assertStatus(domain.ProductBuyerVerifying)

	if _, err := service.RegisterPaymentMethod(ctx, buyerID, product.ID, domain.RoleBuyer, domain.RegisterPaymentMethodRequest{CardSource: "src_b"}); err != nil {
		t.Fatalf("buyer payment failed: %v", err)
	}
	assertStatus(domain.ProductBuyerVerified)

	settled, err := service.SettleTransaction(ctx, product.ID)
	if err != nil {
		t.Fatalf("SettleTransaction failed: %v", err)
	}
	if settled.Status != domain.ProductSettled {
		t.Fatalf("expected settled, got %s", settled.Status)
	}

	keys := producer.published()
	if keys[len(keys)-1] != domain.EventTransactionSettled {
		t.Errorf("expected final %q event, got %v", domain.EventTransactionSettled, keys)
	}

	// Settled is terminal: every further action is rejected.
	if _, err := service.SettleTransaction(ctx, product.ID); !errors.Is(err, ErrProductTerminal) {
		t.Errorf("repeat settlement: expected ErrProductTerminal, got %v", err)
	}
	if _, err := service.AddBuyerToProduct(ctx, uuid.New(), product.ID); !errors.Is(err, ErrProductTerminal) {
		t.Errorf("buyer add on settled: expected ErrProductTerminal, got %v", err)
	}
	if _, err := service.SubmitKYC(ctx, ownerID, product.ID, domain.RoleSeller, validKYCRequest(domain.RoleSeller)); !errors.Is(err, ErrProductTerminal) {
		t.Errorf("KYC on settled: expected ErrProductTerminal, got %v", err)
	}
}

func TestAddBuyerGuards(t *testing.T) {
	service, _, _ := newTestService(t)
	ownerID := uuid.New()
	buyerID := uuid.New()
	ctx := context.Background()

	product := mustCreateProduct(t, service, ownerID)

	// Matching requires the seller_verified status.
	if _, err := service.AddBuyerToProduct(ctx, buyerID, product.ID); !errors.Is(err, ErrInvalidProductState) {
		t.Errorf("expected ErrInvalidProductState before verification, got %v", err)
	}

	completeSellerTrack(t, service, ownerID, product.ID)

	// The owner cannot buy their own product.
	if _, err := service.AddBuyerToProduct(ctx, ownerID, product.ID); !errors.Is(err, ErrSelfPurchase) {
		t.Errorf("expected ErrSelfPurchase, got %v", err)
	}
	current, _ := service.GetProduct(ctx, product.ID)
	if current.Status != domain.ProductSellerVerified {
		t.Errorf("self purchase attempt must not change status, got %s", current.Status)
	}

	if _, err := service.AddBuyerToProduct(ctx, buyerID, product.ID); err != nil {
		t.Fatalf("AddBuyerToProduct failed: %v", err)
	}

	// The assignment is immutable once set.
	if _, err := service.AddBuyerToProduct(ctx, uuid.New(), product.ID); !errors.Is(err, ErrBuyerAlreadyAssigned) {
		t.Errorf("expected ErrBuyerAlreadyAssigned, got %v", err)
	}
	if _, err := service.AddBuyerToProduct(ctx, buyerID, product.ID); !errors.Is(err, ErrBuyerAlreadyAssigned) {
		t.Errorf("repeat by the same buyer: expected ErrBuyerAlreadyAssigned, got %v", err)
	}
}

func TestSettleRequiresBuyerVerified(t *testing.T) {
	service, _, _ := newTestService(t)
	ownerID := uuid.New()
	buyerID := uuid.New()
	ctx := context.Background()

	product := mustCreateProduct(t, service, ownerID)
	if _, err := service.SettleTransaction(ctx, product.ID); !errors.Is(err, ErrInvalidProductState) {
		t.Errorf("settle on listed: expected ErrInvalidProductState, got %v", err)
	}

	completeSellerTrack(t, service, ownerID, product.ID)
	if _, err := service.AddBuyerToProduct(ctx, buyerID, product.ID); err != nil {
		t.Fatalf("AddBuyerToProduct failed: %v", err)
	}
	if _, err := service.SettleTransaction(ctx, product.ID); !errors.Is(err, ErrInvalidProductState) {
		t.Errorf("settle on matched: expected ErrInvalidProductState, got %v", err)
	}
}

func TestSettleRequiresBothKYCComplete(t *testing.T) {
	service, repo, _ := newTestService(t)
	ownerID := uuid.New()
	buyerID := uuid.New()
	ctx := context.Background()

	product := mustCreateProduct(t, service, ownerID)
	completeSellerTrack(t, service, ownerID, product.ID)
	if _, err := service.AddBuyerToProduct(ctx, buyerID, product.ID); err != nil {
		t.Fatalf("AddBuyerToProduct failed: %v", err)
	}
	if _, err := service.SubmitKYC(ctx, buyerID, product.ID, domain.RoleBuyer, validKYCRequest(domain.RoleBuyer)); err != nil {
		t.Fatalf("buyer SubmitKYC failed: %v", err)
	}

	// Force the product to buyer_verified while the buyer KYC record is still
	// pending; settlement must refuse.
	if ok, err := repo.UpdateProductStatus(ctx, product.ID, domain.ProductBuyerVerifying, domain.ProductBuyerVerified); err != nil || !ok {
		t.Fatalf("setup transition failed: ok=%v err=%v", ok, err)
	}
	if _, err := service.SettleTransaction(ctx, product.ID); !errors.Is(err, ErrKYCIncomplete) {
		t.Fatalf("expected ErrKYCIncomplete, got %v", err)
	}
}
