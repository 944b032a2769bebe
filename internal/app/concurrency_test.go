package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
)

// TestConcurrentBuyerAssignment races many parties for the same seller-verified
// product. Exactly one must win the assignment; everyone else must observe the
// conflict, not an invalid-state error and not a second assignment.
func TestConcurrentBuyerAssignment(t *testing.T) {
	service, _, _ := newTestService(t)
	ownerID := uuid.New()
	product := mustCreateProduct(t, service, ownerID)
	completeSellerTrack(t, service, ownerID, product.ID)

	const contenders = 16
	var wg sync.WaitGroup
	results := make(chan error, contenders)
	winners := make(chan uuid.UUID, contenders)

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buyerID := uuid.New()
			_, err := service.AddBuyerToProduct(context.Background(), buyerID, product.ID)
			if err == nil {
				winners <- buyerID
			}
			results <- err
		}()
	}
	wg.Wait()
	close(results)
	close(winners)

	succeeded, conflicted := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrBuyerAlreadyAssigned):
			conflicted++
		default:
			t.Errorf("unexpected error from contender: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one winner, got %d", succeeded)
	}
	if conflicted != contenders-1 {
		t.Fatalf("expected %d conflicts, got %d", contenders-1, conflicted)
	}

	winner := <-winners
	current, err := service.GetProduct(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if current.BuyerID == nil || *current.BuyerID != winner {
		t.Fatalf("stored buyer does not match the winner")
	}
}

// TestConcurrentKYCResubmission hammers the same (product, role) record from
// multiple goroutines; the record must end submitted with one of the written
// payloads, never a torn mix.
func TestConcurrentKYCResubmission(t *testing.T) {
	service, repo, _ := newTestService(t)
	ownerID := uuid.New()
	product := mustCreateProduct(t, service, ownerID)

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			req := validKYCRequest("seller")
			req.IBANNumber = i64(int64(1000 + n))
			if _, err := service.SubmitKYC(context.Background(), ownerID, product.ID, "seller", req); err != nil {
				t.Errorf("concurrent SubmitKYC failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	record, err := repo.FindKYCRecord(context.Background(), product.ID, "seller")
	if err != nil {
		t.Fatalf("FindKYCRecord failed: %v", err)
	}
	if record.IBANNumber == nil || *record.IBANNumber < 1000 || *record.IBANNumber >= 1000+writers {
		t.Fatalf("stored record does not match any writer: %+v", record.IBANNumber)
	}
}
