/**
 * @description
 * This file contains the KYC submission and payment-method registration logic.
 * Both verification tracks (seller and buyer) share the same flow: the party in
 * the required role submits identity details for the product, then registers a
 * funding source, which completes the KYC record and advances the product's
 * lifecycle status.
 *
 * All mutations run under the product's critical section so that the phase
 * checks in the transition table are never evaluated against stale state.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ChoudharyNavit22/degicredit-backend/internal/domain"
	"github.com/ChoudharyNavit22/degicredit-backend/internal/store"
)

// SubmitKYC stores or overwrites the pending KYC record for (product, role) and
// advances the product into the corresponding verifying phase. Resubmission
// before completion is idempotent-by-latest-write; a completed record is
// immutable.
func (s *Service) SubmitKYC(ctx context.Context, actorID, productID uuid.UUID, role domain.KYCRole, req domain.SubmitKYCRequest) (*domain.KYCRecord, error) {
	if !role.Valid() {
		return nil, invalidField("role", "must be seller or buyer")
	}
	if err := validateKYCPayload(role, req); err != nil {
		return nil, err
	}

	var record *domain.KYCRecord
	err := s.locks.withProduct(productID, func() error {
		product, err := s.loadActionableProduct(ctx, productID)
		if err != nil {
			return err
		}
		if err := s.requireRole(product, role, actorID); err != nil {
			return err
		}

		var verifying domain.ProductStatus
		switch role {
		case domain.RoleSeller:
			if product.Status != domain.ProductListed && product.Status != domain.ProductSellerVerifying {
				return ErrInvalidProductState
			}
			verifying = domain.ProductSellerVerifying
		case domain.RoleBuyer:
			if product.Status != domain.ProductMatched && product.Status != domain.ProductBuyerVerifying {
				return ErrInvalidProductState
			}
			verifying = domain.ProductBuyerVerifying
		}

		record = &domain.KYCRecord{
			ProductID:      productID,
			Role:           role,
			SectionA:       req.SectionA,
			Document:       strings.TrimSpace(req.Document),
			Signature:      strings.TrimSpace(req.Signature),
			IBANNumber:     req.IBANNumber,
			CassetteNumber: req.CassetteNumber,
			Status:         domain.KYCSubmitted,
		}
		if err := s.repo.UpsertKYCRecord(ctx, record); err != nil {
			if errors.Is(err, store.ErrKYCRecordImmutable) {
				return ErrKYCAlreadyComplete
			}
			return err
		}

		// First submission advances the product into the verifying phase; a
		// resubmission leaves the status where it is.
		if product.Status != verifying {
			ok, err := s.repo.UpdateProductStatus(ctx, productID, product.Status, verifying)
			if err != nil {
				return err
			}
			if ok {
				from := product.Status
				product.Status = verifying
				s.publishEvent(ctx, domain.EventProductStatusChange, product, from)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// GetKYC returns the KYC record for (product, role). Only the product's
// participants may read it.
func (s *Service) GetKYC(ctx context.Context, actorID, productID uuid.UUID, role domain.KYCRole) (*domain.KYCRecord, error) {
	if !role.Valid() {
		return nil, invalidField("role", "must be seller or buyer")
	}
	product, err := s.repo.FindProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if actorID != product.OwnerID {
		if err := s.requireRole(product, role, actorID); err != nil {
			return nil, err
		}
	}
	return s.repo.FindKYCRecord(ctx, productID, role)
}

// RegisterPaymentMethod attaches a funding source to a submitted KYC record,
// marking it complete and advancing the product out of its verifying phase.
func (s *Service) RegisterPaymentMethod(ctx context.Context, actorID, productID uuid.UUID, role domain.KYCRole, req domain.RegisterPaymentMethodRequest) (*domain.Product, error) {
	if !role.Valid() {
		return nil, invalidField("role", "must be seller or buyer")
	}
	cardSource := strings.TrimSpace(req.CardSource)
	if cardSource == "" {
		return nil, invalidField("card_source", "must not be empty")
	}

	var product *domain.Product
	err := s.locks.withProduct(productID, func() error {
		var err error
		product, err = s.loadActionableProduct(ctx, productID)
		if err != nil {
			return err
		}
		if err := s.requireRole(product, role, actorID); err != nil {
			return err
		}

		var verifying, verified domain.ProductStatus
		switch role {
		case domain.RoleSeller:
			verifying, verified = domain.ProductSellerVerifying, domain.ProductSellerVerified
		case domain.RoleBuyer:
			verifying, verified = domain.ProductBuyerVerifying, domain.ProductBuyerVerified
		}
		if product.Status != verifying {
			return ErrInvalidProductState
		}

		record, err := s.repo.FindKYCRecord(ctx, productID, role)
		if err != nil {
			if errors.Is(err, store.ErrKYCRecordNotFound) {
				return ErrKYCNotSubmitted
			}
			return err
		}
		if record.Status == domain.KYCComplete {
			return ErrKYCAlreadyComplete
		}

		if s.payments != nil {
			if _, err := s.payments.AuthorizeCardSource(ctx, cardSource); err != nil {
				return fmt.Errorf("card source authorization failed: %w", err)
			}
		}

		// Completing the record, storing the payment method and advancing the
		// product status commit as one repository transaction, so a failure at
		// any point leaves the record pending and the retry path open.
		payment := &domain.PaymentMethod{ProductID: productID, Role: role, CardSource: cardSource}
		ok, err := s.repo.CompleteKYCPayment(ctx, productID, role, payment, verifying, verified)
		if err != nil {
			if errors.Is(err, store.ErrPaymentMethodExists) {
				return ErrKYCAlreadyComplete
			}
			return err
		}
		if !ok {
			// A precondition no longer held; the record or status changed
			// underneath us on another instance.
			return ErrInvalidProductState
		}

		from := product.Status
		product.Status = verified
		s.publishEvent(ctx, domain.EventProductStatusChange, product, from)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// requireRole checks that the acting party holds the given role on the product:
// the owner for the seller track, the assigned buyer for the buyer track.
func (s *Service) requireRole(product *domain.Product, role domain.KYCRole, actorID uuid.UUID) error {
	switch role {
	case domain.RoleSeller:
		if actorID != product.OwnerID {
			return ErrNotParticipant
		}
	case domain.RoleBuyer:
		if product.BuyerID == nil || actorID != *product.BuyerID {
			return ErrNotParticipant
		}
	}
	return nil
}

func validateKYCPayload(role domain.KYCRole, req domain.SubmitKYCRequest) error {
	if strings.TrimSpace(req.Document) == "" {
		return invalidField("kyc_document", "must not be empty")
	}
	if strings.TrimSpace(req.Signature) == "" {
		return invalidField("kyc_signature", "must not be empty")
	}
	sectionFields := map[string]string{
		"section_a.a1": req.SectionA.A1,
		"section_a.a3": req.SectionA.A3,
		"section_a.a4": req.SectionA.A4,
		"section_a.a6": req.SectionA.A6,
	}
	for field, value := range sectionFields {
		if strings.TrimSpace(value) == "" {
			return invalidField(field, "must not be empty")
		}
	}
	switch role {
	case domain.RoleSeller:
		if req.IBANNumber == nil || *req.IBANNumber <= 0 {
			return invalidField("iban_number", "is required for the seller role")
		}
	case domain.RoleBuyer:
		if req.CassetteNumber == nil || *req.CassetteNumber <= 0 {
			return invalidField("cassette_number", "is required for the buyer role")
		}
	}
	return nil
}
