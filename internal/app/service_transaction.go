/**
 * @description
 * This file contains the transaction state machine's matching, settlement and
 * expiry logic. Buyer assignment is the system's only compare-and-swap-style
 * contention point: of two concurrent assignment attempts against the same
 * product, exactly one wins and the other receives a conflict error.
 *
 * Expiry is evaluated lazily on every transition attempt and additionally by a
 * periodic sweep (see sweeper.go); once expiry is observed by either path, no
 * further transition is accepted.
 */

package app

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ChoudharyNavit22/degicredit-backend/internal/domain"
	"github.com/ChoudharyNavit22/degicredit-backend/internal/store"
)

// AddBuyerToProduct assigns the acting party as the buyer of a seller-verified
// product. First writer wins; the assignment is immutable once set.
func (s *Service) AddBuyerToProduct(ctx context.Context, buyerID, productID uuid.UUID) (*domain.Product, error) {
	var product *domain.Product
	err := s.locks.withProduct(productID, func() error {
		var err error
		product, err = s.loadActionableProduct(ctx, productID)
		if err != nil {
			return err
		}
		if buyerID == product.OwnerID {
			return ErrSelfPurchase
		}
		if product.BuyerID != nil {
			return ErrBuyerAlreadyAssigned
		}
		if product.Status != domain.ProductSellerVerified {
			return ErrInvalidProductState
		}

		ok, err := s.repo.AssignBuyer(ctx, productID, buyerID)
		if err != nil {
			return err
		}
		if !ok {
			// The conditional update did not apply; report conflict if a buyer
			// beat us to the row, otherwise the state changed underneath us.
			current, findErr := s.repo.FindProductByID(ctx, productID)
			if findErr == nil && current.BuyerID != nil {
				return ErrBuyerAlreadyAssigned
			}
			return ErrInvalidProductState
		}

		from := product.Status
		id := buyerID
		product.BuyerID = &id
		product.Status = domain.ProductMatched
		s.publishEvent(ctx, domain.EventProductStatusChange, product, from)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// SettleTransaction finalizes a buyer-verified product. It is triggered by the
// external settlement system through the internal API and succeeds only when
// both verification tracks are complete.
func (s *Service) SettleTransaction(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	var product *domain.Product
	err := s.locks.withProduct(productID, func() error {
		var err error
		product, err = s.loadActionableProduct(ctx, productID)
		if err != nil {
			return err
		}
		if product.Status != domain.ProductBuyerVerified {
			return ErrInvalidProductState
		}

		for _, role := range []domain.KYCRole{domain.RoleSeller, domain.RoleBuyer} {
			record, err := s.repo.FindKYCRecord(ctx, productID, role)
			if err != nil {
				if errors.Is(err, store.ErrKYCRecordNotFound) {
					return ErrKYCIncomplete
				}
				return err
			}
			if record.Status != domain.KYCComplete {
				return ErrKYCIncomplete
			}
		}

		ok, err := s.repo.UpdateProductStatus(ctx, productID, domain.ProductBuyerVerified, domain.ProductSettled)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidProductState
		}

		from := product.Status
		product.Status = domain.ProductSettled
		s.publishEvent(ctx, domain.EventTransactionSettled, product, from)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// GetProduct returns a product by id without mutating it.
func (s *Service) GetProduct(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	return s.repo.FindProductByID(ctx, productID)
}

// ExpireDueProducts marks every non-terminal product whose expiry date has been
// reached as expired. It returns the number of products transitioned and is
// called by the periodic sweep.
func (s *Service) ExpireDueProducts(ctx context.Context) (int, error) {
	candidates, err := s.repo.ListExpiredCandidates(ctx, s.now())
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range candidates {
		candidate := candidates[i]
		err := s.locks.withProduct(candidate.ID, func() error {
			product, err := s.repo.FindProductByID(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if product.Status.IsTerminal() || !product.ExpiredAt(s.now()) {
				return nil
			}
			ok, err := s.repo.MarkProductExpired(ctx, product.ID)
			if err != nil {
				return err
			}
			if ok {
				from := product.Status
				product.Status = domain.ProductExpired
				s.publishEvent(ctx, domain.EventProductExpired, product, from)
				expired++
			}
			return nil
		})
		if err != nil {
			return expired, err
		}
	}
	return expired, nil
}

// loadActionableProduct loads a product for mutation under the caller-held
// product lock. Terminal products are rejected, and a product whose expiry date
// has passed is transitioned to expired before being rejected, so the lazy path
// and the sweep observe the same rule.
func (s *Service) loadActionableProduct(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	product, err := s.repo.FindProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Status.IsTerminal() {
		return nil, ErrProductTerminal
	}
	if product.ExpiredAt(s.now()) {
		ok, err := s.repo.MarkProductExpired(ctx, product.ID)
		if err != nil {
			return nil, err
		}
		if ok {
			from := product.Status
			product.Status = domain.ProductExpired
			s.publishEvent(ctx, domain.EventProductExpired, product, from)
		}
		return nil, ErrProductTerminal
	}
	return product, nil
}
