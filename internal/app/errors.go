/**
 * @description
 * This file defines the domain-guard errors returned by the application service.
 * Handlers dispatch on these with errors.Is / errors.As to pick the transport
 * status code; none of them are retried inside the core.
 */

package app

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidProductState is returned when an action is attempted while the
	// product is not in the phase the action requires.
	ErrInvalidProductState = errors.New("product is not in the required state for this action")

	// ErrProductTerminal is returned for any mutation against a settled, expired
	// or cancelled product.
	ErrProductTerminal = errors.New("product is in a terminal state")

	// ErrBuyerAlreadyAssigned is returned when a buyer-assignment race is lost or
	// a buyer is already attached.
	ErrBuyerAlreadyAssigned = errors.New("a buyer is already assigned to this product")

	// ErrSelfPurchase is returned when the owner attempts to buy their own product.
	ErrSelfPurchase = errors.New("owner cannot be assigned as buyer of their own product")

	// ErrKYCNotSubmitted is returned when payment registration is attempted before
	// any KYC submission for the (product, role) pair.
	ErrKYCNotSubmitted = errors.New("kyc record has not been submitted")

	// ErrKYCAlreadyComplete is returned when a completed KYC record is resubmitted
	// or its payment step is repeated.
	ErrKYCAlreadyComplete = errors.New("kyc record is already complete")

	// ErrKYCIncomplete is returned when settlement is attempted before both
	// verification tracks are complete.
	ErrKYCIncomplete = errors.New("both kyc records must be complete before settlement")

	// ErrNotParticipant is returned when the acting party is neither the owner nor
	// the assigned buyer in the role the action requires.
	ErrNotParticipant = errors.New("acting party is not a participant in the required role")

	// ErrRateLimited is returned when the caller exceeded the request budget for a
	// rate-limited operation.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// RateLimitError wraps ErrRateLimited with the window remainder so the
// transport layer can tell the caller when to retry.
type RateLimitError struct {
	RetryAfterSeconds int
}

func (e *RateLimitError) Error() string {
	return ErrRateLimited.Error()
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// ValidationError reports malformed input along with the offending field so the
// caller can render a precise message.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalidField(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
