/**
 * @description
 * This file defines the KYC (Know Your Customer) and payment-method domain models.
 * Each product carries up to two KYC records, one per verification role: the seller's
 * record gates the listing side of the transaction and the buyer's record gates the
 * purchasing side. A payment method can only be attached to a KYC record that has
 * already been submitted, and attaching it completes that record.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// KYCRole distinguishes the two independent verification tracks on a product.
type KYCRole string

const (
	RoleSeller KYCRole = "seller"
	RoleBuyer  KYCRole = "buyer"
)

// Valid reports whether the role is one of the two known verification tracks.
func (r KYCRole) Valid() bool {
	return r == RoleSeller || r == RoleBuyer
}

// KYCStatus is the verification progress of a single KYC record.
type KYCStatus string

const (
	KYCSubmitted      KYCStatus = "submitted"
	KYCPaymentPending KYCStatus = "payment_pending"
	KYCComplete       KYCStatus = "complete"
)

// KYCSectionA holds the structured identity fields collected on the KYC form.
type KYCSectionA struct {
	A1 string `json:"a1"`
	A2 int64  `json:"a2"`
	A3 string `json:"a3"`
	A4 string `json:"a4"`
	A5 bool   `json:"a5"`
	A6 string `json:"a6"`
	A7 bool   `json:"a7"`
}

// KYCRecord represents one party's verification record for one product. Records are
// keyed by (product_id, role); resubmission before completion overwrites the pending
// record rather than creating a new one.
type KYCRecord struct {
	ProductID uuid.UUID   `json:"product_id"`
	Role      KYCRole     `json:"role"`
	SectionA  KYCSectionA `json:"section_a"`
	Document  string      `json:"kyc_document"`
	Signature string      `json:"kyc_signature"`
	// IBANNumber is set on seller records, CassetteNumber on buyer records.
	IBANNumber     *int64    `json:"iban_number,omitempty"`
	CassetteNumber *int64    `json:"cassette_number,omitempty"`
	Status         KYCStatus `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SubmitKYCRequest is the DTO for incoming KYC submission API requests. The
// role-specific number is required: IBANNumber for sellers, CassetteNumber for buyers.
type SubmitKYCRequest struct {
	SectionA       KYCSectionA `json:"section_a"`
	Document       string      `json:"kyc_document"`
	Signature      string      `json:"kyc_signature"`
	IBANNumber     *int64      `json:"iban_number,omitempty"`
	CassetteNumber *int64      `json:"cassette_number,omitempty"`
}

// PaymentMethod is the funding-source registration attached to a completed KYC
// record. Exactly one exists per (product_id, role) and it is immutable once created.
type PaymentMethod struct {
	ProductID  uuid.UUID `json:"product_id"`
	Role       KYCRole   `json:"role"`
	CardSource string    `json:"card_source"`
	CreatedAt  time.Time `json:"created_at"`
}

// RegisterPaymentMethodRequest is the DTO for payment-method registration requests.
type RegisterPaymentMethodRequest struct {
	CardSource string `json:"card_source"`
}
