/**
 * @description
 * This file contains the HTTP handlers for the verification side of the
 * transaction workflow: KYC submission and payment-method registration for both
 * roles, buyer assignment, and the internal settlement trigger.
 */

package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ChoudharyNavit22/degicredit-backend/internal/domain"
)

func productIDFromURL(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

// SubmitSellerKYCHandler handles seller KYC submissions for a product.
func (h *ProductHandlers) SubmitSellerKYCHandler(w http.ResponseWriter, r *http.Request) {
	h.submitKYC(w, r, domain.RoleSeller)
}

// SubmitBuyerKYCHandler handles buyer KYC submissions for a matched transaction.
func (h *ProductHandlers) SubmitBuyerKYCHandler(w http.ResponseWriter, r *http.Request) {
	h.submitKYC(w, r, domain.RoleBuyer)
}

func (h *ProductHandlers) submitKYC(w http.ResponseWriter, r *http.Request, role domain.KYCRole) {
	actorID, ok := GetPartyID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get party id from context")
		return
	}
	productID, err := productIDFromURL(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid product id")
		return
	}

	var req domain.SubmitKYCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=submit_kyc outcome=reject reason=invalid_json role=%s err=%v", role, err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	record, err := h.service.SubmitKYC(r.Context(), actorID, productID, role, req)
	if err != nil {
		log.Printf("level=warn component=api endpoint=submit_kyc outcome=failed product_id=%s role=%s err=%v", productID, role, err)
		h.writeServiceError(w, err)
		return
	}

	log.Printf("level=info component=api endpoint=submit_kyc outcome=accepted product_id=%s role=%s", productID, role)
	h.writeJSON(w, http.StatusOK, record)
}

// RegisterSellerPaymentHandler attaches the seller's funding source.
func (h *ProductHandlers) RegisterSellerPaymentHandler(w http.ResponseWriter, r *http.Request) {
	h.registerPayment(w, r, domain.RoleSeller)
}

// RegisterBuyerPaymentHandler attaches the buyer's funding source.
func (h *ProductHandlers) RegisterBuyerPaymentHandler(w http.ResponseWriter, r *http.Request) {
	h.registerPayment(w, r, domain.RoleBuyer)
}

func (h *ProductHandlers) registerPayment(w http.ResponseWriter, r *http.Request, role domain.KYCRole) {
	actorID, ok := GetPartyID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get party id from context")
		return
	}
	productID, err := productIDFromURL(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid product id")
		return
	}

	var req domain.RegisterPaymentMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=register_payment outcome=reject reason=invalid_json role=%s err=%v", role, err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	product, err := h.service.RegisterPaymentMethod(r.Context(), actorID, productID, role, req)
	if err != nil {
		log.Printf("level=warn component=api endpoint=register_payment outcome=failed product_id=%s role=%s err=%v", productID, role, err)
		h.writeServiceError(w, err)
		return
	}

	log.Printf("level=info component=api endpoint=register_payment outcome=accepted product_id=%s role=%s status=%s", productID, role, product.Status)
	h.writeJSON(w, http.StatusOK, product)
}

// AddBuyerHandler assigns the caller as buyer of a seller-verified product.
func (h *ProductHandlers) AddBuyerHandler(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := GetPartyID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get party id from context")
		return
	}
	productID, err := productIDFromURL(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid product id")
		return
	}

	product, err := h.service.AddBuyerToProduct(r.Context(), buyerID, productID)
	if err != nil {
		log.Printf("level=warn component=api endpoint=add_buyer outcome=failed product_id=%s buyer_id=%s err=%v", productID, buyerID, err)
		h.writeServiceError(w, err)
		return
	}

	log.Printf("level=info component=api endpoint=add_buyer outcome=matched product_id=%s buyer_id=%s", productID, buyerID)
	h.writeJSON(w, http.StatusOK, product)
}

// GetKYCHandler returns the KYC record for a (product, role) pair to the
// product's participants.
func (h *ProductHandlers) GetKYCHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := GetPartyID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get party id from context")
		return
	}
	productID, err := productIDFromURL(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid product id")
		return
	}
	role := domain.KYCRole(chi.URLParam(r, "role"))

	record, err := h.service.GetKYC(r.Context(), actorID, productID, role)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, record)
}

// SettleTransactionHandler finalizes a buyer-verified transaction. It is only
// reachable through the internal router group.
func (h *ProductHandlers) SettleTransactionHandler(w http.ResponseWriter, r *http.Request) {
	productID, err := productIDFromURL(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid product id")
		return
	}

	product, err := h.service.SettleTransaction(r.Context(), productID)
	if err != nil {
		log.Printf("level=warn component=api endpoint=settle outcome=failed product_id=%s err=%v", productID, err)
		h.writeServiceError(w, err)
		return
	}

	log.Printf("level=info component=api endpoint=settle outcome=settled product_id=%s", productID)
	h.writeJSON(w, http.StatusOK, product)
}
