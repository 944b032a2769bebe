/**
 * @description
 * This file contains the HTTP handlers for the product catalog and market query
 * endpoints. Handlers are responsible for parsing incoming requests, calling the
 * appropriate methods on the application service, and writing the HTTP response.
 * They act as the bridge between the web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http, strconv: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/ChoudharyNavit22/degicredit-backend/internal/app"
	"github.com/ChoudharyNavit22/degicredit-backend/internal/domain"
	"github.com/ChoudharyNavit22/degicredit-backend/internal/store"
)

// ProductHandlers holds the application service that handlers will use.
type ProductHandlers struct {
	service *app.Service
}

// NewProductHandlers creates a new instance of ProductHandlers.
func NewProductHandlers(service *app.Service) *ProductHandlers {
	return &ProductHandlers{service: service}
}

func (h *ProductHandlers) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("level=error component=api msg=\"response encode failed\" err=%v", err)
	}
}

func (h *ProductHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError translates core failures into transport status codes. Every
// domain guard maps to a distinct, stable status so clients can render precise
// messages.
func (h *ProductHandlers) writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *app.ValidationError
	switch {
	case errors.As(err, &validationErr):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": validationErr.Error(),
			"field": validationErr.Field,
		})
	case errors.Is(err, store.ErrProductNotFound),
		errors.Is(err, store.ErrKYCRecordNotFound),
		errors.Is(err, store.ErrPaymentMethodNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrSelfPurchase):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrBuyerAlreadyAssigned):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrInvalidProductState),
		errors.Is(err, app.ErrKYCNotSubmitted),
		errors.Is(err, app.ErrKYCAlreadyComplete),
		errors.Is(err, app.ErrKYCIncomplete):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrProductTerminal):
		h.writeError(w, http.StatusGone, err.Error())
	case errors.Is(err, app.ErrNotParticipant):
		h.writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, app.ErrRateLimited):
		var rateErr *app.RateLimitError
		if errors.As(err, &rateErr) && rateErr.RetryAfterSeconds > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(rateErr.RetryAfterSeconds))
		}
		h.writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		log.Printf("level=error component=api msg=\"unhandled service error\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// parsePagination extracts the mandatory skip/limit query parameters. Failures
// are reported as ValidationError so pagination 400s carry the offending field,
// same as the service's own validation responses.
func parsePagination(r *http.Request) (domain.Pagination, error) {
	skipStr := r.URL.Query().Get("skip")
	limitStr := r.URL.Query().Get("limit")
	if skipStr == "" {
		return domain.Pagination{}, &app.ValidationError{Field: "skip", Reason: "query parameter is required"}
	}
	if limitStr == "" {
		return domain.Pagination{}, &app.ValidationError{Field: "limit", Reason: "query parameter is required"}
	}
	skip, err := strconv.Atoi(skipStr)
	if err != nil {
		return domain.Pagination{}, &app.ValidationError{Field: "skip", Reason: "must be an integer"}
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return domain.Pagination{}, &app.ValidationError{Field: "limit", Reason: "must be an integer"}
	}
	return domain.Pagination{Skip: skip, Limit: limit}, nil
}

// CreateProductHandler handles requests to list a new product for sale.
func (h *ProductHandlers) CreateProductHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := GetPartyID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get party id from context")
		return
	}

	var req domain.CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=create_product outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	product, err := h.service.CreateProduct(r.Context(), ownerID, req)
	if err != nil {
		log.Printf("level=warn component=api endpoint=create_product outcome=failed owner_id=%s err=%v", ownerID, err)
		h.writeServiceError(w, err)
		return
	}

	log.Printf("level=info component=api endpoint=create_product outcome=created product_id=%s owner_id=%s", product.ID, ownerID)
	h.writeJSON(w, http.StatusCreated, product)
}

// ListProductsHandler returns a page of the caller's own products.
func (h *ProductHandlers) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := GetPartyID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get party id from context")
		return
	}

	page, err := parsePagination(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	products, err := h.service.ListProducts(r.Context(), ownerID, page)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, products)
}

// ListProductTypesHandler returns the static catalog of allowed product types.
func (h *ProductHandlers) ListProductTypesHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string][]string{"types": h.service.ListProductTypes()})
}

// ListMarketProductsHandler returns a page of listed products from other sellers.
func (h *ProductHandlers) ListMarketProductsHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := GetPartyID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get party id from context")
		return
	}

	page, err := parsePagination(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	products, err := h.service.ListMarketProducts(r.Context(), actorID, page)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, products)
}
