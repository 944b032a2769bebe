/**
 * @description
 * This file defines the event payloads published to RabbitMQ whenever the
 * transaction state machine commits a product status transition. Downstream
 * services (notifications, analytics) consume these to react to lifecycle
 * changes without polling the database.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Routing keys for product lifecycle events.
const (
	EventProductListed       = "product.listed"
	EventProductStatusChange = "product.status.changed"
	EventTransactionSettled  = "transaction.settled"
	EventProductExpired      = "product.expired"
)

// ProductEvent is the message payload published when a product transitions
// between lifecycle statuses.
type ProductEvent struct {
	ProductID  uuid.UUID     `json:"product_id"`
	OwnerID    uuid.UUID     `json:"owner_id"`
	BuyerID    *uuid.UUID    `json:"buyer_id,omitempty"`
	FromStatus ProductStatus `json:"from_status,omitempty"`
	Status     ProductStatus `json:"status"`
	OccurredAt time.Time     `json:"occurred_at"`
}
