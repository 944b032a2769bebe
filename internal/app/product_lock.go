/**
 * @description
 * This file implements the per-product critical section used by the transaction
 * state machine. Every state transition on a given product runs under that
 * product's mutex, so a guard check and the write it protects are never split by
 * a concurrent action on the same product. Actions on different products do not
 * contend.
 */

package app

import (
	"sync"

	"github.com/google/uuid"
)

// productLocks hands out one mutex per product id. Entries are never evicted;
// the footprint is one mutex per product ever touched by this process, which is
// acceptable for the expected working set.
type productLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newProductLocks() *productLocks {
	return &productLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (pl *productLocks) get(productID uuid.UUID) *sync.Mutex {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	l, ok := pl.locks[productID]
	if !ok {
		l = &sync.Mutex{}
		pl.locks[productID] = l
	}
	return l
}

// withProduct runs fn while holding the product's mutex.
func (pl *productLocks) withProduct(productID uuid.UUID, fn func() error) error {
	l := pl.get(productID)
	l.Lock()
	defer l.Unlock()
	return fn()
}
