package storage

import (
	"context"
	"sync"
	"time"

	"github.com/fatali-fataliyev/budget_sync/internal/syncer"
)

// InMemoryStorage is a LocalCache kept entirely in process memory. It backs
// the engine tests and serves as a degraded mode when no MySQL instance is
// reachable; its contents do not survive a restart, which is acceptable for
// a cache that is rebuilt by every pull-down anyway.
type InMemoryStorage struct {
	mu           sync.Mutex
	nextLocalID  int64
	transactions []syncer.Transaction
	categories   []syncer.Category
	limits       []syncer.BudgetLimit
}

func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{nextLocalID: 1}
}

func (inMem *InMemoryStorage) GetStorageType() string {
	return "inmemory"
}

func (inMem *InMemoryStorage) ReplaceAll(ctx context.Context, ownerID string, snapshot syncer.Snapshot) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	inMem.purgeOwner(ownerID)
	for _, c := range snapshot.Categories {
		c.LocalID = inMem.nextID()
		inMem.categories = append(inMem.categories, c)
	}
	for _, t := range snapshot.Transactions {
		t.LocalID = inMem.nextID()
		inMem.transactions = append(inMem.transactions, t)
	}
	for _, l := range snapshot.Limits {
		l.LocalID = inMem.nextID()
		inMem.limits = append(inMem.limits, l)
	}
	return nil
}

// nextID must be called with mu held. Local ids are never reused.
func (inMem *InMemoryStorage) nextID() int64 {
	id := inMem.nextLocalID
	inMem.nextLocalID++
	return id
}

func (inMem *InMemoryStorage) purgeOwner(ownerID string) {
	var transactions []syncer.Transaction
	for _, t := range inMem.transactions {
		if t.OwnerID != ownerID {
			transactions = append(transactions, t)
		}
	}
	inMem.transactions = transactions

	var categories []syncer.Category
	for _, c := range inMem.categories {
		if c.OwnerID != ownerID {
			categories = append(categories, c)
		}
	}
	inMem.categories = categories

	var limits []syncer.BudgetLimit
	for _, l := range inMem.limits {
		if l.OwnerID != ownerID {
			limits = append(limits, l)
		}
	}
	inMem.limits = limits
}

func (inMem *InMemoryStorage) UpsertTransaction(ctx context.Context, t syncer.Transaction) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	for i, existing := range inMem.transactions {
		if existing.OwnerID == t.OwnerID && existing.RemoteID == t.RemoteID {
			t.LocalID = existing.LocalID
			inMem.transactions[i] = t
			return nil
		}
	}
	t.LocalID = inMem.nextID()
	inMem.transactions = append(inMem.transactions, t)
	return nil
}

func (inMem *InMemoryStorage) UpsertCategory(ctx context.Context, c syncer.Category) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	for i, existing := range inMem.categories {
		if existing.OwnerID == c.OwnerID && existing.RemoteID == c.RemoteID {
			c.LocalID = existing.LocalID
			inMem.categories[i] = c
			return nil
		}
	}
	c.LocalID = inMem.nextID()
	inMem.categories = append(inMem.categories, c)
	return nil
}

func (inMem *InMemoryStorage) UpsertLimit(ctx context.Context, l syncer.BudgetLimit) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	for i, existing := range inMem.limits {
		if existing.OwnerID == l.OwnerID && existing.RemoteID == l.RemoteID {
			l.LocalID = existing.LocalID
			inMem.limits[i] = l
			return nil
		}
	}
	l.LocalID = inMem.nextID()
	inMem.limits = append(inMem.limits, l)
	return nil
}

func (inMem *InMemoryStorage) DeleteTransactionByRemoteID(ctx context.Context, ownerID string, remoteID string) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	for i, t := range inMem.transactions {
		if t.OwnerID == ownerID && t.RemoteID == remoteID {
			inMem.transactions = append(inMem.transactions[:i], inMem.transactions[i+1:]...)
			return nil
		}
	}
	return nil
}

func (inMem *InMemoryStorage) DeleteCategoryByRemoteID(ctx context.Context, ownerID string, remoteID string) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	for i, c := range inMem.categories {
		if c.OwnerID == ownerID && c.RemoteID == remoteID {
			inMem.categories = append(inMem.categories[:i], inMem.categories[i+1:]...)
			return nil
		}
	}
	return nil
}

func (inMem *InMemoryStorage) DeleteLimitByRemoteID(ctx context.Context, ownerID string, remoteID string) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	for i, l := range inMem.limits {
		if l.OwnerID == ownerID && l.RemoteID == remoteID {
			inMem.limits = append(inMem.limits[:i], inMem.limits[i+1:]...)
			return nil
		}
	}
	return nil
}

func (inMem *InMemoryStorage) DeleteAllByOwner(ctx context.Context, ownerID string) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	inMem.purgeOwner(ownerID)
	return nil
}

func inRange(date, from, to time.Time) bool {
	if !from.IsZero() && date.Before(from) {
		return false
	}
	if !to.IsZero() && date.After(to) {
		return false
	}
	return true
}

func (inMem *InMemoryStorage) ListTransactions(ctx context.Context, ownerID string, from time.Time, to time.Time) ([]syncer.Transaction, error) {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	var result []syncer.Transaction
	for _, t := range inMem.transactions {
		if t.OwnerID == ownerID && inRange(t.Date, from, to) {
			result = append(result, t)
		}
	}
	return result, nil
}

func (inMem *InMemoryStorage) ListCategories(ctx context.Context, ownerID string) ([]syncer.Category, error) {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	var result []syncer.Category
	for _, c := range inMem.categories {
		if c.OwnerID == ownerID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (inMem *InMemoryStorage) ListLimits(ctx context.Context, ownerID string) ([]syncer.BudgetLimit, error) {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	var result []syncer.BudgetLimit
	for _, l := range inMem.limits {
		if l.OwnerID == ownerID {
			result = append(result, l)
		}
	}
	return result, nil
}

func (inMem *InMemoryStorage) SumByType(ctx context.Context, ownerID string, txType string, from time.Time, to time.Time) (float64, error) {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	var total float64
	for _, t := range inMem.transactions {
		if t.OwnerID == ownerID && t.Type == txType && inRange(t.Date, from, to) {
			total += t.Amount
		}
	}
	return total, nil
}

func (inMem *InMemoryStorage) SumByCategory(ctx context.Context, ownerID string, categoryID string, txType string, from time.Time, to time.Time) (float64, error) {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	var total float64
	for _, t := range inMem.transactions {
		if t.OwnerID == ownerID && t.CategoryID == categoryID && t.Type == txType && inRange(t.Date, from, to) {
			total += t.Amount
		}
	}
	return total, nil
}
