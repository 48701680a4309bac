package repository

import (
	"context"
	"iter"
	"slices"
	"sync"

	appErrors "github.com/unclebandit/customer-service/internal/errors"
	"github.com/unclebandit/customer-service/internal/model"
)

// MemoryCustomerRepository keeps customers in process memory, in insertion order.
// Records are copied on the way in and out so callers never share state with it.
type MemoryCustomerRepository struct {
	mu        sync.RWMutex
	customers map[string]model.Customer
	order     []string
}

func NewMemoryCustomerRepository() *MemoryCustomerRepository {
	return &MemoryCustomerRepository{
		customers: make(map[string]model.Customer),
	}
}

func (r *MemoryCustomerRepository) Create(_ context.Context, c *model.Customer) (*model.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.customers[c.ID]; exists {
		return nil, appErrors.NewDuplicateCustomer(c.ID)
	}
	r.customers[c.ID] = c.Clone()
	r.order = append(r.order, c.ID)

	saved := c.Clone()
	return &saved, nil
}

func (r *MemoryCustomerRepository) GetByID(_ context.Context, id string) (*model.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.customers[id]
	if !ok {
		return nil, nil
	}
	found := c.Clone()
	return &found, nil
}

// ListAll iterates over a snapshot taken when iteration starts.
func (r *MemoryCustomerRepository) ListAll(ctx context.Context) iter.Seq2[*model.Customer, error] {
	return func(yield func(*model.Customer, error) bool) {
		r.mu.RLock()
		snapshot := make([]model.Customer, 0, len(r.order))
		for _, id := range r.order {
			snapshot = append(snapshot, r.customers[id].Clone())
		}
		r.mu.RUnlock()

		for i := range snapshot {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(&snapshot[i], nil) {
				return
			}
		}
	}
}

func (r *MemoryCustomerRepository) Update(_ context.Context, c *model.Customer) (*model.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.customers[c.ID]; !ok {
		return nil, nil
	}
	r.customers[c.ID] = c.Clone()

	updated := c.Clone()
	return &updated, nil
}

func (r *MemoryCustomerRepository) Delete(_ context.Context, id string) (*model.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.customers[id]
	if !ok {
		return nil, nil
	}
	delete(r.customers, id)
	r.order = slices.DeleteFunc(r.order, func(existing string) bool { return existing == id })

	return &c, nil
}

func (r *MemoryCustomerRepository) Ping(context.Context) error {
	return nil
}

var _ CustomerRepositoryInterface = (*MemoryCustomerRepository)(nil)
