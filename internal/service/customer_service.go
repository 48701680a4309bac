// internal/service/customer_service.go
package service

import (
	"context"
	"fmt"
	"iter"

	"github.com/google/uuid"
	"go.nhat.io/clock"
	"go.uber.org/zap"

	"github.com/unclebandit/customer-service/internal/model"
	"github.com/unclebandit/customer-service/internal/queue"
	"github.com/unclebandit/customer-service/internal/repository"
)

// CustomerService is the customer store seen by the HTTP layer. Absence is
// reported as (nil, nil); any non-nil error is a failure.
type CustomerService struct {
	CustomerRepo repository.CustomerRepositoryInterface
	Queue        queue.Queue // optional
	Logger       *zap.Logger
	Clock        clock.Clock
	NewID        func() string
}

func NewCustomerService(repo repository.CustomerRepositoryInterface, q queue.Queue, logger *zap.Logger) *CustomerService {
	return &CustomerService{
		CustomerRepo: repo,
		Queue:        q,
		Logger:       logger,
		Clock:        clock.New(),
		NewID:        uuid.NewString,
	}
}

// Create stores c, generating an id when it has none.
func (s *CustomerService) Create(ctx context.Context, c model.Customer) (*model.Customer, error) {
	in := c.Clone()
	if in.ID == "" {
		in.ID = s.NewID()
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	saved, err := s.CustomerRepo.Create(ctx, &in)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}

	s.publish(model.CustomerCreated, saved.ID, saved)
	return saved, nil
}

func (s *CustomerService) FindByID(ctx context.Context, id string) (*model.Customer, error) {
	return s.CustomerRepo.GetByID(ctx, id)
}

func (s *CustomerService) FindAll(ctx context.Context) iter.Seq2[*model.Customer, error] {
	return s.CustomerRepo.ListAll(ctx)
}

// Update replaces the payload of customer id with c's payload. c.ID is ignored.
func (s *CustomerService) Update(ctx context.Context, id string, c model.Customer) (*model.Customer, error) {
	in := c.Clone()
	in.ID = id
	if err := in.Validate(); err != nil {
		return nil, err
	}

	updated, err := s.CustomerRepo.Update(ctx, &in)
	if err != nil {
		return nil, fmt.Errorf("update customer %s: %w", id, err)
	}
	if updated == nil {
		return nil, nil
	}

	s.publish(model.CustomerUpdated, id, updated)
	return updated, nil
}

// Delete removes customer id and returns what was removed.
func (s *CustomerService) Delete(ctx context.Context, id string) (*model.Customer, error) {
	removed, err := s.CustomerRepo.Delete(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delete customer %s: %w", id, err)
	}
	if removed == nil {
		return nil, nil
	}

	s.publish(model.CustomerDeleted, id, removed)
	return removed, nil
}

// publish is best effort: a failure is logged and never reaches the caller.
func (s *CustomerService) publish(eventType model.CustomerEventType, id string, c *model.Customer) {
	if s.Queue == nil {
		return
	}

	snapshot := c.Clone()
	event := model.CustomerEvent{
		Type:       eventType,
		CustomerID: id,
		Customer:   &snapshot,
		OccurredAt: s.Clock.Now(),
	}
	if err := s.Queue.Publish(queue.CustomerEventsTopic, event); err != nil {
		s.Logger.Warn("failed to publish customer event",
			zap.String("type", string(eventType)),
			zap.String("customer_id", id),
			zap.Error(err),
		)
	}
}
