package eventsservice

import (
	"context"

	"ecommerce-orders/internal/domain/events"
	"ecommerce-orders/internal/ports"
	"ecommerce-orders/internal/shared/logger"
)

// Service implements ports.EventQueryService over the event store. Reads are
// eventually consistent with respect to recent writes.
type Service struct {
	repo   ports.EventRepository
	logger *logger.Logger
}

var _ ports.EventQueryService = (*Service)(nil)

// NewService creates the query service with the required dependencies.
func NewService(repo ports.EventRepository, logger *logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// EventsByCustomer returns the customer's order events, internal keys stripped.
// An identity with no events yields an empty slice, not an error.
func (service *Service) EventsByCustomer(ctx context.Context, email string) ([]events.EventView, error) {
	records, err := service.repo.EventsByEmail(ctx, email)
	if err != nil {
		service.logger.Error(ctx, "event_query_failed", "failed to query events by customer", err)
		return nil, err
	}
	return toViews(records), nil
}

// EventsByCustomerAndType narrows EventsByCustomer by discriminator.
func (service *Service) EventsByCustomerAndType(ctx context.Context, email string, eventType events.EventType) ([]events.EventView, error) {
	records, err := service.repo.EventsByEmailAndType(ctx, email, eventType)
	if err != nil {
		service.logger.Error(ctx, "event_query_failed", "failed to query events by customer and type", err)
		return nil, err
	}
	return toViews(records), nil
}

func toViews(records []events.EventRecord) []events.EventView {
	views := make([]events.EventView, len(records))
	for i := range records {
		views[i] = records[i].View()
	}
	return views
}
