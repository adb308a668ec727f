package orderservice

import (
	"context"
	"errors"
	"strings"
	"time"

	"ecommerce-orders/internal/domain/events"
	"ecommerce-orders/internal/domain/orders"
	"ecommerce-orders/internal/ports"
	"ecommerce-orders/internal/shared/logger"
)

// Service implements ports.OrderService.
type Service struct {
	uow      ports.UnitOfWork
	orders   ports.OrderRepository
	products ports.ProductRepository
	events   ports.OrderEventPublisher
	logger   *logger.Logger
}

// Ensure Service implements the interface at compile time.
var _ ports.OrderService = (*Service)(nil)

// New creates a new OrderService with the required dependencies.
func New(
	uow ports.UnitOfWork,
	ordersRepo ports.OrderRepository,
	productsRepo ports.ProductRepository,
	eventsPub ports.OrderEventPublisher,
	logger *logger.Logger,
) *Service {
	return &Service{
		uow:      uow,
		orders:   ordersRepo,
		products: productsRepo,
		events:   eventsPub,
		logger:   logger,
	}
}

// CreateOrder validates input, resolves products, builds and persists the
// order, then publishes the created event. The publish happens strictly after
// the order write has committed; a publish failure is logged but never rolls
// the order back.
func (service *Service) CreateOrder(ctx context.Context, cmd ports.CreateOrderCommand) (*orders.Order, error) {
	if err := validateCommand(&cmd); err != nil {
		return nil, err
	}

	var order *orders.Order
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		resolved, err := service.products.ProductsByIDs(txCtx, cmd.ProductIDs)
		if err != nil {
			service.logger.Error(ctx, "db_query_failed", "failed to resolve products", err)
			return err
		}

		order, err = BuildOrder(cmd, resolved, time.Now().UTC())
		if err != nil {
			return err
		}

		if err := service.orders.CreateOrder(txCtx, order); err != nil {
			service.logger.Error(ctx, "db_transaction_failed", "failed to create order", err)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	service.publishAfterCommit(ctx, order, events.EventOrderCreated)
	return order, nil
}

// GetOrder returns one order with its line items.
func (service *Service) GetOrder(ctx context.Context, email, orderID string) (*orders.Order, error) {
	var order *orders.Order
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		order, err = service.orders.GetOrder(txCtx, email, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// OrdersByEmail returns a customer's orders, without line items.
func (service *Service) OrdersByEmail(ctx context.Context, email string) ([]orders.Order, error) {
	var out []orders.Order
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		out, err = service.orders.OrdersByEmail(txCtx, email)
		return err
	})
	return out, err
}

// AllOrders returns every stored order, without line items.
func (service *Service) AllOrders(ctx context.Context) ([]orders.Order, error) {
	var out []orders.Order
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		out, err = service.orders.AllOrders(txCtx)
		return err
	})
	return out, err
}

// DeleteOrder removes an order, returns the removed snapshot, and publishes
// the deleted event. A missing order returns orders.ErrOrderNotFound and
// nothing is published.
func (service *Service) DeleteOrder(ctx context.Context, email, orderID string) (*orders.Order, error) {
	var removed *orders.Order
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		removed, err = service.orders.DeleteOrder(txCtx, email, orderID)
		return err
	})
	if err != nil {
		if !errors.Is(err, orders.ErrOrderNotFound) {
			service.logger.Error(ctx, "db_transaction_failed", "failed to delete order", err)
		}
		return nil, err
	}

	service.publishAfterCommit(ctx, removed, events.EventOrderDeleted)
	return removed, nil
}

// publishAfterCommit hands the event to the fanout router. The order mutation
// is already durable here, so a failed hand-off is logged for out-of-band
// reconciliation instead of failing the request.
func (service *Service) publishAfterCommit(ctx context.Context, order *orders.Order, eventType events.EventType) {
	requestID := logger.RequestIDFrom(ctx)
	if _, err := service.events.PublishOrderEvent(ctx, order, eventType, requestID); err != nil {
		service.logger.Error(ctx, "event_publish_failed",
			"Order committed but event hand-off failed; flagged for reconciliation", err)
	}
}

// validateCommand checks the request against the closed selection sets.
func validateCommand(cmd *ports.CreateOrderCommand) error {
	cmd.Email = strings.TrimSpace(cmd.Email)
	if cmd.Email == "" || !strings.Contains(cmd.Email, "@") {
		return errors.New("email must be a valid address")
	}
	if len(cmd.ProductIDs) == 0 {
		return errors.New("order must contain at least one product id")
	}
	if !orders.ValidShippingType(cmd.Shipping.Type) {
		return errors.New("shipping.type must be one of: 'URGENT', 'ECONOMIC'")
	}
	if !orders.ValidCarrierType(cmd.Shipping.Carrier) {
		return errors.New("shipping.carrier must be one of: 'CORREIOS', 'FEDEX'")
	}
	if !orders.ValidPaymentType(cmd.Payment) {
		return errors.New("payment must be one of: 'CASH', 'CREDIT_CARD', 'DEBIT_CARD'")
	}
	return nil
}
