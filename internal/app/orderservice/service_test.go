package orderservice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecommerce-orders/internal/domain/events"
	"ecommerce-orders/internal/domain/orders"
	"ecommerce-orders/internal/ports"
	"ecommerce-orders/internal/shared/logger"
)

// fakes

type fakeUOW struct{}

func (fakeUOW) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeOrdersRepo struct {
	created []*orders.Order
	stored  map[string]*orders.Order // key: email + "/" + id
}

func newFakeOrdersRepo() *fakeOrdersRepo {
	return &fakeOrdersRepo{stored: map[string]*orders.Order{}}
}

func (repo *fakeOrdersRepo) CreateOrder(_ context.Context, order *orders.Order) error {
	repo.created = append(repo.created, order)
	repo.stored[order.Email+"/"+order.ID] = order
	return nil
}

func (repo *fakeOrdersRepo) GetOrder(_ context.Context, email, orderID string) (*orders.Order, error) {
	order, ok := repo.stored[email+"/"+orderID]
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	return order, nil
}

func (repo *fakeOrdersRepo) OrdersByEmail(_ context.Context, email string) ([]orders.Order, error) {
	var out []orders.Order
	for _, order := range repo.stored {
		if order.Email == email {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (repo *fakeOrdersRepo) AllOrders(_ context.Context) ([]orders.Order, error) {
	var out []orders.Order
	for _, order := range repo.stored {
		out = append(out, *order)
	}
	return out, nil
}

func (repo *fakeOrdersRepo) DeleteOrder(_ context.Context, email, orderID string) (*orders.Order, error) {
	key := email + "/" + orderID
	order, ok := repo.stored[key]
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	delete(repo.stored, key)
	return order, nil
}

type fakeProductsRepo struct {
	products map[string]orders.Product
}

func (repo *fakeProductsRepo) ProductByID(_ context.Context, id string) (*orders.Product, error) {
	p, ok := repo.products[id]
	if !ok {
		return nil, orders.ErrProductsNotFound
	}
	return &p, nil
}

func (repo *fakeProductsRepo) ProductsByIDs(_ context.Context, ids []string) ([]orders.Product, error) {
	var out []orders.Product
	for _, id := range ids {
		if p, ok := repo.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type publishedEvent struct {
	order     *orders.Order
	eventType events.EventType
}

type fakeEventPublisher struct {
	published []publishedEvent
	fail      error
}

func (pub *fakeEventPublisher) PublishOrderEvent(_ context.Context, order *orders.Order, eventType events.EventType, _ string) (string, error) {
	if pub.fail != nil {
		return "", pub.fail
	}
	pub.published = append(pub.published, publishedEvent{order: order, eventType: eventType})
	return "msg-1", nil
}

func newTestService(ordersRepo *fakeOrdersRepo, productsRepo *fakeProductsRepo, pub *fakeEventPublisher) *Service {
	return New(fakeUOW{}, ordersRepo, productsRepo, pub, logger.NewLogger("order-service-test"))
}

func catalogWith(prices map[string]float64) *fakeProductsRepo {
	repo := &fakeProductsRepo{products: map[string]orders.Product{}}
	for id, price := range prices {
		repo.products[id] = orders.Product{ID: id, Code: "COD" + id, Price: orders.NewMoneyFromFloat2(price)}
	}
	return repo
}

// tests

func TestCreateOrderStoresThenPublishesOnce(t *testing.T) {
	ordersRepo := newFakeOrdersRepo()
	pub := &fakeEventPublisher{}
	service := newTestService(ordersRepo, catalogWith(map[string]float64{"p1": 10.00, "p2": 5.50}), pub)

	order, err := service.CreateOrder(context.Background(), testCommand())
	require.NoError(t, err)

	assert.Equal(t, orders.NewMoneyFromFloat2(15.50), order.Billing.TotalPrice)
	require.Len(t, ordersRepo.created, 1)
	require.Len(t, pub.published, 1)
	assert.Equal(t, events.EventOrderCreated, pub.published[0].eventType)
	assert.Same(t, order, pub.published[0].order)
}

func TestCreateOrderUnresolvedProductsNoStoreNoPublish(t *testing.T) {
	ordersRepo := newFakeOrdersRepo()
	pub := &fakeEventPublisher{}
	// p2 missing from the catalog
	service := newTestService(ordersRepo, catalogWith(map[string]float64{"p1": 10.00}), pub)

	_, err := service.CreateOrder(context.Background(), testCommand())
	assert.ErrorIs(t, err, orders.ErrProductsNotFound)
	assert.Empty(t, ordersRepo.created)
	assert.Empty(t, pub.published)
}

func TestCreateOrderValidation(t *testing.T) {
	service := newTestService(newFakeOrdersRepo(), catalogWith(nil), &fakeEventPublisher{})

	cases := []struct {
		name   string
		mutate func(cmd *ports.CreateOrderCommand)
	}{
		{"missing email", func(cmd *ports.CreateOrderCommand) { cmd.Email = "" }},
		{"not an address", func(cmd *ports.CreateOrderCommand) { cmd.Email = "nobody" }},
		{"no products", func(cmd *ports.CreateOrderCommand) { cmd.ProductIDs = nil }},
		{"bad shipping type", func(cmd *ports.CreateOrderCommand) { cmd.Shipping.Type = "TELEPORT" }},
		{"bad carrier", func(cmd *ports.CreateOrderCommand) { cmd.Shipping.Carrier = "PIGEON" }},
		{"bad payment", func(cmd *ports.CreateOrderCommand) { cmd.Payment = "BARTER" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd := testCommand()
			tc.mutate(&cmd)
			_, err := service.CreateOrder(context.Background(), cmd)
			assert.Error(t, err)
		})
	}
}

func TestCreateOrderSucceedsWhenPublishFails(t *testing.T) {
	ordersRepo := newFakeOrdersRepo()
	pub := &fakeEventPublisher{fail: errors.New("broker down")}
	service := newTestService(ordersRepo, catalogWith(map[string]float64{"p1": 10.00, "p2": 5.50}), pub)

	order, err := service.CreateOrder(context.Background(), testCommand())
	require.NoError(t, err)
	assert.NotNil(t, order)
	// order committed even though the hand-off failed
	assert.Len(t, ordersRepo.created, 1)
}

func TestDeleteOrderPublishesDeleted(t *testing.T) {
	ordersRepo := newFakeOrdersRepo()
	pub := &fakeEventPublisher{}
	service := newTestService(ordersRepo, catalogWith(map[string]float64{"p1": 10.00, "p2": 5.50}), pub)

	order, err := service.CreateOrder(context.Background(), testCommand())
	require.NoError(t, err)

	removed, err := service.DeleteOrder(context.Background(), order.Email, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, removed.ID)

	require.Len(t, pub.published, 2)
	assert.Equal(t, events.EventOrderDeleted, pub.published[1].eventType)
}

func TestDeleteMissingOrderNoPublish(t *testing.T) {
	pub := &fakeEventPublisher{}
	service := newTestService(newFakeOrdersRepo(), catalogWith(nil), pub)

	_, err := service.DeleteOrder(context.Background(), "customer@example.com", "missing")
	assert.ErrorIs(t, err, orders.ErrOrderNotFound)
	assert.Empty(t, pub.published)
}

func TestGetOrderRoundTrip(t *testing.T) {
	ordersRepo := newFakeOrdersRepo()
	service := newTestService(ordersRepo, catalogWith(map[string]float64{"p1": 10.00, "p2": 5.50}), &fakeEventPublisher{})

	order, err := service.CreateOrder(context.Background(), testCommand())
	require.NoError(t, err)

	got, err := service.GetOrder(context.Background(), order.Email, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = service.GetOrder(context.Background(), order.Email, "missing")
	assert.ErrorIs(t, err, orders.ErrOrderNotFound)
}
