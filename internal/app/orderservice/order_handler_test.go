package orderservice

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecommerce-orders/internal/shared/logger"
)

func newTestOrderServer(ordersRepo *fakeOrdersRepo, productsRepo *fakeProductsRepo, pub *fakeEventPublisher) *httptest.Server {
	service := newTestService(ordersRepo, productsRepo, pub)
	handler := NewOrderHTTPHandler(service, logger.NewLogger("order-service-test"))
	mux := http.NewServeMux()
	handler.Register(mux)
	return httptest.NewServer(mux)
}

func postOrder(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url+"/orders", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	return resp
}

const validOrderBody = `{
	"email": "customer@example.com",
	"productIds": ["p1", "p2"],
	"shipping": {"type": "economic", "carrier": "correios"},
	"payment": "cash"
}`

func TestPostOrdersCreates(t *testing.T) {
	srv := newTestOrderServer(newFakeOrdersRepo(), catalogWith(map[string]float64{"p1": 10.00, "p2": 5.50}), &fakeEventPublisher{})
	defer srv.Close()

	resp := postOrder(t, srv.URL, validOrderBody)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var got orderResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "customer@example.com", got.Email)
	assert.Equal(t, 15.50, got.Billing.TotalPrice)
	// selections are normalized to the closed-set spelling
	assert.Equal(t, "ECONOMIC", got.Shipping.Type)
	assert.Equal(t, "CASH", got.Billing.Payment)
	require.Len(t, got.Products, 2)
}

func TestPostOrdersUnknownProduct(t *testing.T) {
	srv := newTestOrderServer(newFakeOrdersRepo(), catalogWith(map[string]float64{"p1": 10.00}), &fakeEventPublisher{})
	defer srv.Close()

	resp := postOrder(t, srv.URL, validOrderBody)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPostOrdersRejectsBadJSON(t *testing.T) {
	srv := newTestOrderServer(newFakeOrdersRepo(), catalogWith(nil), &fakeEventPublisher{})
	defer srv.Close()

	resp := postOrder(t, srv.URL, `{"email": `)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPostOrdersRejectsUnknownFields(t *testing.T) {
	srv := newTestOrderServer(newFakeOrdersRepo(), catalogWith(nil), &fakeEventPublisher{})
	defer srv.Close()

	resp := postOrder(t, srv.URL, `{"email": "a@b.c", "productIds": ["p1"], "discount": 1}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetOrdersFlow(t *testing.T) {
	ordersRepo := newFakeOrdersRepo()
	srv := newTestOrderServer(ordersRepo, catalogWith(map[string]float64{"p1": 10.00, "p2": 5.50}), &fakeEventPublisher{})
	defer srv.Close()

	resp := postOrder(t, srv.URL, validOrderBody)
	var created orderResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()

	// single order, with line items
	resp, err := http.Get(srv.URL + "/orders?email=customer@example.com&orderId=" + created.ID)
	require.NoError(t, err)
	var single orderResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&single))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created.ID, single.ID)
	assert.Len(t, single.Products, 2)

	// listing strips line items
	resp, err = http.Get(srv.URL + "/orders?email=customer@example.com")
	require.NoError(t, err)
	var list []orderResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Products)

	// unknown key is a 404
	resp, err = http.Get(srv.URL + "/orders?email=customer@example.com&orderId=missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteOrdersReturnsRemovedSnapshot(t *testing.T) {
	ordersRepo := newFakeOrdersRepo()
	srv := newTestOrderServer(ordersRepo, catalogWith(map[string]float64{"p1": 10.00, "p2": 5.50}), &fakeEventPublisher{})
	defer srv.Close()

	resp := postOrder(t, srv.URL, validOrderBody)
	var created orderResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/orders?email=customer@example.com&orderId="+created.ID, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var removed orderResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&removed))
	assert.Equal(t, created.ID, removed.ID)

	// second delete finds nothing
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}
