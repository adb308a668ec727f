package eventsservice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecommerce-orders/internal/domain/events"
	"ecommerce-orders/internal/shared/logger"
)

type fakeEventsRepo struct {
	byEmail map[string][]events.EventRecord
	fail    error
}

func (repo *fakeEventsRepo) CreateEvent(context.Context, *events.EventRecord) error { return nil }

func (repo *fakeEventsRepo) EventsByEmail(_ context.Context, email string) ([]events.EventRecord, error) {
	if repo.fail != nil {
		return nil, repo.fail
	}
	records := repo.byEmail[email]
	if records == nil {
		return []events.EventRecord{}, nil
	}
	return records, nil
}

func (repo *fakeEventsRepo) EventsByEmailAndType(ctx context.Context, email string, eventType events.EventType) ([]events.EventRecord, error) {
	all, err := repo.EventsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	out := []events.EventRecord{}
	for _, record := range all {
		if record.EventType == eventType {
			out = append(out, record)
		}
	}
	return out, nil
}

func record(orderID string, eventType events.EventType) events.EventRecord {
	return events.EventRecord{
		PK:        "#order_" + orderID,
		SK:        string(eventType) + "#1776000000000",
		Email:     "customer@example.com",
		CreatedAt: 1776000000000,
		RequestID: "req-1",
		EventType: eventType,
		TTL:       1776000300,
		Info: events.EventRecordInfo{
			OrderID:      orderID,
			ProductsCode: []string{"COD1"},
			MessageID:    "msg-" + orderID,
		},
	}
}

func newTestServer(repo *fakeEventsRepo) *httptest.Server {
	log := logger.NewLogger("events-service-test")
	handler := NewEventsHTTPHandler(NewService(repo, log), log)
	mux := http.NewServeMux()
	handler.Register(mux)
	return httptest.NewServer(mux)
}

func getViews(t *testing.T, url string) (int, []events.EventView) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}
	var views []events.EventView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&views))
	return resp.StatusCode, views
}

func TestGetEventsByCustomer(t *testing.T) {
	repo := &fakeEventsRepo{byEmail: map[string][]events.EventRecord{
		"customer@example.com": {
			record("o1", events.EventOrderCreated),
			record("o1", events.EventOrderDeleted),
		},
	}}
	srv := newTestServer(repo)
	defer srv.Close()

	status, views := getViews(t, srv.URL+"/events?email=customer@example.com")
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, views, 2)
	// storage keys stripped from the projection
	assert.Equal(t, "o1", views[0].OrderID)
	assert.Equal(t, events.EventOrderCreated, views[0].EventType)
	assert.Equal(t, []string{"COD1"}, views[0].ProductCodes)
}

func TestGetEventsFilteredByType(t *testing.T) {
	repo := &fakeEventsRepo{byEmail: map[string][]events.EventRecord{
		"customer@example.com": {
			record("o1", events.EventOrderCreated),
			record("o1", events.EventOrderDeleted),
		},
	}}
	srv := newTestServer(repo)
	defer srv.Close()

	status, views := getViews(t, srv.URL+"/events?email=customer@example.com&eventType=ORDER_CREATED")
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, views, 1)
	assert.Equal(t, events.EventOrderCreated, views[0].EventType)
}

func TestGetEventsEmptyResult(t *testing.T) {
	srv := newTestServer(&fakeEventsRepo{})
	defer srv.Close()

	status, views := getViews(t, srv.URL+"/events?email=stranger@example.com")
	assert.Equal(t, http.StatusOK, status)
	assert.NotNil(t, views)
	assert.Empty(t, views)
}

func TestGetEventsRequiresEmail(t *testing.T) {
	srv := newTestServer(&fakeEventsRepo{})
	defer srv.Close()

	status, _ := getViews(t, srv.URL+"/events")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestGetEventsRejectsUnknownType(t *testing.T) {
	srv := newTestServer(&fakeEventsRepo{})
	defer srv.Close()

	status, _ := getViews(t, srv.URL+"/events?email=customer@example.com&eventType=ORDER_EXPLODED")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestGetEventsStoreFailure(t *testing.T) {
	srv := newTestServer(&fakeEventsRepo{fail: errors.New("redis down")})
	defer srv.Close()

	status, _ := getViews(t, srv.URL+"/events?email=customer@example.com")
	assert.Equal(t, http.StatusInternalServerError, status)
}
