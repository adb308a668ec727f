package eventsservice

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"ecommerce-orders/internal/domain/events"
	"ecommerce-orders/internal/ports"
	"ecommerce-orders/internal/shared/logger"
)

// EventsHTTPHandler adapts HTTP requests to the EventQueryService.
type EventsHTTPHandler struct {
	svc    ports.EventQueryService
	logger *logger.Logger
}

// NewEventsHTTPHandler wires an HTTP handler around the EventQueryService.
func NewEventsHTTPHandler(svc ports.EventQueryService, logger *logger.Logger) *EventsHTTPHandler {
	return &EventsHTTPHandler{svc: svc, logger: logger}
}

// Register mounts the GET /events route on the provided mux.
func (handler *EventsHTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /events", handler.handleGetEvents)
}

// handleGetEvents serves /events?email= and /events?email=&eventType=.
func (handler *EventsHTTPHandler) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	email := r.URL.Query().Get("email")
	if email == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "email query parameter is required", errors.New("missing email"))
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var (
		views []events.EventView
		err   error
	)
	if raw := r.URL.Query().Get("eventType"); raw != "" {
		eventType := events.EventType(strings.ToUpper(strings.TrimSpace(raw)))
		if !events.ValidEventType(eventType) {
			handler.httpError(ctx, w, http.StatusBadRequest, "unknown eventType: "+raw, errors.New("bad event type"))
			return
		}
		views, err = handler.svc.EventsByCustomerAndType(ctxWithTimeout, email, eventType)
	} else {
		views, err = handler.svc.EventsByCustomer(ctxWithTimeout, email)
	}
	if err != nil {
		handler.httpError(ctxWithTimeout, w, http.StatusInternalServerError, "event store error", err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, views)
}

// httpError sends a JSON error response with a message.
func (handler *EventsHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	action := "request_failed"
	if status >= 500 {
		action = "http_internal_error"
	} else if status == http.StatusBadRequest {
		action = "validation_failed"
	}
	handler.logger.Error(ctx, action, msg, err)

	type errBody struct {
		Error string `json:"error"`
	}
	handler.jsonResponse(ctx, w, status, errBody{Error: msg})
}

// jsonResponse takes any type of data and encode it to HTTP response.
func (handler *EventsHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	buf, err := json.Marshal(data)
	if err != nil {
		handler.logger.Error(ctx, "response_encode_failed", "failed to encode response", err)
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// withReqID extracts or generates a request ID and adds it to the context.
func (handler *EventsHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		var b [12]byte
		_, _ = rand.Read(b[:])
		reqID = hex.EncodeToString(b[:])
	}
	return handler.logger.WithRequestID(ctx, reqID)
}
