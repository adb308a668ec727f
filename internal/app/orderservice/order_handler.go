package orderservice

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"ecommerce-orders/internal/domain/orders"
	"ecommerce-orders/internal/ports"
	"ecommerce-orders/internal/shared/logger"
)

// OrderHTTPHandler adapts HTTP requests to the OrderService.
type OrderHTTPHandler struct {
	svc    ports.OrderService
	logger *logger.Logger
}

// NewOrderHTTPHandler wires an HTTP handler around the OrderService.
func NewOrderHTTPHandler(svc ports.OrderService, logger *logger.Logger) *OrderHTTPHandler {
	return &OrderHTTPHandler{svc: svc, logger: logger}
}

// Register mounts the /orders routes on the provided mux.
func (handler *OrderHTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /orders", handler.handleCreateOrder)
	mux.HandleFunc("GET /orders", handler.handleGetOrders)
	mux.HandleFunc("DELETE /orders", handler.handleDeleteOrder)
}

// --- Request/Response DTOs (HTTP boundary) ---

type createOrderRequest struct {
	Email      string          `json:"email"`
	ProductIDs []string        `json:"productIds"`
	Shipping   shippingRequest `json:"shipping"`
	Payment    string          `json:"payment"`
}

type shippingRequest struct {
	Type    string `json:"type"`
	Carrier string `json:"carrier"`
}

type orderResponse struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	CreatedAt int64           `json:"created_at"`
	Shipping  shippingRequest `json:"shipping"`
	Billing   billingResponse `json:"billing"`
	Products  []productLine   `json:"products,omitempty"`
}

type billingResponse struct {
	Payment    string  `json:"payment"`
	TotalPrice float64 `json:"totalPrice"` // decimal dollars
}

type productLine struct {
	Code  string  `json:"code"`
	Price float64 `json:"price"` // decimal dollars
}

// --- Handlers ---

func (handler *OrderHTTPHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MiB
	defer r.Body.Close()

	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", errors.New("unsupported content type: "+ct))
		return
	}

	// decode strictly
	var req createOrderRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return
	}

	cmd := ports.CreateOrderCommand{
		Email:      req.Email,
		ProductIDs: req.ProductIDs,
		Shipping: orders.Shipping{
			Type:    orders.ShippingType(strings.ToUpper(strings.TrimSpace(req.Shipping.Type))),
			Carrier: orders.CarrierType(strings.ToUpper(strings.TrimSpace(req.Shipping.Carrier))),
		},
		Payment: orders.PaymentType(strings.ToUpper(strings.TrimSpace(req.Payment))),
	}

	handler.logger.Debug(ctx, "order_received", "new order request received", map[string]any{
		"email":          cmd.Email,
		"products_count": len(cmd.ProductIDs),
	})

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	order, err := handler.svc.CreateOrder(ctxWithTimeout, cmd)
	if err != nil {
		handler.writeServiceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusCreated, toOrderResponse(order, true))
}

// handleGetOrders serves GET /orders, /orders?email= and /orders?email=&orderId=.
func (handler *OrderHTTPHandler) handleGetOrders(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	email := r.URL.Query().Get("email")
	orderID := r.URL.Query().Get("orderId")

	switch {
	case email != "" && orderID != "":
		order, err := handler.svc.GetOrder(ctxWithTimeout, email, orderID)
		if err != nil {
			handler.writeServiceError(ctxWithTimeout, w, err)
			return
		}
		handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, toOrderResponse(order, true))

	case email != "":
		list, err := handler.svc.OrdersByEmail(ctxWithTimeout, email)
		if err != nil {
			handler.writeServiceError(ctxWithTimeout, w, err)
			return
		}
		handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, toOrderResponses(list))

	default:
		list, err := handler.svc.AllOrders(ctxWithTimeout)
		if err != nil {
			handler.writeServiceError(ctxWithTimeout, w, err)
			return
		}
		handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, toOrderResponses(list))
	}
}

func (handler *OrderHTTPHandler) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	email := r.URL.Query().Get("email")
	orderID := r.URL.Query().Get("orderId")
	if email == "" || orderID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "email and orderId query parameters are required", errors.New("missing delete key"))
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	removed, err := handler.svc.DeleteOrder(ctxWithTimeout, email, orderID)
	if err != nil {
		handler.writeServiceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, toOrderResponse(removed, true))
}

// --- Helpers ---

func toOrderResponse(order *orders.Order, withProducts bool) orderResponse {
	resp := orderResponse{
		ID:        order.ID,
		Email:     order.Email,
		CreatedAt: order.CreatedAt,
		Shipping: shippingRequest{
			Type:    string(order.Shipping.Type),
			Carrier: string(order.Shipping.Carrier),
		},
		Billing: billingResponse{
			Payment:    string(order.Billing.Payment),
			TotalPrice: order.Billing.TotalPrice.ToFloat2(),
		},
	}
	if withProducts {
		for _, p := range order.Products {
			resp.Products = append(resp.Products, productLine{Code: p.Code, Price: p.Price.ToFloat2()})
		}
	}
	return resp
}

func toOrderResponses(list []orders.Order) []orderResponse {
	out := make([]orderResponse, len(list))
	for i := range list {
		out[i] = toOrderResponse(&list[i], false)
	}
	return out
}

// writeServiceError maps service errors to HTTP statuses.
func (handler *OrderHTTPHandler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orders.ErrOrderNotFound), errors.Is(err, orders.ErrProductsNotFound):
		handler.httpError(ctx, w, http.StatusNotFound, err.Error(), err)
	default:
		// distinguish DB failures from validation errors
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			handler.httpError(ctx, w, http.StatusInternalServerError, "database error", err)
			return
		}
		handler.httpError(ctx, w, http.StatusBadRequest, err.Error(), err)
	}
}

// httpError sends a JSON error response with a message.
func (handler *OrderHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	// map status -> action
	action := "request_failed"
	if status >= 500 {
		action = "http_internal_error"
	} else if status == http.StatusBadRequest {
		action = "validation_failed"
	} else if status == http.StatusNotFound {
		action = "not_found"
	}
	handler.logger.Error(ctx, action, msg, err)

	type errBody struct {
		Error string `json:"error"`
	}
	handler.jsonResponse(ctx, w, status, errBody{Error: msg})
}

// jsonResponse takes any type of data and encode it to HTTP response.
func (handler *OrderHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	// encode to buffer first so we can control status on failure
	var buf []byte
	var err error

	if data != nil {
		buf, err = json.Marshal(data)
		if err != nil {
			handler.logger.Error(ctx, "response_encode_failed", "failed to encode response", err)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
			return
		}
	} else {
		buf = []byte("{}")
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// withReqID extracts or generates a request ID and adds it to the context.
func (handler *OrderHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = randID()
	}
	return handler.logger.WithRequestID(ctx, reqID)
}

// randID generates a random 24-char hex string suitable for request IDs.
func randID() string {
	var b [12]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
