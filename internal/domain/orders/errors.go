package orders

import "errors"

var (
	// ErrOrderNotFound is returned when (email, orderId) does not exist in the order store.
	ErrOrderNotFound = errors.New("order not found")

	// ErrProductsNotFound is returned when at least one requested product id failed to resolve.
	ErrProductsNotFound = errors.New("product not found")
)
