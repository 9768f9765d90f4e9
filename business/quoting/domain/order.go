package domain

import "time"

// OrderStatus is the lifecycle state of an RFQ order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderFilled    OrderStatus = "filled"
	OrderExpired   OrderStatus = "expired"
	OrderCancelled OrderStatus = "cancelled"
	OrderNotFound  OrderStatus = "not-found"
)

// IsTerminal reports whether no further transitions can happen.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderFilled, OrderExpired, OrderCancelled, OrderNotFound:
		return true
	}
	return false
}

// SignedOrder is a maker-signed limit order produced from an RFQ quote.
type SignedOrder struct {
	// OrderHash is the EIP-712 hash the maker signed.
	OrderHash string         `json:"orderHash" validate:"required,hexadecimal"`
	QuoteID   string         `json:"quoteId" validate:"required"`
	Signature string         `json:"signature" validate:"required,hexadecimal"`
	Order     map[string]any `json:"order" validate:"required"`
	Extension string         `json:"extension,omitempty"`
}

// OrderReceipt acknowledges an accepted submission.
type OrderReceipt struct {
	OrderHash   string    `json:"orderHash"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// OrderState is the latest known status of an order.
type OrderState struct {
	OrderHash string      `json:"orderHash"`
	Status    OrderStatus `json:"status"`
	Fills     []string    `json:"fills,omitempty"`
	UpdatedAt time.Time   `json:"updatedAt"`
}
