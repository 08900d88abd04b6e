package payment

import (
	"context"
	"strings"

	"github.com/picklecourt/courtdesk/remote"
)

const (
	// OrderPath returns one order by id.
	OrderPath = "/identity/public/getOrderById"
	// CancelPath cancels an unpaid order.
	CancelPath = "/identity/public/cancelOrder"
)

// PaidStatuses are the paymentStatus values that settle a checkout.
var PaidStatuses = []string{"Đã thanh toán", "Đã đặt cọc"}

// Getter is satisfied by *remote.Client.
type Getter interface {
	Get(ctx context.Context, path string, params remote.Params, out any) error
}

// Putter is satisfied by *remote.Client.
type Putter interface {
	Put(ctx context.Context, path string, params remote.Params, body, out any) error
}

// Order is the subset of an order the watcher reads.
type Order struct {
	ID            string  `json:"id"`
	OrderStatus   string  `json:"orderStatus"`
	PaymentStatus string  `json:"paymentStatus"`
	PaymentAmount float64 `json:"paymentAmount"`
}

// Paid reports whether the order's payment status is one of PaidStatuses.
func (o Order) Paid() bool {
	for _, s := range PaidStatuses {
		if strings.EqualFold(strings.TrimSpace(o.PaymentStatus), s) {
			return true
		}
	}
	return false
}

// StatusPoller reports whether an order has been paid.
type StatusPoller interface {
	Paid(ctx context.Context, orderID string) (bool, error)
}

// OrderStatus polls OrderPath.
type OrderStatus struct {
	Client Getter
}

func (s OrderStatus) Paid(ctx context.Context, orderID string) (bool, error) {
	var o Order
	if err := s.Client.Get(ctx, OrderPath, remote.Params{"orderId": orderID}, &o); err != nil {
		return false, err
	}
	return o.Paid(), nil
}

// CancelOrder releases the slots held by an unpaid order.
func CancelOrder(ctx context.Context, client Putter, orderID string) error {
	return client.Put(ctx, CancelPath, remote.Params{"orderId": orderID}, nil, nil)
}
