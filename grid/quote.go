package grid

import (
	"errors"
	"sort"
	"strings"

	"github.com/picklecourt/courtdesk/permission"
)

// Tier selects which slot price applies.
type Tier string

const (
	TierDaily   Tier = "daily"
	TierStudent Tier = "student"
)

// TierFor returns TierStudent when roles include STUDENT.
func TierFor(roles []string) Tier {
	for _, r := range roles {
		if permission.Normalize(r) == permission.RoleStudent {
			return TierStudent
		}
	}
	return TierDaily
}

// Method is how the customer pays for a checkout.
type Method string

const (
	MethodFull    Method = "full"
	MethodDeposit Method = "deposit"
)

// ParseMethod accepts "full" and "deposit" in any casing.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case MethodFull, MethodDeposit:
		return m, nil
	default:
		return "", ErrUnknownMethod
	}
}

// ErrUnknownMethod is returned by ParseMethod.
var ErrUnknownMethod = errors.New("grid: unknown payment method")

// Price is a computed checkout amount.
type Price struct {
	Total   float64 `json:"totalPrice"`
	Payment float64 `json:"paymentAmount"`
	Deposit float64 `json:"depositAmount"`
	Method  Method  `json:"paymentMethod"`
}

// depositSlots is how many of the cheapest slots a deposit covers for n selections.
func depositSlots(n int) int {
	switch {
	case n >= 2 && n <= 3:
		return 1
	case n >= 4 && n <= 6:
		return 2
	case n >= 7 && n <= 9:
		return 3
	default:
		return 0
	}
}

func (s Selection) price(t Tier) float64 {
	if t == TierStudent {
		return s.StudentPrice
	}
	return s.DailyPrice
}

// Quote computes what the checkout screen shows for selections. A single slot is
// always paid in full. With a deposit the customer pays for the cheapest one, two or
// three slots depending on how many were selected; past nine slots the deposit does not
// apply and the full amount is due.
func Quote(selections []Selection, tier Tier, method Method) Price {
	if len(selections) == 0 {
		return Price{Method: method}
	}
	if len(selections) == 1 {
		method = MethodFull
	}

	prices := make([]float64, len(selections))
	var total float64
	for i, s := range selections {
		prices[i] = s.price(tier)
		total += prices[i]
	}
	sort.Float64s(prices)

	q := Price{Total: total, Payment: total, Method: method}
	switch method {
	case MethodDeposit:
		if k := depositSlots(len(prices)); k > 0 {
			for _, p := range prices[:k] {
				q.Deposit += p
			}
			q.Payment = q.Deposit
		}
	default:
		q.Deposit = total - prices[0]
	}
	if q.Deposit == 0 {
		q.Deposit = q.Payment
	}
	return q
}
