package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// OrderKind is the side of an order. The set is closed: Buy or Sell.
type OrderKind int

const (
	OrderKindBuy OrderKind = iota + 1
	OrderKindSell
)

// String returns the string representation of OrderKind
func (k OrderKind) String() string {
	switch k {
	case OrderKindBuy:
		return "BUY"
	case OrderKindSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether k is one of the known kinds.
func (k OrderKind) Valid() bool {
	return k == OrderKindBuy || k == OrderKindSell
}

// ParseOrderKind converts "BUY"/"SELL" (any case) into an OrderKind.
func ParseOrderKind(s string) (OrderKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return OrderKindBuy, nil
	case "SELL":
		return OrderKindSell, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

// MarshalText lets kinds travel as "BUY"/"SELL" in JSON and YAML.
func (k OrderKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKind, int(k))
	}
	return []byte(k.String()), nil
}

func (k *OrderKind) UnmarshalText(b []byte) error {
	parsed, err := ParseOrderKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ReplyStatus is the business outcome of a processed order.
type ReplyStatus int

const (
	ReplyFail ReplyStatus = iota
	ReplySuccess
)

func (s ReplyStatus) String() string {
	if s == ReplySuccess {
		return "success"
	}
	return "fail"
}

func (s ReplyStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ReplyStatus) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "success":
		*s = ReplySuccess
	case "fail":
		*s = ReplyFail
	default:
		return fmt.Errorf("unknown reply status %q", b)
	}
	return nil
}

// Reply is what the book hands back to the producer of a request.
// TotalInvested and Available describe the book right after the order was
// handled and are informational only.
type Reply struct {
	Status        ReplyStatus     `json:"status"`
	TotalInvested decimal.Decimal `json:"total_invested"`
	Available     decimal.Decimal `json:"available"`
}

// Accepted reports whether the order was applied to the book.
func (r Reply) Accepted() bool {
	return r.Status == ReplySuccess
}
