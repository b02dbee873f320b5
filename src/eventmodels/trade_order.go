package eventmodels

import (
	"fmt"
	"strings"
)

type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

func (s OrderSide) Validate() error {
	if s != OrderSideBuy && s != OrderSideSell {
		return fmt.Errorf("OrderSide: Validate: invalid side: %s", s)
	}

	return nil
}

type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

func (t OrderType) Validate() error {
	if t != OrderTypeMarket && t != OrderTypeLimit {
		return fmt.Errorf("OrderType: Validate: invalid order type: %s", t)
	}

	return nil
}

// TradeOrder is a single-instrument order request as accepted from the
// calling layer.
type TradeOrder struct {
	Symbol     StockSymbol `json:"symbol"`
	Side       OrderSide   `json:"side"`
	Quantity   float64     `json:"qty"`
	OrderType  OrderType   `json:"order_type"`
	LimitPrice *float64    `json:"limit_price,omitempty"`
}

// OptionOrderLeg is one leg of an option order before normalization. Right
// and Expiry arrive in caller-facing form (CALL/PUT, YYYY-MM-DD).
type OptionOrderLeg struct {
	Symbol   StockSymbol `json:"symbol"`
	Expiry   string      `json:"expiry"`
	Strike   float64     `json:"strike"`
	Right    string      `json:"right"`
	Side     OrderSide   `json:"side"`
	Quantity float64     `json:"qty"`
}

// NormalizeExpiry reduces any punctuated date to the gateway's digits-only
// form (2026-01-16 -> 20260116).
func NormalizeExpiry(expiry string) string {
	var b strings.Builder
	for _, r := range expiry {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	return b.String()
}

// OrderResult is the outcome of a single order submission. Success means the
// gateway acknowledged the submission, not that the order filled.
type OrderResult struct {
	Success bool   `json:"success"`
	OrderID string `json:"order_id,omitempty"`
	Status  string `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
}

// MultiLegOrderResult reports a decomposed multi-leg submission. Legs are
// submitted independently, so a partial failure carries both the successful
// leg results and the per-leg errors.
type MultiLegOrderResult struct {
	Success        bool          `json:"success"`
	OrderIDs       []string      `json:"order_ids,omitempty"`
	PartialResults []OrderResult `json:"partial_results"`
	Errors         []string      `json:"errors,omitempty"`
}
