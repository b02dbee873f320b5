package eventmodels

import "time"

// Raw records as they arrive from the brokerage gateway feeds. These are kept
// deliberately close to the wire: the reconciliation pass owns all derived
// values.

type GatewayPosition struct {
	ConID    int
	Account  string
	Symbol   StockSymbol
	SecType  string // STK or OPT
	Right    string // C or P, options only
	Strike   float64
	Expiry   string // YYYYMMDD, options only
	Quantity float64
	AvgCost  float64
	Exchange string
	Currency string
}

func (p GatewayPosition) IsOption() bool {
	return p.SecType == "OPT"
}

// PortfolioItem is one record of the independently refreshed portfolio
// snapshot feed. Matched to positions by contract id and account.
type PortfolioItem struct {
	ConID         int
	Account       string
	MarketPrice   float64
	MarketValue   float64
	UnrealizedPnl float64
}

// AccountValue is one row of the account summary feed.
type AccountValue struct {
	Account  string
	Tag      string
	Value    string
	Currency string
}

// PnlRow is the payload of the dedicated per-account P&L subscription.
type PnlRow struct {
	Account    string
	Daily      float64
	Unrealized float64
	Realized   float64
}

// GatewayQuote is the latest live tick snapshot for one contract. The
// protocol loop replaces the stored snapshot wholesale on every update.
type GatewayQuote struct {
	ConID   int
	Symbol  StockSymbol
	Bid     float64
	Ask     float64
	Last    float64
	Mark    float64
	Close   float64
	High    float64
	Low     float64
	Greeks  *OptionGreeks
	Updated time.Time
}

// OrderAck is the gateway's acknowledgement of an order submission. Rejections
// arrive as an ack with a non-empty error.
type OrderAck struct {
	RequestID string
	OrderID   string
	Status    string
	Error     string
}
