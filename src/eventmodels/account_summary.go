package eventmodels

// AccountSummary is the merged per-account view: equity fields from the
// account summary feed, P&L fields from the dedicated P&L subscription.
type AccountSummary struct {
	Account        string  `json:"account"`
	NetLiquidation float64 `json:"net_liquidation"`
	TotalCash      float64 `json:"total_cash"`
	BuyingPower    float64 `json:"buying_power"`
	UnrealizedPnl  float64 `json:"unrealized_pnl"`
	RealizedPnl    float64 `json:"realized_pnl"`
	DailyPnl       float64 `json:"daily_pnl"`
}

// Account value tags served by the summary feed.
const (
	TagNetLiquidation = "NetLiquidation"
	TagTotalCash      = "TotalCashValue"
	TagBuyingPower    = "BuyingPower"
)

// AggregateAccountID is the gateway's rollup pseudo-account, excluded from
// per-account summaries.
const AggregateAccountID = "All"
