package eventmodels

// DailySnapshot is the aggregator's daily reference view for one ticker.
type DailySnapshot struct {
	Symbol        StockSymbol `json:"symbol"`
	CurrentPrice  float64     `json:"current_price"`
	PreviousClose float64     `json:"previous_close"`
	Change        float64     `json:"change"`
	ChangePct     float64     `json:"change_pct"`
}

// OptionContractSnapshot is one contract of a provider options-chain
// snapshot stream, before any strike windowing.
type OptionContractSnapshot struct {
	Ticker          string       `json:"ticker"`
	Underlying      StockSymbol  `json:"underlying"`
	ExpirationDate  string       `json:"expiration_date"` // YYYYMMDD
	Strike          float64      `json:"strike"`
	Type            OptionType   `json:"type"`
	Bid             float64      `json:"bid"`
	Ask             float64      `json:"ask"`
	Last            float64      `json:"last"`
	Close           float64      `json:"close"`
	High            float64      `json:"high"`
	Low             float64      `json:"low"`
	Volume          float64      `json:"volume"`
	OpenInterest    float64      `json:"open_interest"`
	Greeks          OptionGreeks `json:"greeks"`
	UnderlyingPrice float64      `json:"underlying_price"`
}
