package eventmodels

// OptionGreeks carries the model greeks delivered on an option's market data
// stream. UnderlyingPrice rides along because the gateway computes the model
// against its own underlying snapshot.
type OptionGreeks struct {
	Delta           float64 `json:"delta"`
	Gamma           float64 `json:"gamma"`
	Theta           float64 `json:"theta"`
	Vega            float64 `json:"vega"`
	IV              float64 `json:"iv"`
	UnderlyingPrice float64 `json:"underlying_price"`
}
