package eventmodels

import (
	"fmt"
	"time"
)

// Candle is one provider aggregate bar.
type Candle struct {
	Timestamp time.Time `json:"timestamp" csv:"timestamp"`
	Open      float64   `json:"open" csv:"open"`
	High      float64   `json:"high" csv:"high"`
	Low       float64   `json:"low" csv:"low"`
	Close     float64   `json:"close" csv:"close"`
	Volume    float64   `json:"volume" csv:"volume"`
	VWAP      float64   `json:"vwap" csv:"vwap"`
}

// TimeframeSpec maps a caller-facing timeframe token onto the provider's
// aggregate parameters: bar size and how far back to ask.
type TimeframeSpec struct {
	Token      string
	Multiplier int
	Timespan   string
	Lookback   time.Duration
}

var timeframeSpecs = map[string]TimeframeSpec{
	"1Y": {Token: "1Y", Multiplier: 1, Timespan: "day", Lookback: 365 * 24 * time.Hour},
	"1M": {Token: "1M", Multiplier: 1, Timespan: "day", Lookback: 30 * 24 * time.Hour},
	"1W": {Token: "1W", Multiplier: 1, Timespan: "hour", Lookback: 7 * 24 * time.Hour},
	"1D": {Token: "1D", Multiplier: 5, Timespan: "minute", Lookback: 24 * time.Hour},
	"1H": {Token: "1H", Multiplier: 1, Timespan: "minute", Lookback: time.Hour},
}

func NewTimeframeSpec(token string) (TimeframeSpec, error) {
	spec, found := timeframeSpecs[token]
	if !found {
		return TimeframeSpec{}, fmt.Errorf("NewTimeframeSpec: unknown timeframe: %s", token)
	}

	return spec, nil
}

// TickerNewsItem is one aggregator headline, summarization left to callers.
type TickerNewsItem struct {
	Title       string    `json:"title"`
	Publisher   string    `json:"publisher"`
	PublishedAt time.Time `json:"published_at"`
	ArticleURL  string    `json:"article_url"`
}

// TickerDetails is the aggregator's reference metadata for one ticker.
type TickerDetails struct {
	Ticker      StockSymbol `json:"ticker"`
	Name        string      `json:"name"`
	Exchange    string      `json:"exchange"`
	Description string      `json:"description"`
	MarketCap   float64     `json:"market_cap"`
}
