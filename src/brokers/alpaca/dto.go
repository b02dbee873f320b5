package alpaca

import (
	"github.com/jiaming2012/tradecraft/src/eventmodels"
	"github.com/jiaming2012/tradecraft/src/utils"
)

// Alpaca serves every numeric field as a string.

type accountDTO struct {
	ID            string `json:"id"`
	AccountNumber string `json:"account_number"`
	Status        string `json:"status"`
	Currency      string `json:"currency"`
	Equity        string `json:"equity"`
	LastEquity    string `json:"last_equity"`
	Cash          string `json:"cash"`
	BuyingPower   string `json:"buying_power"`
}

func (d accountDTO) ToAccountSummary() eventmodels.AccountSummary {
	equity := utils.ParseFloat(d.Equity, 0)
	lastEquity := utils.ParseFloat(d.LastEquity, 0)

	summary := eventmodels.AccountSummary{
		Account:        d.AccountNumber,
		NetLiquidation: equity,
		TotalCash:      utils.ParseFloat(d.Cash, 0),
		BuyingPower:    utils.ParseFloat(d.BuyingPower, 0),
	}

	if equity > 0 && lastEquity > 0 {
		summary.DailyPnl = equity - lastEquity
	}

	return summary
}

type positionDTO struct {
	Symbol               string `json:"symbol"`
	AssetClass           string `json:"asset_class"` // us_equity or us_option
	Qty                  string `json:"qty"`
	Side                 string `json:"side"` // long or short
	AvgEntryPrice        string `json:"avg_entry_price"`
	CurrentPrice         string `json:"current_price"`
	LastdayPrice         string `json:"lastday_price"`
	UnrealizedPl         string `json:"unrealized_pl"`
	UnrealizedIntradayPl string `json:"unrealized_intraday_pl"`
}

func (d positionDTO) IsOption() bool {
	return d.AssetClass == "us_option"
}

type orderResponseDTO struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type errorResponseDTO struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// orderRequestDTO is the POST /v2/orders payload. Alpaca wants lower-case
// side and type tokens and string quantities.
type orderRequestDTO struct {
	Symbol      string `json:"symbol"`
	Qty         string `json:"qty"`
	Side        string `json:"side"`
	Type        string `json:"type"`
	TimeInForce string `json:"time_in_force"`
	LimitPrice  string `json:"limit_price,omitempty"`
	ClientOrder string `json:"client_order_id,omitempty"`
}
