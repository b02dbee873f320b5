package ibkr

import (
	"time"

	"github.com/jiaming2012/tradecraft/src/eventmodels"
	"github.com/jiaming2012/tradecraft/src/utils"
)

// Incoming gateway frames. Numeric quote fields arrive as strings keyed by
// field code; everything else is conventional JSON.

type incomingMessageDTO struct {
	Topic string `json:"topic"`
	Error string `json:"error"`
	Code  int    `json:"code"`
}

type quoteDTO struct {
	Topic      string `json:"topic"`
	ConID      int    `json:"conid"`
	Symbol     string `json:"55"`
	Last       string `json:"31"`
	Mark       string `json:"37"`
	Bid        string `json:"84"`
	Ask        string `json:"86"`
	High       string `json:"70"`
	Low        string `json:"71"`
	PriorClose string `json:"7741"`
	IV         string `json:"7283"`
	Delta      string `json:"7308"`
	Gamma      string `json:"7309"`
	Theta      string `json:"7310"`
	Vega       string `json:"7311"`
	Underlying string `json:"7284"`
	TimeEpoch  int64  `json:"_updated"`
}

func (d quoteDTO) ToGatewayQuote() eventmodels.GatewayQuote {
	quote := eventmodels.GatewayQuote{
		ConID:   d.ConID,
		Symbol:  eventmodels.NewStockSymbol(d.Symbol),
		Bid:     utils.ParseFloat(d.Bid, 0),
		Ask:     utils.ParseFloat(d.Ask, 0),
		Last:    utils.ParseFloat(d.Last, 0),
		Mark:    utils.ParseFloat(d.Mark, 0),
		Close:   utils.ParseFloat(d.PriorClose, 0),
		High:    utils.ParseFloat(d.High, 0),
		Low:     utils.ParseFloat(d.Low, 0),
		Updated: time.Unix(d.TimeEpoch/1000, (d.TimeEpoch%1000)*int64(time.Millisecond)),
	}

	// Greeks ride only on option streams.
	if d.Delta != "" || d.IV != "" {
		quote.Greeks = &eventmodels.OptionGreeks{
			Delta:           utils.ParseFloat(d.Delta, 0),
			Gamma:           utils.ParseFloat(d.Gamma, 0),
			Theta:           utils.ParseFloat(d.Theta, 0),
			Vega:            utils.ParseFloat(d.Vega, 0),
			IV:              utils.ParseFloat(d.IV, 0),
			UnderlyingPrice: utils.ParseFloat(d.Underlying, 0),
		}
	}

	return quote
}

type positionDTO struct {
	ConID    int     `json:"conid"`
	Account  string  `json:"acctId"`
	Symbol   string  `json:"contractDesc"`
	SecType  string  `json:"secType"`
	Right    string  `json:"right"`
	Strike   float64 `json:"strike"`
	Expiry   string  `json:"expiry"`
	Position float64 `json:"position"`
	AvgCost  float64 `json:"avgCost"`
	Exchange string  `json:"listingExchange"`
	Currency string  `json:"currency"`
}

func (d positionDTO) ToGatewayPosition() eventmodels.GatewayPosition {
	return eventmodels.GatewayPosition{
		ConID:    d.ConID,
		Account:  d.Account,
		Symbol:   eventmodels.NewStockSymbol(d.Symbol),
		SecType:  d.SecType,
		Right:    d.Right,
		Strike:   d.Strike,
		Expiry:   d.Expiry,
		Quantity: utils.SafeFloat(d.Position, 0),
		AvgCost:  utils.SafeFloat(d.AvgCost, 0),
		Exchange: d.Exchange,
		Currency: d.Currency,
	}
}

type positionsFrameDTO struct {
	Topic string        `json:"topic"`
	Args  []positionDTO `json:"args"`
}

type portfolioItemDTO struct {
	ConID         int     `json:"conid"`
	Account       string  `json:"acctId"`
	MarketPrice   float64 `json:"mktPrice"`
	MarketValue   float64 `json:"mktValue"`
	UnrealizedPnl float64 `json:"unrealizedPnl"`
}

func (d portfolioItemDTO) ToPortfolioItem() eventmodels.PortfolioItem {
	return eventmodels.PortfolioItem{
		ConID:         d.ConID,
		Account:       d.Account,
		MarketPrice:   utils.SafeFloat(d.MarketPrice, 0),
		MarketValue:   utils.SafeFloat(d.MarketValue, 0),
		UnrealizedPnl: utils.SafeFloat(d.UnrealizedPnl, 0),
	}
}

type portfolioFrameDTO struct {
	Topic string             `json:"topic"`
	Args  []portfolioItemDTO `json:"args"`
}

type accountValueDTO struct {
	Account  string `json:"acctId"`
	Tag      string `json:"tag"`
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

func (d accountValueDTO) ToAccountValue() eventmodels.AccountValue {
	return eventmodels.AccountValue{
		Account:  d.Account,
		Tag:      d.Tag,
		Value:    d.Value,
		Currency: d.Currency,
	}
}

type accountValuesFrameDTO struct {
	Topic string            `json:"topic"`
	Args  []accountValueDTO `json:"args"`
}

type pnlFrameDTO struct {
	Topic      string  `json:"topic"`
	Account    string  `json:"acctId"`
	Daily      float64 `json:"dpl"`
	Unrealized float64 `json:"upl"`
	Realized   float64 `json:"rpl"`
}

func (d pnlFrameDTO) ToPnlRow() eventmodels.PnlRow {
	return eventmodels.PnlRow{
		Account:    d.Account,
		Daily:      utils.SafeFloat(d.Daily, 0),
		Unrealized: utils.SafeFloat(d.Unrealized, 0),
		Realized:   utils.SafeFloat(d.Realized, 0),
	}
}

type orderAckFrameDTO struct {
	Topic     string `json:"topic"`
	RequestID string `json:"cOID"`
	OrderID   string `json:"order_id"`
	Status    string `json:"order_status"`
	Error     string `json:"error"`
}

func (d orderAckFrameDTO) ToOrderAck() eventmodels.OrderAck {
	return eventmodels.OrderAck{
		RequestID: d.RequestID,
		OrderID:   d.OrderID,
		Status:    d.Status,
		Error:     d.Error,
	}
}

// orderRequestDTO is the outgoing order payload wrapped in a sor frame.
type orderRequestDTO struct {
	RequestID  string   `json:"cOID"`
	ConID      int      `json:"conid,omitempty"`
	Symbol     string   `json:"symbol"`
	SecType    string   `json:"secType"`
	Right      string   `json:"right,omitempty"`
	Strike     float64  `json:"strike,omitempty"`
	Expiry     string   `json:"expiry,omitempty"`
	Side       string   `json:"side"`
	Quantity   float64  `json:"quantity"`
	OrderType  string   `json:"orderType"`
	LimitPrice *float64 `json:"price,omitempty"`
	TIF        string   `json:"tif"`
}
