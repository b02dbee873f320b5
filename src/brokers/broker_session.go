package brokers

import (
	"context"

	"github.com/jiaming2012/tradecraft/src/eventmodels"
)

// IBrokerSession is the closed set of live brokerage session variants. Reads
// on a disconnected session return empty-but-well-formed views; order
// submissions report failure inside the result rather than panicking.
type IBrokerSession interface {
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool

	GetPositions(ctx context.Context) (eventmodels.PositionsView, error)
	GetAccountSummary(ctx context.Context) (map[string]eventmodels.AccountSummary, error)

	PlaceStockOrder(ctx context.Context, order eventmodels.TradeOrder) eventmodels.OrderResult
	PlaceOptionOrder(ctx context.Context, leg eventmodels.OptionOrderLeg, orderType eventmodels.OrderType, limitPrice *float64) eventmodels.OrderResult
	PlaceMultiLegOptionOrder(ctx context.Context, legs []eventmodels.OptionOrderLeg, orderType eventmodels.OrderType, limitPrice *float64) eventmodels.MultiLegOrderResult

	GetOptionsChain(ctx context.Context, symbol eventmodels.StockSymbol, maxStrikes int) (eventmodels.OptionChain, error)
}
