package eventpubsub

const (
	NewQuoteEvent         = "NewQuoteEvent"
	NewPositionEvent      = "NewPositionEvent"
	NewPortfolioItemEvent = "NewPortfolioItemEvent"
	NewAccountValueEvent  = "NewAccountValueEvent"
	NewPnlEvent           = "NewPnlEvent"
	OrderAckEvent         = "OrderAckEvent"
	SessionClosedEvent    = "SessionClosedEvent"
	AccountSummaryEvent   = "AccountSummaryEvent"
	Error                 = "DefaultError"
)
