package eventconsumers

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/tradecraft/src/eventmodels"
	"github.com/jiaming2012/tradecraft/src/eventpubsub"
)

// GatewayActivityTracker follows the session event stream and keeps the
// rolling counters reported on the status surface.
type GatewayActivityTracker struct {
	mutex            sync.RWMutex
	quotes           int
	orderAcks        int
	accountValues    int
	summaryRefreshes int
	lastQuoteAt      time.Time
	closeReason      string
}

type GatewayActivityStats struct {
	Quotes           int    `json:"quotes"`
	OrderAcks        int    `json:"order_acks"`
	AccountValues    int    `json:"account_values"`
	SummaryRefreshes int    `json:"summary_refreshes"`
	LastQuoteAt      string `json:"last_quote_at,omitempty"`
	CloseReason      string `json:"close_reason,omitempty"`
}

func NewGatewayActivityTracker() *GatewayActivityTracker {
	return &GatewayActivityTracker{}
}

func (t *GatewayActivityTracker) handleQuote(quote eventmodels.GatewayQuote) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.quotes += 1
	t.lastQuoteAt = time.Now().UTC()
}

func (t *GatewayActivityTracker) handleOrderAck(ack eventmodels.OrderAck) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.orderAcks += 1
}

func (t *GatewayActivityTracker) handleAccountValue(value eventmodels.AccountValue) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.accountValues += 1
}

func (t *GatewayActivityTracker) handleAccountSummary(summary map[string]eventmodels.AccountSummary) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.summaryRefreshes += 1
}

func (t *GatewayActivityTracker) handleSessionClosed(err error) {
	log.Warnf("GatewayActivityTracker: session closed: %v", err)

	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.closeReason = err.Error()
}

func (t *GatewayActivityTracker) Stats() GatewayActivityStats {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	stats := GatewayActivityStats{
		Quotes:           t.quotes,
		OrderAcks:        t.orderAcks,
		AccountValues:    t.accountValues,
		SummaryRefreshes: t.summaryRefreshes,
		CloseReason:      t.closeReason,
	}

	if !t.lastQuoteAt.IsZero() {
		stats.LastQuoteAt = t.lastQuoteAt.Format(time.RFC3339)
	}

	return stats
}

func (t *GatewayActivityTracker) Start() {
	eventpubsub.Subscribe("GatewayActivityTracker", eventpubsub.NewQuoteEvent, t.handleQuote)
	eventpubsub.Subscribe("GatewayActivityTracker", eventpubsub.OrderAckEvent, t.handleOrderAck)
	eventpubsub.Subscribe("GatewayActivityTracker", eventpubsub.NewAccountValueEvent, t.handleAccountValue)
	eventpubsub.Subscribe("GatewayActivityTracker", eventpubsub.AccountSummaryEvent, t.handleAccountSummary)
	eventpubsub.Subscribe("GatewayActivityTracker", eventpubsub.SessionClosedEvent, t.handleSessionClosed)
}
