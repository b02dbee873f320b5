package ibkr

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/tradecraft/src/eventmodels"
)

type frameSender interface {
	sendFrame(payload []byte) error
}

// SubscriptionRegistry tracks every active gateway subscription. Each ensure
// checks membership before issuing the subscribe frame, so re-ensuring an
// already-subscribed key is a no-op. Everything issued here is cancelled
// best-effort on session teardown.
type SubscriptionRegistry struct {
	mutex  sync.Mutex
	sender frameSender

	marketData     map[int]bool
	accountUpdates map[string]bool
	pnl            map[string]bool

	firstTick map[int]*eventmodels.Future[eventmodels.GatewayQuote]
	firstPnl  map[string]*eventmodels.Future[eventmodels.PnlRow]
}

func NewSubscriptionRegistry(sender frameSender) *SubscriptionRegistry {
	return &SubscriptionRegistry{
		sender:         sender,
		marketData:     make(map[int]bool),
		accountUpdates: make(map[string]bool),
		pnl:            make(map[string]bool),
		firstTick:      make(map[int]*eventmodels.Future[eventmodels.GatewayQuote]),
		firstPnl:       make(map[string]*eventmodels.Future[eventmodels.PnlRow]),
	}
}

// EnsureMarketData subscribes to a contract's market data stream once. The
// returned future resolves when the first tick for the contract arrives.
func (r *SubscriptionRegistry) EnsureMarketData(conID int) (*eventmodels.Future[eventmodels.GatewayQuote], error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.marketData[conID] {
		return r.firstTick[conID], nil
	}

	future := eventmodels.NewFuture[eventmodels.GatewayQuote]()

	if err := r.sender.sendFrame(MarketDataFrame(conID)); err != nil {
		return nil, err
	}

	r.marketData[conID] = true
	r.firstTick[conID] = future

	log.Debugf("subscribed to market data for conid %d", conID)

	return future, nil
}

// EnsureOptionMarketData subscribes to an option contract and, when known,
// its underlying stock, so a derived underlying price is available.
func (r *SubscriptionRegistry) EnsureOptionMarketData(conID int, underlyingConID int) (*eventmodels.Future[eventmodels.GatewayQuote], error) {
	if underlyingConID > 0 {
		if _, err := r.EnsureMarketData(underlyingConID); err != nil {
			log.Warnf("EnsureOptionMarketData: failed to subscribe underlying conid %d: %v", underlyingConID, err)
		}
	}

	return r.EnsureMarketData(conID)
}

func (r *SubscriptionRegistry) EnsureAccountUpdates(account string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.accountUpdates[account] {
		return nil
	}

	if err := r.sender.sendFrame(AccountUpdatesFrame(account)); err != nil {
		return err
	}

	r.accountUpdates[account] = true

	log.Debugf("subscribed to account updates for %s", account)

	return nil
}

// EnsurePnl subscribes to an account's P&L stream once. The returned future
// resolves when the first P&L row arrives.
func (r *SubscriptionRegistry) EnsurePnl(account string) (*eventmodels.Future[eventmodels.PnlRow], error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.pnl[account] {
		return r.firstPnl[account], nil
	}

	future := eventmodels.NewFuture[eventmodels.PnlRow]()

	if err := r.sender.sendFrame(PnlFrame(account)); err != nil {
		return nil, err
	}

	r.pnl[account] = true
	r.firstPnl[account] = future

	log.Debugf("subscribed to pnl for account %s", account)

	return future, nil
}

func (r *SubscriptionRegistry) ResolveFirstTick(conID int, quote eventmodels.GatewayQuote) {
	r.mutex.Lock()
	future := r.firstTick[conID]
	r.mutex.Unlock()

	if future != nil {
		future.Resolve(quote)
	}
}

func (r *SubscriptionRegistry) ResolvePnl(account string, row eventmodels.PnlRow) {
	r.mutex.Lock()
	future := r.firstPnl[account]
	r.mutex.Unlock()

	if future != nil {
		future.Resolve(row)
	}
}

func (r *SubscriptionRegistry) Counts() (marketData int, accountUpdates int, pnl int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return len(r.marketData), len(r.accountUpdates), len(r.pnl)
}

// CancelAll tears down every tracked subscription. Individual cancel
// failures are logged and swallowed so teardown always completes.
func (r *SubscriptionRegistry) CancelAll() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for conID := range r.marketData {
		if err := r.sender.sendFrame(CancelMarketDataFrame(conID)); err != nil {
			log.Errorf("CancelAll: failed to cancel market data for conid %d: %v", conID, err)
		}
	}

	for account := range r.accountUpdates {
		if err := r.sender.sendFrame(CancelAccountUpdatesFrame(account)); err != nil {
			log.Errorf("CancelAll: failed to cancel account updates for %s: %v", account, err)
		}
	}

	for account := range r.pnl {
		if err := r.sender.sendFrame(CancelPnlFrame(account)); err != nil {
			log.Errorf("CancelAll: failed to cancel pnl for %s: %v", account, err)
		}
	}

	r.marketData = make(map[int]bool)
	r.accountUpdates = make(map[string]bool)
	r.pnl = make(map[string]bool)
	r.firstTick = make(map[int]*eventmodels.Future[eventmodels.GatewayQuote])
	r.firstPnl = make(map[string]*eventmodels.Future[eventmodels.PnlRow])
}
