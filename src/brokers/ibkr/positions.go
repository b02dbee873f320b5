package ibkr

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/tradecraft/src/eventmodels"
)

const firstTickWait = 500 * time.Millisecond

// PriorCloseCache pins the previous session's settlement price per contract.
// A key is written once and then only overwritten when the new close differs
// from the current live price by more than 0.1%: around the roll the feed
// briefly reports "close" equal to the live price, which would zero out the
// daily P&L if taken at face value.
type PriorCloseCache struct {
	mutex  sync.Mutex
	prices map[int]float64
}

func NewPriorCloseCache() *PriorCloseCache {
	return &PriorCloseCache{
		prices: make(map[int]float64),
	}
}

func (c *PriorCloseCache) Get(conID int) (float64, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	price, found := c.prices[conID]
	return price, found
}

func (c *PriorCloseCache) Update(conID int, newClose float64, livePrice float64) {
	if newClose <= 0 {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, found := c.prices[conID]; !found {
		c.prices[conID] = newClose
		return
	}

	if livePrice > 0 && math.Abs(newClose-livePrice)/livePrice > 0.001 {
		c.prices[conID] = newClose
	}
}

// GetPositions reconciles the raw position records with the portfolio
// snapshot feed, live quotes, and greeks into the unified per-account view.
// Everything is recomputed on each call; a disconnected session serves an
// empty, well-formed view.
func (s *Session) GetPositions(ctx context.Context) (eventmodels.PositionsView, error) {
	view := eventmodels.NewEmptyPositionsView()

	if !s.IsConnected() {
		return view, nil
	}

	rawPositions := s.market.snapshotPositions()
	accountsSeen := map[string]bool{}

	for _, raw := range rawPositions {
		// Default sparse reference fields before any lookup.
		if raw.Exchange == "" {
			raw.Exchange = "SMART"
		}
		if raw.Currency == "" {
			raw.Currency = s.accountCurrency
		}

		if !accountsSeen[raw.Account] {
			accountsSeen[raw.Account] = true

			if err := s.subs.EnsureAccountUpdates(raw.Account); err != nil {
				log.Warnf("GetPositions: failed to subscribe account updates for %s: %v", raw.Account, err)
			}
		}

		s.ensureQuote(ctx, raw)

		view.Positions = append(view.Positions, s.reconcilePosition(raw))
	}

	for account := range accountsSeen {
		view.Accounts = append(view.Accounts, account)
	}
	sort.Strings(view.Accounts)

	summary, err := s.GetAccountSummary(ctx)
	if err != nil {
		log.Warnf("GetPositions: failed to fetch account summary: %v", err)
	} else {
		view.Summary = summary
	}

	return view, nil
}

// ensureQuote subscribes the contract's market data stream (and, for
// options, the underlying stock's) and gives the first tick a short bounded
// window to arrive. Callers tolerate a missing quote on the first pass.
func (s *Session) ensureQuote(ctx context.Context, raw eventmodels.GatewayPosition) {
	var future *eventmodels.Future[eventmodels.GatewayQuote]
	var err error

	if raw.IsOption() {
		underlyingConID, _ := s.market.stockConID(raw.Symbol)
		future, err = s.subs.EnsureOptionMarketData(raw.ConID, underlyingConID)
	} else {
		future, err = s.subs.EnsureMarketData(raw.ConID)
	}

	if err != nil {
		log.Warnf("ensureQuote: failed to subscribe market data for conid %d: %v", raw.ConID, err)
		return
	}

	if future != nil && !future.IsResolved() {
		if _, err := future.Await(ctx, firstTickWait); err != nil {
			log.Debugf("ensureQuote: no first tick for conid %d yet: %v", raw.ConID, err)
		}
	}
}

func (s *Session) reconcilePosition(raw eventmodels.GatewayPosition) eventmodels.Position {
	quote, _ := s.market.quote(raw.ConID)

	position := eventmodels.Position{
		Ticker:   raw.Symbol,
		Kind:     positionKind(raw),
		Quantity: raw.Quantity,
		AvgCost:  raw.AvgCost,
		Account:  raw.Account,
	}

	if raw.IsOption() {
		position.Strike = raw.Strike
		position.Expiry = formatExpiry(raw.Expiry)
		position.DaysToExpiry = daysToExpiry(raw.Expiry)

		// The feed reports option cost per 100 underlying shares.
		position.AvgCost = raw.AvgCost / 100

		if quote.Greeks != nil {
			position.Greeks = *quote.Greeks
		}
	}

	multiplier := position.Multiplier()

	// Resolve prior close before updating the cache, so a suspicious new
	// close cannot clobber the value used on this pass.
	priorClose := quote.Close
	if priorClose <= 0 {
		priorClose, _ = s.priorClose.Get(raw.ConID)
	}

	currentPrice := quote.Mark
	if currentPrice <= 0 {
		currentPrice = quote.Last
	}
	if currentPrice <= 0 {
		currentPrice = priorClose
	}
	if currentPrice <= 0 {
		currentPrice = 0
	}
	position.CurrentPrice = currentPrice

	s.priorClose.Update(raw.ConID, quote.Close, currentPrice)

	if currentPrice > 0 && priorClose > 0 {
		position.DailyPnl = (currentPrice - priorClose) * raw.Quantity * multiplier
	}

	// The portfolio snapshot's unrealized P&L wins when present and
	// non-zero; otherwise fall back to the cost-basis formula.
	if item, found := s.market.portfolioItem(raw.ConID, raw.Account); found && item.UnrealizedPnl != 0 {
		position.UnrealizedPnl = item.UnrealizedPnl
	} else {
		position.UnrealizedPnl = (currentPrice - position.AvgCost) * raw.Quantity * multiplier
	}

	if raw.IsOption() {
		position.UnderlyingPrice = s.resolveUnderlyingPrice(raw.Symbol, quote)
	}

	return position
}

// resolveUnderlyingPrice prefers the price carried on the option's own
// greeks record, then scans live stock quotes for the ticker, subscribing to
// the stock when it is known but not yet tracked.
func (s *Session) resolveUnderlyingPrice(symbol eventmodels.StockSymbol, quote eventmodels.GatewayQuote) float64 {
	if quote.Greeks != nil && quote.Greeks.UnderlyingPrice > 0 {
		return quote.Greeks.UnderlyingPrice
	}

	if stockQuote, found := s.market.stockQuoteBySymbol(symbol); found {
		if stockQuote.Mark > 0 {
			return stockQuote.Mark
		}
		if stockQuote.Last > 0 {
			return stockQuote.Last
		}
		return stockQuote.Close
	}

	if conID, found := s.market.stockConID(symbol); found {
		if _, err := s.subs.EnsureMarketData(conID); err != nil {
			log.Debugf("resolveUnderlyingPrice: failed to subscribe %s: %v", symbol, err)
		}
	}

	return 0
}

func positionKind(raw eventmodels.GatewayPosition) eventmodels.PositionKind {
	if !raw.IsOption() {
		return eventmodels.PositionKindStock
	}

	if raw.Right == "P" {
		return eventmodels.PositionKindPut
	}

	return eventmodels.PositionKindCall
}

// formatExpiry renders the gateway's digits-only date as YYYY-MM-DD.
func formatExpiry(expiry string) string {
	if len(expiry) != 8 {
		return expiry
	}

	return expiry[:4] + "-" + expiry[4:6] + "-" + expiry[6:]
}

func daysToExpiry(expiry string) int {
	t, err := time.Parse("20060102", expiry)
	if err != nil {
		return 0
	}

	days := int(time.Until(t).Hours() / 24)
	if days < 0 {
		return 0
	}

	return days
}
