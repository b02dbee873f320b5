package ibkr

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/tradecraft/src/brokers"
	"github.com/jiaming2012/tradecraft/src/eventmodels"
	"github.com/jiaming2012/tradecraft/src/eventpubsub"
	"github.com/jiaming2012/tradecraft/src/eventservices"
)

func init() {
	brokers.Register("ibkr", func(cfg *eventmodels.BridgeConfigYAML) (brokers.IBrokerSession, error) {
		provider, err := eventservices.NewDataProviderFromConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("ibkr: %w", err)
		}

		return NewSession(cfg, provider, eventservices.NewMarketSessionClock()), nil
	})
}

type SessionState string

const (
	SessionDisconnected SessionState = "disconnected"
	SessionConnecting   SessionState = "connecting"
	SessionConnected    SessionState = "connected"
)

// marketState holds the live feed snapshots. The protocol loop is the single
// writer: every update replaces a value wholesale, and readers always take
// copies, so request-handling goroutines never observe a half-written record.
type marketState struct {
	mutex         sync.RWMutex
	quotes        map[int]eventmodels.GatewayQuote
	positions     []eventmodels.GatewayPosition
	portfolio     map[string]eventmodels.PortfolioItem
	accountValues map[string]eventmodels.AccountValue
	pnl           map[string]eventmodels.PnlRow
	stockConIDs   map[eventmodels.StockSymbol]int
}

func newMarketState() *marketState {
	return &marketState{
		quotes:        make(map[int]eventmodels.GatewayQuote),
		portfolio:     make(map[string]eventmodels.PortfolioItem),
		accountValues: make(map[string]eventmodels.AccountValue),
		pnl:           make(map[string]eventmodels.PnlRow),
		stockConIDs:   make(map[eventmodels.StockSymbol]int),
	}
}

func portfolioKey(conID int, account string) string {
	return fmt.Sprintf("%d:%s", conID, account)
}

func (s *marketState) setQuote(quote eventmodels.GatewayQuote) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	// The symbol field is not sent on every tick; keep the last known one.
	if quote.Symbol == "" {
		quote.Symbol = s.quotes[quote.ConID].Symbol
	}

	s.quotes[quote.ConID] = quote

	if quote.Greeks == nil && quote.Symbol != "" {
		s.stockConIDs[quote.Symbol] = quote.ConID
	}
}

func (s *marketState) setPositions(positions []eventmodels.GatewayPosition) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.positions = positions

	for _, p := range positions {
		if !p.IsOption() {
			s.stockConIDs[p.Symbol] = p.ConID
		}
	}
}

func (s *marketState) setPortfolioItem(item eventmodels.PortfolioItem) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.portfolio[portfolioKey(item.ConID, item.Account)] = item
}

func (s *marketState) setAccountValue(value eventmodels.AccountValue) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	key := fmt.Sprintf("%s:%s:%s", value.Account, value.Tag, value.Currency)
	s.accountValues[key] = value
}

func (s *marketState) setPnl(row eventmodels.PnlRow) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.pnl[row.Account] = row
}

func (s *marketState) quote(conID int) (eventmodels.GatewayQuote, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	quote, found := s.quotes[conID]
	return quote, found
}

func (s *marketState) snapshotPositions() []eventmodels.GatewayPosition {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := make([]eventmodels.GatewayPosition, len(s.positions))
	copy(out, s.positions)
	return out
}

func (s *marketState) portfolioItem(conID int, account string) (eventmodels.PortfolioItem, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	item, found := s.portfolio[portfolioKey(conID, account)]
	return item, found
}

func (s *marketState) snapshotAccountValues() []eventmodels.AccountValue {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := make([]eventmodels.AccountValue, 0, len(s.accountValues))
	for _, value := range s.accountValues {
		out = append(out, value)
	}
	return out
}

func (s *marketState) pnlRow(account string) (eventmodels.PnlRow, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	row, found := s.pnl[account]
	return row, found
}

func (s *marketState) stockConID(symbol eventmodels.StockSymbol) (int, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	conID, found := s.stockConIDs[symbol]
	return conID, found
}

// stockQuoteBySymbol scans live stock quotes for a ticker. Used to derive an
// option's underlying price when its own greeks record lacks one.
func (s *marketState) stockQuoteBySymbol(symbol eventmodels.StockSymbol) (eventmodels.GatewayQuote, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, quote := range s.quotes {
		if quote.Symbol == symbol && quote.Greeks == nil {
			return quote, true
		}
	}

	return eventmodels.GatewayQuote{}, false
}

// Session owns the persistent gateway connection and runs the protocol loop
// on a dedicated goroutine. It is constructed by the broker factory and
// injected into callers: there is no package-level session.
type Session struct {
	gatewayURL string
	clientID   int

	accountCurrency string
	baseCurrency    string
	maxStrikes      int

	// dial is swappable so tests can script the transport.
	dial func(urlStr string) (IGatewayConn, error)

	mutex      sync.Mutex
	conn       IGatewayConn
	state      SessionState
	cancelLoop context.CancelFunc
	loopDone   chan struct{}

	market *marketState
	subs   *SubscriptionRegistry

	priorClose   *PriorCloseCache
	summaryCache *eventservices.TTLCache[map[string]eventmodels.AccountSummary]
	chain        *eventservices.ChainAssembler

	ackMutex    sync.Mutex
	pendingAcks map[string]*eventmodels.Future[eventmodels.OrderAck]
}

func NewSession(cfg *eventmodels.BridgeConfigYAML, provider eventservices.IDataProvider, clock *eventservices.MarketSessionClock) *Session {
	clientID := cfg.Gateway.ClientID
	if clientID == 0 {
		clientID = rand.Intn(9999) + 1
		log.Infof("gateway client_id not configured, using random id %d", clientID)
	}

	session := &Session{
		gatewayURL:      cfg.Gateway.URL,
		clientID:        clientID,
		accountCurrency: cfg.AccountCurrency,
		baseCurrency:    cfg.BaseCurrency,
		maxStrikes:      cfg.MaxStrikes,
		dial:            DialGateway,
		state:           SessionDisconnected,
		market:          newMarketState(),
		priorClose:      NewPriorCloseCache(),
		summaryCache:    eventservices.NewTTLCache[map[string]eventmodels.AccountSummary](clock),
		chain:           eventservices.NewChainAssembler(provider, clock),
		pendingAcks:     make(map[string]*eventmodels.Future[eventmodels.OrderAck]),
	}

	session.subs = NewSubscriptionRegistry(session)

	return session
}

// Connect dials the gateway and spawns the protocol loop. It returns once
// the loop is live: feeds populate eventually, callers tolerate empty
// snapshots until the first records arrive.
func (s *Session) Connect(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.state == SessionConnected {
		return nil
	}

	s.state = SessionConnecting

	conn, err := s.dial(s.gatewayURL)
	if err != nil {
		s.state = SessionDisconnected
		return fmt.Errorf("Connect: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())

	s.conn = conn
	s.cancelLoop = cancel
	s.loopDone = make(chan struct{})
	s.state = SessionConnected

	go s.runLoop(loopCtx, conn, s.loopDone)

	log.Infof("connected to gateway %s with client id %d", s.gatewayURL, s.clientID)

	return nil
}

func (s *Session) IsConnected() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.state == SessionConnected
}

// Disconnect cancels every tracked subscription best-effort, then closes the
// transport. It never returns an error: teardown always completes.
func (s *Session) Disconnect() {
	s.mutex.Lock()

	if s.state != SessionConnected {
		s.mutex.Unlock()
		return
	}

	conn := s.conn
	cancel := s.cancelLoop
	done := s.loopDone
	s.mutex.Unlock()

	// Cancel frames must go out while the transport still counts as live.
	s.subs.CancelAll()

	s.mutex.Lock()
	s.state = SessionDisconnected
	s.conn = nil
	s.mutex.Unlock()

	cancel()

	if err := conn.Close(); err != nil {
		log.Errorf("Disconnect: failed to close gateway connection: %v", err)
	}

	if done != nil {
		<-done
	}

	log.Info("disconnected from gateway")
}

func (s *Session) sendFrame(payload []byte) error {
	s.mutex.Lock()
	conn := s.conn
	connected := s.state == SessionConnected
	s.mutex.Unlock()

	if !connected || conn == nil {
		return eventmodels.ErrNotConnected
	}

	return conn.WriteFrame(payload)
}

func (s *Session) markDisconnected() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.state = SessionDisconnected
	s.conn = nil
}

// runLoop is the dedicated protocol goroutine: the single writer of the
// market state. A fatal read error drops the session to disconnected; no
// reconnect is attempted here, recovery is an explicit external action.
func (s *Session) runLoop(ctx context.Context, conn IGatewayConn, done chan struct{}) {
	defer close(done)

	log.Info("starting gateway protocol loop")

	for {
		select {
		case <-ctx.Done():
			log.Info("stopping gateway protocol loop")
			return
		default:
			message, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() != nil {
					log.Info("stopping gateway protocol loop")
					return
				}

				log.Errorf("gateway read failed, dropping session: %v", err)
				s.markDisconnected()
				eventpubsub.PublishEventResult("ibkr.Session", eventpubsub.SessionClosedEvent, err)
				return
			}

			s.dispatch(message)
		}
	}
}

func (s *Session) dispatch(message []byte) {
	var header incomingMessageDTO
	if err := json.Unmarshal(message, &header); err != nil {
		log.Errorf("dispatch: failed to unmarshal message: %v", err)
		return
	}

	if header.Topic == "" || header.Topic == "system" || header.Topic == "sts" {
		return
	}

	if header.Error != "" {
		// Rejected order acks carry their reason in the error field; they
		// still have to resolve the caller's pending future.
		if strings.HasPrefix(header.Topic, "sor") {
			s.dispatchOrderAck(message)
			return
		}

		log.Errorf("dispatch: gateway error on topic %s, code %d: %s", header.Topic, header.Code, header.Error)
		return
	}

	switch {
	case strings.HasPrefix(header.Topic, "smd+"):
		s.dispatchQuote(message)
	case strings.HasPrefix(header.Topic, "spo"):
		s.dispatchPositions(message)
	case strings.HasPrefix(header.Topic, "spt"):
		s.dispatchPortfolio(message)
	case strings.HasPrefix(header.Topic, "ssd"):
		s.dispatchAccountValues(message)
	case strings.HasPrefix(header.Topic, "spl"):
		s.dispatchPnl(message)
	case strings.HasPrefix(header.Topic, "sor"):
		s.dispatchOrderAck(message)
	default:
		log.Warnf("dispatch: unknown topic: %v", header.Topic)
	}
}

func (s *Session) dispatchQuote(message []byte) {
	var dto quoteDTO
	if err := json.Unmarshal(message, &dto); err != nil {
		log.Errorf("dispatchQuote: failed to unmarshal quote: %v", err)
		return
	}

	quote := dto.ToGatewayQuote()

	s.market.setQuote(quote)
	s.subs.ResolveFirstTick(quote.ConID, quote)

	eventpubsub.PublishEventResult("ibkr.Session", eventpubsub.NewQuoteEvent, quote)
}

func (s *Session) dispatchPositions(message []byte) {
	var dto positionsFrameDTO
	if err := json.Unmarshal(message, &dto); err != nil {
		log.Errorf("dispatchPositions: failed to unmarshal positions: %v", err)
		return
	}

	positions := make([]eventmodels.GatewayPosition, 0, len(dto.Args))
	for _, p := range dto.Args {
		positions = append(positions, p.ToGatewayPosition())
	}

	s.market.setPositions(positions)

	eventpubsub.PublishEventResult("ibkr.Session", eventpubsub.NewPositionEvent, positions)
}

func (s *Session) dispatchPortfolio(message []byte) {
	var dto portfolioFrameDTO
	if err := json.Unmarshal(message, &dto); err != nil {
		log.Errorf("dispatchPortfolio: failed to unmarshal portfolio: %v", err)
		return
	}

	for _, itemDTO := range dto.Args {
		item := itemDTO.ToPortfolioItem()
		s.market.setPortfolioItem(item)

		eventpubsub.PublishEventResult("ibkr.Session", eventpubsub.NewPortfolioItemEvent, item)
	}
}

func (s *Session) dispatchAccountValues(message []byte) {
	var dto accountValuesFrameDTO
	if err := json.Unmarshal(message, &dto); err != nil {
		log.Errorf("dispatchAccountValues: failed to unmarshal account values: %v", err)
		return
	}

	for _, valueDTO := range dto.Args {
		value := valueDTO.ToAccountValue()
		s.market.setAccountValue(value)

		eventpubsub.PublishEventResult("ibkr.Session", eventpubsub.NewAccountValueEvent, value)
	}
}

func (s *Session) dispatchPnl(message []byte) {
	var dto pnlFrameDTO
	if err := json.Unmarshal(message, &dto); err != nil {
		log.Errorf("dispatchPnl: failed to unmarshal pnl: %v", err)
		return
	}

	row := dto.ToPnlRow()

	s.market.setPnl(row)
	s.subs.ResolvePnl(row.Account, row)

	eventpubsub.PublishEventResult("ibkr.Session", eventpubsub.NewPnlEvent, row)
}

func (s *Session) dispatchOrderAck(message []byte) {
	var dto orderAckFrameDTO
	if err := json.Unmarshal(message, &dto); err != nil {
		log.Errorf("dispatchOrderAck: failed to unmarshal order ack: %v", err)
		return
	}

	ack := dto.ToOrderAck()

	s.ackMutex.Lock()
	future := s.pendingAcks[ack.RequestID]
	delete(s.pendingAcks, ack.RequestID)
	s.ackMutex.Unlock()

	if future != nil {
		future.Resolve(ack)
	}

	eventpubsub.PublishEventResult("ibkr.Session", eventpubsub.OrderAckEvent, ack)
}

func (s *Session) registerAck(requestID string) *eventmodels.Future[eventmodels.OrderAck] {
	future := eventmodels.NewFuture[eventmodels.OrderAck]()

	s.ackMutex.Lock()
	s.pendingAcks[requestID] = future
	s.ackMutex.Unlock()

	return future
}

// SubscriptionCounts reports active subscription totals for the status
// surface.
func (s *Session) SubscriptionCounts() (marketData int, accountUpdates int, pnl int) {
	return s.subs.Counts()
}

func (s *Session) SummaryCacheStats() eventservices.CacheStats {
	return s.summaryCache.Stats()
}
