package alpaca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/tradecraft/src/brokers"
	"github.com/jiaming2012/tradecraft/src/eventmodels"
	"github.com/jiaming2012/tradecraft/src/eventservices"
	"github.com/jiaming2012/tradecraft/src/utils"
)

func init() {
	brokers.Register("alpaca", func(cfg *eventmodels.BridgeConfigYAML) (brokers.IBrokerSession, error) {
		apiKey, err := utils.GetEnv("APCA_API_KEY_ID")
		if err != nil {
			return nil, fmt.Errorf("alpaca: %w", err)
		}

		apiSecret, err := utils.GetEnv("APCA_API_SECRET_KEY")
		if err != nil {
			return nil, fmt.Errorf("alpaca: %w", err)
		}

		provider, err := eventservices.NewDataProviderFromConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("alpaca: %w", err)
		}

		return NewSession(cfg.Alpaca.BaseURL, apiKey, apiSecret, cfg.MaxStrikes, provider, eventservices.NewMarketSessionClock()), nil
	})
}

// Session is the REST variant of the broker session. There is no persistent
// feed to hold open: Connect verifies the credentials against the account
// endpoint and every read hits the API, softened by the snapshot cache.
type Session struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	maxStrikes int

	client *http.Client

	mutex     sync.Mutex
	connected bool
	account   string

	provider      eventservices.IDataProvider
	snapshotCache *eventservices.TTLCache[eventmodels.DailySnapshot]
	chain         *eventservices.ChainAssembler
}

func NewSession(baseURL, apiKey, apiSecret string, maxStrikes int, provider eventservices.IDataProvider, clock *eventservices.MarketSessionClock) *Session {
	return &Session{
		baseURL:    baseURL,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		maxStrikes: maxStrikes,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		provider:      provider,
		snapshotCache: eventservices.NewTTLCache[eventmodels.DailySnapshot](clock),
		chain:         eventservices.NewChainAssembler(provider, clock),
	}
}

// Connect verifies the credentials by fetching the account record and pins
// the account number used in position and summary views.
func (s *Session) Connect(ctx context.Context) error {
	var account accountDTO
	if err := s.get(ctx, "/v2/account", &account); err != nil {
		return fmt.Errorf("Connect: %w", err)
	}

	s.mutex.Lock()
	s.connected = true
	s.account = account.AccountNumber
	s.mutex.Unlock()

	log.Infof("connected to alpaca account %s (%s)", account.AccountNumber, account.Status)

	return nil
}

func (s *Session) IsConnected() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.connected
}

func (s *Session) Disconnect() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.connected = false

	log.Info("disconnected from alpaca")
}

func (s *Session) accountNumber() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.account
}

func (s *Session) GetPositions(ctx context.Context) (eventmodels.PositionsView, error) {
	view := eventmodels.NewEmptyPositionsView()

	if !s.IsConnected() {
		return view, nil
	}

	var dtos []positionDTO
	if err := s.get(ctx, "/v2/positions", &dtos); err != nil {
		return view, fmt.Errorf("GetPositions: %w", err)
	}

	account := s.accountNumber()

	for _, dto := range dtos {
		position, err := s.reconcilePosition(ctx, dto, account)
		if err != nil {
			log.Warnf("GetPositions: skipping %s: %v", dto.Symbol, err)
			continue
		}

		view.Positions = append(view.Positions, position)
	}

	if len(view.Positions) > 0 {
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

func (s *Session) reconcilePosition(ctx context.Context, dto positionDTO, account string) (eventmodels.Position, error) {
	quantity := utils.ParseFloat(dto.Qty, 0)
	if dto.Side == "short" && quantity > 0 {
		quantity = -quantity
	}

	position := eventmodels.Position{
		Ticker:        eventmodels.NewStockSymbol(dto.Symbol),
		Kind:          eventmodels.PositionKindStock,
		Quantity:      quantity,
		AvgCost:       utils.ParseFloat(dto.AvgEntryPrice, 0),
		CurrentPrice:  utils.ParseFloat(dto.CurrentPrice, 0),
		UnrealizedPnl: utils.ParseFloat(dto.UnrealizedPl, 0),
		DailyPnl:      utils.ParseFloat(dto.UnrealizedIntradayPl, 0),
		Account:       account,
	}

	if dto.IsOption() {
		components, err := eventmodels.NewOptionSymbolComponents(eventmodels.OptionSymbol(dto.Symbol))
		if err != nil {
			return eventmodels.Position{}, err
		}

		position.Ticker = eventmodels.NewStockSymbol(components.Underlying)
		position.Kind = eventmodels.PositionKindCall
		if components.OptionType == "P" {
			position.Kind = eventmodels.PositionKindPut
		}
		position.Strike = components.StrikePrice
		position.Expiry = components.Expiration.Format("2006-01-02")

		days := int(time.Until(components.Expiration).Hours() / 24)
		if days > 0 {
			position.DaysToExpiry = days
		}

		position.UnderlyingPrice = s.underlyingPrice(ctx, position.Ticker)
	}

	return position, nil
}

// underlyingPrice serves the provider's daily snapshot through the session
// cache, so a position list with many legs on one underlying costs one call.
func (s *Session) underlyingPrice(ctx context.Context, symbol eventmodels.StockSymbol) float64 {
	cacheKey := fmt.Sprintf("daily_snapshot:%s", symbol)

	snapshot, found := s.snapshotCache.Get(cacheKey)
	if !found {
		var err error
		snapshot, err = s.provider.FetchDailySnapshot(ctx, symbol)
		if err != nil {
			log.Debugf("underlyingPrice: no daily snapshot for %s: %v", symbol, err)
			return 0
		}

		s.snapshotCache.Set(cacheKey, snapshot)
	}

	return snapshot.CurrentPrice
}

func (s *Session) GetAccountSummary(ctx context.Context) (map[string]eventmodels.AccountSummary, error) {
	if !s.IsConnected() {
		return map[string]eventmodels.AccountSummary{}, nil
	}

	var account accountDTO
	if err := s.get(ctx, "/v2/account", &account); err != nil {
		return map[string]eventmodels.AccountSummary{}, fmt.Errorf("GetAccountSummary: %w", err)
	}

	summary := account.ToAccountSummary()

	return map[string]eventmodels.AccountSummary{
		summary.Account: summary,
	}, nil
}

func (s *Session) PlaceStockOrder(ctx context.Context, order eventmodels.TradeOrder) eventmodels.OrderResult {
	if err := validateOrder(order.Symbol, order.Side, order.Quantity, order.OrderType, order.LimitPrice); err != nil {
		return eventmodels.OrderResult{Success: false, Error: err.Error()}
	}

	if !s.IsConnected() {
		return eventmodels.OrderResult{Success: false, Error: eventmodels.ErrNotConnected.Error()}
	}

	return s.submitOrder(ctx, buildOrderRequest(order.Symbol.String(), order.Side, order.Quantity, order.OrderType, order.LimitPrice))
}

func (s *Session) PlaceOptionOrder(ctx context.Context, leg eventmodels.OptionOrderLeg, orderType eventmodels.OrderType, limitPrice *float64) eventmodels.OrderResult {
	request, err := s.normalizeLeg(leg, orderType, limitPrice)
	if err != nil {
		return eventmodels.OrderResult{Success: false, Error: err.Error()}
	}

	if !s.IsConnected() {
		return eventmodels.OrderResult{Success: false, Error: eventmodels.ErrNotConnected.Error()}
	}

	return s.submitOrder(ctx, request)
}

// PlaceMultiLegOptionOrder submits each leg independently, same decomposition
// semantics as the gateway session: one rejected leg does not stop the rest,
// and a supplied limit price is applied to every leg as-is.
func (s *Session) PlaceMultiLegOptionOrder(ctx context.Context, legs []eventmodels.OptionOrderLeg, orderType eventmodels.OrderType, limitPrice *float64) eventmodels.MultiLegOrderResult {
	result := eventmodels.MultiLegOrderResult{
		PartialResults: []eventmodels.OrderResult{},
	}

	if len(legs) == 0 {
		result.Errors = append(result.Errors, "no legs provided")
		return result
	}

	requests := make([]orderRequestDTO, 0, len(legs))
	for i, leg := range legs {
		request, err := s.normalizeLeg(leg, orderType, limitPrice)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("leg %d: %v", i+1, err))
			return result
		}

		requests = append(requests, request)
	}

	if !s.IsConnected() {
		result.Errors = append(result.Errors, eventmodels.ErrNotConnected.Error())
		return result
	}

	for i, request := range requests {
		legResult := s.submitOrder(ctx, request)
		if !legResult.Success {
			log.Errorf("PlaceMultiLegOptionOrder: leg %d (%s) failed: %s", i+1, request.Symbol, legResult.Error)
			result.Errors = append(result.Errors, fmt.Sprintf("leg %d: %s", i+1, legResult.Error))
			continue
		}

		result.PartialResults = append(result.PartialResults, legResult)
		result.OrderIDs = append(result.OrderIDs, legResult.OrderID)
	}

	result.Success = len(result.Errors) == 0

	return result
}

func (s *Session) GetOptionsChain(ctx context.Context, symbol eventmodels.StockSymbol, maxStrikes int) (eventmodels.OptionChain, error) {
	if maxStrikes <= 0 {
		maxStrikes = s.maxStrikes
	}

	return s.chain.Assemble(ctx, symbol, maxStrikes, 0)
}

func (s *Session) normalizeLeg(leg eventmodels.OptionOrderLeg, orderType eventmodels.OrderType, limitPrice *float64) (orderRequestDTO, error) {
	if err := validateOrder(leg.Symbol, leg.Side, leg.Quantity, orderType, limitPrice); err != nil {
		return orderRequestDTO{}, err
	}

	optionType, err := eventmodels.NewOptionTypeFromRight(leg.Right)
	if err != nil {
		return orderRequestDTO{}, err
	}

	if leg.Strike <= 0 {
		return orderRequestDTO{}, fmt.Errorf("strike must be positive, got %v", leg.Strike)
	}

	expiration, err := time.Parse("20060102", eventmodels.NormalizeExpiry(leg.Expiry))
	if err != nil {
		return orderRequestDTO{}, fmt.Errorf("invalid expiry: %s", leg.Expiry)
	}

	symbol, err := eventmodels.NewOptionSymbol(eventmodels.OptionSymbolComponents{
		Underlying:  leg.Symbol.String(),
		Expiration:  expiration,
		OptionType:  optionType.GatewayRight(),
		StrikePrice: leg.Strike,
	})
	if err != nil {
		return orderRequestDTO{}, err
	}

	return buildOrderRequest(string(symbol), leg.Side, leg.Quantity, orderType, limitPrice), nil
}

func buildOrderRequest(symbol string, side eventmodels.OrderSide, quantity float64, orderType eventmodels.OrderType, limitPrice *float64) orderRequestDTO {
	request := orderRequestDTO{
		Symbol:      symbol,
		Qty:         fmt.Sprintf("%g", quantity),
		Side:        "buy",
		Type:        "market",
		TimeInForce: "day",
		ClientOrder: fmt.Sprintf("tc-%s", uuid.NewString()),
	}

	if side == eventmodels.OrderSideSell {
		request.Side = "sell"
	}

	if orderType == eventmodels.OrderTypeLimit {
		request.Type = "limit"
		request.LimitPrice = fmt.Sprintf("%g", *limitPrice)
	}

	return request
}

func validateOrder(symbol eventmodels.StockSymbol, side eventmodels.OrderSide, quantity float64, orderType eventmodels.OrderType, limitPrice *float64) error {
	if err := symbol.Validate(); err != nil {
		return err
	}

	if err := side.Validate(); err != nil {
		return err
	}

	if err := orderType.Validate(); err != nil {
		return err
	}

	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %v", quantity)
	}

	if orderType == eventmodels.OrderTypeLimit {
		if limitPrice == nil {
			return fmt.Errorf("limit price required for LIMIT orders")
		}
		if *limitPrice <= 0 {
			return fmt.Errorf("limit price must be positive, got %v", *limitPrice)
		}
	}

	return nil
}

func (s *Session) submitOrder(ctx context.Context, request orderRequestDTO) eventmodels.OrderResult {
	payload, err := json.Marshal(request)
	if err != nil {
		return eventmodels.OrderResult{Success: false, Error: fmt.Sprintf("failed to marshal order: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v2/orders", bytes.NewReader(payload))
	if err != nil {
		return eventmodels.OrderResult{Success: false, Error: fmt.Sprintf("failed to create request: %v", err)}
	}

	req.Header.Add("Content-Type", "application/json")
	s.addAuth(req)

	res, err := s.client.Do(req)
	if err != nil {
		return eventmodels.OrderResult{Success: false, Error: fmt.Sprintf("failed to submit order: %v", err)}
	}

	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return eventmodels.OrderResult{Success: false, Error: fmt.Sprintf("failed to read response body: %v", err)}
	}

	if res.StatusCode != http.StatusOK {
		var apiErr errorResponseDTO
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return eventmodels.OrderResult{Success: false, Error: apiErr.Message}
		}

		return eventmodels.OrderResult{Success: false, Error: fmt.Sprintf("order rejected: %s", res.Status)}
	}

	var order orderResponseDTO
	if err := json.Unmarshal(body, &order); err != nil {
		return eventmodels.OrderResult{Success: false, Error: fmt.Sprintf("failed to parse order response: %v", err)}
	}

	log.Infof("submitted alpaca order %s: %s %s %s", order.ID, request.Side, request.Qty, request.Symbol)

	return eventmodels.OrderResult{
		Success: true,
		OrderID: order.ID,
		Status:  order.Status,
	}
}

func (s *Session) addAuth(req *http.Request) {
	req.Header.Add("Accept", "application/json")
	req.Header.Add("APCA-API-KEY-ID", s.apiKey)
	req.Header.Add("APCA-API-SECRET-KEY", s.apiSecret)
}

func (s *Session) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	s.addAuth(req)

	res, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", path, err)
	}

	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch %s: %s", path, res.Status)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", path, err)
	}

	return nil
}
