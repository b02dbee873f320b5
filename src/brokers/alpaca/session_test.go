package alpaca

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiaming2012/tradecraft/src/eventmodels"
	"github.com/jiaming2012/tradecraft/src/eventservices"
)

type fakeProvider struct {
	snapshots map[eventmodels.StockSymbol]eventmodels.DailySnapshot
	calls     int
}

func (f *fakeProvider) FetchHistoricalBars(ctx context.Context, symbol eventmodels.StockSymbol, timeframe string) ([]eventmodels.Candle, error) {
	return nil, nil
}

func (f *fakeProvider) FetchDailySnapshot(ctx context.Context, symbol eventmodels.StockSymbol) (eventmodels.DailySnapshot, error) {
	f.calls += 1

	snapshot, found := f.snapshots[symbol]
	if !found {
		return eventmodels.DailySnapshot{}, fmt.Errorf("no snapshot for %s", symbol)
	}

	return snapshot, nil
}

func (f *fakeProvider) FetchTickerDetails(ctx context.Context, symbol eventmodels.StockSymbol) (eventmodels.TickerDetails, error) {
	return eventmodels.TickerDetails{}, nil
}

func (f *fakeProvider) FetchTickerNews(ctx context.Context, symbol eventmodels.StockSymbol, limit int) ([]eventmodels.TickerNewsItem, error) {
	return nil, nil
}

func (f *fakeProvider) FetchOptionChainSnapshot(ctx context.Context, symbol eventmodels.StockSymbol) ([]eventmodels.OptionContractSnapshot, error) {
	return nil, nil
}

type fakeAlpaca struct {
	mutex     sync.Mutex
	positions []positionDTO
	rejects   map[string]string
	orders    []orderRequestDTO
	unauth    bool
}

func (f *fakeAlpaca) server(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/v2/account", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-key", r.Header.Get("APCA-API-KEY-ID"))
		require.Equal(t, "test-secret", r.Header.Get("APCA-API-SECRET-KEY"))

		if f.unauth {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		json.NewEncoder(w).Encode(accountDTO{
			ID:            "904837e3",
			AccountNumber: "PA3ABC",
			Status:        "ACTIVE",
			Currency:      "USD",
			Equity:        "100500.25",
			LastEquity:    "100000.25",
			Cash:          "25000",
			BuyingPower:   "50000",
		})
	})

	mux.HandleFunc("/v2/positions", func(w http.ResponseWriter, r *http.Request) {
		f.mutex.Lock()
		defer f.mutex.Unlock()

		json.NewEncoder(w).Encode(f.positions)
	})

	mux.HandleFunc("/v2/orders", func(w http.ResponseWriter, r *http.Request) {
		var request orderRequestDTO
		require.NoError(t, json.NewDecoder(r.Body).Decode(&request))

		f.mutex.Lock()
		f.orders = append(f.orders, request)
		reason := ""
		for prefix, message := range f.rejects {
			if strings.HasPrefix(request.Symbol, prefix) {
				reason = message
			}
		}
		count := len(f.orders)
		f.mutex.Unlock()

		if reason != "" {
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(errorResponseDTO{Code: 40310000, Message: reason})
			return
		}

		json.NewEncoder(w).Encode(orderResponseDTO{
			ID:     fmt.Sprintf("order-%d", count),
			Status: "accepted",
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

func (f *fakeAlpaca) recordedOrders() []orderRequestDTO {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	out := make([]orderRequestDTO, len(f.orders))
	copy(out, f.orders)
	return out
}

func newAlpacaTestSession(t *testing.T, fake *fakeAlpaca, provider *fakeProvider) *Session {
	t.Helper()

	if provider == nil {
		provider = &fakeProvider{}
	}

	server := fake.server(t)
	session := NewSession(server.URL, "test-key", "test-secret", 20, provider, eventservices.NewMarketSessionClock())

	require.NoError(t, session.Connect(context.Background()))

	return session
}

func TestAlpacaConnect(t *testing.T) {
	t.Run("pins the account number on success", func(t *testing.T) {
		session := newAlpacaTestSession(t, &fakeAlpaca{}, nil)

		assert.True(t, session.IsConnected())
		assert.Equal(t, "PA3ABC", session.accountNumber())
	})

	t.Run("rejected credentials fail the connect", func(t *testing.T) {
		fake := &fakeAlpaca{unauth: true}
		server := fake.server(t)

		session := NewSession(server.URL, "test-key", "test-secret", 20, &fakeProvider{}, eventservices.NewMarketSessionClock())

		assert.Error(t, session.Connect(context.Background()))
		assert.False(t, session.IsConnected())
	})

	t.Run("disconnect drops the connected flag", func(t *testing.T) {
		session := newAlpacaTestSession(t, &fakeAlpaca{}, nil)

		session.Disconnect()

		assert.False(t, session.IsConnected())
	})
}

func TestAlpacaGetPositions(t *testing.T) {
	t.Run("disconnected session serves an empty well-formed view", func(t *testing.T) {
		session := NewSession("http://127.0.0.1:1", "k", "s", 20, &fakeProvider{}, eventservices.NewMarketSessionClock())

		view, err := session.GetPositions(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, view.Positions)
		assert.NotNil(t, view.Summary)
		assert.Empty(t, view.Positions)
	})

	t.Run("maps stock positions with intraday pnl", func(t *testing.T) {
		fake := &fakeAlpaca{
			positions: []positionDTO{{
				Symbol:               "AAPL",
				AssetClass:           "us_equity",
				Qty:                  "10",
				Side:                 "long",
				AvgEntryPrice:        "400",
				CurrentPrice:         "420",
				LastdayPrice:         "410",
				UnrealizedPl:         "200",
				UnrealizedIntradayPl: "100",
			}},
		}

		session := newAlpacaTestSession(t, fake, nil)

		view, err := session.GetPositions(context.Background())
		require.NoError(t, err)
		require.Len(t, view.Positions, 1)

		position := view.Positions[0]
		assert.Equal(t, eventmodels.StockSymbol("AAPL"), position.Ticker)
		assert.Equal(t, eventmodels.PositionKindStock, position.Kind)
		assert.Equal(t, 10.0, position.Quantity)
		assert.Equal(t, 420.0, position.CurrentPrice)
		assert.Equal(t, 200.0, position.UnrealizedPnl)
		assert.Equal(t, 100.0, position.DailyPnl)
		assert.Equal(t, []string{"PA3ABC"}, view.Accounts)
	})

	t.Run("short positions carry negative quantity", func(t *testing.T) {
		fake := &fakeAlpaca{
			positions: []positionDTO{{
				Symbol:     "MSFT",
				AssetClass: "us_equity",
				Qty:        "5",
				Side:       "short",
			}},
		}

		session := newAlpacaTestSession(t, fake, nil)

		view, err := session.GetPositions(context.Background())
		require.NoError(t, err)
		require.Len(t, view.Positions, 1)
		assert.Equal(t, -5.0, view.Positions[0].Quantity)
	})

	t.Run("parses occ option symbols and resolves the underlying price", func(t *testing.T) {
		fake := &fakeAlpaca{
			positions: []positionDTO{{
				Symbol:               "AAPL260116C00430000",
				AssetClass:           "us_option",
				Qty:                  "2",
				Side:                 "long",
				AvgEntryPrice:        "5.00",
				CurrentPrice:         "6.00",
				UnrealizedPl:         "200",
				UnrealizedIntradayPl: "100",
			}},
		}

		provider := &fakeProvider{snapshots: map[eventmodels.StockSymbol]eventmodels.DailySnapshot{
			"AAPL": {Symbol: "AAPL", CurrentPrice: 425.30},
		}}

		session := newAlpacaTestSession(t, fake, provider)

		view, err := session.GetPositions(context.Background())
		require.NoError(t, err)
		require.Len(t, view.Positions, 1)

		option := view.Positions[0]
		assert.Equal(t, eventmodels.StockSymbol("AAPL"), option.Ticker)
		assert.Equal(t, eventmodels.PositionKindCall, option.Kind)
		assert.Equal(t, 430.0, option.Strike)
		assert.Equal(t, "2026-01-16", option.Expiry)
		assert.Equal(t, 425.30, option.UnderlyingPrice)
	})

	t.Run("underlying snapshots are cached per symbol", func(t *testing.T) {
		leg := positionDTO{
			AssetClass: "us_option",
			Qty:        "1",
			Side:       "long",
		}

		long := leg
		long.Symbol = "SPY260116C00600000"
		short := leg
		short.Symbol = "SPY260116C00610000"

		fake := &fakeAlpaca{positions: []positionDTO{long, short}}

		provider := &fakeProvider{snapshots: map[eventmodels.StockSymbol]eventmodels.DailySnapshot{
			"SPY": {Symbol: "SPY", CurrentPrice: 605},
		}}

		session := newAlpacaTestSession(t, fake, provider)

		view, err := session.GetPositions(context.Background())
		require.NoError(t, err)
		require.Len(t, view.Positions, 2)

		assert.Equal(t, 1, provider.calls)
	})

	t.Run("unparseable option symbols are skipped not fatal", func(t *testing.T) {
		fake := &fakeAlpaca{
			positions: []positionDTO{
				{Symbol: "???", AssetClass: "us_option", Qty: "1", Side: "long"},
				{Symbol: "AAPL", AssetClass: "us_equity", Qty: "10", Side: "long"},
			},
		}

		session := newAlpacaTestSession(t, fake, nil)

		view, err := session.GetPositions(context.Background())
		require.NoError(t, err)
		require.Len(t, view.Positions, 1)
		assert.Equal(t, eventmodels.StockSymbol("AAPL"), view.Positions[0].Ticker)
	})
}

func TestAlpacaGetAccountSummary(t *testing.T) {
	t.Run("maps equity cash and daily pnl", func(t *testing.T) {
		session := newAlpacaTestSession(t, &fakeAlpaca{}, nil)

		summary, err := session.GetAccountSummary(context.Background())
		require.NoError(t, err)
		require.Contains(t, summary, "PA3ABC")

		account := summary["PA3ABC"]
		assert.Equal(t, 100500.25, account.NetLiquidation)
		assert.Equal(t, 25000.0, account.TotalCash)
		assert.Equal(t, 50000.0, account.BuyingPower)
		assert.InDelta(t, 500.0, account.DailyPnl, 1e-9)
	})

	t.Run("disconnected session serves an empty map", func(t *testing.T) {
		session := NewSession("http://127.0.0.1:1", "k", "s", 20, &fakeProvider{}, eventservices.NewMarketSessionClock())

		summary, err := session.GetAccountSummary(context.Background())
		require.NoError(t, err)
		assert.Empty(t, summary)
	})
}

func TestAlpacaOrders(t *testing.T) {
	t.Run("stock market order is accepted", func(t *testing.T) {
		fake := &fakeAlpaca{}
		session := newAlpacaTestSession(t, fake, nil)

		result := session.PlaceStockOrder(context.Background(), eventmodels.TradeOrder{
			Symbol:    "AAPL",
			Side:      eventmodels.OrderSideBuy,
			Quantity:  10,
			OrderType: eventmodels.OrderTypeMarket,
		})

		require.True(t, result.Success, result.Error)
		assert.Equal(t, "order-1", result.OrderID)
		assert.Equal(t, "accepted", result.Status)

		orders := fake.recordedOrders()
		require.Len(t, orders, 1)
		assert.Equal(t, "AAPL", orders[0].Symbol)
		assert.Equal(t, "buy", orders[0].Side)
		assert.Equal(t, "market", orders[0].Type)
		assert.Equal(t, "10", orders[0].Qty)
	})

	t.Run("limit order without a price never reaches the api", func(t *testing.T) {
		fake := &fakeAlpaca{}
		session := newAlpacaTestSession(t, fake, nil)

		result := session.PlaceStockOrder(context.Background(), eventmodels.TradeOrder{
			Symbol:    "AAPL",
			Side:      eventmodels.OrderSideBuy,
			Quantity:  10,
			OrderType: eventmodels.OrderTypeLimit,
		})

		assert.False(t, result.Success)
		assert.Empty(t, fake.recordedOrders())
	})

	t.Run("option leg is packed as an occ symbol", func(t *testing.T) {
		fake := &fakeAlpaca{}
		session := newAlpacaTestSession(t, fake, nil)

		limit := 2.45
		result := session.PlaceOptionOrder(context.Background(), eventmodels.OptionOrderLeg{
			Symbol:   "AAPL",
			Expiry:   "2026-01-16",
			Strike:   430,
			Right:    "CALL",
			Side:     eventmodels.OrderSideSell,
			Quantity: 2,
		}, eventmodels.OrderTypeLimit, &limit)

		require.True(t, result.Success, result.Error)

		orders := fake.recordedOrders()
		require.Len(t, orders, 1)
		assert.Equal(t, "AAPL260116C00430000", orders[0].Symbol)
		assert.Equal(t, "sell", orders[0].Side)
		assert.Equal(t, "limit", orders[0].Type)
		assert.Equal(t, "2.45", orders[0].LimitPrice)
	})

	t.Run("multi leg submits every leg and reports partial failures", func(t *testing.T) {
		fake := &fakeAlpaca{rejects: map[string]string{"QQQ": "margin check failed"}}
		session := newAlpacaTestSession(t, fake, nil)

		legs := []eventmodels.OptionOrderLeg{
			{Symbol: "SPY", Expiry: "2026-01-16", Strike: 600, Right: "CALL", Side: eventmodels.OrderSideBuy, Quantity: 1},
			{Symbol: "QQQ", Expiry: "2026-01-16", Strike: 520, Right: "CALL", Side: eventmodels.OrderSideSell, Quantity: 1},
		}

		result := session.PlaceMultiLegOptionOrder(context.Background(), legs, eventmodels.OrderTypeMarket, nil)

		assert.False(t, result.Success)
		assert.Len(t, result.OrderIDs, 1)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "margin check failed")
		assert.Len(t, fake.recordedOrders(), 2)
	})
}
