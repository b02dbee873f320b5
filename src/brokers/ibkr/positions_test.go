package ibkr

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiaming2012/tradecraft/src/eventmodels"
	"github.com/jiaming2012/tradecraft/src/eventservices"
)

func TestPriorCloseCache(t *testing.T) {
	t.Run("first close is stored unconditionally", func(t *testing.T) {
		cache := NewPriorCloseCache()

		cache.Update(1, 410.0, 0)

		price, found := cache.Get(1)
		require.True(t, found)
		assert.Equal(t, 410.0, price)
	})

	t.Run("close within tolerance of live price does not overwrite", func(t *testing.T) {
		cache := NewPriorCloseCache()

		cache.Update(1, 410.0, 0)

		// Around the roll the feed reports close == live price.
		cache.Update(1, 420.0, 420.0)

		price, _ := cache.Get(1)
		assert.Equal(t, 410.0, price)
	})

	t.Run("genuinely new close overwrites", func(t *testing.T) {
		cache := NewPriorCloseCache()

		cache.Update(1, 410.0, 0)
		cache.Update(1, 420.0, 432.0)

		price, _ := cache.Get(1)
		assert.Equal(t, 420.0, price)
	})

	t.Run("non positive close is ignored", func(t *testing.T) {
		cache := NewPriorCloseCache()

		cache.Update(1, 0, 420.0)
		cache.Update(1, -1, 420.0)

		_, found := cache.Get(1)
		assert.False(t, found)
	})
}

func TestGetPositions(t *testing.T) {
	t.Run("disconnected session serves an empty well-formed view", func(t *testing.T) {
		cfg := &eventmodels.BridgeConfigYAML{}
		cfg.ApplyDefaults()

		session := NewSession(cfg, nil, eventservices.NewMarketSessionClock())

		view, err := session.GetPositions(context.Background())
		require.NoError(t, err)

		assert.NotNil(t, view.Accounts)
		assert.NotNil(t, view.Positions)
		assert.NotNil(t, view.Summary)
		assert.Empty(t, view.Positions)
	})

	t.Run("stock position reconciles price and pnl from the live quote", func(t *testing.T) {
		session, mock := newTestSession(t)

		mock.QuoteFrames[265598] = []byte(`{"topic":"smd+265598","conid":265598,"55":"AAPL","31":"421.00","37":"420.00","7741":"410.00"}`)
		mock.Push([]byte(`{"topic":"spo","args":[{"conid":265598,"acctId":"U111","contractDesc":"AAPL","secType":"STK","position":10,"avgCost":400}]}`))

		require.Eventually(t, func() bool {
			return len(session.market.snapshotPositions()) == 1
		}, time.Second, 10*time.Millisecond)

		view, err := session.GetPositions(context.Background())
		require.NoError(t, err)
		require.Len(t, view.Positions, 1)

		position := view.Positions[0]
		assert.Equal(t, eventmodels.StockSymbol("AAPL"), position.Ticker)
		assert.Equal(t, eventmodels.PositionKindStock, position.Kind)
		assert.Equal(t, 420.0, position.CurrentPrice)
		assert.InDelta(t, 200.0, position.UnrealizedPnl, 1e-9)
		assert.InDelta(t, 100.0, position.DailyPnl, 1e-9)
		assert.Equal(t, []string{"U111"}, view.Accounts)
	})

	t.Run("portfolio snapshot unrealized pnl wins over the cost basis formula", func(t *testing.T) {
		session, mock := newTestSession(t)

		mock.QuoteFrames[265598] = []byte(`{"topic":"smd+265598","conid":265598,"55":"AAPL","37":"420.00","7741":"410.00"}`)
		mock.Push([]byte(`{"topic":"spo","args":[{"conid":265598,"acctId":"U111","contractDesc":"AAPL","secType":"STK","position":10,"avgCost":400}]}`))
		mock.Push([]byte(`{"topic":"spt","args":[{"conid":265598,"acctId":"U111","unrealizedPnl":123.45}]}`))

		require.Eventually(t, func() bool {
			_, found := session.market.portfolioItem(265598, "U111")
			return found && len(session.market.snapshotPositions()) == 1
		}, time.Second, 10*time.Millisecond)

		view, err := session.GetPositions(context.Background())
		require.NoError(t, err)
		require.Len(t, view.Positions, 1)

		assert.InDelta(t, 123.45, view.Positions[0].UnrealizedPnl, 1e-9)
	})

	t.Run("portfolio item for another account does not leak over", func(t *testing.T) {
		session, mock := newTestSession(t)

		mock.QuoteFrames[265598] = []byte(`{"topic":"smd+265598","conid":265598,"55":"AAPL","37":"420.00","7741":"410.00"}`)
		mock.Push([]byte(`{"topic":"spo","args":[{"conid":265598,"acctId":"U111","contractDesc":"AAPL","secType":"STK","position":10,"avgCost":400}]}`))
		mock.Push([]byte(`{"topic":"spt","args":[{"conid":265598,"acctId":"U222","unrealizedPnl":-999}]}`))

		require.Eventually(t, func() bool {
			_, found := session.market.portfolioItem(265598, "U222")
			return found && len(session.market.snapshotPositions()) == 1
		}, time.Second, 10*time.Millisecond)

		view, err := session.GetPositions(context.Background())
		require.NoError(t, err)
		require.Len(t, view.Positions, 1)

		assert.InDelta(t, 200.0, view.Positions[0].UnrealizedPnl, 1e-9)
	})

	t.Run("option position scales cost basis and carries greeks", func(t *testing.T) {
		session, mock := newTestSession(t)

		mock.QuoteFrames[265598] = []byte(`{"topic":"smd+265598","conid":265598,"55":"AAPL","37":"425.00","7741":"424.00"}`)
		mock.QuoteFrames[777] = []byte(`{"topic":"smd+777","conid":777,"37":"6.00","7741":"5.50","7283":"0.25","7308":"0.52","7309":"0.01","7310":"-0.08","7311":"0.11","7284":"425.30"}`)

		mock.Push([]byte(`{"topic":"spo","args":[` +
			`{"conid":265598,"acctId":"U111","contractDesc":"AAPL","secType":"STK","position":10,"avgCost":400},` +
			`{"conid":777,"acctId":"U111","contractDesc":"AAPL","secType":"OPT","right":"C","strike":430,"expiry":"20991218","position":2,"avgCost":500}]}`))

		require.Eventually(t, func() bool {
			return len(session.market.snapshotPositions()) == 2
		}, time.Second, 10*time.Millisecond)

		view, err := session.GetPositions(context.Background())
		require.NoError(t, err)
		require.Len(t, view.Positions, 2)

		option := view.Positions[1]
		assert.Equal(t, eventmodels.PositionKindCall, option.Kind)
		assert.Equal(t, 430.0, option.Strike)
		assert.Equal(t, "2099-12-18", option.Expiry)
		assert.Greater(t, option.DaysToExpiry, 0)

		// Raw 500 per contract is 5.00 per share.
		assert.InDelta(t, 5.0, option.AvgCost, 1e-9)
		assert.InDelta(t, 6.0, option.CurrentPrice, 1e-9)

		// (6.00 - 5.00) * 2 contracts * 100.
		assert.InDelta(t, 200.0, option.UnrealizedPnl, 1e-9)

		// (6.00 - 5.50) * 2 contracts * 100.
		assert.InDelta(t, 100.0, option.DailyPnl, 1e-9)

		assert.InDelta(t, 0.52, option.Greeks.Delta, 1e-9)
		assert.InDelta(t, 0.25, option.Greeks.IV, 1e-9)
		assert.InDelta(t, 425.30, option.UnderlyingPrice, 1e-9)
	})

	t.Run("option underlying price falls back to the stock quote", func(t *testing.T) {
		session, mock := newTestSession(t)

		mock.QuoteFrames[265598] = []byte(`{"topic":"smd+265598","conid":265598,"55":"AAPL","37":"425.00","7741":"424.00"}`)

		// Greeks present so the quote counts as an option stream, but no
		// underlying price field.
		mock.QuoteFrames[777] = []byte(`{"topic":"smd+777","conid":777,"37":"6.00","7741":"5.50","7283":"0.25"}`)

		mock.Push([]byte(`{"topic":"spo","args":[` +
			`{"conid":265598,"acctId":"U111","contractDesc":"AAPL","secType":"STK","position":10,"avgCost":400},` +
			`{"conid":777,"acctId":"U111","contractDesc":"AAPL","secType":"OPT","right":"C","strike":430,"expiry":"20991218","position":2,"avgCost":500}]}`))

		require.Eventually(t, func() bool {
			return len(session.market.snapshotPositions()) == 2
		}, time.Second, 10*time.Millisecond)

		view, err := session.GetPositions(context.Background())
		require.NoError(t, err)
		require.Len(t, view.Positions, 2)

		assert.InDelta(t, 425.0, view.Positions[1].UnderlyingPrice, 1e-9)
	})

	t.Run("missing quote falls back to cached prior close then zero", func(t *testing.T) {
		session, mock := newTestSession(t)

		mock.Push([]byte(`{"topic":"spo","args":[{"conid":42,"acctId":"U111","contractDesc":"XYZ","secType":"STK","position":3,"avgCost":50}]}`))

		require.Eventually(t, func() bool {
			return len(session.market.snapshotPositions()) == 1
		}, time.Second, 10*time.Millisecond)

		// No quote at all: price and pnl stay zero.
		view, err := session.GetPositions(context.Background())
		require.NoError(t, err)
		require.Len(t, view.Positions, 1)
		assert.Zero(t, view.Positions[0].CurrentPrice)
		assert.Zero(t, view.Positions[0].DailyPnl)

		// A prior close without any live price prices the position at close,
		// but daily pnl needs both prices and the cached close is the price.
		session.priorClose.Update(42, 48.0, 0)

		view, err = session.GetPositions(context.Background())
		require.NoError(t, err)
		assert.InDelta(t, 48.0, view.Positions[0].CurrentPrice, 1e-9)
	})

	t.Run("subscribes account updates once per account", func(t *testing.T) {
		session, mock := newTestSession(t)

		mock.QuoteFrames[1] = []byte(`{"topic":"smd+1","conid":1,"55":"AAPL","37":"10","7741":"9"}`)
		mock.QuoteFrames[2] = []byte(`{"topic":"smd+2","conid":2,"55":"MSFT","37":"20","7741":"19"}`)
		mock.Push([]byte(`{"topic":"spo","args":[` +
			`{"conid":1,"acctId":"U111","contractDesc":"AAPL","secType":"STK","position":1,"avgCost":10},` +
			`{"conid":2,"acctId":"U111","contractDesc":"MSFT","secType":"STK","position":1,"avgCost":20}]}`))

		require.Eventually(t, func() bool {
			return len(session.market.snapshotPositions()) == 2
		}, time.Second, 10*time.Millisecond)

		_, err := session.GetPositions(context.Background())
		require.NoError(t, err)
		_, err = session.GetPositions(context.Background())
		require.NoError(t, err)

		assert.Len(t, mock.FramesWithPrefix("ssd+"), 1)
	})
}

func TestExpiryHelpers(t *testing.T) {
	t.Run("formats digit expiry as iso date", func(t *testing.T) {
		assert.Equal(t, "2026-01-16", formatExpiry("20260116"))
	})

	t.Run("passes malformed expiry through", func(t *testing.T) {
		assert.Equal(t, "Jan16", formatExpiry("Jan16"))
	})

	t.Run("expired contracts report zero days", func(t *testing.T) {
		assert.Zero(t, daysToExpiry("20200117"))
	})
}
