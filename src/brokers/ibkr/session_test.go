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

func newTestSession(t *testing.T) (*Session, *MockGatewayConn) {
	t.Helper()

	cfg := &eventmodels.BridgeConfigYAML{}
	cfg.ApplyDefaults()
	cfg.Gateway.ClientID = 1

	session := NewSession(cfg, nil, eventservices.NewMarketSessionClock())

	mock := NewMockGatewayConn()
	session.dial = func(urlStr string) (IGatewayConn, error) {
		return mock, nil
	}

	require.NoError(t, session.Connect(context.Background()))

	t.Cleanup(session.Disconnect)

	return session, mock
}

func TestSessionLifecycle(t *testing.T) {
	t.Run("connect is idempotent", func(t *testing.T) {
		session, _ := newTestSession(t)

		assert.True(t, session.IsConnected())
		assert.NoError(t, session.Connect(context.Background()))
		assert.True(t, session.IsConnected())
	})

	t.Run("disconnect cancels tracked subscriptions", func(t *testing.T) {
		session, mock := newTestSession(t)

		_, err := session.subs.EnsureMarketData(265598)
		require.NoError(t, err)
		require.NoError(t, session.subs.EnsureAccountUpdates("U111"))

		session.Disconnect()

		assert.False(t, session.IsConnected())
		assert.Len(t, mock.FramesWithPrefix("umd+"), 1)
		assert.Len(t, mock.FramesWithPrefix("usd+"), 1)

		marketData, accountUpdates, pnl := session.SubscriptionCounts()
		assert.Zero(t, marketData)
		assert.Zero(t, accountUpdates)
		assert.Zero(t, pnl)
	})

	t.Run("gateway drop marks session disconnected without reconnect", func(t *testing.T) {
		session, mock := newTestSession(t)

		require.NoError(t, mock.Close())

		assert.Eventually(t, func() bool {
			return !session.IsConnected()
		}, time.Second, 10*time.Millisecond)

		// No redial happens: the mock recorded no further traffic.
		frames := len(mock.Frames())
		time.Sleep(50 * time.Millisecond)
		assert.Len(t, mock.Frames(), frames)
	})
}

func TestSessionDispatch(t *testing.T) {
	t.Run("quote frame lands in market state and resolves first tick", func(t *testing.T) {
		session, mock := newTestSession(t)

		future, err := session.subs.EnsureMarketData(265598)
		require.NoError(t, err)

		mock.Push([]byte(`{"topic":"smd+265598","conid":265598,"55":"AAPL","31":"421.10","37":"420.50","84":"420.40","86":"420.60","7741":"410.00"}`))

		quote, err := future.Await(context.Background(), time.Second)
		require.NoError(t, err)

		assert.Equal(t, eventmodels.StockSymbol("AAPL"), quote.Symbol)
		assert.Equal(t, 420.50, quote.Mark)
		assert.Equal(t, 410.00, quote.Close)

		stored, found := session.market.quote(265598)
		require.True(t, found)
		assert.Equal(t, 421.10, stored.Last)
	})

	t.Run("quote without symbol keeps the last known one", func(t *testing.T) {
		session, mock := newTestSession(t)

		mock.Push([]byte(`{"topic":"smd+265598","conid":265598,"55":"AAPL","37":"420.00"}`))
		mock.Push([]byte(`{"topic":"smd+265598","conid":265598,"37":"421.00"}`))

		assert.Eventually(t, func() bool {
			quote, found := session.market.quote(265598)
			return found && quote.Mark == 421.00 && quote.Symbol == "AAPL"
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("positions frame replaces the stored slice wholesale", func(t *testing.T) {
		session, mock := newTestSession(t)

		mock.Push([]byte(`{"topic":"spo","args":[{"conid":1,"acctId":"U111","contractDesc":"AAPL","secType":"STK","position":10,"avgCost":400},{"conid":2,"acctId":"U111","contractDesc":"MSFT","secType":"STK","position":5,"avgCost":300}]}`))

		assert.Eventually(t, func() bool {
			return len(session.market.snapshotPositions()) == 2
		}, time.Second, 10*time.Millisecond)

		mock.Push([]byte(`{"topic":"spo","args":[{"conid":1,"acctId":"U111","contractDesc":"AAPL","secType":"STK","position":10,"avgCost":400}]}`))

		assert.Eventually(t, func() bool {
			return len(session.market.snapshotPositions()) == 1
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("stock conids are learned from positions and quotes", func(t *testing.T) {
		session, mock := newTestSession(t)

		mock.Push([]byte(`{"topic":"spo","args":[{"conid":265598,"acctId":"U111","contractDesc":"AAPL","secType":"STK","position":10,"avgCost":400}]}`))

		assert.Eventually(t, func() bool {
			conID, found := session.market.stockConID("AAPL")
			return found && conID == 265598
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("malformed frames are dropped without killing the loop", func(t *testing.T) {
		session, mock := newTestSession(t)

		mock.Push([]byte(`{not json`))
		mock.Push([]byte(`{"topic":"smd+1","conid":1,"37":"10"}`))

		assert.Eventually(t, func() bool {
			_, found := session.market.quote(1)
			return found
		}, time.Second, 10*time.Millisecond)
		assert.True(t, session.IsConnected())
	})

	t.Run("gateway error frames are logged and skipped", func(t *testing.T) {
		session, mock := newTestSession(t)

		mock.Push([]byte(`{"topic":"smd+1","error":"no market data permissions","code":1024}`))
		mock.Push([]byte(`{"topic":"smd+1","conid":1,"37":"10"}`))

		assert.Eventually(t, func() bool {
			quote, found := session.market.quote(1)
			return found && quote.Mark == 10
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("rejected order ack resolves the pending future with its reason", func(t *testing.T) {
		session, mock := newTestSession(t)

		future := session.registerAck("tc-1-abc")
		mock.Push([]byte(`{"topic":"sor","cOID":"tc-1-abc","order_status":"Rejected","error":"insufficient buying power"}`))

		ack, err := future.Await(context.Background(), time.Second)
		require.NoError(t, err)
		assert.Equal(t, "Rejected", ack.Status)
		assert.Equal(t, "insufficient buying power", ack.Error)
	})
}
