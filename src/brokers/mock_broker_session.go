package brokers

import (
	"context"
	"sync"

	"github.com/jiaming2012/tradecraft/src/eventmodels"
)

// MockBrokerSession is a scripted IBrokerSession for tests: every surface
// serves the canned value and counts its calls.
type MockBrokerSession struct {
	mutex sync.Mutex

	Connected bool

	PositionsView eventmodels.PositionsView
	Summary       map[string]eventmodels.AccountSummary
	Chain         eventmodels.OptionChain
	OrderResult   eventmodels.OrderResult

	ConnectErr error

	PositionsCalls int
	SummaryCalls   int
	ChainCalls     int
	OrderCalls     int
}

func NewMockBrokerSession() *MockBrokerSession {
	return &MockBrokerSession{
		PositionsView: eventmodels.NewEmptyPositionsView(),
		Summary:       map[string]eventmodels.AccountSummary{},
		Chain:         eventmodels.NewEmptyOptionChain(),
		OrderResult:   eventmodels.OrderResult{Success: true, OrderID: "mock-1", Status: "Submitted"},
	}
}

func (m *MockBrokerSession) Connect(ctx context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.ConnectErr != nil {
		return m.ConnectErr
	}

	m.Connected = true
	return nil
}

func (m *MockBrokerSession) Disconnect() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.Connected = false
}

func (m *MockBrokerSession) IsConnected() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.Connected
}

func (m *MockBrokerSession) GetPositions(ctx context.Context) (eventmodels.PositionsView, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.PositionsCalls += 1
	return m.PositionsView, nil
}

func (m *MockBrokerSession) GetAccountSummary(ctx context.Context) (map[string]eventmodels.AccountSummary, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.SummaryCalls += 1
	return m.Summary, nil
}

func (m *MockBrokerSession) PlaceStockOrder(ctx context.Context, order eventmodels.TradeOrder) eventmodels.OrderResult {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.OrderCalls += 1
	return m.OrderResult
}

func (m *MockBrokerSession) PlaceOptionOrder(ctx context.Context, leg eventmodels.OptionOrderLeg, orderType eventmodels.OrderType, limitPrice *float64) eventmodels.OrderResult {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.OrderCalls += 1
	return m.OrderResult
}

func (m *MockBrokerSession) PlaceMultiLegOptionOrder(ctx context.Context, legs []eventmodels.OptionOrderLeg, orderType eventmodels.OrderType, limitPrice *float64) eventmodels.MultiLegOrderResult {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.OrderCalls += 1

	result := eventmodels.MultiLegOrderResult{Success: true, PartialResults: []eventmodels.OrderResult{}}
	for range legs {
		result.PartialResults = append(result.PartialResults, m.OrderResult)
		result.OrderIDs = append(result.OrderIDs, m.OrderResult.OrderID)
	}

	return result
}

func (m *MockBrokerSession) SummaryCallCount() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.SummaryCalls
}

func (m *MockBrokerSession) GetOptionsChain(ctx context.Context, symbol eventmodels.StockSymbol, maxStrikes int) (eventmodels.OptionChain, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.ChainCalls += 1
	return m.Chain, nil
}
