package ibkr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
)

// MockGatewayConn is a scripted in-memory transport. Tests push incoming
// frames with Push, inspect everything the session wrote via Frames, and get
// automatic order acks for sor frames so the full submit/ack round trip runs
// through the real protocol loop.
type MockGatewayConn struct {
	mutex    sync.Mutex
	incoming chan []byte
	closed   bool

	frames [][]byte

	// RejectSymbols maps a ticker to the rejection message its orders ack
	// with. Unlisted tickers ack as submitted.
	RejectSymbols map[string]string

	// AutoAck controls whether sor frames are answered automatically.
	AutoAck bool

	// QuoteFrames maps a contract id to the frame served when the session
	// subscribes to its market data, standing in for the gateway's first tick.
	QuoteFrames map[int][]byte

	// PnlFrames maps an account to the frame served when the session
	// subscribes to its P&L stream.
	PnlFrames map[string][]byte

	orderCounter int
}

func NewMockGatewayConn() *MockGatewayConn {
	return &MockGatewayConn{
		incoming:      make(chan []byte, 64),
		RejectSymbols: map[string]string{},
		AutoAck:       true,
		QuoteFrames:   map[int][]byte{},
		PnlFrames:     map[string][]byte{},
	}
}

// Push injects an incoming gateway frame for the protocol loop to read.
func (m *MockGatewayConn) Push(message []byte) {
	m.incoming <- message
}

func (m *MockGatewayConn) WriteFrame(payload []byte) error {
	m.mutex.Lock()

	if m.closed {
		m.mutex.Unlock()
		return fmt.Errorf("MockGatewayConn: write on closed connection")
	}

	recorded := make([]byte, len(payload))
	copy(recorded, payload)
	m.frames = append(m.frames, recorded)

	autoAck := m.AutoAck
	m.mutex.Unlock()

	switch {
	case autoAck && bytes.HasPrefix(payload, []byte("sor+")):
		m.ackOrder(payload[len("sor+"):])
	case bytes.HasPrefix(payload, []byte("smd+")):
		m.serveQuote(payload)
	case bytes.HasPrefix(payload, []byte("spl+")):
		m.servePnl(payload)
	}

	return nil
}

func (m *MockGatewayConn) serveQuote(payload []byte) {
	var conID int
	if _, err := fmt.Sscanf(string(payload), "smd+%d+", &conID); err != nil {
		return
	}

	m.mutex.Lock()
	frame := m.QuoteFrames[conID]
	m.mutex.Unlock()

	if frame != nil {
		m.incoming <- frame
	}
}

func (m *MockGatewayConn) servePnl(payload []byte) {
	parts := bytes.SplitN(payload, []byte("+"), 3)
	if len(parts) < 2 {
		return
	}

	m.mutex.Lock()
	frame := m.PnlFrames[string(parts[1])]
	m.mutex.Unlock()

	if frame != nil {
		m.incoming <- frame
	}
}

func (m *MockGatewayConn) ackOrder(payload []byte) {
	var request orderRequestDTO
	if err := json.Unmarshal(payload, &request); err != nil {
		return
	}

	m.mutex.Lock()
	m.orderCounter++
	ack := orderAckFrameDTO{
		Topic:     "sor",
		RequestID: request.RequestID,
		OrderID:   fmt.Sprintf("mock-order-%d", m.orderCounter),
		Status:    "Submitted",
	}

	if reason, found := m.RejectSymbols[request.Symbol]; found {
		ack.OrderID = ""
		ack.Status = "Rejected"
		ack.Error = reason
	}
	m.mutex.Unlock()

	message, err := json.Marshal(ack)
	if err != nil {
		return
	}

	m.incoming <- message
}

func (m *MockGatewayConn) ReadMessage() ([]byte, error) {
	message, ok := <-m.incoming
	if !ok {
		return nil, fmt.Errorf("MockGatewayConn: connection closed")
	}

	return message, nil
}

// Close unblocks any pending ReadMessage, mirroring a real socket teardown.
func (m *MockGatewayConn) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true
	close(m.incoming)

	return nil
}

func (m *MockGatewayConn) Frames() [][]byte {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	out := make([][]byte, len(m.frames))
	copy(out, m.frames)
	return out
}

// FramesWithPrefix filters recorded frames by topic prefix, e.g. "smd+".
func (m *MockGatewayConn) FramesWithPrefix(prefix string) [][]byte {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var out [][]byte
	for _, frame := range m.frames {
		if bytes.HasPrefix(frame, []byte(prefix)) {
			out = append(out, frame)
		}
	}

	return out
}
