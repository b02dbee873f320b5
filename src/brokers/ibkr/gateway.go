package ibkr

import (
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const gatewayReadDeadline = 30 * time.Second

// Market data field codes requested on every smd subscription: last, mark,
// bid, ask, volume, high, low, prior close, and the option model greeks.
const marketDataFields = `["31","37","84","86","87","70","71","7741","7283","7308","7309","7310","7311","7284"]`

// IGatewayConn is the websocket transport to the local Client Portal style
// gateway. The session's protocol loop is the only reader.
type IGatewayConn interface {
	WriteFrame(payload []byte) error
	ReadMessage() ([]byte, error)
	Close() error
}

type GatewayConn struct {
	conn *websocket.Conn
}

// DialGateway connects to the local gateway. The gateway serves a
// self-signed certificate, so verification is skipped the same way the
// desktop clients do.
func DialGateway(urlStr string) (IGatewayConn, error) {
	u, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("DialGateway: failed to parse url %s: %w", urlStr, err)
	}

	log.Infof("connecting to %s", u.String())

	dialer := *websocket.DefaultDialer
	dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}

	c, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("DialGateway: failed to dial %s: %w", u.String(), err)
	}

	if c == nil {
		return nil, fmt.Errorf("DialGateway: failed to connect to websocket server: connection is nil")
	}

	return &GatewayConn{conn: c}, nil
}

func (g *GatewayConn) WriteFrame(payload []byte) error {
	if err := g.conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		return fmt.Errorf("GatewayConn: failed to write frame %s: %w", payload, err)
	}

	return nil
}

func (g *GatewayConn) ReadMessage() ([]byte, error) {
	if err := g.conn.SetReadDeadline(time.Now().UTC().Add(gatewayReadDeadline)); err != nil {
		log.Errorf("GatewayConn: failed to set read deadline: %v", err)
	}

	_, message, err := g.conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	return message, nil
}

func (g *GatewayConn) Close() error {
	return g.conn.Close()
}

// Outgoing frame builders. The gateway speaks topic-prefixed frames:
// s-prefixed topics subscribe, u-prefixed topics cancel.

func MarketDataFrame(conID int) []byte {
	return []byte(fmt.Sprintf(`smd+%d+{"fields":%s}`, conID, marketDataFields))
}

func CancelMarketDataFrame(conID int) []byte {
	return []byte(fmt.Sprintf(`umd+%d+{}`, conID))
}

func AccountUpdatesFrame(account string) []byte {
	return []byte(fmt.Sprintf(`ssd+%s+{}`, account))
}

func CancelAccountUpdatesFrame(account string) []byte {
	return []byte(fmt.Sprintf(`usd+%s+{}`, account))
}

func PnlFrame(account string) []byte {
	return []byte(fmt.Sprintf(`spl+%s+{}`, account))
}

func CancelPnlFrame(account string) []byte {
	return []byte(fmt.Sprintf(`upl+%s+{}`, account))
}

func OrderFrame(payload []byte) []byte {
	return append([]byte(`sor+`), payload...)
}
