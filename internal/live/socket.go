package live

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/wavecast/wavecast/internal/shared"
)

// ConnState names the socket lifecycle states. "Already connecting" and
// "already open" are explicit states rather than being inferred from a
// nullable connection and transport readiness.
type ConnState int

const (
	StateClosed ConnState = iota
	StateConnecting
	StateOpen
	StateClosing
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "closed"
	}
}

// Socket is the reconnect-aware duplex primitive shared by the per-stream
// interaction channel and the account-wide notification channel. It owns one
// websocket connection and a read pump; messages are delivered to the
// onMessage callback strictly in arrival order.
type Socket struct {
	mu     sync.Mutex
	state  ConnState
	conn   *websocket.Conn
	dialer *websocket.Dialer
	logger *log.Logger
}

// NewSocket creates a closed Socket. A nil dialer uses the gorilla default.
func NewSocket(dialer *websocket.Dialer, logger *log.Logger) *Socket {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Socket{dialer: dialer, logger: logger}
}

// State returns the current connection state.
func (s *Socket) State() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Open dials url and starts the read pump. A second Open while the socket is
// Connecting or Open is a no-op. onMessage receives each inbound payload in
// order; onClose fires exactly once when the pump stops, with a nil error for
// a deliberate Close and the transport error otherwise.
func (s *Socket) Open(ctx context.Context, url string, onMessage func([]byte), onClose func(error)) error {
	s.mu.Lock()
	if s.state == StateConnecting || s.state == StateOpen {
		s.mu.Unlock()
		return nil
	}
	s.state = StateConnecting
	s.mu.Unlock()

	conn, _, err := s.dialer.DialContext(ctx, url, nil)
	if err != nil {
		s.mu.Lock()
		s.state = StateClosed
		s.mu.Unlock()
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.state = StateOpen
	s.mu.Unlock()

	go s.readPump(conn, onMessage, onClose)
	return nil
}

func (s *Socket) readPump(conn *websocket.Conn, onMessage func([]byte), onClose func(error)) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			deliberate := s.state == StateClosing || s.state == StateClosed
			s.state = StateClosed
			s.conn = nil
			s.mu.Unlock()

			if deliberate {
				onClose(nil)
			} else {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Warnf("socket read error: %v", err)
				}
				onClose(err)
			}
			return
		}
		onMessage(payload)
	}
}

// Send marshals v as JSON and writes it if the socket is currently open.
// Returns false when the frame was dropped; there is no queueing or retry.
func (s *Socket) Send(v any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOpen || s.conn == nil {
		return false
	}

	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Errorf("failed to marshal outbound frame: %v", err)
		return false
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Warnf("socket write error: %v", err)
		return false
	}
	return true
}

// Close tears the connection down unconditionally and immediately. No
// graceful close handshake is awaited.
func (s *Socket) Close() {
	s.mu.Lock()
	if s.state == StateClosed || s.state == StateClosing {
		s.mu.Unlock()
		return
	}
	s.state = StateClosing
	conn := s.conn
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	} else {
		s.mu.Lock()
		s.state = StateClosed
		s.mu.Unlock()
	}
}
