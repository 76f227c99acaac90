package rpc

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tolelom/rpschain/events"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = 25 * time.Second
	subscriberBuf  = 64
	maxInboundSize = 512
)

// Stream pushes committed contract events to websocket subscribers.
// A subscriber may pass ?identity=<pubkey hex> to receive only events whose
// host or opponent is that identity.
type Stream struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
}

type subscriber struct {
	conn     *websocket.Conn
	identity string
	send     chan []byte
	done     chan struct{}
	once     sync.Once
}

func (c *subscriber) stop() {
	c.once.Do(func() { close(c.done) })
}

// NewStream creates a Stream fed by every event emitter delivers.
func NewStream(emitter *events.Emitter, logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Stream{
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		logger:   logger.With("component", "stream"),
		subs:     make(map[*subscriber]struct{}),
	}
	emitter.SubscribeAll(s.broadcast)
	return s
}

// ServeHTTP upgrades the connection and streams events until the peer
// disconnects or the stream is closed.
func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "error", err)
		return
	}
	c := &subscriber{
		conn:     conn,
		identity: r.URL.Query().Get("identity"),
		send:     make(chan []byte, subscriberBuf),
		done:     make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.subs[c] = struct{}{}
	s.mu.Unlock()

	go s.writePump(c)
	s.readPump(c)
}

// Subscribers returns the number of connected subscribers.
func (s *Stream) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Close disconnects every subscriber and refuses new ones.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for c := range s.subs {
		c.stop()
		delete(s.subs, c)
	}
}

func (s *Stream) remove(c *subscriber) {
	s.mu.Lock()
	delete(s.subs, c)
	s.mu.Unlock()
	c.stop()
}

func (s *Stream) broadcast(ev events.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("encode event", "event", ev.Type, "error", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.subs {
		if !matches(c.identity, ev) {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Slow subscriber: drop it rather than block execution.
			s.logger.Warn("dropping slow subscriber", "identity", c.identity)
			delete(s.subs, c)
			c.stop()
		}
	}
}

func matches(identity string, ev events.Event) bool {
	if identity == "" {
		return true
	}
	for _, k := range []string{"host", "opponent", "owner", "from"} {
		if v, _ := ev.Data[k].(string); v == identity {
			return true
		}
	}
	return false
}

// readPump discards inbound messages and notices disconnects.
func (s *Stream) readPump(c *subscriber) {
	defer func() {
		s.remove(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxInboundSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Stream) writePump(c *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
