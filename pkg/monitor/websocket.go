package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"digital.vasic.predicates/pkg/logging"
	"digital.vasic.predicates/pkg/metrics"
	"digital.vasic.predicates/pkg/predicate"
	"digital.vasic.predicates/pkg/value"
)

const (
	sendBuffer      = 64
	maxMessageSize  = 64 << 10
	writeWait       = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Message types sent to WebSocket clients.
const (
	MessageEvent  = "event"
	MessageResult = "result"
	MessageError  = "error"
)

// Request asks the server to evaluate a predicate. Value is any
// JSON document. When As names a value.Kind other than auto, a
// JSON string value is parsed with that kind.
type Request struct {
	ID        string          `json:"id"`
	Predicate string          `json:"predicate"`
	Value     json.RawMessage `json:"value"`
	As        value.Kind      `json:"as,omitempty"`
}

// Message is the envelope for everything the server writes to a
// WebSocket client.
type Message struct {
	Type   string            `json:"type"`
	ID     string            `json:"id,omitempty"`
	Event  *Event            `json:"event,omitempty"`
	Result *predicate.Result `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// ServerConfig configures a Server.
type ServerConfig struct {
	Addr      string
	Registry  predicate.Registry
	Collector *EventCollector
	Logger    logging.Logger
	Metrics   metrics.EvaluationMetrics
}

// Server exposes live evaluation over HTTP:
//
//	/ws          WebSocket: evaluate requests and event stream
//	/stats       collector statistics as JSON
//	/predicates  registered predicates as JSON
//	/health      liveness probe
type Server struct {
	addr      string
	registry  predicate.Registry
	evaluator *predicate.DefaultEvaluator
	collector *EventCollector
	logger    logging.Logger
	upgrader  websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	server  *http.Server
}

type client struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

// NewServer creates a monitor server. Evaluations requested over
// the WebSocket are recorded by the collector and broadcast to
// every connected client.
func NewServer(cfg ServerConfig) *Server {
	collector := cfg.Collector
	if collector == nil {
		collector = NewEventCollector(0)
	}
	reg := cfg.Registry
	if reg == nil {
		reg = predicate.Default
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NullLogger{}
	}

	s := &Server{
		addr:      cfg.Addr,
		registry:  reg,
		collector: collector,
		logger:    logger.WithFields(logging.StringField("component", "monitor")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
	s.evaluator = predicate.NewEvaluator(reg,
		predicate.WithLogger(logger),
		predicate.WithMetrics(cfg.Metrics),
		predicate.WithObserver(collector),
	)
	collector.OnEvent(s.broadcastEvent)
	return s
}

// Collector returns the server's event collector.
func (s *Server) Collector() *EventCollector {
	return s.collector
}

// Handler returns the HTTP handler serving all endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/predicates", s.handlePredicates)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Start listens on the configured address and serves until ctx
// is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("monitor server: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled or Stop
// is called. It returns nil after a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	s.logger.Info("monitor listening",
		logging.StringField("addr", ln.Addr().String()),
	)

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(
				context.Background(), shutdownTimeout,
			)
			defer cancel()
			if err := s.Stop(shutdownCtx); err != nil {
				s.logger.Warn("monitor shutdown",
					logging.ErrorField(err),
				)
			}
		case <-done:
		}
	}()

	err := srv.Serve(ln)
	close(done)
	<-stopped

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("monitor server: %w", err)
}

// Stop closes every WebSocket client and gracefully shuts down
// the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.clients = make(map[*client]struct{})
	s.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// ClientCount returns the number of connected WebSocket clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.collector.Stats())
}

func (s *Server) handlePredicates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.registry.List())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		s.logger.Debug("websocket upgrade failed", logging.ErrorField(err))
		return
	}
	conn.SetReadLimit(maxMessageSize)

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	s.register(c)
	go c.writeLoop()
	defer s.unregister(c)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
			) {
				s.logger.Debug("websocket read", logging.ErrorField(err))
			}
			return
		}

		msg := s.handleRequest(data)
		out, err := json.Marshal(msg)
		if err != nil {
			s.logger.Error("encode reply", logging.ErrorField(err))
			continue
		}
		if !c.enqueue(out) {
			s.logger.Warn("dropped reply for slow client",
				logging.StringField("id", msg.ID),
			)
		}
	}
}

func (s *Server) handleRequest(data []byte) Message {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Message{
			Type:  MessageError,
			Error: fmt.Sprintf("invalid request: %v", err),
		}
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Predicate == "" {
		return Message{
			Type:  MessageError,
			ID:    req.ID,
			Error: "invalid request: predicate is required",
		}
	}

	v, err := decodeValue(req.Value, req.As)
	if err != nil {
		return Message{Type: MessageError, ID: req.ID, Error: err.Error()}
	}

	r := s.evaluator.EvaluateAll([]string{req.Predicate}, v)[0]
	return Message{Type: MessageResult, ID: req.ID, Result: &r}
}

// decodeValue turns a JSON document into a value. JSON is a
// subset of YAML so the auto kind decodes it directly.
func decodeValue(raw json.RawMessage, kind value.Kind) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if kind == "" || kind == value.KindAuto {
		return value.Parse(string(raw), value.KindAuto)
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		text = string(raw)
	}
	return value.Parse(text, kind)
}

func (s *Server) broadcastEvent(e Event) {
	data, err := json.Marshal(Message{Type: MessageEvent, ID: e.ID, Event: &e})
	if err != nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		// Slow clients miss events rather than stall evaluation.
		c.enqueue(data)
	}
}

func (s *Server) register(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	c.close()
}

func (c *client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// writeLoop is the only goroutine that writes to conn.
func (c *client) writeLoop() {
	defer c.conn.Close()
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			// Unblock the reader; it will unregister the client.
			c.conn.Close()
			for range c.send {
			}
			return
		}
	}
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
}
