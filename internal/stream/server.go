package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rickgao/aviarycare/internal/model"
)

// Server upgrades HTTP requests and streams snapshots to each connection.
type Server struct {
	cfg      Config
	widget   Widget
	rec      Recorder
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	closed  bool
	clients map[uuid.UUID]*client
	wg      sync.WaitGroup

	// syncMu orders page state updates so the widget sees them in the order
	// they were computed.
	syncMu sync.Mutex
}

// NewServer creates a stream server for widget. rec may be nil.
func NewServer(cfg Config, widget Widget, rec Recorder, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	d := DefaultConfig()
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = d.WriteTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = d.PingInterval
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = d.PongTimeout
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = d.ReadLimit
	}

	s := &Server{
		cfg:     cfg,
		widget:  widget,
		rec:     rec,
		logger:  logger,
		clients: make(map[uuid.UUID]*client),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		http.Error(w, ErrClosed.Error(), http.StatusServiceUnavailable)
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	c := newClient(s, conn)
	if !s.add(c) {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second),
		)
		conn.Close()
		return
	}

	c.run()
	s.remove(c)
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close disconnects every client and waits for their handlers to return.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		c.close(websocket.CloseGoingAway, "shutting down")
	}
	s.wg.Wait()
	s.logger.Info("snapshot stream closed", "clients", len(clients))
}

func (s *Server) add(c *client) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.clients[c.id] = c
	n := len(s.clients)
	s.mu.Unlock()

	if s.rec != nil {
		s.rec.ClientConnected()
	}
	s.logger.Debug("stream client connected", "client", c.id, "clients", n)
	s.syncWidgetState()
	return true
}

func (s *Server) remove(c *client) {
	s.mu.Lock()
	delete(s.clients, c.id)
	n := len(s.clients)
	s.mu.Unlock()

	if s.rec != nil {
		s.rec.ClientDisconnected(c.wasDropped())
	}
	s.logger.Debug("stream client disconnected", "client", c.id, "clients", n, "dropped", c.wasDropped())
	s.syncWidgetState()
}

// syncWidgetState forwards the aggregate page state to the widget.
// The widget counts as visible when any client's page is visible, or when no
// clients are connected. It counts as hovered only when every connected
// client is hovering.
func (s *Server) syncWidgetState() {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	s.mu.Lock()
	total := len(s.clients)
	visible, hovered := 0, 0
	for _, c := range s.clients {
		v, h := c.pageState()
		if v {
			visible++
		}
		if h {
			hovered++
		}
	}
	s.mu.Unlock()

	s.widget.SetVisible(total == 0 || visible > 0)
	s.widget.SetHovered(total > 0 && hovered == total)
}

// checkOrigin allows configured origins, or the request's own host when none
// are configured. Requests without an Origin header are allowed.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if len(s.cfg.AllowedOrigins) == 0 {
		return strings.EqualFold(u.Host, r.Host)
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// client is one browser connection.
type client struct {
	id     uuid.UUID
	srv    *Server
	conn   *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	visible bool
	hovered bool
	dropped bool

	closeOnce sync.Once
	done      chan struct{}
}

func newClient(s *Server, conn *websocket.Conn) *client {
	id := uuid.New()
	return &client{
		id:      id,
		srv:     s,
		conn:    conn,
		logger:  s.logger.With("client", id),
		visible: true,
		done:    make(chan struct{}),
	}
}

// run serves the connection until either side closes it.
func (c *client) run() {
	snapshots, unsubscribe := c.srv.widget.Subscribe()
	defer unsubscribe()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writeLoop(snapshots)
	}()

	c.readLoop()
	c.close(websocket.CloseNormalClosure, "")
	<-writerDone
}

// readLoop handles client reports and pongs.
func (c *client) readLoop() {
	c.conn.SetReadLimit(c.srv.cfg.ReadLimit)
	c.conn.SetReadDeadline(time.Now().Add(c.srv.cfg.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.srv.cfg.PongTimeout))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.logger.Debug("stream read failed", "error", err)
					c.markDropped()
				}
			}
			return
		}

		if err := c.handleMessage(data); err != nil {
			c.logger.Debug("ignoring client message", "error", err)
		}
	}
}

// handleMessage applies a visibility or hover report.
func (c *client) handleMessage(data []byte) error {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("decode client message: %w", err)
	}

	c.mu.Lock()
	switch {
	case msg.Type == MsgVisibility && msg.Visible != nil:
		c.visible = *msg.Visible
	case msg.Type == MsgHover && msg.Hovered != nil:
		c.hovered = *msg.Hovered
	default:
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
	c.mu.Unlock()

	c.srv.syncWidgetState()
	return nil
}

// writeLoop sends snapshots and keepalive pings.
func (c *client) writeLoop(snapshots <-chan model.Snapshot) {
	ticker := time.NewTicker(c.srv.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case s, ok := <-snapshots:
			if !ok {
				c.close(websocket.CloseGoingAway, "widget stopped")
				return
			}
			if err := c.writeJSON(s); err != nil {
				c.logger.Debug("stream write failed", "error", err)
				c.markDropped()
				c.close(websocket.CloseInternalServerErr, "")
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(c.srv.cfg.WriteTimeout)
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline)
			c.writeMu.Unlock()
			if err != nil {
				c.logger.Debug("failed to send ping", "error", err)
			}
		}
	}
}

func (c *client) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.srv.cfg.WriteTimeout))
	return c.conn.WriteJSON(v)
}

// close sends a close frame and tears down the socket once.
func (c *client) close(code int, reason string) {
	c.closeOnce.Do(func() {
		close(c.done)

		c.writeMu.Lock()
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason),
			time.Now().Add(time.Second),
		)
		c.writeMu.Unlock()

		c.conn.Close()
	})
}

func (c *client) pageState() (visible, hovered bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible, c.hovered
}

func (c *client) markDropped() {
	c.mu.Lock()
	c.dropped = true
	c.mu.Unlock()
}

func (c *client) wasDropped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}
