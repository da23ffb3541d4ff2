// Package live pushes match, season and rating changes to connected
// dashboards over websockets.
package live

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/okian/rivalry/internal/domain/model"
	"github.com/okian/rivalry/internal/domain/types"
	"github.com/okian/rivalry/pkg/logger"
	"github.com/okian/rivalry/pkg/metrics"
)

const defaultBroadcastBuffer = 256

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients   map[*client]struct{}
	clientsMu sync.RWMutex

	broadcast  chan Message
	register   chan *client
	unregister chan *client
	done       chan struct{}
	runOnce    sync.Once

	playerA, playerB string
	allowedOrigins   []string
	upgrader         websocket.Upgrader

	logger logger.Logger
}

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithPlayers sets the labels used to name match winners.
func WithPlayers(a, b string) Option {
	return func(h *Hub) {
		h.playerA, h.playerB = a, b
	}
}

// WithAllowedOrigins restricts websocket upgrades to these origins; "*" allows any.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Hub) {
		h.allowedOrigins = append([]string(nil), origins...)
	}
}

// WithBroadcastBuffer sizes the pending broadcast buffer.
func WithBroadcastBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.broadcast = make(chan Message, n)
		}
	}
}

// NewHub creates a Hub. Call Run before serving connections.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients:        make(map[*client]struct{}),
		broadcast:      make(chan Message, defaultBroadcastBuffer),
		register:       make(chan *client),
		unregister:     make(chan *client),
		done:           make(chan struct{}),
		playerA:        "A",
		playerB:        "B",
		allowedOrigins: []string{"*"},
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.Get().Named("live")
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Run serves register, unregister and broadcast requests until ctx is done,
// then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer h.runOnce.Do(func() { close(h.done) })

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case c := <-h.register:
			h.clientsMu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.clientsMu.Unlock()
			metrics.UpdateLiveClients(n)
			h.logger.Debug(ctx, "client connected", logger.String("client_id", c.id), logger.Int("clients", n))
		case c := <-h.unregister:
			h.remove(ctx, c)
		case msg := <-h.broadcast:
			h.fanOut(ctx, msg)
		}
	}
}

func (h *Hub) remove(ctx context.Context, c *client) {
	h.clientsMu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.clientsMu.Unlock()
	if ok {
		c.close()
		metrics.UpdateLiveClients(n)
		h.logger.Debug(ctx, "client disconnected", logger.String("client_id", c.id), logger.Int("clients", n))
	}
}

func (h *Hub) fanOut(ctx context.Context, msg Message) {
	h.clientsMu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		if c.wants(msg.Sport) {
			targets = append(targets, c)
		}
	}
	h.clientsMu.RUnlock()

	for _, c := range targets {
		if !c.trySend(msg) {
			metrics.RecordLiveDroppedSend()
			h.logger.Warn(ctx, "client too slow, disconnecting", logger.String("client_id", c.id))
			h.remove(ctx, c)
		}
	}
	metrics.RecordLiveBroadcast(msg.Type)
}

func (h *Hub) closeAll() {
	h.clientsMu.Lock()
	for c := range h.clients {
		c.close()
		delete(h.clients, c)
	}
	h.clientsMu.Unlock()
	metrics.UpdateLiveClients(0)
}

func (h *Hub) registerClient(c *client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregisterClient(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Publish queues msg for every interested client. It never blocks; when the
// buffer is full the message is dropped.
func (h *Hub) Publish(msg Message) bool {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	select {
	case h.broadcast <- msg:
		return true
	default:
		metrics.RecordLiveDroppedSend()
		return false
	}
}

// MatchRecorded announces a new match.
func (h *Hub) MatchRecorded(_ context.Context, m model.Match) {
	h.Publish(Message{
		Type:    TypeMatchRecorded,
		Sport:   string(m.Sport),
		Payload: types.NewMatchView(m, h.playerA, h.playerB),
	})
}

// SeasonAdvanced announces a new season.
func (h *Hub) SeasonAdvanced(_ context.Context, sport model.Sport, season int) {
	h.Publish(Message{
		Type:    TypeSeasonAdvanced,
		Sport:   string(sport),
		Payload: SeasonPayload{Season: season},
	})
}

// RatingsUpdated announces freshly persisted ratings.
func (h *Hub) RatingsUpdated(_ context.Context, sport model.Sport, r model.Ratings) {
	h.Publish(Message{
		Type:    TypeRatingsUpdated,
		Sport:   string(sport),
		Payload: r,
	})
}

// Handler upgrades requests to websockets. Client pumps live until ctx is
// done or the peer disconnects.
func (h *Hub) Handler(ctx context.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written the HTTP error
			h.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
			return
		}
		c := newClient(uuid.NewString(), conn, h)
		if !h.registerClient(c) {
			_ = conn.Close()
			return
		}
		go c.writePump(ctx)
		go c.readPump(ctx)
	})
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range h.allowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
