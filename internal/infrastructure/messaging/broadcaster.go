// Package messaging streams cache invalidation events to connected admin
// clients over websockets.
package messaging

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/caching/manager"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/observability/logging"
)

const (
	EventCacheInvalidated = "cache.invalidated"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

// Event is the JSON message sent to clients.
type Event struct {
	Type   string                     `json:"type"`
	Report manager.InvalidationReport `json:"report"`
}

// Client represents a single connected admin client.
type Client struct {
	Conn *websocket.Conn
	Send chan []byte
}

func NewClient(conn *websocket.Conn) *Client {
	return &Client{Conn: conn, Send: make(chan []byte, sendBuffer)}
}

// Broadcaster manages the connected clients and fans events out to them.
type Broadcaster struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	stopped    chan struct{}
	logger     *logging.ChanneledLogger
	mu         sync.RWMutex
}

func NewBroadcaster(logger *logging.ChanneledLogger) *Broadcaster {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Broadcaster{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		stopped:    make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the broadcaster's main loop and returns when ctx is done,
// closing every client's send channel.
func (b *Broadcaster) Run(ctx context.Context) {
	defer close(b.stopped)
	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for client := range b.clients {
				close(client.Send)
				delete(b.clients, client)
			}
			b.mu.Unlock()
			return

		case client := <-b.register:
			b.mu.Lock()
			b.clients[client] = true
			b.mu.Unlock()
			b.logger.HTTP().Info("Invalidation stream client registered", "clients", b.ClientCount())

		case client := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.clients[client]; ok {
				delete(b.clients, client)
				close(client.Send)
			}
			b.mu.Unlock()
			b.logger.HTTP().Info("Invalidation stream client unregistered", "clients", b.ClientCount())

		case message := <-b.broadcast:
			b.mu.RLock()
			for client := range b.clients {
				select {
				case client.Send <- message:
				default:
					// slow client, drop the event rather than stall the hub
				}
			}
			b.mu.RUnlock()
		}
	}
}

// Register queues a client for registration. It reports false once the
// broadcaster has stopped.
func (b *Broadcaster) Register(client *Client) bool {
	select {
	case b.register <- client:
		return true
	case <-b.stopped:
		return false
	}
}

// Unregister queues a client for removal.
func (b *Broadcaster) Unregister(client *Client) {
	select {
	case b.unregister <- client:
	case <-b.stopped:
	}
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Publish queues report for every client. It never blocks; when the queue
// is full the event is dropped and logged.
func (b *Broadcaster) Publish(report manager.InvalidationReport) {
	message, err := json.Marshal(Event{Type: EventCacheInvalidated, Report: report})
	if err != nil {
		b.logger.HTTP().Error("Failed to encode invalidation event", "error", err, "id", report.ID)
		return
	}
	select {
	case b.broadcast <- message:
	default:
		b.logger.HTTP().Warn("Invalidation stream queue full, event dropped", "id", report.ID)
	}
}

// Serve registers client and pumps messages until the connection closes.
func (b *Broadcaster) Serve(ctx context.Context, client *Client) {
	if !b.Register(client) {
		client.Conn.Close()
		return
	}
	done := make(chan struct{})

	go func() {
		defer close(done)
		b.readPump(client)
	}()

	b.writePump(ctx, client, done)
	client.Conn.Close()
}

// readPump discards client frames and answers pings; it returns when the
// peer goes away.
func (b *Broadcaster) readPump(client *Client) {
	client.Conn.SetReadLimit(512)
	_ = client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (b *Broadcaster) writePump(ctx context.Context, client *Client, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	unregistered := false
	unregister := func() {
		if !unregistered {
			unregistered = true
			go b.Unregister(client)
		}
	}

	for {
		select {
		case message, ok := <-client.Send:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				unregister()
				return
			}

		case <-ticker.C:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				unregister()
				return
			}

		case <-done:
			unregister()
			return

		case <-ctx.Done():
			unregister()
			return
		}
	}
}
