package api

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/seenimoa/marketpulse/pkg/models"
)

// WebSocket message types.
const (
	MsgQuote   = "quote"
	MsgLoading = "loading"
	MsgLoaded  = "loaded"
	MsgError   = "error"
	MsgPong    = "pong"
)

// WSMessage is a message sent over WebSocket connections.
type WSMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// WSHub manages WebSocket connections and broadcasts orchestrator
// notifications to them. It implements refresh.Presenter.
type WSHub struct {
	mu      sync.RWMutex
	clients map[*WSClient]bool
	last    *models.QuoteView

	broadcast  chan WSMessage
	register   chan *WSClient
	unregister chan *WSClient
	done       chan struct{}
	closeOnce  sync.Once

	log zerolog.Logger
}

// WSClient represents a single WebSocket connection.
type WSClient struct {
	id   string
	hub  *WSHub
	send chan WSMessage
}

// NewWSClient creates a client with a fresh id and a buffered send queue.
func NewWSClient(hub *WSHub) *WSClient {
	return &WSClient{
		id:   uuid.NewString(),
		hub:  hub,
		send: make(chan WSMessage, 64),
	}
}

// ID returns the client's connection id.
func (c *WSClient) ID() string { return c.id }

// NewWSHub creates a new WebSocket hub.
func NewWSHub(log zerolog.Logger) *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WSMessage, 256),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run is the hub event loop. It returns nil when ctx is cancelled, after
// closing every client's send queue.
func (h *WSHub) Run(ctx context.Context) error {
	defer h.closeOnce.Do(func() {
		close(h.done)
		h.mu.Lock()
		for client := range h.clients {
			delete(h.clients, client)
			close(client.send)
		}
		h.mu.Unlock()
	})

	for {
		select {
		case <-ctx.Done():
			return nil
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			last := h.last
			h.mu.Unlock()
			if last != nil {
				client.send <- WSMessage{Type: MsgQuote, Data: *last}
			}
			h.log.Debug().Str("client", client.id).Msg("websocket client connected")
		case client := <-h.unregister:
			h.remove(client)
		case msg := <-h.broadcast:
			var slow []*WSClient
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()
			for _, client := range slow {
				h.log.Warn().Str("client", client.id).Msg("dropping slow websocket client")
				h.remove(client)
			}
		}
	}
}

func (h *WSHub) remove(client *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.log.Debug().Str("client", client.id).Msg("websocket client disconnected")
	}
}

// Broadcast sends a message to all connected clients. It never blocks; the
// message is dropped when the queue is full.
func (h *WSHub) Broadcast(msg WSMessage) {
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn().Str("type", msg.Type).Msg("broadcast queue full, message dropped")
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub. It reports false once the hub stopped.
func (h *WSHub) Register(client *WSClient) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub.
func (h *WSHub) Unregister(client *WSClient) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Last returns the most recently displayed quote.
func (h *WSHub) Last() (models.QuoteView, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.last == nil {
		return models.QuoteView{}, false
	}
	return *h.last, true
}

func (h *WSHub) ShowLoading() { h.Broadcast(WSMessage{Type: MsgLoading}) }
func (h *WSHub) HideLoading() { h.Broadcast(WSMessage{Type: MsgLoaded}) }

func (h *WSHub) ShowError(msg string) {
	h.Broadcast(WSMessage{Type: MsgError, Data: map[string]string{"message": msg}})
}

// Display remembers view for clients that connect later and broadcasts it.
func (h *WSHub) Display(view models.QuoteView) {
	h.mu.Lock()
	h.last = &view
	h.mu.Unlock()
	h.Broadcast(WSMessage{Type: MsgQuote, Data: view})
}
