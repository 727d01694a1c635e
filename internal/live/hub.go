package live

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Event types broadcast to clients watching a book.
const (
	EventBookUpdated          = "book.updated"
	EventContributionReceived = "contribution.received"
)

// Event is a message fanned out to every client subscribed to a book.
type Event struct {
	Type      string          `json:"type"`
	BookID    string          `json:"bookId"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Client represents one WebSocket subscriber for a single book.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	bookID string
}

// Hub maintains active clients per book and broadcasts events to them.
type Hub struct {
	clients    map[string]map[*Client]bool // bookID -> clients
	broadcast  chan *Event
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	log        zerolog.Logger
}

// NewHub creates a hub; call Run in a goroutine before publishing.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan *Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log,
	}
}

// Publish queues an event for every client watching the book. Non-blocking;
// events are dropped if the hub's queue is full.
func (h *Hub) Publish(eventType, bookID string, data any) {
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			h.log.Warn().Err(err).Str("type", eventType).Msg("failed to encode live event")
			return
		}
		raw = encoded
	}
	event := &Event{Type: eventType, BookID: bookID, Data: raw, Timestamp: time.Now().UTC()}
	select {
	case h.broadcast <- event:
	default:
		h.log.Warn().Str("type", eventType).Str("book", bookID).Msg("live event queue full, dropping")
	}
}

// Run processes registration and broadcast until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.bookID] == nil {
				h.clients[client.bookID] = make(map[*Client]bool)
			}
			h.clients[client.bookID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.bookID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.clients, client.bookID)
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			payload, err := json.Marshal(event)
			if err != nil {
				h.log.Warn().Err(err).Msg("failed to marshal live event")
				continue
			}
			h.mu.Lock()
			for client := range h.clients[event.BookID] {
				select {
				case client.send <- payload:
				default:
					close(client.send)
					delete(h.clients[event.BookID], client)
				}
			}
			h.mu.Unlock()
		}
	}
}
