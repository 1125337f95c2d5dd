// Package ws fans console state out to browser clients over WebSocket.
package ws

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/openairwaves/onair-go/internal/services/pubsub"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	// Clients only send pings and close frames; anything larger is bogus.
	maxMessageSize = 512
)

// Envelope wraps every outbound message with its topic so the client can
// route it without inspecting the payload.
type Envelope struct {
	Topic   pubsub.Topic `json:"topic"`
	Payload interface{}  `json:"payload"`
}

// Client is one connected console tab.
type Client struct {
	BroadcasterID string
	conn          *websocket.Conn
	send          chan Envelope
	subs          []*pubsub.Subscriber
	closeOnce     sync.Once
}

// Hub tracks connected clients and bridges the in-process event bus onto
// their sockets. Session and hardware updates are filtered per broadcaster;
// emergency and system messages reach every client.
type Hub struct {
	events     *pubsub.PubSub
	bufferSize int
	upgrader   websocket.Upgrader

	mu      sync.RWMutex
	clients map[*Client]bool
}

// NewHub creates a hub over the given event bus. bufferSize is the per-client
// outbound queue; a slow client drops messages rather than blocking publishers.
func NewHub(events *pubsub.PubSub, bufferSize int, checkOrigin func(*http.Request) bool) *Hub {
	if bufferSize <= 0 {
		bufferSize = 32
	}
	return &Hub{
		events:     events,
		bufferSize: bufferSize,
		clients:    make(map[*Client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams events until the client leaves.
// The broadcasterId query parameter scopes session and hardware updates.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	broadcasterID := r.URL.Query().Get("broadcasterId")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade failed: %v", err)
		return
	}

	client := &Client{
		BroadcasterID: broadcasterID,
		conn:          conn,
		send:          make(chan Envelope, h.bufferSize),
	}
	client.subs = []*pubsub.Subscriber{
		h.events.Subscribe(pubsub.TopicSessionUpdated, broadcasterID, h.bufferSize),
		h.events.Subscribe(pubsub.TopicHardwareStatus, broadcasterID, h.bufferSize),
		h.events.Subscribe(pubsub.TopicEmergencyBroadcast, "", h.bufferSize),
		h.events.Subscribe(pubsub.TopicSystemInfo, "", h.bufferSize),
	}

	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()

	for _, sub := range client.subs {
		go h.forward(client, sub)
	}
	go h.writePump(client)
	go h.readPump(client)
}

// forward moves one subscription's messages onto the client's send queue.
func (h *Hub) forward(client *Client, sub *pubsub.Subscriber) {
	for message := range sub.Channel {
		select {
		case client.send <- Envelope{Topic: sub.Topic, Payload: message}:
		default:
			// Queue full, drop. The next state snapshot supersedes this one.
		}
	}
}

func (h *Hub) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.drop(client)
	}()

	for {
		select {
		case envelope, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteJSON(envelope); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) readPump(client *Client) {
	defer h.drop(client)

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// drop disconnects a client and releases its subscriptions. Safe to call
// from both pumps.
func (h *Hub) drop(client *Client) {
	client.closeOnce.Do(func() {
		h.mu.Lock()
		delete(h.clients, client)
		h.mu.Unlock()

		for _, sub := range client.subs {
			h.events.Unsubscribe(sub)
		}
		client.conn.Close()
	})
}
