// Package websocket delivers realtime events to connected users. Every socket
// joins the room named by its user id; sockets may also join the rooms of
// matches they belong to.
package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Outbound frame types besides the service events.
const (
	FrameConnected      = "connected"
	FrameJoined         = "joined"
	FrameError          = "error"
	FramePong           = "pong"
	FrameUserTyping     = "userTyping"
	FrameUserStopTyping = "userStopTyping"
	FrameUserOnline     = "userOnline"
	FrameUserOffline    = "userOffline"
)

// Frame is the JSON envelope of every message written to a socket.
type Frame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Signals is what the hub needs from the domain: match membership checks and
// presence persistence.
type Signals interface {
	CanJoinMatch(ctx context.Context, userID, matchID string) bool
	SetOnline(ctx context.Context, userID string, online bool)
}

type delivery struct {
	to     *Client
	room   string // empty means every client
	data   []byte
	except *Client
}

type membership struct {
	client *Client
	room   string
}

type Hub struct {
	signals Signals

	rooms   map[string]map[*Client]bool
	clients map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	join       chan membership
	deliver    chan delivery
	done       chan struct{}
}

func NewHub(signals Signals) *Hub {
	return &Hub{
		signals:    signals,
		rooms:      make(map[string]map[*Client]bool),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan membership),
		deliver:    make(chan delivery, 256),
		done:       make(chan struct{}),
	}
}

// Run owns the room bookkeeping until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
			}
			h.clients = make(map[*Client]bool)
			h.rooms = make(map[string]map[*Client]bool)
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.addToRoom(c, c.userID)
			n := len(h.clients)
			h.mu.Unlock()
			log.Debug("websocket client registered", "user", c.userID, "clients", n)

		case c := <-h.unregister:
			h.mu.Lock()
			lastSocket := h.remove(c)
			n := len(h.clients)
			h.mu.Unlock()
			log.Debug("websocket client unregistered", "user", c.userID, "clients", n)
			if lastSocket {
				go h.presence(c.userID, false, nil)
			}

		case m := <-h.join:
			h.mu.Lock()
			if h.clients[m.client] {
				h.addToRoom(m.client, m.room)
			}
			h.mu.Unlock()

		case d := <-h.deliver:
			h.mu.Lock()
			targets := h.clients
			switch {
			case d.to != nil:
				targets = map[*Client]bool{d.to: h.clients[d.to]}
			case d.room != "":
				targets = h.rooms[d.room]
			}
			var slow []*Client
			for c, live := range targets {
				if !live || c == d.except {
					continue
				}
				select {
				case c.send <- d.data:
				default:
					slow = append(slow, c)
				}
			}
			for _, c := range slow {
				log.Warn("dropping slow websocket client", "user", c.userID)
				h.remove(c)
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) addToRoom(c *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]bool)
		h.rooms[room] = members
	}
	members[c] = true
}

// remove drops c from every room and closes its send channel. It reports
// whether c was the user's last socket.
func (h *Hub) remove(c *Client) bool {
	if !h.clients[c] {
		return false
	}
	delete(h.clients, c)
	close(c.send)
	for room, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	return len(h.rooms[c.userID]) == 0
}

// Notify sends an event to every socket of userID on this instance.
func (h *Hub) Notify(ctx context.Context, userID string, event string, payload any) {
	h.sendRoom(userID, event, payload, nil)
}

// Online reports how many sockets userID has on this instance.
func (h *Hub) Online(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}

func (h *Hub) sendRoom(room, event string, payload any, except *Client) {
	data, err := json.Marshal(Frame{Type: event, Payload: payload})
	if err != nil {
		log.Error("failed to marshal websocket frame", "type", event, "err", err)
		return
	}
	submit(h, h.deliver, delivery{room: room, data: data, except: except})
}

// submit hands v to the run loop unless the hub has stopped.
func submit[T any](h *Hub, ch chan T, v T) {
	select {
	case ch <- v:
	case <-h.done:
	}
}

func (h *Hub) broadcast(event string, payload any, except *Client) {
	h.sendRoom("", event, payload, except)
}

// presence persists the online flag and tells every other socket about it.
func (h *Hub) presence(userID string, online bool, except *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	h.signals.SetOnline(ctx, userID, online)

	event := FrameUserOffline
	if online {
		event = FrameUserOnline
	}
	h.broadcast(event, map[string]string{"userId": userID}, except)
}

func matchRoom(matchID string) string { return "match:" + matchID }
