package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"heartmatch/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 1024
	sendBuffer     = 256
)

// Authenticator resolves a bearer token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan []byte

	// match rooms joined by this socket; only touched by readPump
	matches map[string]bool
}

type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type matchPayload struct {
	MatchID string `json:"matchId"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handler upgrades authenticated requests. The token comes from the token
// query parameter or a bearer Authorization header.
func (h *Hub) Handler(auth Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		}
		if token == "" {
			http.Error(w, "Token required", http.StatusUnauthorized)
			return
		}
		user, err := auth.Authenticate(r.Context(), token)
		if err != nil {
			log.Debug("websocket connection rejected", "err", err)
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", "err", err)
			return
		}

		c := &Client{
			hub:     h,
			conn:    conn,
			userID:  user.ID.Hex(),
			send:    make(chan []byte, sendBuffer),
			matches: make(map[string]bool),
		}
		submit(h, h.register, c)

		go c.writePump()
		c.reply(FrameConnected, map[string]any{
			"userId": c.userID,
			"time":   time.Now().Unix(),
		})
		go c.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		submit(c.hub, c.hub.unregister, c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn("websocket read error", "user", c.userID, "err", err)
			}
			return
		}

		var in inbound
		if err := json.Unmarshal(message, &in); err != nil {
			c.reply(FrameError, map[string]string{"error": "invalid frame"})
			continue
		}
		c.handle(in)
	}
}

func (c *Client) handle(in inbound) {
	switch in.Type {
	case "join":
		c.handleJoin(in.Payload)
	case "typing":
		c.relayTyping(in.Payload, FrameUserTyping)
	case "stopTyping":
		c.relayTyping(in.Payload, FrameUserStopTyping)
	case "online":
		go c.hub.presence(c.userID, true, c)
	case "offline":
		go c.hub.presence(c.userID, false, c)
	case "ping":
		c.reply(FramePong, map[string]int64{"time": time.Now().Unix()})
	default:
		c.reply(FrameError, map[string]string{"error": "unknown frame type " + in.Type})
	}
}

func (c *Client) handleJoin(raw json.RawMessage) {
	var p matchPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.MatchID == "" {
		c.reply(FrameError, map[string]string{"error": "matchId is required"})
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if !c.hub.signals.CanJoinMatch(ctx, c.userID, p.MatchID) {
		c.reply(FrameError, map[string]string{"error": "Match not found"})
		return
	}
	c.matches[p.MatchID] = true
	submit(c.hub, c.hub.join, membership{client: c, room: matchRoom(p.MatchID)})
	c.reply(FrameJoined, p)
}

func (c *Client) relayTyping(raw json.RawMessage, event string) {
	var p matchPayload
	if err := json.Unmarshal(raw, &p); err != nil || !c.matches[p.MatchID] {
		return
	}
	c.hub.sendRoom(matchRoom(p.MatchID), event, map[string]string{
		"userId":  c.userID,
		"matchId": p.MatchID,
	}, c)
}

// reply queues a frame for this socket only.
func (c *Client) reply(event string, payload any) {
	data, err := json.Marshal(Frame{Type: event, Payload: payload})
	if err != nil {
		return
	}
	submit(c.hub, c.hub.deliver, delivery{to: c, data: data})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
