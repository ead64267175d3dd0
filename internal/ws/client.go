// Package ws is the duplex transport between the client and the game
// authority. It frames outbound intents, decodes inbound events into a
// tagged union, and keeps a bounded automatic reconnect loop.
package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	DefaultMaxReconnectAttempts = 5
	DefaultReconnectDelay       = 3 * time.Second
)

var ErrNotConnected = errors.New("websocket is not connected")

// Callback receives decoded events. Callbacks run sequentially on the read
// goroutine; a panic inside one is recovered and logged so a bad handler
// never kills the stream.
type Callback func(Event)

type outbound struct {
	Action string `json:"action"`
	Data   any    `json:"data"`
}

// Client is a reconnecting WebSocket client. Listener registration happens
// at setup time; the listener table is not mutated afterwards.
type Client struct {
	baseURL string
	log     *zap.Logger

	maxAttempts    int
	reconnectDelay time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	roomCode  string
	attempts  int
	gen       int // bumped on every Connect/Disconnect to retire stale loops
	listeners map[EventType][]Callback
	timer     *time.Timer
}

func NewClient(baseURL string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL:        baseURL,
		log:            log,
		maxAttempts:    DefaultMaxReconnectAttempts,
		reconnectDelay: DefaultReconnectDelay,
		listeners:      make(map[EventType][]Callback),
	}
}

// On registers a callback for an event type.
func (c *Client) On(t EventType, cb Callback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners[t] = append(c.listeners[t], cb)
}

// Connect dials the server, optionally scoped to a room. A fresh call
// supersedes any pending reconnect attempt for the previous connection.
func (c *Client) Connect(ctx context.Context, roomCode string) error {
	url := c.baseURL + "/ws"
	if roomCode != "" {
		url = fmt.Sprintf("%s/ws?room_code=%s", c.baseURL, roomCode)
	}

	c.mu.Lock()
	c.roomCode = roomCode
	c.gen++
	gen := c.gen
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}

	c.mu.Lock()
	if gen != c.gen {
		// A newer Connect superseded us while dialing.
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	c.conn = conn
	c.attempts = 0
	c.mu.Unlock()

	c.log.Info("websocket connected", zap.String("roomCode", roomCode))
	go c.readLoop(conn, gen)
	return nil
}

// Disconnect closes the connection and cancels any pending reconnect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.gen++
	c.roomCode = ""
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// IsConnected reports whether a live connection exists.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// SendRoomCreated announces a freshly created lobby.
func (c *Client) SendRoomCreated(roomCode, playerName string) error {
	return c.send(outbound{Action: "room_created", Data: map[string]any{
		"room_code":   roomCode,
		"player_name": playerName,
	}})
}

// SendHumanMove submits a place-card intent for the local player.
func (c *Client) SendHumanMove(playerID string, x, y, card int) error {
	return c.send(outbound{Action: "human_move", Data: map[string]any{
		"player_id": playerID,
		"x":         x,
		"y":         y,
		"card":      card,
	}})
}

// SendBotMove asks the authority to run the bot whose turn it is.
func (c *Client) SendBotMove(roomCode string) error {
	return c.send(outbound{Action: "bot_move", Data: map[string]any{
		"room_code": roomCode,
	}})
}

func (c *Client) send(msg outbound) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send %s: %w", msg.Action, err)
	}
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			stale := gen != c.gen
			if !stale {
				c.conn = nil
			}
			c.mu.Unlock()
			if stale {
				return // superseded; its effects are ignored
			}
			c.log.Warn("websocket read failed", zap.Error(err))
			c.dispatch(Event{Type: EventDisconnect})
			c.scheduleReconnect()
			return
		}
		ev, err := DecodeEvent(raw)
		if err != nil {
			c.log.Warn("dropping undecodable frame", zap.Error(err))
			continue
		}
		c.dispatch(ev)
	}
}

func (c *Client) dispatch(ev Event) {
	c.mu.Lock()
	cbs := append([]Callback(nil), c.listeners[ev.Type]...)
	c.mu.Unlock()
	for _, cb := range cbs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.log.Error("event listener panicked",
						zap.String("event", string(ev.Type)),
						zap.Any("panic", r))
				}
			}()
			cb(ev)
		}()
	}
}

// scheduleReconnect retries with a fixed delay up to the attempt cap, and
// only when a room context is known. Exhausting the cap leaves the client
// disconnected.
func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.roomCode == "" || c.attempts >= c.maxAttempts {
		if c.roomCode != "" {
			c.log.Warn("reconnect attempts exhausted",
				zap.Int("attempts", c.attempts))
		}
		return
	}
	c.attempts++
	attempt := c.attempts
	gen := c.gen
	room := c.roomCode
	c.log.Info("scheduling reconnect",
		zap.Int("attempt", attempt),
		zap.Int("max", c.maxAttempts))
	c.timer = time.AfterFunc(c.reconnectDelay, func() {
		c.mu.Lock()
		stale := gen != c.gen
		c.mu.Unlock()
		if stale {
			return
		}
		if err := c.Connect(context.Background(), room); err != nil {
			c.log.Warn("reconnect failed", zap.Int("attempt", attempt), zap.Error(err))
			c.scheduleReconnect()
		}
	})
}
