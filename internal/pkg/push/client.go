package push

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/gorilla/websocket"

	"github.com/grimstore/grimstore/internal/pkg/env"
)

// Event names on the core push channel.
const (
	EventJoinSession       = "join_session"
	EventLeaveSession      = "leave_session"
	EventSendMessage       = "send_message"
	EventTyping            = "typing"
	EventTransactionUpdate = "transaction_update"
	EventReceiveMessage    = "receive_message"
	EventTypingStatus      = "typing_status"
	EventUserStatus        = "user_status"
	EventAdminNotification = "admin_notification"
	EventAdminStatus       = "admin_status"
)

const (
	defaultCoreWSURL  = "ws://localhost:4000/ws"
	reconnectMinDelay = 1 * time.Second
	reconnectMaxDelay = 30 * time.Second
	writeTimeout      = 10 * time.Second
)

// Event is one frame on the push channel.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// Handler receives the payload of one event occurrence.
type Handler func(data json.RawMessage)

// Client maintains one connection to the core push channel. Reconnection is
// best effort: missed events are not replayed, the status poll catches up.
type Client struct {
	url    string
	dialer *websocket.Dialer

	mu       sync.Mutex
	conn     *websocket.Conn
	handlers map[string][]Handler
	rooms    map[string]struct{}
	stopCh   chan struct{}
	wg       sync.WaitGroup
	running  bool
}

// NewClientFromEnv builds a client against CORE_WS_URL.
func NewClientFromEnv() *Client {
	return NewClient(env.GetEnv("CORE_WS_URL", defaultCoreWSURL))
}

// NewClient builds a client against an explicit websocket URL.
func NewClient(url string) *Client {
	return &Client{
		url:      url,
		dialer:   &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		handlers: make(map[string][]Handler),
		rooms:    make(map[string]struct{}),
	}
}

// On registers a handler for an event name. Registration is only effective
// before Connect or between events; handlers run on the read loop goroutine.
func (c *Client) On(event string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], h)
}

// Connect dials the push channel and starts the read loop.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.stopCh = make(chan struct{})
	c.running = true
	c.mu.Unlock()

	if err := c.dial(); err != nil {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		return err
	}

	c.wg.Add(1)
	go c.readLoop()
	return nil
}

func (c *Client) dial() error {
	conn, _, err := c.dialer.Dial(c.url, nil)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.conn = conn
	rooms := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		rooms = append(rooms, room)
	}
	c.mu.Unlock()

	// Re-enter rooms joined before a reconnect.
	for _, room := range rooms {
		if err := c.Emit(EventJoinSession, room); err != nil {
			log.Warnf("[Push] Rejoin of room %s failed: %v", room, err)
		}
	}
	return nil
}

// Emit sends one event frame to the core.
func (c *Client) Emit(event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(Event{Name: event, Data: payload})
	if err != nil {
		return err
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("push: not connected")
	}

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, frame)
}

// JoinRoom subscribes to a room (transaction id or chat session id). The
// room is remembered and re-entered after a reconnect.
func (c *Client) JoinRoom(room string) error {
	c.mu.Lock()
	c.rooms[room] = struct{}{}
	c.mu.Unlock()
	return c.Emit(EventJoinSession, room)
}

// LeaveRoom unsubscribes from a room and forgets it.
func (c *Client) LeaveRoom(room string) {
	c.mu.Lock()
	delete(c.rooms, room)
	c.mu.Unlock()
	if err := c.Emit(EventLeaveSession, room); err != nil {
		log.Debugf("[Push] Leave of room %s not delivered: %v", room, err)
	}
}

// Close stops the read loop and closes the connection.
func (c *Client) Close() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stopCh)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	c.wg.Wait()
}

func (c *Client) readLoop() {
	defer c.wg.Done()

	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			if !c.reconnect() {
				return
			}
			continue
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.stopCh:
				return
			default:
			}
			log.Warnf("[Push] Connection lost: %v", err)
			conn.Close()
			c.mu.Lock()
			c.conn = nil
			c.mu.Unlock()
			if !c.reconnect() {
				return
			}
			continue
		}

		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			log.Debugf("[Push] Dropping malformed frame: %v", err)
			continue
		}
		c.dispatch(ev)
	}
}

func (c *Client) dispatch(ev Event) {
	c.mu.Lock()
	handlers := append([]Handler(nil), c.handlers[ev.Name]...)
	c.mu.Unlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Errorf("[Push] Handler for %s panicked: %v", ev.Name, r)
				}
			}()
			h(ev.Data)
		}()
	}
}

// reconnect retries the dial with backoff until it succeeds or the client is
// closed. Returns false when the client was closed.
func (c *Client) reconnect() bool {
	delay := reconnectMinDelay
	for {
		select {
		case <-c.stopCh:
			return false
		case <-time.After(delay):
		}

		if err := c.dial(); err != nil {
			log.Warnf("[Push] Reconnect failed: %v", err)
			delay *= 2
			if delay > reconnectMaxDelay {
				delay = reconnectMaxDelay
			}
			continue
		}
		log.Info("[Push] Reconnected")
		return true
	}
}
