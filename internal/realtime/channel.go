package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/narasimhaDln/chat-app/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024

	maxConnectAttempts = 5
)

// connectBackoff scales linearly with the attempt number. No
// exponential backoff, no jitter; after maxConnectAttempts the caller
// gets ErrConnectFailed and must surface it.
var connectBackoff = time.Second

// Event names on the wire.
const (
	EventOnlineUsers = "getOnlineUsers"
	EventNewMessage  = "newMessage"
	EventSendMessage = "sendMessage"
)

// Envelope frames every event on the channel.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type MessageListener func(models.ChatMessage)

type PresenceListener func(userIDs []string)

// CloseListener is told when the channel gives up on the connection for
// good. It does not fire on a deliberate Close.
type CloseListener func(error)

// Channel is the client end of the push connection, keyed by the user
// id it was opened with. One channel exists per authenticated session;
// its owner opens it after login and closes it on logout. Events
// arriving while the channel is down are lost, not buffered.
type Channel struct {
	url    string
	userID string
	log    *zap.Logger

	conn *websocket.Conn
	send chan []byte
	done chan struct{}

	mu         sync.Mutex
	closed     bool
	nextID     int
	onMessage  map[int]MessageListener
	onPresence map[int]PresenceListener
	onClose    map[int]CloseListener
}

func NewChannel(socketURL, userID string, log *zap.Logger) *Channel {
	return &Channel{
		url:        socketURL,
		userID:     userID,
		log:        log,
		send:       make(chan []byte, 256),
		done:       make(chan struct{}),
		onMessage:  make(map[int]MessageListener),
		onPresence: make(map[int]PresenceListener),
		onClose:    make(map[int]CloseListener),
	}
}

// UserID reports the identity the channel was keyed with at connect
// time. It never changes; a new identity means a new channel.
func (c *Channel) UserID() string { return c.userID }

// Connect dials the endpoint with the session's userId in the query,
// retrying with a bounded linear backoff. Once connected the channel
// supervises itself: a dropped connection gets the same retry budget
// again, and only exhaustion tears the channel down.
func (c *Channel) Connect(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	go c.run(conn)
	return nil
}

func (c *Channel) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("userId", c.userID)
	u.RawQuery = q.Encode()

	var lastErr error
	for attempt := 1; attempt <= maxConnectAttempts; attempt++ {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		c.log.Warn("realtime dial failed",
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt == maxConnectAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.done:
			return nil, ErrClosed
		case <-time.After(time.Duration(attempt) * connectBackoff):
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrConnectFailed, maxConnectAttempts, lastErr)
}

// run pumps one connection at a time. When a connection breaks it
// redials with the full retry budget; registered listeners stay armed
// across the gap. Exhausting the budget reports the loss and closes the
// channel.
func (c *Channel) run(conn *websocket.Conn) {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			conn.Close()
			return
		}
		c.conn = conn
		c.mu.Unlock()

		stop := make(chan struct{})
		go c.writePump(conn, stop)
		c.readPump(conn)
		close(stop)
		conn.Close()

		if c.Closed() {
			return
		}
		c.log.Warn("realtime connection lost, redialing")

		next, err := c.dial(context.Background())
		if err != nil {
			if !c.Closed() {
				c.fail(err)
			}
			return
		}
		conn = next
	}
}

// fail tears the channel down and then tells the close listeners why.
func (c *Channel) fail(err error) {
	fns := c.closeListeners()
	c.Close()
	for _, fn := range fns {
		fn(err)
	}
}

// OnMessage registers a listener for newMessage events and returns its
// removal handle.
func (c *Channel) OnMessage(fn MessageListener) (remove func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.onMessage[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.onMessage, id)
	}
}

// OnPresence registers a listener for the online-user list. Each event
// replaces the set wholesale; no diffing.
func (c *Channel) OnPresence(fn PresenceListener) (remove func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.onPresence[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.onPresence, id)
	}
}

// OnClose registers a listener for a permanent connection loss.
func (c *Channel) OnClose(fn CloseListener) (remove func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.onClose[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.onClose, id)
	}
}

// Emit queues an outbound event. When the write queue is full the event
// is dropped with an error rather than blocking the caller.
func (c *Channel) Emit(event string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(Envelope{Event: event, Data: raw})
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close detaches every listener and tears the connection down.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.onMessage = make(map[int]MessageListener)
	c.onPresence = make(map[int]PresenceListener)
	c.onClose = make(map[int]CloseListener)
	conn := c.conn
	c.mu.Unlock()

	close(c.done)
	if conn != nil {
		conn.Close()
	}
}

// Closed reports whether Close has run.
func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// readPump consumes conn until it breaks; the caller decides whether
// the break means a redial or the end.
func (c *Channel) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Warn("realtime read failed", zap.Error(err))
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.log.Warn("realtime frame is not valid JSON", zap.Error(err))
			continue
		}
		c.dispatch(env)
	}
}

func (c *Channel) writePump(conn *websocket.Conn, stop chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-c.done:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case <-stop:
			return

		case payload := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Channel) dispatch(env Envelope) {
	switch env.Event {
	case EventOnlineUsers:
		var ids []string
		if err := json.Unmarshal(env.Data, &ids); err != nil {
			c.log.Warn("bad presence payload", zap.Error(err))
			return
		}
		for _, fn := range c.presenceListeners() {
			fn(ids)
		}

	case EventNewMessage:
		var msg models.ChatMessage
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			c.log.Warn("bad message payload", zap.Error(err))
			return
		}
		for _, fn := range c.messageListeners() {
			fn(msg)
		}

	default:
		// unknown events are ignored
	}
}

func (c *Channel) messageListeners() []MessageListener {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]MessageListener, 0, len(c.onMessage))
	for _, fn := range c.onMessage {
		out = append(out, fn)
	}
	return out
}

func (c *Channel) presenceListeners() []PresenceListener {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]PresenceListener, 0, len(c.onPresence))
	for _, fn := range c.onPresence {
		out = append(out, fn)
	}
	return out
}

func (c *Channel) closeListeners() []CloseListener {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CloseListener, 0, len(c.onClose))
	for _, fn := range c.onClose {
		out = append(out, fn)
	}
	return out
}
