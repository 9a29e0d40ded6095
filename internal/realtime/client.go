package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	// ErrConnClosed is returned by Send after the client has gone away.
	ErrConnClosed = errors.New("connection closed")
	// ErrSendBufferFull is returned by Send when the client cannot keep up.
	ErrSendBufferFull = errors.New("send buffer full")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // participants join from any page embedding the event
	},
}

// ActivityRecorder refreshes a participant's last-active time.
type ActivityRecorder interface {
	RecordActivity(ctx context.Context, participantID int64) error
}

// Options tune the per-connection loops.
type Options struct {
	SendBuffer   int
	PingInterval time.Duration
	PongWait     time.Duration
	WriteWait    time.Duration
	ReadLimit    int64
}

// DefaultOptions returns the heartbeat and buffer settings used in production.
func DefaultOptions() Options {
	return Options{
		SendBuffer:   256,
		PingInterval: PingInterval * time.Second,
		PongWait:     PongWait * time.Second,
		WriteWait:    10 * time.Second,
		ReadLimit:    65536,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SendBuffer <= 0 {
		o.SendBuffer = d.SendBuffer
	}
	if o.PingInterval <= 0 {
		o.PingInterval = d.PingInterval
	}
	if o.PongWait <= 0 {
		o.PongWait = d.PongWait
	}
	if o.WriteWait <= 0 {
		o.WriteWait = d.WriteWait
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = d.ReadLimit
	}
	return o
}

// Client is a single WebSocket connection.
type Client struct {
	id       string
	hub      *Hub
	activity ActivityRecorder
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	once     sync.Once
	opts     Options
	logger   *zap.Logger

	participantID *int64 // owned by readPump
}

// ID implements Conn.
func (c *Client) ID() string { return c.id }

// Send implements Conn. It never blocks.
func (c *Client) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close implements Conn. The write loop sends a close frame and exits.
func (c *Client) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

// ServeWs handles the WebSocket upgrade and runs the client loops.
func ServeWs(hub *Hub, activity ActivityRecorder, opts Options, logger *zap.Logger) gin.HandlerFunc {
	opts = opts.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			id:       uuid.New().String(),
			hub:      hub,
			activity: activity,
			conn:     conn,
			send:     make(chan []byte, opts.SendBuffer),
			done:     make(chan struct{}),
			opts:     opts,
			logger:   logger,
		}
		logger.Debug("websocket connected", zap.String("client_id", client.id))
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Leave(c, c.participantID)
		_ = c.Close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read", zap.String("client_id", c.id), zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))

		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.logger.Debug("websocket message error", zap.String("client_id", c.id), zap.Error(err))
			continue
		}

		switch msg.Type {
		case inboundJoinEvent:
			if msg.EventID <= 0 {
				continue
			}
			c.hub.Join(c, msg.EventID, ParticipantJoined{
				ParticipantID: msg.ParticipantID,
				UserID:        msg.UserID,
			}, c.participantID)
			c.participantID = msg.ParticipantID
			c.touch()
		case inboundLeaveEvent:
			c.hub.Leave(c, c.participantID)
			c.participantID = nil
		case inboundHeartbeat:
			c.touch()
		default:
			// ignore
		}
	}
}

func (c *Client) touch() {
	if c.activity == nil || c.participantID == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.activity.RecordActivity(ctx, *c.participantID); err != nil {
		c.logger.Warn("record participant activity", zap.Int64("participant_id", *c.participantID), zap.Error(err))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				_ = c.Close()
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.Close()
				return
			}
		}
	}
}
