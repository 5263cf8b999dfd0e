package gameserver

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const sendBuffer = 256

// Connection wraps a websocket with a buffered outbound queue so slow
// clients never block the game loop. One write pump goroutine owns the
// socket's write side.
type Connection struct {
	ws           *websocket.Conn
	send         chan []byte
	readTimeout  time.Duration
	writeTimeout time.Duration
	logger       *zap.Logger
}

// NewConnection wraps ws. Zero timeouts disable the respective deadline.
func NewConnection(ws *websocket.Conn, readTimeout, writeTimeout time.Duration, logger *zap.Logger) *Connection {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Connection{
		ws:           ws,
		send:         make(chan []byte, sendBuffer),
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		logger:       logger,
	}
}

// ReadPump delivers each inbound frame to handle until the socket
// closes. It runs on the caller's goroutine.
func (c *Connection) ReadPump(handle func(message []byte)) {
	defer c.ws.Close()
	for {
		if c.readTimeout > 0 {
			_ = c.ws.SetReadDeadline(time.Now().Add(c.readTimeout))
		}
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("read error", zap.Error(err))
			}
			return
		}
		handle(message)
	}
}

// WritePump drains the outbound queue onto the socket. Run it on its own
// goroutine; it exits when Close is called or a write fails.
func (c *Connection) WritePump() {
	defer c.ws.Close()
	for message := range c.send {
		if c.writeTimeout > 0 {
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
		}
		if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
			c.logger.Debug("write error", zap.Error(err))
			return
		}
	}
	_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Send queues an envelope for delivery. A full queue drops the
// connection rather than stalling the caller.
func (c *Connection) Send(env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		c.logger.Error("marshalling envelope", zap.Error(err))
		return
	}
	select {
	case c.send <- data:
	default:
		c.logger.Warn("send queue full, dropping connection")
		c.ws.Close()
	}
}

// Close shuts the outbound queue down; WritePump exits after flushing.
func (c *Connection) Close() {
	close(c.send)
}
