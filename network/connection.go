// network/connection.go
package network

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	ErrMissingEvent = errors.New("packet has no event")
	ErrQueueFull    = errors.New("send queue full")
	ErrClosed       = errors.New("connection closed")
)

type Connection interface {
	Send(frame []byte) error
	Close() error
	RemoteAddr() net.Addr
	ReadPacket() (*Packet, error)
}

type Options struct {
	ReadLimit int64
	PongWait  time.Duration
	WriteWait time.Duration
	SendQueue int
}

// WSConnection wraps a gorilla connection. Writes go through a buffered queue
// drained by WritePump so a slow client never blocks the caller of Send.
type WSConnection struct {
	conn   *websocket.Conn
	opts   Options
	send   chan []byte
	done   chan struct{}
	closed bool
	mutex  sync.Mutex
}

func NewWSConnection(conn *websocket.Conn, opts Options) *WSConnection {
	if opts.SendQueue <= 0 {
		opts.SendQueue = 64
	}
	if opts.PongWait <= 0 {
		opts.PongWait = 60 * time.Second
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = 10 * time.Second
	}
	c := &WSConnection{
		conn: conn,
		opts: opts,
		send: make(chan []byte, opts.SendQueue),
		done: make(chan struct{}),
	}
	if opts.ReadLimit > 0 {
		conn.SetReadLimit(opts.ReadLimit)
	}
	conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	})
	return c
}

// Send enqueues a frame. A full queue drops the frame.
func (c *WSConnection) Send(frame []byte) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return ErrQueueFull
	}
}

// ReadPacket blocks until the next text frame. Binary frames and frames that
// are not a valid envelope are skipped.
func (c *WSConnection) ReadPacket() (*Packet, error) {
	for {
		typ, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if typ != websocket.TextMessage {
			continue
		}
		p, err := Decode(data)
		if err != nil {
			continue
		}
		return p, nil
	}
}

// WritePump drains the send queue and pings the peer at 9/10 of the pong
// wait. A peer that stops answering pings hits the read deadline, which
// surfaces as a read error and therefore as a disconnect.
func (c *WSConnection) WritePump() {
	ticker := time.NewTicker(c.opts.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			c.flush()
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// flush writes whatever is still queued, without waiting for more.
func (c *WSConnection) flush() {
	for {
		select {
		case frame := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *WSConnection) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	return nil
}

func (c *WSConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
