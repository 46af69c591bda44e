package server

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mpruett/studiohub/internal/types"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
	// Canvas note payloads are the largest events clients send.
	maxMessageSize = 8192
)

// Client is one live connection. The identity is fixed at handshake time;
// studios is the set of studios the connection has joined and is owned
// exclusively by the StudioServer's run loop.
type Client struct {
	id      string
	conn    *websocket.Conn
	server  *StudioServer
	log     *log.Logger
	user    types.User
	send    chan *ServerMessage
	studios map[string]struct{}
	stop    chan struct{}
}

func NewClient(id string, user types.User, conn *websocket.Conn, ss *StudioServer, l *log.Logger) *Client {
	return &Client{
		id:      id,
		conn:    conn,
		server:  ss,
		log:     l,
		user:    user,
		send:    make(chan *ServerMessage, 256),
		studios: make(map[string]struct{}),
		stop:    make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := serializeMessage(msg)
			if err != nil {
				c.log.Println("failed to serialize message:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.server.DeregisterClient(c)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			// best effort: malformed frames are dropped, the connection stays up
			c.log.Printf("conn %s: dropping malformed message: %v", c.id, err)
			c.server.countDrop()
			continue
		}

		msg.client = c
		c.server.route(&msg)
	}
}

// queueMessage enqueues msg for the write pump, dropping it when the
// connection cannot keep up. Delivery is best effort.
func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Printf("conn %s: send channel full, dropping message", c.id)
		return false
	}

	return true
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	close(c.stop)
}

// markJoined, markLeft and isJoined are only called from the StudioServer
// run loop, which owns c.studios.

func (c *Client) markJoined(studioId string) {
	c.studios[studioId] = struct{}{}
}

func (c *Client) markLeft(studioId string) {
	delete(c.studios, studioId)
}

func (c *Client) isJoined(studioId string) bool {
	_, ok := c.studios[studioId]
	return ok
}
