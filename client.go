package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 50
)

// frame is one queued outbound websocket message
type frame struct {
	kind int // websocket.TextMessage or websocket.BinaryMessage
	data []byte
}

// Client is a stream connection subscribed to one match
type Client struct {
	hub        *Hub
	match      *Match
	conn       *websocket.Conn
	remoteAddr string
	binary     bool // msgpack snapshots instead of JSON envelopes

	sendMu sync.Mutex
	send   chan frame
	closed bool

	// inbound rate limit window, touched only by ReadPump
	windowStart time.Time
	windowCount int
}

func NewClient(hub *Hub, match *Match, conn *websocket.Conn, remoteAddr string, binary bool) *Client {
	return &Client{
		hub:        hub,
		match:      match,
		conn:       conn,
		remoteAddr: remoteAddr,
		binary:     binary,
		send:       make(chan frame, sendBufSize),
	}
}

// Deliver queues a snapshot. Called with the match lock held, so it never blocks.
func (c *Client) Deliver(snap *StateSnapshot) {
	if !c.binary {
		c.SendJSON(Envelope{T: MsgState, Data: snap})
		return
	}
	data, err := encodeSnapshot(snap)
	if err != nil {
		log.Printf("match %s: msgpack snapshot: %v", snap.MatchID, err)
		return
	}
	c.enqueue(frame{kind: websocket.BinaryMessage, data: data})
}

// encodeSnapshot packs a snapshot with the same field names as the JSON form
func encodeSnapshot(snap *StateSnapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SendJSON queues msg as a text frame
func (c *Client) SendJSON(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("stream %s: marshal: %v", c.remoteAddr, err)
		return
	}
	c.enqueue(frame{kind: websocket.TextMessage, data: data})
}

// enqueue drops the frame when the client is too slow or already gone
func (c *Client) enqueue(f frame) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- f:
	default:
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// allow counts one inbound message against the per-second budget
func (c *Client) allow(now time.Time) bool {
	if now.Sub(c.windowStart) >= time.Second {
		c.windowStart = now
		c.windowCount = 0
	}
	c.windowCount++
	return c.windowCount <= maxMessagesPerSec
}

// ReadPump handles inbound commands until the connection drops
func (c *Client) ReadPump() {
	defer func() {
		c.match.Unsubscribe(c)
		c.hub.Release(c.remoteAddr)
		c.closeSend()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("stream %s: %v", c.remoteAddr, err)
			}
			return
		}
		if !c.allow(time.Now()) {
			log.Printf("stream %s: too many messages, disconnecting", c.remoteAddr)
			return
		}
		c.handleMessage(raw)
	}
}

// WritePump drains the send queue and keeps the connection alive with pings
func (c *Client) WritePump() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case f, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(f.kind, f.data); err != nil {
				return
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.sendError("malformed message")
		return
	}

	switch env.T {
	case MsgMove:
		c.handleMove(env.D)
	case MsgStop:
		c.match.Stop()
		snap := c.match.Snapshot()
		c.Deliver(&snap)
	default:
		c.sendError("unknown message type")
	}
}

func (c *Client) handleMove(data json.RawMessage) {
	var req MoveRequest
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			c.sendError(ErrInvalidDirection.Error())
			return
		}
	}
	snap, err := c.match.Move(ParseDirection(req.Direction))
	switch {
	case errors.Is(err, ErrGameOver):
		c.sendError("Game Over")
		return
	case err != nil:
		c.sendError(err.Error())
		return
	}
	// A running match pushes on its next broadcast; a stopped one never would
	if !snap.Running {
		c.Deliver(&snap)
	}
}

func (c *Client) sendError(msg string) {
	c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: msg}})
}
