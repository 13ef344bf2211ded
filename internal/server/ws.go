package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/talgya/tinymud/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 120 * time.Second
	pingPeriod     = 100 * time.Second
	sendBufferSize = 64
)

// frame is the wire envelope both directions use: a named event and its
// JSON payload.
type frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// inbound is the payload of a message_to_server frame.
type inbound struct {
	Content string `json:"content"`
}

// WSServer is the websocket transport: it upgrades connections, assigns
// session ids and pumps frames between clients and the dispatcher.
type WSServer struct {
	Dispatcher *Dispatcher

	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[string]*wsConn
}

type wsConn struct {
	sid  string
	conn *websocket.Conn
	send chan service.Payload
	once sync.Once
	done chan struct{}
}

// NewWSServer wires a transport over a dispatcher and registers itself
// as the dispatcher's connection closer.
func NewWSServer(d *Dispatcher) *WSServer {
	s := &WSServer{
		Dispatcher: d,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The game client is served from anywhere; auth happens in-world.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: map[string]*wsConn{},
	}
	d.Closer = s.Close
	return s
}

// Handler returns the http handler for the websocket endpoint.
func (s *WSServer) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}
		c := &wsConn{
			sid:  uuid.NewString(),
			conn: conn,
			send: make(chan service.Payload, sendBufferSize),
			done: make(chan struct{}),
		}
		s.mu.Lock()
		s.conns[c.sid] = c
		s.mu.Unlock()
		slog.Info("session connected", "sid", c.sid, "remote", r.RemoteAddr)

		go s.writePump(c)
		s.Dispatcher.Connect(c.sid, s)
		s.readPump(c)
	}
}

func (s *WSServer) readPump(c *wsConn) {
	defer func() {
		s.drop(c)
		s.Dispatcher.Disconnect(c.sid, s)
		slog.Info("session disconnected", "sid", c.sid)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			s.Emit(c.sid, service.ErrorMsg("That was not a frame I understand."))
			continue
		}
		if f.Event != "message_to_server" {
			s.Emit(c.sid, service.ErrorMsg("Unknown event."))
			continue
		}
		var in inbound
		if err := json.Unmarshal(f.Payload, &in); err != nil {
			s.Emit(c.sid, service.ErrorMsg("That was not a frame I understand."))
			continue
		}
		s.Dispatcher.Handle(c.sid, in.Content, s)
	}
}

func (s *WSServer) writePump(c *wsConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case p, ok := <-c.send:
			if !ok {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			raw, err := json.Marshal(p)
			if err != nil {
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(frame{Event: "message", Payload: raw}); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// Emit sends one payload to a session. A slow client that has filled its
// buffer loses the message rather than stalling the world.
func (s *WSServer) Emit(sid string, p service.Payload) {
	s.mu.RLock()
	c := s.conns[sid]
	s.mu.RUnlock()
	if c == nil {
		return
	}
	select {
	case c.send <- p:
	default:
		slog.Warn("dropping message for slow client", "sid", sid)
	}
}

// BroadcastRoom sends a payload to every session present in a room,
// skipping one. Callers hold the dispatcher lock, so reading room
// membership here is safe.
func (s *WSServer) BroadcastRoom(roomID string, p service.Payload, excludeSID string) {
	room := s.Dispatcher.W.Rooms[roomID]
	if room == nil {
		return
	}
	for sid := range room.Players {
		if sid != excludeSID {
			s.Emit(sid, p)
		}
	}
}

// Close drops one session's connection.
func (s *WSServer) Close(sid string) {
	s.mu.Lock()
	c := s.conns[sid]
	delete(s.conns, sid)
	s.mu.Unlock()
	if c != nil {
		c.once.Do(func() { close(c.done) })
	}
}

func (s *WSServer) drop(c *wsConn) {
	s.mu.Lock()
	delete(s.conns, c.sid)
	s.mu.Unlock()
	c.once.Do(func() { close(c.done) })
}
