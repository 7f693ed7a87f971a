package http

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/couchcryptid/airquality-dashboard/internal/pipeline"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// wsMessage is sent to websocket clients: either a rendered view or an error
// for the selection that was just received.
type wsMessage struct {
	Type     string             `json:"type"`
	Rendered *pipeline.Rendered `json:"rendered,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// session is one websocket client. Selections are rendered in the read loop,
// so replies go out in the order selections arrived.
type session struct {
	server *Server
	conn   *websocket.Conn
	send   chan wsMessage
	done   chan struct{} // closed when the write loop exits
}

// handleWebsocket upgrades the connection, sends the default view, and then
// renders one view per inbound JSON selection until the client disconnects
// or the server shuts down.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	s.metrics.WebsocketClients.Inc()
	defer s.metrics.WebsocketClients.Dec()
	s.logger.Info("websocket client connected", "remote", r.RemoteAddr)

	ctx, cancel := context.WithCancel(s.sessions)
	defer cancel()

	c := &session{server: s, conn: conn, send: make(chan wsMessage, 16), done: make(chan struct{})}
	go c.writePump(ctx)

	c.readPump(ctx)
	cancel()
	<-c.done
	s.logger.Info("websocket client disconnected", "remote", r.RemoteAddr)
}

func (c *session) readPump(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	if !c.enqueue(ctx, c.render(ctx, nil)) {
		return
	}

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.server.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		if !c.enqueue(ctx, c.render(ctx, data)) {
			return
		}
	}
}

func (c *session) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		close(c.done)
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *session) enqueue(ctx context.Context, msg wsMessage) bool {
	select {
	case c.send <- msg:
		return true
	case <-ctx.Done():
		return false
	case <-c.done:
		return false
	}
}

// render applies data, a JSON selection, on top of the default selection.
// Empty data renders the default.
func (c *session) render(ctx context.Context, data []byte) wsMessage {
	d := c.server.dashboard
	sel, err := d.DefaultSelection(ctx)
	if err != nil {
		return wsMessage{Type: "error", Error: err.Error()}
	}
	if len(data) > 0 {
		if sel, err = decodeSelection(bytes.NewReader(data), sel); err != nil {
			return wsMessage{Type: "error", Error: err.Error()}
		}
	}

	out, err := d.Render(ctx, sel)
	if err != nil {
		return wsMessage{Type: "error", Error: err.Error()}
	}
	return wsMessage{Type: "view", Rendered: &out}
}
