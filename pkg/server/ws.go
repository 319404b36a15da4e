package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// WSHandler serves the request set as JSON over a websocket at any path.
// Each connection gets its own session.
type WSHandler struct {
	srv      *Server
	upgrader websocket.Upgrader
}

// NewWSHandler creates a websocket handler backed by srv.
func NewWSHandler(srv *Server) *WSHandler {
	return &WSHandler{
		srv: srv,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) send(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.srv.log.Warnf("websocket upgrade: %v", err)
		return
	}
	client := &wsClient{conn: conn}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess := h.srv.open(client.send)
	defer h.srv.close(sess)
	go sess.loop.Run(ctx)

	if err := client.send(Ready{Status: "ready", Version: ProtocolVersion}); err != nil {
		return
	}
	sess.log.Debug("Websocket client connected", "remote", r.RemoteAddr)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			sess.log.Debug("Websocket client gone", "err", err)
			return
		}
		var req Request
		if err := json.Unmarshal(msg, &req); err != nil {
			sess.post(func() {
				sess.reply(Response{Status: StatusError, Error: "invalid JSON request"})
			})
			continue
		}
		sess.post(func() { sess.handle(req) })
	}
}
