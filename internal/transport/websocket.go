// SPDX-License-Identifier: MIT
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"

	applog "audioscope/internal/log"

	"github.com/gorilla/websocket"
	pkgerrors "github.com/pkg/errors"
)

// Message types on the socket.
const (
	TypeResponse = "response"
	TypeEvent    = "event"
)

// Event is a server-initiated message, such as a new report.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// wsClient serializes writes to one connection; gorilla/websocket allows a
// single concurrent writer.
type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsClient) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// WebSocketTransport is the browser front end: clients send Requests over
// /ws, get a Response for each, and receive every report Sent as an Event.
type WebSocketTransport struct {
	addr      string
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]*wsClient
	clientsMu sync.Mutex
	broadcast chan any
	server    *http.Server
	listener  net.Listener

	handler   RequestHandler
	handlerMu sync.Mutex // Requests run one at a time

	ctx       context.Context // Cancelled by Close
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewWebSocketTransport creates a transport for addr. handler may be nil, in
// which case every request is rejected.
func NewWebSocketTransport(addr string, handler RequestHandler) *WebSocketTransport {
	wst := &WebSocketTransport{
		addr: addr,
		// A nil CheckOrigin rejects browser pages from other origins;
		// clients that send no Origin header are accepted.
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients:   make(map[*websocket.Conn]*wsClient),
		broadcast: make(chan any, 256),
		handler:   handler,
	}
	wst.ctx, wst.cancel = context.WithCancel(context.Background())

	go wst.handleBroadcasts()
	return wst
}

// Handler returns the HTTP handler serving /ws.
func (wst *WebSocketTransport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wst.handleWebSocket)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

// Start listens on the configured address and serves in the background.
func (wst *WebSocketTransport) Start() error {
	ln, err := net.Listen("tcp", wst.addr)
	if err != nil {
		return pkgerrors.Wrapf(err, "listen on %s", wst.addr)
	}
	wst.listener = ln
	wst.server = &http.Server{Handler: wst.Handler()}

	go func() {
		applog.Infof("WebSocketTransport: Starting WebSocket server on %s", ln.Addr())
		if err := wst.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Errorf("WebSocketTransport: Server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address once started, else the configured one.
func (wst *WebSocketTransport) Addr() string {
	if wst.listener != nil {
		return wst.listener.Addr().String()
	}
	return wst.addr
}

// handleWebSocket upgrades HTTP connections to WebSocket
func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("WebSocketTransport: Upgrade error: %v", err)
		return
	}

	client := &wsClient{conn: conn}
	wst.clientsMu.Lock()
	wst.clients[conn] = client
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	applog.Infof("WebSocketTransport: Client connected, total: %d", total)

	wst.readLoop(wst.ctx, client)
}

// readLoop answers requests until the client goes away.
func (wst *WebSocketTransport) readLoop(ctx context.Context, c *wsClient) {
	defer wst.dropClient(c.conn)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			wst.reply(c, Response{OK: false, Error: "malformed request: " + err.Error()})
			continue
		}
		wst.reply(c, wst.dispatch(ctx, req))
	}
}

func (wst *WebSocketTransport) dispatch(ctx context.Context, req Request) Response {
	resp := Response{ID: req.ID, Op: req.Op}
	if wst.handler == nil {
		resp.Error = "no request handler configured"
		return resp
	}

	wst.handlerMu.Lock()
	result, err := wst.handler(ctx, req)
	wst.handlerMu.Unlock()

	resp.Result = result
	resp.OK = err == nil
	if err != nil {
		resp.Error = err.Error()
		applog.Debugf("WebSocketTransport: %s request failed: %v", req.Op, err)
	}
	return resp
}

func (wst *WebSocketTransport) reply(c *wsClient, resp Response) {
	if err := c.writeJSON(struct {
		Type string `json:"type"`
		Response
	}{TypeResponse, resp}); err != nil {
		applog.Warnf("WebSocketTransport: Error replying to client: %v", err)
	}
}

func (wst *WebSocketTransport) dropClient(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	_, ok := wst.clients[conn]
	delete(wst.clients, conn)
	total := len(wst.clients)
	wst.clientsMu.Unlock()

	conn.Close()
	if ok {
		applog.Infof("WebSocketTransport: Client disconnected, total: %d", total)
	}
}

// handleBroadcasts sends messages to all connected clients
func (wst *WebSocketTransport) handleBroadcasts() {
	for {
		select {
		case <-wst.ctx.Done():
			return
		case data := <-wst.broadcast:
			wst.clientsMu.Lock()
			clients := make([]*wsClient, 0, len(wst.clients))
			for _, c := range wst.clients {
				clients = append(clients, c)
			}
			wst.clientsMu.Unlock()

			for _, c := range clients {
				if err := c.writeJSON(Event{Type: TypeEvent, Data: data}); err != nil {
					applog.Warnf("WebSocketTransport: Error sending to client: %v", err)
					wst.dropClient(c.conn)
				}
			}
		}
	}
}

// Send broadcasts data to all connected WebSocket clients. When the queue is
// full the message is dropped.
func (wst *WebSocketTransport) Send(data any) error {
	select {
	case wst.broadcast <- data:
	default:
		applog.Warnf("WebSocketTransport: broadcast queue full, dropping %T", data)
	}
	return nil
}

// Close shuts down the WebSocket server
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		applog.Infof("WebSocketTransport: Closing server")
		wst.cancel()

		wst.clientsMu.Lock()
		for conn := range wst.clients {
			conn.Close()
		}
		wst.clients = make(map[*websocket.Conn]*wsClient)
		wst.clientsMu.Unlock()

		if wst.server != nil {
			err = wst.server.Close()
		}
	})
	return err
}

// Ensure WebSocketTransport satisfies the interface
var _ Transport = (*WebSocketTransport)(nil)
