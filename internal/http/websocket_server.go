package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/elevatorsim/dispatch/internal/engine"
)

// WebSocketServer is a separate server just for WebSocket connections,
// bound to its own port so operators can firewall the push channel apart
// from the REST command surface.
type WebSocketServer struct {
	engine      *engine.Engine
	server      *http.Server
	logger      *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	connections map[*websocket.Conn]context.CancelFunc
	connMutex   sync.RWMutex

	pingInterval time.Duration
	writeTimeout time.Duration
	readTimeout  time.Duration
	bufferSize   int
}

// Simple upgrader without any special configuration
var wsUpgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	ReadBufferSize:    1024,
	WriteBufferSize:   1024,
	EnableCompression: true,
}

// NewWebSocketServer creates a new WebSocket-only server pushing a snapshot
// after every tick (spec.md §6), via eng.Subscribe.
func NewWebSocketServer(port int, eng *engine.Engine, logger *slog.Logger, pingInterval, writeTimeout, readTimeout time.Duration, bufferSize int) *WebSocketServer {
	ctx, cancel := context.WithCancel(context.Background())
	mux := http.NewServeMux()

	ws := &WebSocketServer{
		engine:       eng,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
		connections:  make(map[*websocket.Conn]context.CancelFunc),
		pingInterval: pingInterval,
		writeTimeout: writeTimeout,
		readTimeout:  readTimeout,
		bufferSize:   bufferSize,
	}

	mux.HandleFunc("/ws/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET")
		w.Header().Set("Access-Control-Allow-Headers", "Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version")
		ws.statusHandler(w, r)
	})

	ws.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	return ws
}

// addConnection adds a connection to the tracking map
func (ws *WebSocketServer) addConnection(conn *websocket.Conn, cancel context.CancelFunc) {
	ws.connMutex.Lock()
	defer ws.connMutex.Unlock()
	ws.connections[conn] = cancel
}

// removeConnection removes a connection from the tracking map
func (ws *WebSocketServer) removeConnection(conn *websocket.Conn) {
	ws.connMutex.Lock()
	defer ws.connMutex.Unlock()
	if cancel, exists := ws.connections[conn]; exists {
		cancel()
		delete(ws.connections, conn)
	}
}

// closeAllConnections gracefully closes all active WebSocket connections
func (ws *WebSocketServer) closeAllConnections() {
	ws.connMutex.Lock()
	defer ws.connMutex.Unlock()

	for conn, cancel := range ws.connections {
		if err := conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "Server shutdown"),
			time.Now().Add(1*time.Second)); err != nil {
			ws.logger.Error("failed to send close message", slog.String("error", err.Error()))
		}
		cancel()
		if err := conn.Close(); err != nil {
			ws.logger.Error("failed to close WebSocket connection", slog.String("error", err.Error()))
		}
	}
	ws.connections = make(map[*websocket.Conn]context.CancelFunc)
}

// statusHandler handles WebSocket connections with proper connection management
func (ws *WebSocketServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.logger.Error("WebSocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			ws.logger.Error("failed to close WebSocket connection", slog.String("error", err.Error()))
		}
	}()

	connCtx, cancel := context.WithCancel(ws.ctx)
	ws.addConnection(conn, cancel)
	defer ws.removeConnection(conn)

	ws.logger.Info("WebSocket connection established", slog.String("component", "websocket-server"))

	if err := conn.SetReadDeadline(time.Now().Add(ws.readTimeout)); err != nil {
		ws.logger.Error("failed to set read deadline", slog.String("error", err.Error()))
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(ws.readTimeout))
	})

	if err := conn.SetWriteDeadline(time.Now().Add(ws.writeTimeout)); err != nil {
		ws.logger.Error("failed to set write deadline for initial status", slog.String("error", err.Error()))
		return
	}
	if err := conn.WriteJSON(ws.engine.Snapshot()); err != nil {
		ws.logger.Error("failed to send initial status", slog.String("component", "websocket-server"), slog.String("error", err.Error()))
		return
	}

	snapshots, unsubscribe := ws.engine.Subscribe(ws.bufferSize)
	defer unsubscribe()

	pingTicker := time.NewTicker(ws.pingInterval)
	defer pingTicker.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					ws.logger.Warn("WebSocket connection closed unexpectedly", slog.String("component", "websocket-server"), slog.String("error", err.Error()))
				}
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			ws.logger.Info("WebSocket connection closed by client", slog.String("component", "websocket-server"))
			return

		case <-connCtx.Done():
			ws.logger.Info("WebSocket connection context cancelled", slog.String("component", "websocket-server"))
			if err := conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "Server shutdown"), time.Now().Add(ws.writeTimeout)); err != nil {
				ws.logger.Error("failed to send close message", slog.String("error", err.Error()))
			}
			return

		case <-pingTicker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(ws.writeTimeout)); err != nil {
				ws.logger.Error("failed to set write deadline for ping", slog.String("error", err.Error()))
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				ws.logger.Error("Failed to send ping message", slog.String("component", "websocket-server"), slog.String("error", err.Error()))
				return
			}

		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(ws.writeTimeout)); err != nil {
				ws.logger.Error("failed to set write deadline for status update", slog.String("error", err.Error()))
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				ws.logger.Error("Failed to send status", slog.String("component", "websocket-server"), slog.String("error", err.Error()))
				return
			}
		}
	}
}

// Start starts the WebSocket server
func (ws *WebSocketServer) Start() error {
	ws.logger.Info("Starting WebSocket server", slog.String("addr", ws.server.Addr))
	return ws.server.ListenAndServe()
}

// Shutdown gracefully shuts down the WebSocket server
func (ws *WebSocketServer) Shutdown(ctx context.Context) error {
	ws.cancel()
	ws.closeAllConnections()
	return ws.server.Shutdown(ctx)
}
