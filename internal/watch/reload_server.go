package watch

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ReloadServer pushes build events to connected browsers over WebSocket.
type ReloadServer struct {
	connections map[*websocket.Conn]string
	broadcast   chan *ReloadMessage
	register    chan *websocket.Conn
	unregister  chan *websocket.Conn
	done        chan struct{}
	closeOnce   sync.Once
	mutex       sync.RWMutex
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// ReloadMessage is the JSON payload sent to browsers.
type ReloadMessage struct {
	Type      string   `json:"type"` // "building", "reload" or "error"
	Timestamp int64    `json:"timestamp"`
	Files     []string `json:"files,omitempty"`
	Duration  float64  `json:"duration,omitempty"` // milliseconds
	Error     string   `json:"error,omitempty"`
}

// NewReloadServer creates a reload server and starts its dispatch loop.
func NewReloadServer(logger *zap.Logger) *ReloadServer {
	if logger == nil {
		logger = zap.NewNop()
	}

	rs := &ReloadServer{
		connections: make(map[*websocket.Conn]string),
		broadcast:   make(chan *ReloadMessage, 64),
		register:    make(chan *websocket.Conn),
		unregister:  make(chan *websocket.Conn),
		done:        make(chan struct{}),
		logger:      logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return strings.HasPrefix(origin, "http://localhost") ||
					strings.HasPrefix(origin, "http://127.0.0.1") ||
					strings.HasPrefix(origin, "http://"+r.Host)
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	go rs.run()

	return rs
}

func (rs *ReloadServer) run() {
	for {
		select {
		case <-rs.done:
			return

		case conn := <-rs.register:
			id := uuid.NewString()
			rs.mutex.Lock()
			rs.connections[conn] = id
			n := len(rs.connections)
			rs.mutex.Unlock()
			rs.logger.Debug("preview client connected", zap.String("client", id), zap.Int("total", n))

		case conn := <-rs.unregister:
			rs.mutex.Lock()
			id, ok := rs.connections[conn]
			if ok {
				delete(rs.connections, conn)
				conn.Close()
			}
			n := len(rs.connections)
			rs.mutex.Unlock()
			if ok {
				rs.logger.Debug("preview client disconnected", zap.String("client", id), zap.Int("total", n))
			}

		case message := <-rs.broadcast:
			rs.sendToAll(message)
		}
	}
}

func (rs *ReloadServer) sendToAll(message *ReloadMessage) {
	payload, err := json.Marshal(message)
	if err != nil {
		rs.logger.Warn("failed to encode reload message", zap.Error(err))
		return
	}

	rs.mutex.RLock()
	var failed []*websocket.Conn
	for conn, id := range rs.connections {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			rs.logger.Debug("failed to notify preview client", zap.String("client", id), zap.Error(err))
			failed = append(failed, conn)
		}
	}
	rs.mutex.RUnlock()

	if len(failed) > 0 {
		rs.mutex.Lock()
		for _, conn := range failed {
			if _, ok := rs.connections[conn]; ok {
				conn.Close()
				delete(rs.connections, conn)
			}
		}
		rs.mutex.Unlock()
	}
}

// HandleWebSocket upgrades the request and registers the connection.
func (rs *ReloadServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := rs.upgrader.Upgrade(w, r, nil)
	if err != nil {
		rs.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	select {
	case rs.register <- conn:
	case <-rs.done:
		conn.Close()
		return
	}

	go rs.readMessages(conn)
}

// readMessages drains the connection until the browser goes away.
func (rs *ReloadServer) readMessages(conn *websocket.Conn) {
	defer func() {
		select {
		case rs.unregister <- conn:
		case <-rs.done:
		}
	}()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (rs *ReloadServer) send(msg *ReloadMessage) {
	msg.Timestamp = time.Now().Unix()
	select {
	case rs.broadcast <- msg:
	case <-rs.done:
	}
}

// NotifyBuilding tells browsers that a rebuild started.
func (rs *ReloadServer) NotifyBuilding(files []string) {
	rs.send(&ReloadMessage{Type: "building", Files: files})
}

// NotifyReload tells browsers to reload after a successful build.
func (rs *ReloadServer) NotifyReload(duration time.Duration) {
	rs.send(&ReloadMessage{Type: "reload", Duration: float64(duration.Milliseconds())})
}

// NotifyError shows a failed build in the browsers.
func (rs *ReloadServer) NotifyError(err error) {
	rs.send(&ReloadMessage{Type: "error", Error: err.Error()})
}

// ConnectionCount returns the number of connected browsers.
func (rs *ReloadServer) ConnectionCount() int {
	rs.mutex.RLock()
	defer rs.mutex.RUnlock()
	return len(rs.connections)
}

// Close disconnects every browser and stops the dispatch loop.
func (rs *ReloadServer) Close() {
	rs.closeOnce.Do(func() {
		close(rs.done)

		rs.mutex.Lock()
		defer rs.mutex.Unlock()
		for conn := range rs.connections {
			conn.Close()
		}
		rs.connections = make(map[*websocket.Conn]string)
	})
}
