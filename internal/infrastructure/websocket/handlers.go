package websocket

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"auction-bidgate/internal/domain"
	"auction-bidgate/pkg/logger"
	"auction-bidgate/pkg/utils"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const (
	writeTimeout   = 10 * time.Second
	initDataHeader = "X-Telegram-Init-Data"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the webview is served from the remote site's origin
	},
}

type WebSocketHandler struct {
	connManager domain.ConnectionManager
	verifier    *InitDataVerifier
	log         logger.Logger
}

func NewWebSocketHandler(connManager domain.ConnectionManager, verifier *InitDataVerifier, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		connManager: connManager,
		verifier:    verifier,
		log:         log,
	}
}

// HandleConnection upgrades GET /ws/users/{telegramID} and keeps the session
// registered until the client goes away. The caller must present init data
// for that user, in the header or the init_data query parameter since
// browsers cannot set headers on a websocket handshake.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["telegramID"]
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "valid telegram id required", http.StatusBadRequest)
		return
	}

	initData := r.Header.Get(initDataHeader)
	if initData == "" {
		initData = r.URL.Query().Get("init_data")
	}
	owner, err := h.verifier.Verify(initData)
	if err != nil {
		h.log.Warn("Rejected websocket session", "user_id", userID, "error", err)
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	if owner != id {
		h.log.Warn("Websocket session for another user", "user_id", userID, "init_data_user", owner)
		http.Error(w, "init data belongs to another user", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	wsConn := NewWebSocketConnection(conn, userID, utils.GenerateID("ws"), h.log)
	if err := h.connManager.RegisterConnection(userID, wsConn); err != nil {
		h.log.Error("Failed to register connection", "error", err)
		conn.Close()
		return
	}

	go h.handleMessages(wsConn)
}

func (h *WebSocketHandler) handleMessages(conn *WebSocketConnection) {
	defer func() {
		h.connManager.UnregisterConnection(conn.UserID(), conn.SessionID())
		conn.Close()
	}()

	for {
		var msg map[string]interface{}
		if err := conn.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Error("Failed to read message", "user_id", conn.UserID(), "error", err)
			}
			return
		}

		msgType, ok := msg["type"].(string)
		if !ok {
			continue
		}

		switch msgType {
		case "ping":
			conn.Send(map[string]string{"type": "pong"})
		default:
			conn.Send(map[string]string{"type": "error", "message": "unsupported message type"})
		}
	}
}

// WebSocketConnection serializes writes; gorilla connections allow one
// concurrent writer.
type WebSocketConnection struct {
	conn      *websocket.Conn
	userID    string
	sessionID string
	writeMu   sync.Mutex
	log       logger.Logger
}

func NewWebSocketConnection(conn *websocket.Conn, userID, sessionID string, log logger.Logger) *WebSocketConnection {
	return &WebSocketConnection{
		conn:      conn,
		userID:    userID,
		sessionID: sessionID,
		log:       log,
	}
}

func (wsc *WebSocketConnection) Send(message interface{}) error {
	wsc.writeMu.Lock()
	defer wsc.writeMu.Unlock()

	wsc.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return wsc.conn.WriteJSON(message)
}

func (wsc *WebSocketConnection) Close() error {
	return wsc.conn.Close()
}

func (wsc *WebSocketConnection) UserID() string {
	return wsc.userID
}

func (wsc *WebSocketConnection) SessionID() string {
	return wsc.sessionID
}
