package websocket

import (
	"sync"

	"auction-bidgate/internal/domain"
	"auction-bidgate/pkg/logger"
)

// ConnectionManager tracks every open webview session per user. A user can
// hold several sessions at once, e.g. phone and desktop.
type ConnectionManager struct {
	userConns map[string]map[string]domain.WebSocketConnection // userID -> sessionID -> connection
	mutex     sync.RWMutex
	log       logger.Logger
}

func NewConnectionManager(log logger.Logger) *ConnectionManager {
	return &ConnectionManager{
		userConns: make(map[string]map[string]domain.WebSocketConnection),
		log:       log,
	}
}

func (cm *ConnectionManager) RegisterConnection(userID string, conn domain.WebSocketConnection) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if cm.userConns[userID] == nil {
		cm.userConns[userID] = make(map[string]domain.WebSocketConnection)
	}
	cm.userConns[userID][conn.SessionID()] = conn

	cm.log.Info("Connection registered", "user_id", userID, "session_id", conn.SessionID())
	return nil
}

func (cm *ConnectionManager) UnregisterConnection(userID, sessionID string) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if sessions, exists := cm.userConns[userID]; exists {
		delete(sessions, sessionID)
		if len(sessions) == 0 {
			delete(cm.userConns, userID)
		}
	}

	cm.log.Info("Connection unregistered", "user_id", userID, "session_id", sessionID)
	return nil
}

func (cm *ConnectionManager) GetConnectionsForUser(userID string) []domain.WebSocketConnection {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	sessions := cm.userConns[userID]
	if len(sessions) == 0 {
		return nil
	}
	connections := make([]domain.WebSocketConnection, 0, len(sessions))
	for _, conn := range sessions {
		connections = append(connections, conn)
	}
	return connections
}

// NotifyUser sends message to every session of the user. A failing session
// is logged and skipped.
func (cm *ConnectionManager) NotifyUser(userID string, message interface{}) error {
	connections := cm.GetConnectionsForUser(userID)
	if len(connections) == 0 {
		cm.log.Debug("No open sessions for user", "user_id", userID)
		return nil
	}

	for _, conn := range connections {
		if err := conn.Send(message); err != nil {
			cm.log.Error("Failed to send message", "user_id", userID, "session_id", conn.SessionID(), "error", err)
		}
	}
	return nil
}

func (cm *ConnectionManager) CloseAll() error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	for userID, sessions := range cm.userConns {
		for sessionID, conn := range sessions {
			if err := conn.Close(); err != nil {
				cm.log.Error("Failed to close connection", "user_id", userID, "session_id", sessionID, "error", err)
			}
		}
	}
	cm.userConns = make(map[string]map[string]domain.WebSocketConnection)

	cm.log.Info("All connections closed")
	return nil
}

func (cm *ConnectionManager) Count() int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	n := 0
	for _, sessions := range cm.userConns {
		n += len(sessions)
	}
	return n
}
