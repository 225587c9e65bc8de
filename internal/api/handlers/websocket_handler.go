package handlers

import (
	"net/http"

	"auction-bidgate/internal/infrastructure/websocket"
	"auction-bidgate/pkg/logger"
)

type WebSocketHandlers struct {
	wsHandler *websocket.WebSocketHandler
}

func NewWebSocketHandlers(connManager *websocket.ConnectionManager, verifier *websocket.InitDataVerifier, log logger.Logger) *WebSocketHandlers {
	return &WebSocketHandlers{
		wsHandler: websocket.NewWebSocketHandler(connManager, verifier, log),
	}
}

func (h *WebSocketHandlers) HandleConnection(w http.ResponseWriter, r *http.Request) {
	h.wsHandler.HandleConnection(w, r)
}
