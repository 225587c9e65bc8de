package websocket

import (
	"errors"
	"sync"
	"testing"

	"auction-bidgate/pkg/logger"
)

type fakeConn struct {
	mu        sync.Mutex
	userID    string
	sessionID string
	sent      []interface{}
	failSend  bool
	closed    bool
}

func (c *fakeConn) Send(message interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSend {
		return errors.New("broken pipe")
	}
	c.sent = append(c.sent, message)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) UserID() string    { return c.userID }
func (c *fakeConn) SessionID() string { return c.sessionID }

func TestConnectionManager_NotifiesEverySession(t *testing.T) {
	cm := NewConnectionManager(logger.NewNop())
	phone := &fakeConn{userID: "42", sessionID: "ws_1"}
	desktop := &fakeConn{userID: "42", sessionID: "ws_2", failSend: true}
	other := &fakeConn{userID: "7", sessionID: "ws_3"}
	for _, c := range []*fakeConn{phone, desktop, other} {
		cm.RegisterConnection(c.userID, c)
	}

	if err := cm.NotifyUser("42", map[string]string{"type": "bid_outcome"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(phone.sent) != 1 || len(other.sent) != 0 {
		t.Fatalf("unexpected deliveries phone=%d other=%d", len(phone.sent), len(other.sent))
	}
}

func TestConnectionManager_UnregisterAndCloseAll(t *testing.T) {
	cm := NewConnectionManager(logger.NewNop())
	a := &fakeConn{userID: "42", sessionID: "ws_1"}
	b := &fakeConn{userID: "42", sessionID: "ws_2"}
	cm.RegisterConnection("42", a)
	cm.RegisterConnection("42", b)

	cm.UnregisterConnection("42", "ws_1")
	if got := cm.GetConnectionsForUser("42"); len(got) != 1 || got[0].SessionID() != "ws_2" {
		t.Fatalf("expected only ws_2 left, got %v", got)
	}

	cm.CloseAll()
	if !b.closed || cm.Count() != 0 {
		t.Fatalf("expected all connections closed")
	}
	if err := cm.NotifyUser("42", "hi"); err != nil {
		t.Fatalf("notify without sessions should not fail: %v", err)
	}
}
