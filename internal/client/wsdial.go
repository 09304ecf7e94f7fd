package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/coder/websocket"

	"github.com/hexroom/hexroom/internal/types"
)

// WSDialer is the production Dialer: it connects to a room's /ws
// endpoint and waits for the welcome to learn the assigned identity.
type WSDialer struct {
	URL string // full ws URL including code and name query params
}

func (d *WSDialer) Dial(ctx context.Context) (Session, error) {
	conn, _, err := websocket.Dial(ctx, d.URL, nil)
	if err != nil {
		return nil, err
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		_ = conn.Close(websocket.StatusPolicyViolation, "no welcome")
		return nil, err
	}
	var msg types.ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "welcome" {
		_ = conn.Close(websocket.StatusProtocolError, "expected welcome")
		return nil, fmt.Errorf("expected welcome, got %q", msg.Type)
	}

	s := &WSSession{
		conn: conn,
		id:   msg.PlayerID,
		msgs: make(chan types.ServerMessage, 32),
		done: make(chan CloseInfo, 1),
	}
	go s.readLoop()
	return s, nil
}

type WSSession struct {
	conn      *websocket.Conn
	id        string
	msgs      chan types.ServerMessage
	done      chan CloseInfo
	closeOnce sync.Once
}

func (s *WSSession) ID() string { return s.id }

// Messages delivers inbound broadcasts. Closed when the session dies.
func (s *WSSession) Messages() <-chan types.ServerMessage { return s.msgs }

func (s *WSSession) Done() <-chan CloseInfo { return s.done }

func (s *WSSession) Send(ctx context.Context, payload []byte) error {
	return s.conn.Write(ctx, websocket.MessageText, payload)
}

// SendIntent marshals and sends one intent envelope.
func (s *WSSession) SendIntent(ctx context.Context, m types.ClientMessage) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return s.Send(ctx, payload)
}

func (s *WSSession) Close() error {
	s.closeOnce.Do(func() {
		_ = s.conn.Close(websocket.StatusNormalClosure, "bye")
	})
	return nil
}

func (s *WSSession) readLoop() {
	defer close(s.msgs)
	for {
		_, data, err := s.conn.Read(context.Background())
		if err != nil {
			s.done <- CloseInfo{Code: int(websocket.CloseStatus(err)), Err: err}
			return
		}
		var msg types.ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		select {
		case s.msgs <- msg:
		default:
			// A reader that stopped draining loses broadcasts rather
			// than wedging the socket.
		}
	}
}
