package bridge

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// writeWait bounds a single frame write when ctx carries no deadline.
const writeWait = 10 * time.Second

// WSTransport carries bridge messages as JSON text frames.
type WSTransport struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func NewWSTransport(conn *websocket.Conn) *WSTransport {
	return &WSTransport{conn: conn}
}

// Dial connects to a bridge endpoint, e.g. "ws://host/api/pcp/bridge?token=...".
func Dial(ctx context.Context, url string, header http.Header) (*WSTransport, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	return NewWSTransport(conn), nil
}

func (t *WSTransport) Send(ctx context.Context, m Message) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(writeWait)
	}
	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return mapClose(t.conn.WriteJSON(m))
}

// Receive blocks until a frame arrives. Cancelling ctx expires the read
// deadline, which leaves the connection unusable for further reads.
func (t *WSTransport) Receive(ctx context.Context) (Message, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = t.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	var m Message
	if err := t.conn.ReadJSON(&m); err != nil {
		if ctx.Err() != nil {
			return Message{}, ctx.Err()
		}
		return Message{}, mapClose(err)
	}
	return m, nil
}

func (t *WSTransport) Close() error {
	t.writeMu.Lock()
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	t.writeMu.Unlock()
	return t.conn.Close()
}

func mapClose(err error) error {
	if err == nil {
		return nil
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) || errors.Is(err, websocket.ErrCloseSent) {
		return ErrClosed
	}
	return err
}
