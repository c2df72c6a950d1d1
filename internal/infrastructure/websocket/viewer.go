package websocket

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"astrodash/internal/application/port"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 25 * time.Second
)

var ErrViewerClosed = errors.New("viewer closed")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// 开发时看板页面来自其他源
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Viewer 一个看板连接
// 写操作串行化；读端只用于响应 ping 和发现对端断开
type Viewer struct {
	id   string
	conn *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// Upgrade 将 HTTP 请求升级为 websocket 观看端
func Upgrade(w http.ResponseWriter, r *http.Request) (*Viewer, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return NewViewer(conn), nil
}

func NewViewer(conn *websocket.Conn) *Viewer {
	return &Viewer{
		id:   "viewer-" + uuid.NewString(),
		conn: conn,
		done: make(chan struct{}),
	}
}

func (v *Viewer) ID() string { return v.id }

// Send 写一个文本帧，写超时取 ctx 截止时间与 writeWait 中较早者
func (v *Viewer) Send(ctx context.Context, msg []byte) error {
	select {
	case <-v.done:
		return ErrViewerClosed
	default:
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	v.writeMu.Lock()
	defer v.writeMu.Unlock()
	_ = v.conn.SetWriteDeadline(deadline)
	return v.conn.WriteMessage(websocket.TextMessage, msg)
}

func (v *Viewer) Close() error {
	var err error
	v.closeOnce.Do(func() {
		close(v.done)
		v.writeMu.Lock()
		_ = v.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		v.writeMu.Unlock()
		err = v.conn.Close()
	})
	return err
}

// Done 连接关闭后关闭
func (v *Viewer) Done() <-chan struct{} { return v.done }

// Serve 持续读取并定期 ping，直到对端断开、ctx 取消或连接关闭
// 收到的消息直接丢弃
func (v *Viewer) Serve(ctx context.Context) error {
	_ = v.conn.SetReadDeadline(time.Now().Add(pongWait))
	v.conn.SetPongHandler(func(string) error {
		_ = v.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		for {
			if _, _, err := v.conn.ReadMessage(); err != nil {
				errCh <- err
				return
			}
			_ = v.conn.SetReadDeadline(time.Now().Add(pongWait))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-v.done:
			return ErrViewerClosed
		case err := <-errCh:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("viewer", v.id).Msg("viewer read failed")
			}
			return err
		case <-pingTicker.C:
			if err := v.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
				return err
			}
		}
	}
}

var _ port.Viewer = (*Viewer)(nil)
