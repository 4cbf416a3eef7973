package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultWebsocketPath 平台websocket端点的默认路径
const DefaultWebsocketPath = "/websockets"

// WebsocketDialer 承载在websocket二进制消息上的连接
type WebsocketDialer struct {
	Path string
}

func (d *WebsocketDialer) Dial(ctx context.Context, addr string) (net.Conn, error) {
	path := d.Path
	if path == "" {
		path = DefaultWebsocketPath
	}
	url := fmt.Sprintf("ws://%s%s", addr, path)
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial websocket %s: %w", url, err)
	}
	return newWSConn(ws), nil
}

// wsConn 将websocket消息流适配成net.Conn字节流
//
// gorilla把读超时当作致命错误处理，超时后连接不再可用，
// 因此用后台读取泵加通道实现可恢复的超时读
type wsConn struct {
	ws      *websocket.Conn
	frames  chan []byte
	current []byte

	mu           sync.Mutex
	err          error
	readDeadline time.Time

	done      chan struct{}
	closeOnce sync.Once
}

func newWSConn(ws *websocket.Conn) *wsConn {
	w := &wsConn{
		ws:     ws,
		frames: make(chan []byte, 16),
		done:   make(chan struct{}),
	}
	go w.pump()
	return w
}

func (w *wsConn) pump() {
	for {
		_, data, err := w.ws.ReadMessage()
		if err != nil {
			w.mu.Lock()
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				w.err = io.EOF
			} else {
				w.err = err
			}
			w.mu.Unlock()
			close(w.frames)
			return
		}
		select {
		case w.frames <- data:
		case <-w.done:
			return
		}
	}
}

func (w *wsConn) readErr() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	return io.EOF
}

func (w *wsConn) Read(p []byte) (int, error) {
	if len(w.current) == 0 {
		w.mu.Lock()
		deadline := w.readDeadline
		w.mu.Unlock()

		if deadline.IsZero() {
			data, ok := <-w.frames
			if !ok {
				return 0, w.readErr()
			}
			w.current = data
		} else {
			wait := time.Until(deadline)
			if wait < 0 {
				wait = 0
			}
			timer := time.NewTimer(wait)
			select {
			case data, ok := <-w.frames:
				timer.Stop()
				if !ok {
					return 0, w.readErr()
				}
				w.current = data
			case <-timer.C:
				return 0, os.ErrDeadlineExceeded
			}
		}
	}
	n := copy(p, w.current)
	w.current = w.current[n:]
	return n, nil
}

func (w *wsConn) Write(p []byte) (int, error) {
	if err := w.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *wsConn) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.ws.Close()
	})
	return err
}

func (w *wsConn) LocalAddr() net.Addr {
	return w.ws.LocalAddr()
}

func (w *wsConn) RemoteAddr() net.Addr {
	return w.ws.RemoteAddr()
}

func (w *wsConn) SetDeadline(t time.Time) error {
	if err := w.SetReadDeadline(t); err != nil {
		return err
	}
	return w.SetWriteDeadline(t)
}

func (w *wsConn) SetReadDeadline(t time.Time) error {
	w.mu.Lock()
	w.readDeadline = t
	w.mu.Unlock()
	return nil
}

func (w *wsConn) SetWriteDeadline(t time.Time) error {
	return w.ws.SetWriteDeadline(t)
}
