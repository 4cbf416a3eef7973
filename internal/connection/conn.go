// Package connection 实现了到平台连接的底层收发功能
package connection

import (
	"errors"
	"io"
	"net"
	"os"
	"time"

	"github.com/life-stream-dev/life-stream-go-device-agent/internal/logger"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/protocol"
)

// 单次底层读取的缓冲区大小，与HWINFO中通告的接收缓冲一致
const readChunkSize = 1024

// pollTimeout 非阻塞探测使用的最小读超时
//
// Go的读超时基于截止时间，已过期的截止时间会让读取直接短路，
// 内核缓冲区里已就绪的数据也不会返回，所以探测同样需要正超时
const pollTimeout = time.Millisecond

// Conn 表示一条到平台的连接，维护接收累积缓冲区
type Conn struct {
	conn   net.Conn
	connID string
	rxBuf  []byte
}

// NewConn 包装一条已建立的网络连接
func NewConn(conn net.Conn) *Conn {
	return &Conn{
		conn:   conn,
		connID: conn.RemoteAddr().String(),
	}
}

// ConnID 返回连接标识，用于日志
func (c *Conn) ConnID() string {
	return c.connID
}

// Receive 从连接读取正好length字节
//
// 累积缓冲区不足length字节时最多等待timeout，仍不足则返回(nil, nil)，
// 表示本轮没有完整数据，已到达的字节保留在缓冲区中供下次调用消费。
// 返回错误仅代表底层I/O故障或对端关闭，超时不视为错误
func (c *Conn) Receive(length int, timeout time.Duration) ([]byte, error) {
	if len(c.rxBuf) < length {
		if err := c.fill(timeout); err != nil {
			return nil, err
		}
	}
	if len(c.rxBuf) < length {
		return nil, nil
	}
	data := make([]byte, length)
	copy(data, c.rxBuf)
	c.rxBuf = c.rxBuf[length:]
	if len(c.rxBuf) == 0 {
		c.rxBuf = nil
	}
	return data, nil
}

// 从底层连接读取一次并追加到累积缓冲区
func (c *Conn) fill(timeout time.Duration) error {
	effective := timeout
	if effective <= 0 {
		effective = pollTimeout
	}
	if effective > protocol.MaxSocketTimeout {
		effective = protocol.MaxSocketTimeout
	}
	if err := c.conn.SetReadDeadline(time.Now().Add(effective)); err != nil {
		return err
	}

	chunk := make([]byte, readChunkSize)
	n, err := c.conn.Read(chunk)
	if n > 0 {
		c.rxBuf = append(c.rxBuf, chunk[:n]...)
	}
	if err != nil {
		if os.IsTimeout(err) {
			return nil // 超时只代表本轮无数据
		}
		return err
	}
	return nil
}

// Buffered 返回累积缓冲区中尚未消费的字节数
func (c *Conn) Buffered() int {
	return len(c.rxBuf)
}

// Close 关闭底层连接，重复关闭不报错
func (c *Conn) Close() error {
	err := c.conn.Close()
	if err != nil && !IsNetClosedError(err) {
		return err
	}
	return nil
}

func IsNetClosedError(err error) bool {
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	var opErr *net.OpError
	ok := errors.As(err, &opErr)
	return ok && opErr.Timeout()
}

func HandleReadError(connID string, err error) {
	switch {
	case errors.Is(err, io.EOF):
		logger.InfoF("[%s] Server closed connection", connID)
	case os.IsTimeout(err):
		logger.WarnF("[%s] Reading timeout", connID)
	default:
		logger.ErrorF("[%s] Error occured while reading frame, details: %v", connID, err)
	}
}
