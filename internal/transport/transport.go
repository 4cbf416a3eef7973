// Package transport 实现了到平台的多种拨号方式
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	c "github.com/life-stream-dev/life-stream-go-device-agent/internal/config"
)

// 建立连接的超时
const dialTimeout = 10 * time.Second

// Dialer 建立一条到平台的连接
type Dialer interface {
	Dial(ctx context.Context, addr string) (net.Conn, error)
}

// NewDialer 按配置的传输方式构造拨号器
func NewDialer(config c.Config) (Dialer, error) {
	switch config.Server.Transport {
	case "", "tcp":
		return &TCPDialer{}, nil
	case "tls":
		return &TLSDialer{
			ServerName: config.Server.Host,
			Insecure:   config.Server.Insecure,
		}, nil
	case "ws":
		return &WebsocketDialer{}, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", config.Server.Transport)
	}
}

// TCPDialer 明文TCP
type TCPDialer struct{}

func (d *TCPDialer) Dial(ctx context.Context, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	// 控制报文小而频繁，关闭Nagle算法
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}
	return conn, nil
}

// TLSDialer 加密TCP
type TLSDialer struct {
	ServerName string
	Insecure   bool
}

func (d *TLSDialer) Dial(ctx context.Context, addr string) (net.Conn, error) {
	tlsDialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: dialTimeout},
		Config: &tls.Config{
			ServerName:         d.ServerName,
			InsecureSkipVerify: d.Insecure,
		},
	}
	conn, err := tlsDialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial tls %s: %w", addr, err)
	}
	return conn, nil
}
