package connection

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/life-stream-dev/life-stream-go-device-agent/internal/logger"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/metrics"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/protocol"
)

// Sender 消息发送器，负责限流与瞬时失败重试
type Sender struct {
	conn    *Conn
	limiter *Limiter
}

// NewSender 创建绑定到连接的发送器
func NewSender(conn *Conn, limiter *Limiter) *Sender {
	return &Sender{conn: conn, limiter: limiter}
}

// Send 发送一条完整报文
//
// 常规报文受每秒发送配额约束，超额直接丢弃并返回nil；
// sendAnyway绕过配额检查，用于认证、心跳等保活报文。
// 瞬时失败按固定间隔重试，重试耗尽或遇到硬错误时返回错误，
// 错误只影响本次发送
func (s *Sender) Send(data []byte, sendAnyway bool) error {
	if !s.limiter.Allow(sendAnyway) {
		logger.WarnF("[%s] Send quota exceeded, dropping %d bytes", s.conn.ConnID(), len(data))
		metrics.SendThrottled()
		return nil
	}

	total := 0
	retries := 0
	for total < len(data) {
		if err := s.conn.conn.SetWriteDeadline(time.Now().Add(protocol.MinSocketTimeout)); err != nil {
			return err
		}
		n, err := s.conn.conn.Write(data[total:])
		total += n
		if err == nil {
			continue
		}
		if !isTransientSendError(err) {
			logger.ErrorF("[%s] Fail to send data, details: %v", s.conn.ConnID(), err)
			return err
		}
		if retries >= protocol.MaxSendRetries {
			logger.ErrorF("[%s] Send retries exhausted, details: %v", s.conn.ConnID(), err)
			return fmt.Errorf("send retries exhausted: %w", err)
		}
		retries++
		metrics.SendRetried()
		time.Sleep(protocol.RetransmitDelay)
	}
	logger.DebugF("[%s] Send %d bytes to server", s.conn.ConnID(), total)
	return nil
}

// 瞬时发送失败：写超时或内核缓冲区暂满
func isTransientSendError(err error) bool {
	if os.IsTimeout(err) {
		return true
	}
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)
}
