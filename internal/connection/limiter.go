package connection

import (
	"time"

	"github.com/life-stream-dev/life-stream-go-device-agent/internal/protocol"
)

// Limiter 出站限流器，按墙钟秒对发送记账
//
// 仅由主循环访问，不做并发保护
type Limiter struct {
	count     int
	windowSec int64
}

func NewLimiter() *Limiter {
	return &Limiter{windowSec: -1}
}

// Tick 推进到now所在的墙钟秒，跨秒时清零计数并返回true
func (l *Limiter) Tick(now time.Time) bool {
	sec := now.Unix()
	if sec == l.windowSec {
		return false
	}
	l.windowSec = sec
	l.count = 0
	return true
}

// Allow 判断一次发送是否放行并记账
//
// 保活报文不受配额约束，但同样计入当前窗口
func (l *Limiter) Allow(sendAnyway bool) bool {
	if l.count < protocol.MaxMessagesPerSecond || sendAnyway {
		l.count++
		return true
	}
	return false
}

// Reset 清零当前窗口计数
func (l *Limiter) Reset() {
	l.count = 0
}

// Count 返回当前窗口内已记账的发送数
func (l *Limiter) Count() int {
	return l.count
}
