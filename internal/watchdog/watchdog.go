// Package watchdog 实现了主循环活性的看门狗保护
package watchdog

import (
	"os"
	"sync"
	"time"

	c "github.com/life-stream-dev/life-stream-go-device-agent/internal/config"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/logger"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/protocol"
)

// Watchdog 看门狗，主循环每个墙钟秒喂一次
type Watchdog interface {
	Feed()
	Close() error
}

// New 按配置选择看门狗实现
//
// 硬件设备不可用时退回进程内软看门狗
func New(config c.Config) Watchdog {
	if !config.Watchdog.Enabled {
		return NewNop()
	}
	hw, err := OpenHardware(config.Watchdog.Device, protocol.WatchdogTimeout)
	if err != nil {
		logger.WarnF("Hardware watchdog unavailable, using soft watchdog, details: %v", err)
		return NewSoft(protocol.WatchdogTimeout, nil)
	}
	logger.InfoF("Hardware watchdog armed: device=%s timeout=%v", config.Watchdog.Device, protocol.WatchdogTimeout)
	return hw
}

// Nop 空看门狗
type Nop struct{}

func NewNop() *Nop {
	return &Nop{}
}

func (n *Nop) Feed() {}

func (n *Nop) Close() error {
	return nil
}

// Soft 进程内软看门狗，超时未喂狗时触发回调
type Soft struct {
	timer   *time.Timer
	timeout time.Duration
	mu      sync.Mutex
	stopped bool
}

// NewSoft 启动软看门狗，onExpire为nil时超时直接结束进程
func NewSoft(timeout time.Duration, onExpire func()) *Soft {
	if onExpire == nil {
		onExpire = func() {
			logger.Fatal("Watchdog timeout, terminating process")
			os.Exit(1)
		}
	}
	s := &Soft{timeout: timeout}
	s.timer = time.AfterFunc(timeout, onExpire)
	return s
}

func (s *Soft) Feed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.timer.Reset(s.timeout)
}

func (s *Soft) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.timer.Stop()
	return nil
}
