package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/life-stream-dev/life-stream-go-device-agent/internal/protocol"
)

// taskScheduler 按固定周期调度用户任务
//
// 触发点按绝对时间整周期推进，单次执行的延迟不会累积成漂移
type taskScheduler struct {
	task     func()
	period   time.Duration
	nextFire time.Time
}

// Set 注册用户任务，周期必须是调度粒度的正整数倍
func (s *taskScheduler) Set(task func(), period time.Duration) error {
	if task == nil {
		return errors.New("user task must not be nil")
	}
	if period <= 0 || period%protocol.TaskPeriodResolution != 0 {
		return fmt.Errorf("user task period must be a positive multiple of %v, got %v",
			protocol.TaskPeriodResolution, period)
	}
	s.task = task
	s.period = period
	return nil
}

// Start 设定首次触发的基准时间
func (s *taskScheduler) Start(now time.Time) {
	s.nextFire = now.Add(s.period)
}

// Tick 到达触发点时执行任务并推进下一个触发点
func (s *taskScheduler) Tick(now time.Time) {
	if s.task == nil || now.Before(s.nextFire) {
		return
	}
	s.nextFire = s.nextFire.Add(s.period)
	s.task()
}
