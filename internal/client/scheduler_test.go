package client

import (
	"testing"
	"time"

	"github.com/life-stream-dev/life-stream-go-device-agent/internal/protocol"
)

func TestSchedulerValidation(t *testing.T) {
	var s taskScheduler
	noop := func() {}

	if err := s.Set(nil, protocol.TaskPeriodResolution); err == nil {
		t.Error("空任务应当拒绝")
	}
	if err := s.Set(noop, 120*time.Millisecond); err == nil {
		t.Error("非调度粒度整数倍的周期应当拒绝")
	}
	if err := s.Set(noop, 0); err == nil {
		t.Error("零周期应当拒绝")
	}
	if err := s.Set(noop, -protocol.TaskPeriodResolution); err == nil {
		t.Error("负周期应当拒绝")
	}
	if err := s.Set(noop, 150*time.Millisecond); err != nil {
		t.Errorf("150ms周期应当接受 实际=%v", err)
	}
}

func TestSchedulerFiresOnAbsoluteGrid(t *testing.T) {
	var s taskScheduler
	count := 0
	if err := s.Set(func() { count++ }, 150*time.Millisecond); err != nil {
		t.Fatal(err)
	}

	base := time.Unix(1700000000, 0)
	s.Start(base)

	ticks := []struct {
		at       time.Duration
		expected int
	}{
		{0, 0},
		{100 * time.Millisecond, 0},
		{160 * time.Millisecond, 1}, // 触发点150ms，迟到10ms
		{290 * time.Millisecond, 1},
		{310 * time.Millisecond, 2}, // 触发点300ms，上一次的迟到不累积
		{455 * time.Millisecond, 3}, // 触发点450ms
	}
	for _, tick := range ticks {
		s.Tick(base.Add(tick.at))
		if count != tick.expected {
			t.Errorf("t=%v 执行次数 期望=%d 实际=%d", tick.at, tick.expected, count)
		}
	}
}

func TestSchedulerCatchesUpAfterStall(t *testing.T) {
	var s taskScheduler
	count := 0
	if err := s.Set(func() { count++ }, 100*time.Millisecond); err != nil {
		t.Fatal(err)
	}

	base := time.Unix(1700000000, 0)
	s.Start(base)

	// 长停顿后每轮补一次错过的触发点
	at := base.Add(350 * time.Millisecond)
	for i := 0; i < 3; i++ {
		s.Tick(at)
	}
	if count != 3 {
		t.Errorf("停顿后应当补齐3次触发 实际=%d", count)
	}
	s.Tick(at)
	if count != 3 {
		t.Errorf("补齐后不应继续触发 实际=%d", count)
	}
}

func TestSchedulerWithoutTask(t *testing.T) {
	var s taskScheduler
	s.Start(time.Unix(1700000000, 0))
	s.Tick(time.Unix(1700000100, 0)) // 未注册任务时只是空转
}
