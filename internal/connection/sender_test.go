package connection

import (
	"bytes"
	"io"
	"os"
	"testing"
	"time"

	"github.com/life-stream-dev/life-stream-go-device-agent/internal/protocol"
)

func TestSendWritesFullFrame(t *testing.T) {
	// 第一次Write只接受3字节，剩余部分应当续传
	fc := &fakeConn{writeScript: []writeStep{{n: 3}}}
	frame, err := protocol.EncodeMessage(protocol.HW, 7, "vw", "2", "123")
	if err != nil {
		t.Fatal(err)
	}

	sender := NewSender(NewConn(fc), NewLimiter())
	if err := sender.Send(frame, false); err != nil {
		t.Fatalf("发送失败: %v", err)
	}
	if !bytes.Equal(fc.writes.Bytes(), frame) {
		t.Errorf("写入内容 期望=%v 实际=%v", frame, fc.writes.Bytes())
	}
}

func TestSendQuotaExceeded(t *testing.T) {
	fc := &fakeConn{}
	limiter := NewLimiter()
	limiter.Tick(time.Now())
	sender := NewSender(NewConn(fc), limiter)
	frame := protocol.EncodeStatusResponse(1, protocol.StatusSuccess)

	for i := 0; i < protocol.MaxMessagesPerSecond; i++ {
		if err := sender.Send(frame, false); err != nil {
			t.Fatalf("第%d次发送失败: %v", i+1, err)
		}
	}
	before := fc.writes.Len()

	// 超出配额的常规报文被静默丢弃
	if err := sender.Send(frame, false); err != nil {
		t.Fatalf("超额发送不应返回错误: %v", err)
	}
	if fc.writes.Len() != before {
		t.Errorf("超额报文不应写入 期望=%d字节 实际=%d字节", before, fc.writes.Len())
	}

	// 保活报文绕过配额
	if err := sender.Send(frame, true); err != nil {
		t.Fatalf("保活发送失败: %v", err)
	}
	if fc.writes.Len() != before+len(frame) {
		t.Errorf("保活报文应当写入 期望=%d字节 实际=%d字节", before+len(frame), fc.writes.Len())
	}
}

func TestSendRetriesExhausted(t *testing.T) {
	steps := make([]writeStep, 0, protocol.MaxSendRetries+1)
	for i := 0; i <= protocol.MaxSendRetries; i++ {
		steps = append(steps, writeStep{err: os.ErrDeadlineExceeded})
	}
	fc := &fakeConn{writeScript: steps}

	sender := NewSender(NewConn(fc), NewLimiter())
	if err := sender.Send([]byte{1, 2, 3}, true); err == nil {
		t.Fatal("重试耗尽后应返回错误")
	}
	if len(fc.writeScript) != 0 {
		t.Errorf("重试次数 期望=%d 剩余脚本=%d", protocol.MaxSendRetries+1, len(fc.writeScript))
	}
}

func TestSendHardError(t *testing.T) {
	fc := &fakeConn{writeScript: []writeStep{{err: io.ErrClosedPipe}}}

	sender := NewSender(NewConn(fc), NewLimiter())
	if err := sender.Send([]byte{1, 2, 3}, true); err == nil {
		t.Fatal("硬错误应当立即返回")
	}
}

func TestLimiterWindow(t *testing.T) {
	l := NewLimiter()
	base := time.Unix(1700000000, 0)

	if !l.Tick(base) {
		t.Error("首次Tick应当进入新窗口")
	}
	if l.Tick(base.Add(500 * time.Millisecond)) {
		t.Error("同一秒内不应重置窗口")
	}

	for i := 0; i < protocol.MaxMessagesPerSecond; i++ {
		if !l.Allow(false) {
			t.Fatalf("第%d次发送应当放行", i+1)
		}
	}
	if l.Allow(false) {
		t.Error("配额用尽后常规发送应当拒绝")
	}
	if !l.Allow(true) {
		t.Error("保活发送不受配额约束")
	}

	if !l.Tick(base.Add(time.Second)) {
		t.Error("跨秒应当重置窗口")
	}
	if !l.Allow(false) {
		t.Error("新窗口应当放行常规发送")
	}
}
