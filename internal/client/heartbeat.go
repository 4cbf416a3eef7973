package client

import (
	"time"

	"github.com/life-stream-dev/life-stream-go-device-agent/internal/protocol"
)

// heartbeatMonitor 心跳状态，最多允许一个在途心跳
//
// lastBeat在空闲时记录上一次活动时间，在途时记录心跳发出时间
type heartbeatMonitor struct {
	lastBeat      time.Time
	outstandingID uint16
}

// Reset 认证成功后重新开始计时
func (h *heartbeatMonitor) Reset(now time.Time) {
	h.lastBeat = now
	h.outstandingID = 0
}

// Due 是否应当发出新的心跳
func (h *heartbeatMonitor) Due(now time.Time) bool {
	return h.outstandingID == 0 && now.Sub(h.lastBeat) >= protocol.HeartbeatPeriod
}

// Expired 在途心跳是否超时未获应答
func (h *heartbeatMonitor) Expired(now time.Time) bool {
	return h.outstandingID != 0 && now.Sub(h.lastBeat) >= protocol.MaxSocketTimeout
}

// MarkSent 记录一次心跳发出
func (h *heartbeatMonitor) MarkSent(id uint16, now time.Time) {
	h.outstandingID = id
	h.lastBeat = now
}

// Ack 尝试用RSP报文的id清除在途心跳，匹配时返回true
func (h *heartbeatMonitor) Ack(id uint16) bool {
	if h.outstandingID == 0 || id != h.outstandingID {
		return false
	}
	h.outstandingID = 0
	return true
}
