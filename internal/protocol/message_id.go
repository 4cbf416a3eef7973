package protocol

import "sync"

// MessageIDSource 报文ID分配器
//
// ID用于关联请求和响应，取值范围[1,65535]，单调递增，
// 溢出后回绕到1，永远不会产生0（0保留为非法值）
type MessageIDSource struct {
	mu        sync.Mutex
	currentID uint16
}

// NewMessageIDSource 创建新的报文ID分配器
func NewMessageIDSource() *MessageIDSource {
	return &MessageIDSource{}
}

// NextID 获取下一个可用ID
func (s *MessageIDSource) NextID() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentID++
	if s.currentID == 0 { // 溢出处理
		s.currentID = 1
	}
	return s.currentID
}
