package store

import (
	c "github.com/life-stream-dev/life-stream-go-device-agent/internal/config"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/logger"
)

// NewStore 按配置选择影子存储实现
//
// 未开启持久化或数据库不可达时退回内存存储，影子缺失不影响主链路
func NewStore() ShadowStore {
	config, err := c.GetConfig()
	if err != nil || !config.Shadow.Enabled {
		logger.Info("Shadow persistence disabled, using in-memory store")
		return NewMemoryStore()
	}

	if err := ConnectDatabase(); err != nil {
		logger.ErrorF("Fail to connect shadow database, fallback to memory store, details: %v", err)
		return NewMemoryStore()
	}

	logger.Info("Shadow persistence enabled")
	return NewMongoStore()
}
