package protocol

import "time"

// 协议时序常量定义
//
// 单次接收超时必须严格小于心跳周期，否则一次阻塞读取就可能
// 饿死心跳和看门狗喂狗
const (
	// HeartbeatPeriod 心跳周期，同时在HWINFO报文中向平台通告
	HeartbeatPeriod = 10 * time.Second

	// MinSocketTimeout 接收报文体时的常规超时
	MinSocketTimeout = 1 * time.Second

	// MaxSocketTimeout 单次接收的超时上限，也是认证响应和心跳应答的等待上限
	MaxSocketTimeout = 5 * time.Second

	// WatchdogTimeout 外部看门狗超时，超时未喂狗进程被硬复位
	WatchdogTimeout = 10 * time.Second

	// ReconnectDelay 连接关闭后的重连退避
	ReconnectDelay = 1 * time.Second

	// TaskPeriodResolution 用户任务周期的最小粒度
	TaskPeriodResolution = 50 * time.Millisecond

	// IdleTime 无数据时单轮空转的时长
	IdleTime = 5 * time.Millisecond

	// RetransmitDelay 瞬时发送失败的重试间隔
	RetransmitDelay = 2 * time.Millisecond

	// MaxSendRetries 单次发送的最大重试次数
	MaxSendRetries = 3

	// MaxMessagesPerSecond 每个墙钟秒内常规发送的配额
	MaxMessagesPerSecond = 20
)
