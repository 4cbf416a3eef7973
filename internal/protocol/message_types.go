// Package protocol 实现了平台控制协议的报文类型定义和编解码
package protocol

import "fmt"

// MessageType 定义了控制报文的类型
type MessageType byte

// 控制报文类型常量定义
const (
	RSP    MessageType = 0  // 命令响应
	LOGIN  MessageType = 2  // 登录认证
	PING   MessageType = 6  // 心跳请求
	TWEET  MessageType = 12 // 推送社交消息
	EMAIL  MessageType = 13 // 推送邮件
	NOTIFY MessageType = 14 // 推送应用通知
	BRIDGE MessageType = 15 // 设备间桥接命令
	HWSYNC MessageType = 16 // 请求服务器重发引脚状态
	HWINFO MessageType = 17 // 设备能力通告
	HW     MessageType = 20 // 硬件引脚命令
)

// MessageTypeMap 将MessageType映射到其字符串表示
var MessageTypeMap = map[MessageType]string{
	RSP:    "RSP",
	LOGIN:  "LOGIN",
	PING:   "PING",
	TWEET:  "TWEET",
	EMAIL:  "EMAIL",
	NOTIFY: "NOTIFY",
	BRIDGE: "BRIDGE",
	HWSYNC: "HWSYNC",
	HWINFO: "HWINFO",
	HW:     "HW",
}

// String 返回MessageType的字符串表示
func (messageType MessageType) String() string {
	if name, ok := MessageTypeMap[messageType]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", byte(messageType))
}

const (
	// HeaderLen 报文固定头部长度: type(1) + id(2) + length(2)
	HeaderLen = 5

	// StatusSuccess RSP报文中表示成功的状态码
	StatusSuccess = 200

	// DefaultPort 平台明文端口
	DefaultPort = 8442

	// DefaultTLSPort 平台TLS端口
	DefaultTLSPort = 8441

	// MaxVirtualPins 虚拟引脚编号上限（合法范围 [0, 32)）
	MaxVirtualPins = 32
)

// Header 定义了控制报文的固定头部结构
//
// 注意：RSP报文没有报文体，Length字段复用为状态码
type Header struct {
	Type   MessageType // 报文类型
	ID     uint16      // 报文ID，0保留为非法值
	Length uint16      // 报文体字节数
}
