// Package client 实现了设备端主循环：连接建立、认证、心跳保活与命令处理
package client

import "fmt"

// State 连接状态
type State byte

// 连接状态常量定义
const (
	StateDisconnected State = iota
	StateConnecting
	StateAuthenticating
	StateAuthenticated
)

var stateNames = map[State]string{
	StateDisconnected:   "DISCONNECTED",
	StateConnecting:     "CONNECTING",
	StateAuthenticating: "AUTHENTICATING",
	StateAuthenticated:  "AUTHENTICATED",
}

// String 返回State的字符串表示
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", byte(s))
}

// Event 连接状态机事件
type Event byte

// 状态机事件常量定义
const (
	EventDialStart Event = iota // 开始建立传输连接
	EventDialDone               // 传输连接建立完成
	EventAuthOK                 // 平台接受凭证
	EventAuthFail               // 认证超时或被拒绝
	EventLinkDown               // 连接关闭或判定失活
)

var eventNames = map[Event]string{
	EventDialStart: "DIAL_START",
	EventDialDone:  "DIAL_DONE",
	EventAuthOK:    "AUTH_OK",
	EventAuthFail:  "AUTH_FAIL",
	EventLinkDown:  "LINK_DOWN",
}

// String 返回Event的字符串表示
func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", byte(e))
}

// NextState 纯函数形式的状态转移
//
// 未定义的状态事件组合保持原状态不变
func NextState(state State, event Event) State {
	switch event {
	case EventDialStart:
		if state == StateDisconnected {
			return StateConnecting
		}
	case EventDialDone:
		if state == StateConnecting {
			return StateAuthenticating
		}
	case EventAuthOK:
		if state == StateAuthenticating {
			return StateAuthenticated
		}
	case EventAuthFail:
		if state == StateAuthenticating {
			return StateDisconnected
		}
	case EventLinkDown:
		return StateDisconnected
	}
	return state
}
