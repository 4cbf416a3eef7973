// Package pin 实现了虚拟引脚处理器及其注册表
package pin

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/life-stream-dev/life-stream-go-device-agent/internal/protocol"
)

var (
	// ErrPinOutOfRange 引脚号超出注册表容量
	ErrPinOutOfRange = errors.New("virtual pin out of range")
	// ErrNotSupported 处理器未实现该方向的操作
	ErrNotSupported = errors.New("operation not supported by handler")
)

// Handler 虚拟引脚处理器
//
// Read在平台请求读取时调用，返回的取值会以虚拟写报文回报，
// 返回空切片表示处理器自行上报；Write按平台下发的取值逐个调用
type Handler interface {
	Read() ([]string, error)
	Write(value string) error
}

// Funcs 用函数适配Handler，未提供的方向返回ErrNotSupported
type Funcs struct {
	ReadFunc  func() ([]string, error)
	WriteFunc func(value string) error
}

func (f Funcs) Read() ([]string, error) {
	if f.ReadFunc == nil {
		return nil, ErrNotSupported
	}
	return f.ReadFunc()
}

func (f Funcs) Write(value string) error {
	if f.WriteFunc == nil {
		return ErrNotSupported
	}
	return f.WriteFunc(value)
}

// ParsePin 解析报文中的引脚号并做范围校验
func ParsePin(word string) (int, error) {
	n, err := strconv.Atoi(word)
	if err != nil {
		return 0, fmt.Errorf("invalid pin %q", word)
	}
	if n < 0 || n >= protocol.MaxVirtualPins {
		return 0, fmt.Errorf("%w: %d", ErrPinOutOfRange, n)
	}
	return n, nil
}
