package pin

import (
	"fmt"

	"github.com/life-stream-dev/life-stream-go-device-agent/internal/logger"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/protocol"
)

// Registry 虚拟引脚注册表，容量固定为协议允许的引脚数
//
// 注册发生在主循环启动之前，之后只读，因此不做并发保护
type Registry struct {
	handlers [protocol.MaxVirtualPins]Handler
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register 绑定处理器到虚拟引脚，重复注册覆盖旧处理器
func (r *Registry) Register(pinNum int, h Handler) error {
	if pinNum < 0 || pinNum >= protocol.MaxVirtualPins {
		return fmt.Errorf("%w: %d", ErrPinOutOfRange, pinNum)
	}
	if h == nil {
		return fmt.Errorf("nil handler for virtual pin %d", pinNum)
	}
	if r.handlers[pinNum] != nil {
		logger.WarnF("Virtual pin %d handler replaced", pinNum)
	}
	r.handlers[pinNum] = h
	return nil
}

// Lookup 返回引脚绑定的处理器
func (r *Registry) Lookup(pinNum int) (Handler, bool) {
	if pinNum < 0 || pinNum >= protocol.MaxVirtualPins {
		return nil, false
	}
	h := r.handlers[pinNum]
	return h, h != nil
}

// Pins 返回已注册处理器的引脚号，升序
func (r *Registry) Pins() []int {
	var pins []int
	for i, h := range r.handlers {
		if h != nil {
			pins = append(pins, i)
		}
	}
	return pins
}
