package hal

import (
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/logger"
)

// Noop 无硬件实现，记录日志并返回零值
//
// 用于纯虚拟引脚的部署和测试环境
type Noop struct{}

func NewNoop() *Noop {
	return &Noop{}
}

func (n *Noop) ConfigurePin(pinNum int, mode Mode) error {
	logger.DebugF("Pin %d configured as %s", pinNum, mode)
	return nil
}

func (n *Noop) DigitalWrite(pinNum int, value int) error {
	logger.DebugF("Digital write pin=%d value=%d", pinNum, value)
	return nil
}

func (n *Noop) DigitalRead(pinNum int) (int, error) {
	logger.DebugF("Digital read pin=%d", pinNum)
	return 0, nil
}

func (n *Noop) AnalogWrite(pinNum int, value int) error {
	logger.DebugF("Analog write pin=%d value=%d", pinNum, value)
	return nil
}

func (n *Noop) AnalogRead(pinNum int) (int, error) {
	logger.DebugF("Analog read pin=%d", pinNum)
	return 0, nil
}
