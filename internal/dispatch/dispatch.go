// Package dispatch 实现了硬件命令帧的解码与路由
package dispatch

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/life-stream-dev/life-stream-go-device-agent/internal/hal"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/logger"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/metrics"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/pin"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/protocol"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/store"
)

// Dispatcher 将平台下发的硬件命令路由到虚拟引脚处理器和硬件抽象层
//
// 由连接主循环独占调用，不做并发保护
type Dispatcher struct {
	registry *pin.Registry
	hardware hal.HAL
	shadow   store.ShadowStore
	ids      *protocol.MessageIDSource

	// 物理引脚命令在平台下发pm配置之前一律忽略
	pinsConfigured bool
}

func NewDispatcher(registry *pin.Registry, hardware hal.HAL, shadow store.ShadowStore, ids *protocol.MessageIDSource) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		hardware: hardware,
		shadow:   shadow,
		ids:      ids,
	}
}

// Reset 在新连接认证成功后调用，平台会重新下发引脚配置
func (d *Dispatcher) Reset() {
	d.pinsConfigured = false
}

// Handle 处理一条硬件命令帧，返回需要回发的报文
//
// 返回错误表示协议违例，调用方应当关闭连接；应用层问题
// （未注册引脚、处理器失败、硬件故障）记录日志后丢弃
func (d *Dispatcher) Handle(header protocol.Header, args []string) ([][]byte, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("empty %s command body, id=%d", header.Type, header.ID)
	}
	command, err := protocol.ParseCommand(args[0])
	if err != nil {
		return nil, err
	}
	params := args[1:]

	switch command {
	case protocol.CmdInfo:
		// 能力交换，无需处理
		return nil, nil
	case protocol.CmdConfigurePins:
		return nil, d.configurePins(params)
	case protocol.CmdVirtualWrite:
		return nil, d.virtualWrite(params)
	case protocol.CmdVirtualRead:
		return d.virtualRead(params)
	case protocol.CmdDigitalWrite, protocol.CmdAnalogWrite:
		return nil, d.hardwareWrite(command, params)
	case protocol.CmdDigitalRead, protocol.CmdAnalogRead:
		return d.hardwareRead(command, params)
	}
	return nil, fmt.Errorf("%w: %q", protocol.ErrUnknownCommand, args[0])
}

// configurePins 处理pm命令，参数为引脚号和模式字的交替序列
func (d *Dispatcher) configurePins(params []string) error {
	if len(params) == 0 || len(params)%2 != 0 {
		return fmt.Errorf("pin configuration expects pin/mode pairs, got %d fields", len(params))
	}
	for i := 0; i < len(params); i += 2 {
		pinNum, err := parseHardwarePin(params[i])
		if err != nil {
			return err
		}
		mode, err := hal.ParseMode(params[i+1])
		if err != nil {
			return fmt.Errorf("%w: %q for pin %d", err, params[i+1], pinNum)
		}
		if err := d.hardware.ConfigurePin(pinNum, mode); err != nil {
			logger.ErrorF("Fail to configure pin %d as %s, details: %v", pinNum, mode, err)
		}
	}
	d.pinsConfigured = true
	logger.InfoF("Hardware pins configured, %d pairs", len(params)/2)
	return nil
}

// virtualWrite 处理vw命令，按下发的取值逐个调用写处理器
func (d *Dispatcher) virtualWrite(params []string) error {
	if len(params) == 0 {
		return errors.New("virtual write without pin")
	}
	pinNum, err := pin.ParsePin(params[0])
	if err != nil {
		if errors.Is(err, pin.ErrPinOutOfRange) {
			logger.WarnF("Virtual write to out of range pin %s, dropped", params[0])
			return nil
		}
		return err
	}
	values := params[1:]
	d.Journal(pinNum, values, store.SourcePlatform)

	handler, ok := d.registry.Lookup(pinNum)
	if !ok {
		logger.WarnF("Virtual write to unregistered pin %d, dropped", pinNum)
		return nil
	}
	for _, value := range values {
		if err := handler.Write(value); err != nil {
			if errors.Is(err, pin.ErrNotSupported) {
				logger.WarnF("Virtual pin %d has no write handler", pinNum)
				return nil
			}
			logger.ErrorF("Virtual pin %d write handler failed, details: %v", pinNum, err)
		}
	}
	return nil
}

// virtualRead 处理vr命令
//
// 读处理器不接收任何参数，返回的取值被编码为一条vw报文回发；
// 返回空切片表示处理器将自行通过虚拟写上报
func (d *Dispatcher) virtualRead(params []string) ([][]byte, error) {
	if len(params) == 0 {
		return nil, errors.New("virtual read without pin")
	}
	pinNum, err := pin.ParsePin(params[0])
	if err != nil {
		if errors.Is(err, pin.ErrPinOutOfRange) {
			logger.WarnF("Virtual read from out of range pin %s, dropped", params[0])
			return nil, nil
		}
		return nil, err
	}
	handler, ok := d.registry.Lookup(pinNum)
	if !ok {
		logger.WarnF("Virtual read from unregistered pin %d, dropped", pinNum)
		return nil, nil
	}

	values, err := handler.Read()
	if err != nil {
		if errors.Is(err, pin.ErrNotSupported) {
			logger.WarnF("Virtual pin %d has no read handler", pinNum)
		} else {
			logger.ErrorF("Virtual pin %d read handler failed, details: %v", pinNum, err)
		}
		return nil, nil
	}
	if len(values) == 0 {
		return nil, nil
	}
	d.Journal(pinNum, values, store.SourceDevice)

	fields := append([]string{protocol.CmdVirtualWrite.String(), params[0]}, values...)
	frame, err := protocol.EncodeMessage(protocol.HW, d.ids.NextID(), fields...)
	if err != nil {
		logger.ErrorF("Fail to encode virtual read reply, details: %v", err)
		return nil, nil
	}
	return [][]byte{frame}, nil
}

// hardwareWrite 处理dw和aw命令
func (d *Dispatcher) hardwareWrite(command protocol.Command, params []string) error {
	if !d.pinsConfigured {
		logger.DebugF("Hardware command %s before pin configuration, ignored", command)
		return nil
	}
	if len(params) < 2 {
		return fmt.Errorf("%s expects pin and value, got %d fields", command, len(params))
	}
	pinNum, err := parseHardwarePin(params[0])
	if err != nil {
		return err
	}
	value, err := strconv.Atoi(params[1])
	if err != nil {
		return fmt.Errorf("invalid %s value %q", command, params[1])
	}

	if command == protocol.CmdDigitalWrite {
		err = d.hardware.DigitalWrite(pinNum, value)
	} else {
		err = d.hardware.AnalogWrite(pinNum, value)
	}
	if err != nil {
		logger.ErrorF("Hardware %s pin %d failed, details: %v", command, pinNum, err)
	}
	return nil
}

// hardwareRead 处理dr和ar命令，读到的取值以对应的写命令字回发
func (d *Dispatcher) hardwareRead(command protocol.Command, params []string) ([][]byte, error) {
	if !d.pinsConfigured {
		logger.DebugF("Hardware command %s before pin configuration, ignored", command)
		return nil, nil
	}
	if len(params) == 0 {
		return nil, fmt.Errorf("%s expects pin", command)
	}
	pinNum, err := parseHardwarePin(params[0])
	if err != nil {
		return nil, err
	}

	var value int
	var reply protocol.Command
	if command == protocol.CmdDigitalRead {
		value, err = d.hardware.DigitalRead(pinNum)
		reply = protocol.CmdDigitalWrite
	} else {
		value, err = d.hardware.AnalogRead(pinNum)
		reply = protocol.CmdAnalogWrite
	}
	if err != nil {
		logger.ErrorF("Hardware %s pin %d failed, details: %v", command, pinNum, err)
		return nil, nil
	}

	frame, err := protocol.EncodeMessage(protocol.HW, d.ids.NextID(), reply.String(), params[0], strconv.Itoa(value))
	if err != nil {
		logger.ErrorF("Fail to encode %s reply, details: %v", command, err)
		return nil, nil
	}
	return [][]byte{frame}, nil
}

// Journal 将虚拟引脚的最近取值写入影子存储
//
// 影子存储只是镜像，写入失败不影响命令处理
func (d *Dispatcher) Journal(pinNum int, values []string, source string) {
	if d.shadow == nil || len(values) == 0 {
		return
	}
	state := store.PinState{
		Pin:       pinNum,
		Values:    values,
		Source:    source,
		UpdatedAt: time.Now(),
	}
	if err := d.shadow.Save(state); err != nil {
		metrics.ShadowWrite("error")
		logger.ErrorF("Fail to journal pin %d state, details: %v", pinNum, err)
		return
	}
	metrics.ShadowWrite("ok")
}

// parseHardwarePin 解析物理引脚号，物理引脚不受虚拟引脚上限约束
func parseHardwarePin(word string) (int, error) {
	pinNum, err := strconv.Atoi(word)
	if err != nil || pinNum < 0 {
		return 0, fmt.Errorf("invalid hardware pin %q", word)
	}
	return pinNum, nil
}
