package protocol

import (
	"errors"
	"fmt"
)

// Command 定义了HW报文体内的硬件命令，在协议边界解码一次
type Command byte

// 硬件命令常量定义
const (
	CmdInfo          Command = iota // 能力交换，无操作
	CmdConfigurePins                // 配置硬件引脚模式
	CmdVirtualWrite                 // 虚拟引脚写入
	CmdVirtualRead                  // 虚拟引脚读取
	CmdDigitalWrite                 // 数字引脚写入
	CmdAnalogWrite                  // 模拟引脚写入
	CmdDigitalRead                  // 数字引脚读取
	CmdAnalogRead                   // 模拟引脚读取
)

// commandWords 将Command映射到其线上指令字
var commandWords = map[Command]string{
	CmdInfo:          "info",
	CmdConfigurePins: "pm",
	CmdVirtualWrite:  "vw",
	CmdVirtualRead:   "vr",
	CmdDigitalWrite:  "dw",
	CmdAnalogWrite:   "aw",
	CmdDigitalRead:   "dr",
	CmdAnalogRead:    "ar",
}

// commandByWord 将线上指令字映射回Command
var commandByWord = map[string]Command{
	"info": CmdInfo,
	"pm":   CmdConfigurePins,
	"vw":   CmdVirtualWrite,
	"vr":   CmdVirtualRead,
	"dw":   CmdDigitalWrite,
	"aw":   CmdAnalogWrite,
	"dr":   CmdDigitalRead,
	"ar":   CmdAnalogRead,
}

// ErrUnknownCommand 未知指令字，属于协议违例，调用方应当关闭连接
var ErrUnknownCommand = errors.New("unknown command")

// ParseCommand 将指令字解码为Command
func ParseCommand(word string) (Command, error) {
	if command, ok := commandByWord[word]; ok {
		return command, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCommand, word)
}

// String 返回Command的线上指令字
func (command Command) String() string {
	return commandWords[command]
}
