// Package hal 定义了数字与模拟引脚的硬件抽象边界
package hal

import "errors"

// Mode 物理引脚工作模式
type Mode byte

const (
	// ModeInput 输入
	ModeInput Mode = iota
	// ModeOutput 输出
	ModeOutput
	// ModePullUp 上拉输入
	ModePullUp
	// ModePullDown 下拉输入
	ModePullDown
)

// ErrUnknownMode 平台下发了未定义的引脚模式
var ErrUnknownMode = errors.New("unknown pin mode")

var modeWords = map[Mode]string{
	ModeInput:    "in",
	ModeOutput:   "out",
	ModePullUp:   "pu",
	ModePullDown: "pd",
}

var modeByWord = map[string]Mode{
	"in":  ModeInput,
	"out": ModeOutput,
	"pu":  ModePullUp,
	"pd":  ModePullDown,
}

func (m Mode) String() string {
	if word, ok := modeWords[m]; ok {
		return word
	}
	return "unknown"
}

// ParseMode 解析报文中的引脚模式字
func ParseMode(word string) (Mode, error) {
	mode, ok := modeByWord[word]
	if !ok {
		return 0, ErrUnknownMode
	}
	return mode, nil
}

// HAL 硬件抽象层
//
// 电气细节由接入方提供，协议层只负责按命令转发
type HAL interface {
	ConfigurePin(pinNum int, mode Mode) error
	DigitalWrite(pinNum int, value int) error
	DigitalRead(pinNum int) (int, error)
	AnalogWrite(pinNum int, value int) error
	AnalogRead(pinNum int) (int, error)
}
